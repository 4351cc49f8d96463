package client

import (
	"net/http"

	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
)

// newCachingTransport honours Cache-Control on GET responses. With an empty
// cacheDir the cache lives in memory for the life of the process, otherwise it
// persists across runs.
func newCachingTransport(cacheDir string, next http.RoundTripper) *httpcache.Transport {
	var cache httpcache.Cache = httpcache.NewMemoryCache()
	if cacheDir != "" {
		cache = diskcache.New(cacheDir)
	}

	transport := httpcache.NewTransport(cache)
	transport.Transport = next
	transport.MarkCachedResponses = true

	return transport
}

// FromCache reports whether resp was served from the local cache.
func FromCache(resp *http.Response) bool {
	return resp.Header.Get(httpcache.XFromCache) == "1"
}
