package client

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/blackwatch/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
)

const RequestIDHeader = "X-Request-ID"

// newTransport assembles the outbound stack, outermost first: request log,
// request id, bearer token, tracing, optional cache, gzip. cfg.Debug logs every
// round trip whatever the global level.
func newTransport(cfg Config, tokens TokenSource, base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	rt := gzhttp.Transport(base)
	if cfg.Cache {
		rt = newCachingTransport(cfg.CacheDir, rt)
	}
	rt = otelhttp.NewTransport(rt)
	rt = &bearerTransport{tokens: tokens, next: rt}
	rt = &requestIDTransport{next: rt}

	reqLog := log.Logger
	if cfg.Debug && reqLog.GetLevel() > zerolog.DebugLevel {
		reqLog = reqLog.Level(zerolog.DebugLevel)
	}

	return logger.NewRequestLogger(reqLog, rt)
}

// bearerTransport attaches the session token when one is held. Requests are
// never blocked for lack of a token.
type bearerTransport struct {
	tokens TokenSource
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.tokens.Token()
	if token == "" {
		return t.next.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(req)

	return t.next.RoundTrip(req)
}

type requestIDTransport struct {
	next http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) != "" {
		return t.next.RoundTrip(req)
	}

	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	req = req.Clone(req.Context())
	req.Header.Set(RequestIDHeader, id.String())

	return t.next.RoundTrip(req)
}
