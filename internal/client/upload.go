package client

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// DefaultUploadField is the multipart field the API expects files under.
const DefaultUploadField = "file"

// Progress reports how much of an upload has been written. Total is -1 when
// the size is unknown.
type Progress struct {
	Sent  int64
	Total int64
}

// Percent returns completion in whole percent, or -1 when Total is unknown.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return -1
	}
	return int(p.Sent * 100 / p.Total)
}

// Upload streams r as a multipart file to path and decodes the response into
// out. progress, when set, is called after every chunk is written.
func (c *Client) Upload(ctx context.Context, path, fieldName, fileName string, r io.Reader, size int64, progress func(Progress), out any) error {
	if fieldName == "" {
		fieldName = DefaultUploadField
	}
	if size <= 0 {
		size = -1
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(fieldName, fileName)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("failed to create form file: %w", err))
			return
		}

		src := r
		if progress != nil {
			src = &progressReader{r: r, total: size, fn: progress}
		}

		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(fmt.Errorf("failed to stream %s: %w", fileName, err))
			return
		}

		pw.CloseWithError(mw.Close())
	}()

	err := c.send(ctx, http.MethodPost, path, mw.FormDataContentType(), pr, out)

	// unblocks the writer when the request ended before the body was consumed
	pr.Close()

	return err
}

type progressReader struct {
	r     io.Reader
	sent  int64
	total int64
	fn    func(Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.fn(Progress{Sent: p.sent, Total: p.total})
	}
	return n, err
}
