package llmclient

import (
	"compress/flate"
	"compress/gzip"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

const acceptEncoding = "gzip, deflate, br"

// decodedBody closes both the decompressor and the underlying body.
type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (d *decodedBody) Close() error {
	var first error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// decodeBody wraps body according to Content-Encoding. Unknown encodings
// are passed through untouched.
func decodeBody(body io.ReadCloser, contentEncoding string) (io.ReadCloser, error) {
	encoding := strings.ToLower(strings.TrimSpace(strings.Split(contentEncoding, ",")[0]))

	switch encoding {
	case "gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, err
		}
		return &decodedBody{Reader: zr, closers: []io.Closer{zr, body}}, nil
	case "deflate":
		fr := flate.NewReader(body)
		return &decodedBody{Reader: fr, closers: []io.Closer{fr, body}}, nil
	case "br":
		return &decodedBody{Reader: brotli.NewReader(body), closers: []io.Closer{body}}, nil
	default:
		return body, nil
	}
}
