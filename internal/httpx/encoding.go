package httpx

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// AcceptEncoding is sent on every request. Setting it by hand turns off the
// transport's transparent gzip, so decodeBody handles both encodings.
const AcceptEncoding = "br, gzip"

func decodeBody(contentEncoding string, body []byte) ([]byte, error) {
	var r io.Reader
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return body, nil
	case "br":
		r = brotli.NewReader(bytes.NewReader(body))
	case "gzip", "x-gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("httpx: gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	default:
		return nil, fmt.Errorf("httpx: unsupported content encoding %q", contentEncoding)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("httpx: decode %s body: %w", contentEncoding, err)
	}
	return out, nil
}
