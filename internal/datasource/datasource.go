// Package datasource defines the byte-level input contract used by the
// extractor. Concrete sources live in subpackages (file, blob).
package datasource

import (
	"context"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Source opens a named input for reading. Implementations must honor ctx
// cancellation at open time and return errors that wrap the underlying cause.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// IsGzip reports whether name denotes a gzip-compressed input.
func IsGzip(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gz")
}

// gzipReadCloser closes both the decompressor and the underlying stream.
type gzipReadCloser struct {
	*gzip.Reader
	under io.Closer
}

func (g *gzipReadCloser) Close() error {
	gerr := g.Reader.Close()
	if err := g.under.Close(); err != nil {
		return err
	}
	return gerr
}

// MaybeGunzip wraps rc with a gzip decompressor when name ends in ".gz".
// On error rc is closed.
func MaybeGunzip(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	if !IsGzip(name) {
		return rc, nil
	}
	zr, err := gzip.NewReader(rc)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return &gzipReadCloser{Reader: zr, under: rc}, nil
}
