package fetch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// resetter is implemented by sinks that can discard a partial earlier attempt
type resetter interface {
	Reset()
}

// SinkOperation copies the response body into a writer and returns the byte count.
// If the sink has a Reset method (bytes.Buffer does) it is called before every attempt.
type SinkOperation struct {
	*Base
	opener Opener
	sink   io.Writer
}

// NewSinkOperation creates a sink operation
func NewSinkOperation(opener Opener, locator string, sink io.Writer, opts ...Option) *SinkOperation {
	return &SinkOperation{
		Base:   NewBase(locator, opts...),
		opener: opener,
		sink:   sink,
	}
}

// Attempt fetches the body once into the sink
func (o *SinkOperation) Attempt(ctx context.Context) (int64, error) {
	resp, err := openOK(ctx, o.opener, o.Locator())
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if r, ok := o.sink.(resetter); ok {
		r.Reset()
	}

	return copyChunks(o.sink, resp.Body)
}

// FileOperation downloads into a file. The file is truncated on every
// attempt, so a failed partial download never survives a retry.
type FileOperation struct {
	*Base
	opener Opener
	path   string
}

// NewFileOperation creates a file operation
func NewFileOperation(opener Opener, locator, path string, opts ...Option) *FileOperation {
	return &FileOperation{
		Base:   NewBase(locator, opts...),
		opener: opener,
		path:   path,
	}
}

// Path returns the destination file path
func (o *FileOperation) Path() string {
	return o.path
}

// Attempt downloads the body once into the file
func (o *FileOperation) Attempt(ctx context.Context) (n int64, err error) {
	resp, err := openOK(ctx, o.opener, o.Locator())
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	f, err := os.Create(o.path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", o.path, cerr)
		}
	}()

	w := bufio.NewWriterSize(f, ChunkSize)
	n, err = copyChunks(w, resp.Body)
	if err != nil {
		return n, err
	}
	if err := w.Flush(); err != nil {
		return n, fmt.Errorf("flush %s: %w", o.path, err)
	}

	return n, nil
}

// copyChunks copies src into dst ChunkSize bytes at a time
func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	chunk := make([]byte, ChunkSize)
	var written int64

	for {
		nr, rerr := src.Read(chunk)
		if nr > 0 {
			nw, werr := dst.Write(chunk[:nr])
			written += int64(nw)
			if werr != nil {
				return written, fmt.Errorf("write: %w", werr)
			}
			if nw != nr {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, fmt.Errorf("read body: %w", rerr)
		}
	}
}
