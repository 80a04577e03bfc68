// Package source retrieves the leaderboard dataset and parses it into raw
// records. A Source only knows how to open the resource; Loader does the
// parsing, so the ranking engine never depends on the transport.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Source opens the dataset resource. Every Open re-reads the resource; there
// is no caching between calls.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// Options carries the dependencies Resolve may need to build a Source.
type Options struct {
	HTTPClient *http.Client
	S3         S3Config
	Stdin      io.Reader
}

// Resolve picks a Source for location:
//
//	-                      standard input
//	http://..., https://   HTTP GET
//	s3://bucket/key        S3 compatible object storage
//	file:///path, path     local file
func Resolve(location string, opts Options) (Source, error) {
	loc := strings.TrimSpace(location)
	switch {
	case loc == "":
		return nil, fmt.Errorf("%w: empty location", ErrUnsupportedSource)
	case loc == "-":
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		return NewReaderSource("stdin", in), nil
	case strings.HasPrefix(loc, "http://"), strings.HasPrefix(loc, "https://"):
		return NewHTTPSource(loc, WithHTTPClient(opts.HTTPClient)), nil
	case strings.HasPrefix(loc, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(loc, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return nil, fmt.Errorf("%w: %q must be s3://bucket/key", ErrUnsupportedSource, loc)
		}
		return NewS3Source(bucket, key, NewS3Client(opts.S3)), nil
	case strings.HasPrefix(loc, "file://"):
		return NewFileSource(strings.TrimPrefix(loc, "file://")), nil
	case strings.Contains(loc, "://"):
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, loc)
	default:
		return NewFileSource(loc), nil
	}
}

// FileSource reads a local file.
type FileSource struct {
	path string
}

// NewFileSource returns a Source for the file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) String() string { return s.path }

// Open opens the file. A missing or unreadable file is a FetchError.
func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &FetchError{Source: s.path, Err: err}
	}
	return f, nil
}

// ReaderSource serves an already open stream. A stream can be consumed once;
// later Opens see an empty resource.
type ReaderSource struct {
	name string
	r    io.Reader
}

// NewReaderSource wraps r under a display name.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

func (s *ReaderSource) String() string { return s.name }

// Open returns the wrapped stream. Closing it does not close the underlying reader.
func (s *ReaderSource) Open(_ context.Context) (io.ReadCloser, error) {
	return io.NopCloser(s.r), nil
}
