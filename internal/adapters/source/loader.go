package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/arcadeboard/internal/domain/model"
)

const (
	defaultMaxBytes = 32 << 20
	tracerName      = "github.com/okian/arcadeboard/internal/adapters/source"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMaxBytes caps how much of the resource is read.
func WithMaxBytes(n int64) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxBytes = n
		}
	}
}

// WithTracer overrides the tracer. Defaults to the global provider.
func WithTracer(t trace.Tracer) LoaderOption {
	return func(l *Loader) {
		if t != nil {
			l.tracer = t
		}
	}
}

// Loader reads a Source as comma separated text with a header row.
type Loader struct {
	maxBytes int64
	tracer   trace.Tracer
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		maxBytes: defaultMaxBytes,
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load fetches src once and parses it. The first non-blank line names the
// columns; every following non-blank line becomes one record, in source order.
// Blank lines are skipped. Failures are a *FetchError or a *ParseError.
func (l *Loader) Load(ctx context.Context, src Source) ([]model.RawRecord, error) {
	ctx, span := l.tracer.Start(ctx, "source.Load", trace.WithAttributes(
		attribute.String("dataset.source", src.String()),
	))
	defer span.End()

	start := time.Now()
	records, err := l.load(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Kind(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("dataset.records", len(records)),
		attribute.Int64("dataset.load_ms", time.Since(start).Milliseconds()),
	)
	return records, nil
}

func (l *Loader) load(ctx context.Context, src Source) ([]model.RawRecord, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{Source: src.String(), Err: err}
	}
	defer func() { _ = rc.Close() }()

	return ParseCSV(src.String(), &capReader{r: rc, left: l.maxBytes + 1})
}

// ParseCSV parses comma separated text with a header row. It is the parsing
// half of Load; name is used in error messages only.
func ParseCSV(name string, r io.Reader) ([]model.RawRecord, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	// Quotes inside unquoted fields are kept as literal text.
	cr.LazyQuotes = true

	var header []string
	for header == nil {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Source: name, Err: ErrEmptyResource}
		}
		if err != nil {
			return nil, classify(name, err)
		}
		if isBlank(row) {
			continue
		}
		header = row
	}
	if err := checkHeader(header); err != nil {
		line, _ := cr.FieldPos(0)
		return nil, &ParseError{Source: name, Line: line, Err: err}
	}

	var records []model.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, classify(name, err)
		}
		if isBlank(row) {
			continue
		}
		if len(row) != len(header) {
			line, _ := cr.FieldPos(0)
			return nil, &ParseError{
				Source: name,
				Line:   line,
				Err:    fmt.Errorf("expected %d fields, got %d", len(header), len(row)),
			}
		}
		rec := make(model.RawRecord, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}
	if records == nil {
		records = []model.RawRecord{}
	}
	return records, nil
}

func checkHeader(header []string) error {
	seen := make(map[string]struct{}, len(header))
	for _, col := range header {
		if _, dup := seen[col]; dup {
			return fmt.Errorf("duplicate column %q", col)
		}
		seen[col] = struct{}{}
	}
	return nil
}

// isBlank reports a line with no content. encoding/csv already drops empty
// lines; whitespace-only lines arrive as a single blank field.
func isBlank(row []string) bool {
	return len(row) == 1 && strings.TrimSpace(row[0]) == ""
}

// classify turns a csv reader error into a ParseError, or a FetchError when
// the underlying stream failed.
func classify(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Source: name, Line: pe.Line, Err: pe.Err}
	}
	return &FetchError{Source: name, Err: err}
}

// capReader fails with ErrTooLarge once more than the limit has been read.
// left starts at limit+1 so a resource of exactly limit bytes still ends in EOF.
type capReader struct {
	r    io.Reader
	left int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.left <= 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > c.left {
		p = p[:c.left]
	}
	n, err := c.r.Read(p)
	c.left -= int64(n)
	if c.left <= 0 {
		return n, ErrTooLarge
	}
	return n, err
}
