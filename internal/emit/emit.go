// Package emit is the hot path agents invoke on every hook: read the raw
// payload, extract a span, and hand it to each sink within a fixed budget.
//
// Nothing here ever reports failure to the caller. A hook that fails or
// blocks would degrade the agent it instruments, so every error is logged
// and dropped.
package emit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/span"
)

const (
	// DefaultTimeout bounds one emission end to end.
	DefaultTimeout = 2 * time.Second
	// MaxPayloadBytes caps how much of stdin is read.
	MaxPayloadBytes = 4 << 20
)

var (
	// ErrEmptyPayload means stdin held nothing but whitespace.
	ErrEmptyPayload = errors.New("payload is empty")
	// ErrPayloadTooLarge means stdin exceeded MaxPayloadBytes.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Sink receives extracted spans.
type Sink interface {
	Name() string
	Send(ctx context.Context, spans []span.Span) error
}

// Options configures a Dispatcher.
type Options struct {
	Extractor *span.Extractor
	Sinks     []Sink
	Timeout   time.Duration
}

// Dispatcher turns raw hook payloads into spans and fans them out to sinks.
type Dispatcher struct {
	extractor *span.Extractor
	sinks     []Sink
	timeout   time.Duration
}

// New builds a Dispatcher. A nil extractor uses version "dev" with no project.
func New(opts Options) *Dispatcher {
	x := opts.Extractor
	if x == nil {
		x = span.NewExtractor("dev", "")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{extractor: x, sinks: opts.Sinks, timeout: timeout}
}

// Emit reads one payload from in and delivers the resulting span. It never
// fails and returns once every sink has finished or the budget is spent.
func (d *Dispatcher) Emit(ctx context.Context, source span.Source, eventType string, in io.Reader) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	s, err := d.dispatch(ctx, source, eventType, in)
	if err != nil {
		log.Debug(log.CatEmit, "dropped event", "source", source, "event", eventType,
			"error", err, "duration", time.Since(start))
		return
	}
	log.Debug(log.CatEmit, "emitted", "span", s.Name(), "span_id", s.SpanID,
		"session", s.SessionID, "duration", time.Since(start))
}

// dispatch returns the delivered span, or the first reason it was dropped.
// A span counts as delivered when at least one sink accepted it.
func (d *Dispatcher) dispatch(ctx context.Context, source span.Source, eventType string, in io.Reader) (span.Span, error) {
	raw, err := readPayload(in)
	if err != nil {
		return span.Span{}, err
	}
	log.Payload(string(source), eventType, raw)

	s, err := d.extractor.Extract(source, eventType, raw)
	if err != nil {
		return span.Span{}, err
	}
	if len(d.sinks) == 0 {
		return s, nil
	}

	batch := []span.Span{s}
	var errs []error
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, batch); err != nil {
			log.Warn(log.CatEmit, "sink failed", "sink", sink.Name(), "span", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	if len(errs) == len(d.sinks) {
		return s, errors.Join(errs...)
	}
	return s, nil
}

func readPayload(in io.Reader) ([]byte, error) {
	if in == nil {
		return nil, ErrEmptyPayload
	}
	raw, err := io.ReadAll(io.LimitReader(in, MaxPayloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	if len(raw) > MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyPayload
	}
	return raw, nil
}
