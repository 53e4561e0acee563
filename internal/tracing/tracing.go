// Copyright 2024 the Landtable authors
// https://github.com/iamawatermelo/landtable
// This file is part of Landtable and is shared under the Polyform Perimeter
// license version 1.0.1. See the LICENSE.md for more information.

// Package tracing implements Server-Timing-style scoped spans.
//
// The original Python implementation threads a Tracer through an
// implicit contextvar. Go has no task-local storage of that kind, so
// here the tracer is an explicit handle threaded through call chains
// (via context.Context, since that's the idiomatic Go equivalent of
// "ambient, per-request state"), per spec.md §9's guidance.
package tracing

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type ctxKey struct{}

// Event records a span that took some amount of wall-clock time.
type Event struct {
	Start      time.Time
	End        time.Time
	Identifier string
	Description string
	Detail     map[string]any
}

// InstantEvent records something that happened at a single point in
// time, with no duration.
type InstantEvent struct {
	At          time.Time
	Identifier  string
	Description string
	Detail      map[string]any
}

// Tracer accumulates trace and instant events for a single logical
// request. The zero value is not usable; construct with New.
type Tracer struct {
	mu       sync.Mutex
	start    time.Time
	end      time.Time
	events   []Event
	instants []InstantEvent
}

// New starts a new Tracer.
func New() *Tracer {
	return &Tracer{start: time.Now()}
}

// Finish records the time at which the tracer's request completed.
func (t *Tracer) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.end = time.Now()
}

// Span starts a scoped trace event; the caller must call the returned
// function exactly once to close it. Safe to use as:
//
//	defer tracer.Span("db", "execute query")()
func (t *Tracer) Span(identifier, description string) func() {
	start := time.Now()
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		t.events = append(t.events, Event{
			Start:       start,
			End:         time.Now(),
			Identifier:  identifier,
			Description: description,
		})
	}
}

// InstantEvent records a zero-duration event, such as a cache hit.
func (t *Tracer) InstantEvent(identifier, description string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.instants = append(t.instants, InstantEvent{
		At:          time.Now(),
		Identifier:  identifier,
		Description: description,
	})
}

// Events returns a copy of the accumulated trace events.
func (t *Tracer) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// ServerTiming renders the accumulated spans as an HTTP Server-Timing
// header value, one entry per span carrying that span's own duration.
func (t *Tracer) ServerTiming() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := ""
	for i, ev := range t.events {
		if i > 0 {
			out += ", "
		}
		durMillis := float64(ev.End.Sub(ev.Start).Microseconds()) / 1000
		out += ev.Identifier + ";dur=" + strconv.FormatFloat(durMillis, 'f', 4, 64)
		if ev.Description != "" {
			out += `;desc="` + ev.Description + `"`
		}
	}
	return out
}

// dummy is the shared Tracer handed out when a context carries none
// (e.g. formula-pipeline unit tests that don't care about tracing). It
// is an ordinary Tracer, not a no-op: spans and instant events recorded
// on it are kept for the life of the process, and nothing renders them.
var dummy = New()

// FromContext returns the Tracer stashed in ctx by WithTracer, or the
// shared fallback Tracer (dummy) if none was set. The core never depends
// on a tracer being present.
func FromContext(ctx context.Context) *Tracer {
	if t, ok := ctx.Value(ctxKey{}).(*Tracer); ok {
		return t
	}
	return dummy
}

// WithTracer returns a derived context carrying t.
func WithTracer(ctx context.Context, t *Tracer) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}
