// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tracing records execution traces for CLI commands as JSON lines
// under the observability directory.
package tracing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Span is one timed unit of work within a trace.
type Span struct {
	SpanID       string            `json:"span_id"`
	ParentSpanID string            `json:"parent_span_id,omitempty"`
	Name         string            `json:"name"`
	StartedAt    string            `json:"started_at"`
	EndedAt      string            `json:"ended_at,omitempty"`
	DurationMS   int64             `json:"duration_ms"`
	Status       string            `json:"status"` // ok or error
	Attributes   map[string]string `json:"attributes,omitempty"`

	start  time.Time
	tracer *Tracer
}

// Trace is the persisted record of one command execution.
type Trace struct {
	TraceID   string `json:"trace_id"`
	Name      string `json:"name"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at"`
	Spans     []Span `json:"spans"`
}

// Tracer accumulates spans for a single trace. Safe for concurrent use.
type Tracer struct {
	mu      sync.Mutex
	traceID string
	name    string
	started time.Time
	spans   []Span
	enabled bool
}

// NewTracer starts a new trace. A disabled tracer records nothing, which
// keeps call sites unconditional. sampleRate is the fraction of traces to
// record; the decision is made once per trace so a trace is never partial.
func NewTracer(name string, enabled bool, sampleRate float64) *Tracer {
	if enabled && sampleRate < 1 {
		enabled = sampleRate > 0 && rand.Float64() < sampleRate
	}
	return &Tracer{
		traceID: uuid.NewString(),
		name:    name,
		started: time.Now(),
		enabled: enabled,
	}
}

// TraceID returns the trace's UUID.
func (t *Tracer) TraceID() string {
	return t.traceID
}

// StartSpan begins a span. parentID may be empty for root spans.
func (t *Tracer) StartSpan(name, parentID string, attrs map[string]string) *Span {
	return &Span{
		SpanID:       uuid.NewString()[:8],
		ParentSpanID: parentID,
		Name:         name,
		StartedAt:    time.Now().Format(time.RFC3339Nano),
		Status:       "ok",
		Attributes:   attrs,
		start:        time.Now(),
		tracer:       t,
	}
}

// End closes the span. A non-nil err marks it failed and records the message.
func (s *Span) End(err error) {
	now := time.Now()
	s.EndedAt = now.Format(time.RFC3339Nano)
	s.DurationMS = now.Sub(s.start).Milliseconds()
	if err != nil {
		s.Status = "error"
		if s.Attributes == nil {
			s.Attributes = map[string]string{}
		}
		s.Attributes["error"] = err.Error()
	}

	t := s.tracer
	if t == nil || !t.enabled {
		return
	}
	t.mu.Lock()
	t.spans = append(t.spans, *s)
	t.mu.Unlock()
}

// Finish appends the completed trace to {obsDir}/traces.jsonl. Disabled
// tracers write nothing.
func (t *Tracer) Finish(obsDir string) error {
	if !t.enabled {
		return nil
	}

	t.mu.Lock()
	trace := Trace{
		TraceID:   t.traceID,
		Name:      t.name,
		StartedAt: t.started.Format(time.RFC3339Nano),
		EndedAt:   time.Now().Format(time.RFC3339Nano),
		Spans:     t.spans,
	}
	t.mu.Unlock()

	if err := os.MkdirAll(obsDir, 0o755); err != nil {
		return fmt.Errorf("creating observability directory: %w", err)
	}

	f, err := os.OpenFile(tracesPath(obsDir), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening trace log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("encoding trace: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}

func tracesPath(obsDir string) string {
	return filepath.Join(obsDir, "traces.jsonl")
}

// ReadAll loads every recorded trace, newest last.
func ReadAll(obsDir string) ([]Trace, error) {
	data, err := os.ReadFile(tracesPath(obsDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading traces: %w", err)
	}

	var traces []Trace
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var tr Trace
		if err := json.Unmarshal(line, &tr); err != nil {
			// Skip corrupt lines rather than losing the whole history.
			continue
		}
		traces = append(traces, tr)
	}
	return traces, nil
}
