package tracing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracerRecordsSpans(t *testing.T) {
	tr := NewTracer("specs parse", true, 1)
	assert.Len(t, tr.TraceID(), 36)

	root := tr.StartSpan("parse", "", map[string]string{"feature": "001"})
	assert.Len(t, root.SpanID, 8)

	child := tr.StartSpan("write registry", root.SpanID, nil)
	child.End(nil)
	root.End(nil)

	dir := t.TempDir()
	require.NoError(t, tr.Finish(dir))

	traces, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, traces, 1)

	trace := traces[0]
	assert.Equal(t, tr.TraceID(), trace.TraceID)
	assert.Equal(t, "specs parse", trace.Name)
	require.Len(t, trace.Spans, 2)
	assert.Equal(t, "write registry", trace.Spans[0].Name)
	assert.Equal(t, root.SpanID, trace.Spans[0].ParentSpanID)
	assert.Equal(t, "ok", trace.Spans[0].Status)
}

func TestSpanErrorStatus(t *testing.T) {
	tr := NewTracer("tasks update", true, 1)
	span := tr.StartSpan("save", "", nil)
	span.End(errors.New("disk full"))

	dir := t.TempDir()
	require.NoError(t, tr.Finish(dir))

	traces, err := ReadAll(dir)
	require.NoError(t, err)
	require.Len(t, traces[0].Spans, 1)
	assert.Equal(t, "error", traces[0].Spans[0].Status)
	assert.Equal(t, "disk full", traces[0].Spans[0].Attributes["error"])
}

func TestDisabledTracerWritesNothing(t *testing.T) {
	tr := NewTracer("noop", false, 1)
	span := tr.StartSpan("work", "", nil)
	span.End(nil)

	dir := t.TempDir()
	require.NoError(t, tr.Finish(dir))

	traces, err := ReadAll(dir)
	require.NoError(t, err)
	assert.Empty(t, traces)
}

func TestSampleRateZeroDisablesTracing(t *testing.T) {
	dir := t.TempDir()
	tr := NewTracer("sampled out", true, 0)
	tr.StartSpan("work", "", nil).End(nil)
	require.NoError(t, tr.Finish(dir))

	traces, err := ReadAll(dir)
	require.NoError(t, err)
	assert.Empty(t, traces)
}

func TestFinishAppends(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		tr := NewTracer("run", true, 1)
		require.NoError(t, tr.Finish(dir))
	}

	traces, err := ReadAll(dir)
	require.NoError(t, err)
	assert.Len(t, traces, 3)
}
