package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test errors
var (
	errHandler1 = errors.New("handler1 error")
	errHandler2 = errors.New("handler2 error")
)

// mockHandler is a test implementation of slog.Handler
type mockHandler struct {
	mu          sync.Mutex
	enabled     bool
	records     []slog.Record
	attrs       []slog.Attr
	groups      []string
	handleError error
}

func newMockHandler(enabled bool) *mockHandler {
	return &mockHandler{enabled: enabled}
}

func (m *mockHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return m.enabled
}

func (m *mockHandler) Handle(_ context.Context, r slog.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handleError != nil {
		return m.handleError
	}
	m.records = append(m.records, r.Clone())
	return nil
}

func (m *mockHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mockHandler{
		enabled:     m.enabled,
		attrs:       append(append([]slog.Attr(nil), m.attrs...), attrs...),
		groups:      m.groups,
		handleError: m.handleError,
	}
}

func (m *mockHandler) WithGroup(name string) slog.Handler {
	return &mockHandler{
		enabled:     m.enabled,
		attrs:       m.attrs,
		groups:      append(append([]string(nil), m.groups...), name),
		handleError: m.handleError,
	}
}

func (m *mockHandler) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func TestNewMultiHandler(t *testing.T) {
	_, err := NewMultiHandler()
	assert.ErrorIs(t, err, ErrNoHandlers)

	_, err = NewMultiHandler(nil, nil)
	assert.ErrorIs(t, err, ErrNoHandlers)

	h, err := NewMultiHandler(newMockHandler(true), nil)
	require.NoError(t, err)
	assert.Len(t, h.Handlers(), 1)
}

func TestMultiHandler_Handle(t *testing.T) {
	enabled := newMockHandler(true)
	disabled := newMockHandler(false)
	h, err := NewMultiHandler(enabled, disabled)
	require.NoError(t, err)

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))

	r := slog.NewRecord(time.Now(), slog.LevelError, "report", 0)
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, 1, enabled.count())
	assert.Equal(t, 0, disabled.count())
}

func TestMultiHandler_AllDisabled(t *testing.T) {
	h, err := NewMultiHandler(newMockHandler(false), newMockHandler(false))
	require.NoError(t, err)
	assert.False(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	h1 := newMockHandler(true)
	h1.handleError = errHandler1
	h2 := newMockHandler(true)
	h2.handleError = errHandler2
	h3 := newMockHandler(true)

	h, err := NewMultiHandler(h1, h2, h3)
	require.NoError(t, err)

	err = h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "x", 0))
	assert.ErrorIs(t, err, errHandler1)
	assert.ErrorIs(t, err, errHandler2)
	assert.Equal(t, 1, h3.count(), "a failing handler must not stop the others")
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	base := newMockHandler(true)
	h, err := NewMultiHandler(base)
	require.NoError(t, err)

	withAttrs := h.WithAttrs([]slog.Attr{slog.String("run_id", "r1")}).(*MultiHandler)
	inner := withAttrs.Handlers()[0].(*mockHandler)
	assert.Len(t, inner.attrs, 1)
	assert.Empty(t, base.attrs, "original handler must not change")

	grouped := h.WithGroup("report").(*MultiHandler)
	assert.Equal(t, []string{"report"}, grouped.Handlers()[0].(*mockHandler).groups)
}
