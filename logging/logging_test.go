package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", DebugLevel, true},
		{"INFO", InfoLevel, true},
		{"warning", WarnLevel, true},
		{" error ", ErrorLevel, true},
		{"fatal", FatalLevel, true},
		{"verbose", InfoLevel, false},
	}

	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	l := NewWriterLogger(&out, &errOut)

	l.Debug("hidden")
	l.Info("frames computed", Fields{"frames": 3})
	l.Warn("odd hop")
	l.Error(errors.New("boom"), "estimate failed")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[INFO] frames computed {frames=3}")
	assert.Contains(t, errOut.String(), "[WARN] odd hop")
	assert.Contains(t, errOut.String(), "[ERROR] estimate failed: boom")
}

func TestDefaultLoggerFieldsAreSortedAndInherited(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger(&out, &out).WithFields(Fields{"component": "pipeline"})
	l.SetLevel(DebugLevel)

	l.Debug("done", Fields{"bins": 513, "alpha": true})

	assert.Contains(t, out.String(), "{alpha=true bins=513 component=pipeline}")
}

func TestFatalCallsExit(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger(&out, &out)

	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal(errors.New("bad"), "giving up")
	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "[FATAL] giving up: bad")
}

func TestWithContextUsesStoredFields(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger(&out, &out)

	ctx := ContextWithFields(context.Background(), Fields{"file": "a.wav"})
	ctx = ContextWithFields(ctx, Fields{"job": 2})

	fields, ok := FieldsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, Fields{"file": "a.wav", "job": 2}, fields)

	l.WithContext(ctx).Info("loaded")
	assert.Contains(t, out.String(), "{file=a.wav job=2}")
}

func TestSetGlobalLoggerNilInstallsNoOp(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)

	// must not panic
	Info("ignored")
	WithFields(Fields{"a": 1}).Error(errors.New("x"), "ignored")
}

func TestDefaultLoggerColorsWarnAndError(t *testing.T) {
	var out bytes.Buffer
	l := NewWriterLogger(&out, &out)
	l.useColors = true

	l.Info("plain")
	l.Warn("careful")
	l.Error(errors.New("x"), "failed")

	assert.Contains(t, out.String(), "[INFO] plain\n")
	assert.Contains(t, out.String(), ColorYellow+"[WARN] careful"+ColorReset)
	assert.Contains(t, out.String(), ColorRed+"[ERROR] failed: x"+ColorReset)
}
