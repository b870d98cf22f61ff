package logging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newBufferedLogger(level LogLevel) (*BotLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = &buf
	return NewLogger(cfg), &buf
}

func TestBotLoggerStructuredArgs(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.Warn("auto-defer failed", "command", "ping", "error", "already acked")

	out := buf.String()
	assert.Contains(t, out, `msg="auto-defer failed"`)
	assert.Contains(t, out, "command=ping")
	assert.Contains(t, out, `error="already acked"`)
	assert.NotContains(t, out, "%!")
}

func TestBotLoggerOddArgs(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.Info("dispatch completed", "command", "ping", "orphan")

	out := buf.String()
	assert.Contains(t, out, "command=ping")
	assert.Contains(t, out, "arg=orphan")
	assert.NotContains(t, out, "%!")
}

func TestBotLoggerLevelGate(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelWarn)

	logger.Debug("hidden", "k", "v")
	logger.Info("hidden too")
	logger.Error("visible", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible")
	assert.Contains(t, out, "k=v")
}

func TestBotLoggerContextHelpers(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.
		WithComponent("sage").
		WithInteraction("settings/reset", "int-1").
		WithContext("guild", "g-1").
		Info("interaction deferred", "buffer", 250*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "component=sage")
	assert.Contains(t, out, "command=settings/reset")
	assert.Contains(t, out, "interaction_id=int-1")
	assert.Contains(t, out, "guild=g-1")
	assert.Contains(t, out, "buffer=250ms")
}

func TestBotLoggerErrorWithStack(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.ErrorWithStack(errors.New("boom"), "handler panicked", "command", "ping")

	out := buf.String()
	assert.Contains(t, out, `msg="handler panicked"`)
	assert.Contains(t, out, "error=boom")
	assert.Contains(t, out, "command=ping")
	assert.Contains(t, out, "stack_trace=")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLevel("anything else"))
}
