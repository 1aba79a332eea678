package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObserved(level zapcore.Level) (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestLogStoreOperationRejected(t *testing.T) {
	log, logs := newObserved(zapcore.DebugLevel)

	log.LogStoreOperation("update", "Squat", 1.5, errors.New("exercise not found"))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "Squat", fields["exercise"])
	assert.Equal(t, "exercise not found", fields["error"])
	assert.Equal(t, "update", fields["operation"])
}

func TestLogStoreOperationApplied(t *testing.T) {
	log, logs := newObserved(zapcore.DebugLevel)

	log.LogStoreOperation("delete_all", "", 0.2, nil)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.NotContains(t, entries[0].ContextMap(), "exercise")
	assert.NotContains(t, entries[0].ContextMap(), "error")
}

func TestWithComponentKeepsParentFields(t *testing.T) {
	log, logs := newObserved(zapcore.InfoLevel)

	log.WithComponent("watcher").WithExercise("Plank").Infow("Document loaded", "path", "/tmp/x")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "watcher", fields["component"])
	assert.Equal(t, "Plank", fields["exercise"])
	assert.Equal(t, "/tmp/x", fields["path"])
}
