package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	log, err := Init("test-service", Config{Level: "debug"})
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))
	assert.Same(t, log, zap.L())
}

func TestInit_BadLevel(t *testing.T) {
	_, err := Init("test-service", Config{Level: "loud"})
	assert.Error(t, err)
}

func TestInit_WritesRotatedFile(t *testing.T) {
	dir := t.TempDir()
	log, err := Init("filetest", Config{Level: "info", FilePath: dir, MaxSize: 1})
	require.NoError(t, err)

	log.Info("hello", zap.String("symbol", "TCS"))
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, "filetest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"hello"`)
	assert.Contains(t, string(b), `"service":"filetest"`)
}

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", TraceID(ctx))

	ctx = WithTraceID(ctx, "test-trace-123")
	assert.Equal(t, "test-trace-123", TraceID(ctx))
}

func TestGenerateTraceID(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	tid := GenerateTraceID("NIFTY", ts)

	assert.True(t, strings.HasPrefix(tid, "NIFTY-"), tid)
	assert.Contains(t, tid, "123456789")
}

func TestFields(t *testing.T) {
	assert.Nil(t, Fields(context.Background()))

	fields := Fields(WithTraceID(context.Background(), "abc-123"))
	require.Len(t, fields, 1)
	assert.Equal(t, "trace_id", fields[0].Key)
	assert.Equal(t, "abc-123", fields[0].String)
}
