package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferedLogger(level LogLevel) (*RuntimeLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf
	cfg.AddSource = false
	return NewLogger(cfg), buf
}

func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	logger.Info("visible")
	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "visible", entries[0]["msg"])
}

func TestPrintfStyleMessages(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.Warn("dropping %d packets from %s", 3, "north")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "dropping 3 packets from north", entries[0]["msg"])
	assert.Equal(t, "WARN", entries[0]["level"])
}

func TestWithStoreAttachesIdentifiers(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	scoped := logger.WithStore("root", "city@0000000000000001")
	scoped.Info("resource updated")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "root", entries[0]["store"])
	assert.Equal(t, "city@0000000000000001", entries[0]["resource"])

	// Cloning must not leak back into the parent.
	buf.Reset()
	logger.Info("plain")
	entries = decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0], "store")
}

func TestWithComponentAndContext(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	logger.WithComponent("wire").WithContext("port", 2).Info("routing")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "wire", entries[0]["component"])
	assert.Equal(t, float64(2), entries[0]["port"])
}

func TestLogDispatchCycle(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.LogDispatchCycle("city@01", 2, 1, time.Millisecond, nil)
	logger.LogDispatchCycle("city@01", 0, 0, time.Millisecond, fmt.Errorf("queue stalled"))

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "Dispatch cycle completed", entries[0]["msg"])
	assert.Equal(t, float64(2), entries[0]["mutating"])
	assert.Equal(t, "Dispatch cycle failed", entries[1]["msg"])
	assert.Equal(t, "queue stalled", entries[1]["error"])
	assert.Equal(t, "ERROR", entries[1]["level"])
}

func TestLogPacketRoute(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.LogPacketRoute("name", 0, true, nil)

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Packet routed", entries[0]["msg"])
	assert.Equal(t, "name", entries[0]["field_name"])
	assert.Equal(t, true, entries[0]["applied"])
}

func TestLogIntern(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelDebug)

	logger.LogIntern("root", 0x0100abcd, 3, time.Microsecond)

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Interned level", entries[0]["msg"])
	assert.Equal(t, "root", entries[0]["intern_level"])
	assert.Equal(t, float64(3), entries[0]["tag_count"])
}

func TestStartTimerLogsDuration(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	stop := logger.StartTimer("link")
	stop()

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Operation completed", entries[0]["msg"])
}

func TestLogPerformanceMetrics(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelInfo)

	logger.LogPerformance("intern", 2*time.Millisecond, map[string]interface{}{"tags": 5})

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "Performance metrics", entries[0]["msg"])
	assert.Equal(t, float64(5), entries[0]["metric_tags"])
}

func TestErrorWithStackIncludesTrace(t *testing.T) {
	logger, buf := newBufferedLogger(LogLevelError)

	logger.ErrorWithStack(fmt.Errorf("slot held"), "borrow failed")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "borrow failed", entries[0]["msg"])
	assert.Equal(t, "slot held", entries[0]["error"])
	assert.NotEmpty(t, entries[0]["stack_trace"])
}

func TestSlogAdapterKeepsKeyValuePairs(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewSlogAdapter(slog.New(slog.NewJSONHandler(buf, nil)))

	logger.Info("packet routed", "field", "name")

	entries := decodeEntries(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "packet routed", entries[0]["msg"])
	assert.Equal(t, "name", entries[0]["field"])
}

func TestTextFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Format = "text"
	cfg.Output = buf
	cfg.AddSource = false
	logger := NewLogger(cfg)

	logger.Info("hello town")
	assert.Contains(t, buf.String(), "hello town")
}

func TestNoOpLoggerDiscardsEverything(t *testing.T) {
	var logger Logger = NoOpLogger{}

	// Must be safe to call with any arguments.
	logger.Debug("a", "k", 1)
	logger.Info("b")
	logger.Warn("c", "k")
	logger.Error("d", "err", fmt.Errorf("x"))
}
