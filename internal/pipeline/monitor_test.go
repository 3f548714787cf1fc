package pipeline

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMemStats(t *testing.T) {
	m := GetMemStats()
	assert.Positive(t, m.SysBytes)
	assert.Positive(t, m.Goroutines)
	assert.GreaterOrEqual(t, m.SysBytes, m.HeapInuseBytes)
}

func TestMemStats_LogValue(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("batch", "memory", MemStats{AllocBytes: 3 << 20, SysBytes: 8 << 20, NumGC: 2, Goroutines: 5})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	mem, ok := entry["memory"].(map[string]any)
	require.True(t, ok, "memory should be a group: %s", buf.String())
	assert.InDelta(t, 3.0, mem["alloc_mib"], 1e-9)
	assert.InDelta(t, 8.0, mem["sys_mib"], 1e-9)
	assert.InDelta(t, 0.0, mem["heap_inuse_mib"], 1e-9)
	assert.InDelta(t, 2, mem["num_gc"], 0)
	assert.InDelta(t, 5, mem["goroutines"], 0)
}
