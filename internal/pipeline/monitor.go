package pipeline

import (
	"log/slog"
	"runtime"
)

// MemStats is a point-in-time view of the process heap, reported by the
// health endpoint and logged after batch runs.
type MemStats struct {
	AllocBytes     uint64 `json:"alloc_bytes"`
	HeapInuseBytes uint64 `json:"heap_inuse_bytes"`
	SysBytes       uint64 `json:"sys_bytes"`
	NumGC          uint32 `json:"num_gc"`
	Goroutines     int    `json:"goroutines"`
}

// GetMemStats reads the runtime counters.
func GetMemStats() MemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemStats{
		AllocBytes:     m.Alloc,
		HeapInuseBytes: m.HeapInuse,
		SysBytes:       m.Sys,
		NumGC:          m.NumGC,
		Goroutines:     runtime.NumGoroutine(),
	}
}

// LogValue groups the counters under one log attribute, heap sizes in MiB.
func (m MemStats) LogValue() slog.Value {
	const mib = 1 << 20
	return slog.GroupValue(
		slog.Float64("alloc_mib", float64(m.AllocBytes)/mib),
		slog.Float64("heap_inuse_mib", float64(m.HeapInuseBytes)/mib),
		slog.Float64("sys_mib", float64(m.SysBytes)/mib),
		slog.Uint64("num_gc", uint64(m.NumGC)),
		slog.Int("goroutines", m.Goroutines),
	)
}
