package pipeline

import (
	"sync/atomic"
)

// Profiler aggregates timings and pass counts across multiple runs.
type Profiler struct {
	PrepareTimeNs   atomic.Int64
	RelaxTimeNs     atomic.Int64
	ImagesProcessed atomic.Int64
	PassesRun       atomic.Int64
	CornersFound    atomic.Int64
}

// Record adds one finished result. A nil profiler or result is a no-op.
func (p *Profiler) Record(res *Result) {
	if p == nil || res == nil {
		return
	}
	p.PrepareTimeNs.Add(res.Processing.PrepareNs)
	p.RelaxTimeNs.Add(res.Processing.RelaxNs)
	p.ImagesProcessed.Add(1)
	p.PassesRun.Add(int64(res.Passes))
	p.CornersFound.Add(int64(len(res.Corners)))
}

// Snapshot returns cumulative metrics in milliseconds for readability.
func (p *Profiler) Snapshot() map[string]any {
	imgs := p.ImagesProcessed.Load()
	prep := p.PrepareTimeNs.Load()
	relax := p.RelaxTimeNs.Load()
	out := map[string]any{
		"images":           imgs,
		"passes":           p.PassesRun.Load(),
		"corners":          p.CornersFound.Load(),
		"prepare_ms_total": prep / 1_000_000,
		"relax_ms_total":   relax / 1_000_000,
	}
	if imgs > 0 {
		out["prepare_ms_per_image"] = float64(prep) / 1_000_000.0 / float64(imgs)
		out["relax_ms_per_image"] = float64(relax) / 1_000_000.0 / float64(imgs)
	}
	return out
}
