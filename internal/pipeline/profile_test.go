package pipeline

import (
	"context"
	"testing"

	"github.com/MeKo-Tech/snake/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiler_Record(t *testing.T) {
	var p Profiler
	p.Record(nil)
	assert.Equal(t, int64(0), p.ImagesProcessed.Load())

	res := &Result{Passes: 4, Corners: []int{1, 3}}
	res.Processing.PrepareNs = 2_000_000
	res.Processing.RelaxNs = 6_000_000
	p.Record(res)
	p.Record(res)

	snap := p.Snapshot()
	assert.Equal(t, int64(2), snap["images"])
	assert.Equal(t, int64(8), snap["passes"])
	assert.Equal(t, int64(4), snap["corners"])
	assert.Equal(t, int64(4), snap["prepare_ms_total"])
	assert.Equal(t, int64(12), snap["relax_ms_total"])
	assert.InDelta(t, 2.0, snap["prepare_ms_per_image"], 1e-9)
	assert.InDelta(t, 6.0, snap["relax_ms_per_image"], 1e-9)
}

func TestProfiler_EmptySnapshot(t *testing.T) {
	var p Profiler
	snap := p.Snapshot()
	assert.Equal(t, int64(0), snap["images"])
	assert.NotContains(t, snap, "relax_ms_per_image")
}

func TestProcessBatch_Profiler(t *testing.T) {
	p, err := NewBuilder().WithMaxIterations(2).Build()
	require.NoError(t, err)

	jobs := []BatchJob{
		{Name: "a", Image: testutil.DefaultSquareImage(), Points: testutil.SquareContour()},
		{Name: "b", Image: testutil.DefaultSquareImage(), Points: testutil.SquareContour()},
		{Name: "bad"},
	}
	prof := &Profiler{}
	_, err = p.ProcessBatch(context.Background(), jobs, ParallelConfig{MaxWorkers: 2, Profiler: prof})
	require.Error(t, err)

	assert.Equal(t, int64(2), prof.ImagesProcessed.Load())
	assert.Equal(t, int64(4), prof.PassesRun.Load())
}
