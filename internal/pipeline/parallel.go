package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/MeKo-Tech/snake/internal/contour"
)

// ParallelConfig holds configuration for relaxing several images at once.
type ParallelConfig struct {
	MaxWorkers int              // Number of parallel workers (0 = runtime.NumCPU())
	Progress   ProgressCallback // Optional progress reporting
	Profiler   *Profiler        // Optional; receives every successful result
}

// DefaultParallelConfig returns one worker per CPU.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// BatchJob is one image with its optional initial contour.
type BatchJob struct {
	Name   string
	Image  image.Image
	Points []contour.Point
}

// BatchResult pairs a job name with its outcome.
type BatchResult struct {
	Name   string  `json:"name"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
	Err    error   `json:"-"`
}

type batchItem struct {
	index int
	job   BatchJob
}

// ProcessBatch relaxes every job using a worker pool. Results come back in
// job order; a failed job carries its error and does not stop the others.
// The returned error is the first job failure, or the context error.
func (p *Pipeline) ProcessBatch(ctx context.Context, jobs []BatchJob, cfg ParallelConfig) ([]BatchResult, error) {
	if len(jobs) == 0 {
		return nil, errors.New("no images provided")
	}
	if p == nil || p.runner == nil {
		return nil, errors.New("pipeline not initialized")
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	workers := min(cfg.MaxWorkers, len(jobs))

	if cfg.Progress != nil {
		cfg.Progress.OnStart(len(jobs))
		defer cfg.Progress.OnComplete()
	}

	queue := make(chan batchItem, len(jobs))
	for i, j := range jobs {
		queue <- batchItem{index: i, job: j}
	}
	close(queue)

	results := make([]BatchResult, len(jobs))
	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				if ctx.Err() != nil {
					return
				}
				res, err := p.ProcessImageContext(ctx, item.job.Image, item.job.Points, nil)
				br := BatchResult{Name: item.job.Name, Result: res, Err: err}
				if err != nil {
					br.Error = err.Error()
				}

				if err == nil && cfg.Profiler != nil {
					cfg.Profiler.Record(res)
				}

				mu.Lock()
				results[item.index] = br
				done++
				if cfg.Progress != nil {
					if err != nil {
						cfg.Progress.OnError(done, err)
					}
					cfg.Progress.OnProgress(done, len(jobs))
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	for i, r := range results {
		if r.Err != nil {
			return results, fmt.Errorf("image %d (%s): %w", i, r.Name, r.Err)
		}
	}
	return results, nil
}
