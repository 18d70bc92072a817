// Package parallel provides data-parallel loops over independent sub-problems.
package parallel

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum number of items before going parallel.
}

// DefaultConfig returns defaults based on CPU count.
//
// Each item of a conditional batch is a full Cholesky-based solve, so the
// threshold is far lower than for element-wise kernels.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 2,
	}
}

func (cfg Config) sequential(n int) bool {
	return !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize
}

// For executes f(i) for i in [0, n) with optional parallelism.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if cfg.sequential(n) {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForErr executes f(i) for i in [0, n) and returns the error of the lowest
// failing index, so results do not depend on scheduling. Every f(i) must
// write only to its own output slot.
func ForErr(n int, f func(i int) error, cfg Config) error {
	errs := make([]error, n)

	if cfg.sequential(n) {
		for i := 0; i < n; i++ {
			if err := f(i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			errs[i] = f(i)
			return nil
		})
	}
	_ = g.Wait() // workers report through errs

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
