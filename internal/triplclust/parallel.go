package triplclust

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest number of items handed to one worker.
const minChunk = 256

// parallelFor splits [0, n) into contiguous chunks and runs fn on each chunk
// with at most workers goroutines. Each chunk owns its output slots, so fn
// must only write to indices in [lo, hi).
func parallelFor(n, workers int, fn func(lo, hi int)) {
	if n == 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := max(minChunk, (n+workers-1)/workers)
	if workers == 1 || chunk >= n {
		fn(0, n)
		return
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait() // workers never return an error
}
