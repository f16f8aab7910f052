package cull

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minParallelChunk is the smallest slice of boxes worth a goroutine.
const minParallelChunk = 1024

// CullParallel splits b into 8-aligned chunks, culls them concurrently and
// appends the merged indices to dst[:0]. The result equals Cull. A workers
// value of zero or less uses GOMAXPROCS. It fails only if ctx is cancelled
// before all chunks ran.
func CullParallel(ctx context.Context, dst []uint16, f *Frustum, b *Boxes, workers int) ([]uint16, error) {
	n := b.Len()
	assert(n <= MaxObjects, "%d boxes exceed MaxObjects", n)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := (n + workers - 1) / workers
	chunk = (chunk + 7) &^ 7
	if chunk < minParallelChunk {
		chunk = minParallelChunk
	}
	if chunk >= n {
		if err := ctx.Err(); err != nil {
			return dst[:0], err
		}
		return Cull(dst, f, b), nil
	}

	parts := make([][]uint16, (n+chunk-1)/chunk)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := range parts {
		start := c * chunk
		end := min(start+chunk, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sub := b.Slice(start, end)
			idx := Cull(nil, f, &sub)
			for i := range idx {
				idx[i] += uint16(start)
			}
			parts[c] = idx
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return dst[:0], err
	}

	dst = reserve(dst, n)
	for _, p := range parts {
		dst = append(dst, p...)
	}
	return dst, nil
}
