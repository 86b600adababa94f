package concurrent

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ForEach runs fn for every item with at most limit goroutines at a time.
// A limit below one means one goroutine per CPU. The context passed to fn is
// cancelled as soon as any call fails; the first error is returned.
func ForEach[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(workers(limit))
	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		group.Go(func() error {
			return fn(gctx, item)
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Map applies fn to every item concurrently, preserving order.
func Map[T any, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	err := ForEach(ctx, idx, limit, func(ctx context.Context, i int) error {
		r, err := fn(ctx, items[i])
		if err != nil {
			return err
		}
		out[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Merge merges multiple channels of T into a single output channel.
func Merge[T any](chs ...<-chan T) <-chan T {
	out := make(chan T)
	var wg sync.WaitGroup
	wg.Add(len(chs))
	for _, ch := range chs {
		go func(c <-chan T) {
			defer wg.Done()
			for v := range c {
				out <- v
			}
		}(ch)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

func workers(limit int) int {
	if limit < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return limit
}
