package util

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ForEach calls fn for every input on at most limit goroutines and joins
// whatever errors come back. Inputs not yet started when ctx ends are
// skipped and ctx's error is included.
func ForEach[T any](ctx context.Context, inputs []T, limit int, fn func(context.Context, T) error) error {
	if len(inputs) == 0 {
		return nil
	}

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	collect := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}
	g.SetLimit(max(1, limit))

	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			collect(err)
			break
		}
		g.Go(func() error {
			if err := fn(ctx, in); err != nil {
				collect(err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
