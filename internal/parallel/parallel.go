// Package parallel runs graph functions over batches of independent inputs.
package parallel

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("gtn.parallel")

// Config controls parallel execution behavior.
type Config struct {
	Enabled    bool // Whether parallel execution is enabled.
	NumWorkers int  // Maximum number of concurrent workers.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:    n > 1,
		NumWorkers: n,
	}
}

// workers returns the concurrency limit for n items.
func (c Config) workers(n int) int {
	if !c.Enabled || c.NumWorkers <= 1 {
		return 1
	}
	return min(c.NumWorkers, max(n, 1))
}

// For calls f(ctx, i) for i in [0, n), running up to cfg.NumWorkers calls at
// once. The first error cancels ctx for the remaining calls and is returned.
// With parallelism disabled the calls run in order on the calling goroutine.
func For(ctx context.Context, cfg Config, n int, f func(ctx context.Context, i int) error) error {
	workers := cfg.workers(n)
	ctx, span := tracer.Start(ctx, "parallel.For",
		trace.WithAttributes(
			attribute.Int("items", n),
			attribute.Int("workers", workers),
		),
	)
	defer span.End()

	err := run(ctx, workers, n, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func run(ctx context.Context, workers, n int, f func(ctx context.Context, i int) error) error {
	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := f(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return f(ctx, i)
		})
	}
	return eg.Wait()
}

// Map applies f to every input and returns the results in input order.
// On error the partial results are discarded.
func Map[In, Out any](ctx context.Context, cfg Config, inputs []In, f func(ctx context.Context, in In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(inputs))
	err := For(ctx, cfg, len(inputs), func(ctx context.Context, i int) error {
		v, err := f(ctx, inputs[i])
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
