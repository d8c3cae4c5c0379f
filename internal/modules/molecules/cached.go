package molecules

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/pescan/internal/qubit"
)

// OperatorStore persists mapped Hamiltonians. Load returns a nil operator on a miss.
type OperatorStore interface {
	Load(ctx context.Context, molecule string, parameter float64) (*qubit.Operator, *Context, error)
	Store(ctx context.Context, op *qubit.Operator, meta *Context) error
}

// CachedBuilder consults an OperatorStore before running the wrapped builder.
// Store failures are logged and never fail a build.
type CachedBuilder struct {
	inner Builder
	store OperatorStore
	log   zerolog.Logger
}

// Cached wraps inner with store.
func Cached(inner Builder, store OperatorStore, log zerolog.Logger) *CachedBuilder {
	return &CachedBuilder{
		inner: inner,
		store: store,
		log:   log.With().Str("component", "operator_cache").Str("molecule", inner.Name()).Logger(),
	}
}

// Name implements Builder.
func (c *CachedBuilder) Name() string { return c.inner.Name() }

// Build implements Builder.
func (c *CachedBuilder) Build(ctx context.Context, parameter float64) (*qubit.Operator, *Context, error) {
	op, meta, err := c.store.Load(ctx, c.inner.Name(), parameter)
	if err != nil {
		c.log.Warn().Err(err).Float64("parameter", parameter).Msg("Operator cache read failed")
	} else if op != nil {
		c.log.Debug().Float64("parameter", parameter).Msg("Operator cache hit")
		return op, meta, nil
	}

	op, meta, err = c.inner.Build(ctx, parameter)
	if err != nil {
		return nil, nil, err
	}

	if err := c.store.Store(ctx, op, meta); err != nil {
		c.log.Warn().Err(err).Float64("parameter", parameter).Msg("Operator cache write failed")
	}
	return op, meta, nil
}
