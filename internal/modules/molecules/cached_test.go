package molecules

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/pescan/internal/qubit"
)

type countingBuilder struct {
	calls int
	err   error
}

func (b *countingBuilder) Name() string { return "Fake" }

func (b *countingBuilder) Build(_ context.Context, p float64) (*qubit.Operator, *Context, error) {
	b.calls++
	if b.err != nil {
		return nil, nil, b.err
	}
	op, err := qubit.FromLabels(map[string]complex128{"Z": complex(p, 0)})
	if err != nil {
		return nil, nil, err
	}
	return op, &Context{Molecule: "Fake", Parameter: p, NuclearRepulsion: 1}, nil
}

type memoryStore struct {
	entries  map[float64]*qubit.Operator
	loadErr  error
	storeErr error
	stores   int
}

func (s *memoryStore) Load(_ context.Context, _ string, p float64) (*qubit.Operator, *Context, error) {
	if s.loadErr != nil {
		return nil, nil, s.loadErr
	}
	op, ok := s.entries[p]
	if !ok {
		return nil, nil, nil
	}
	return op, &Context{Molecule: "Fake", Parameter: p, NuclearRepulsion: 1}, nil
}

func (s *memoryStore) Store(_ context.Context, op *qubit.Operator, meta *Context) error {
	s.stores++
	if s.storeErr != nil {
		return s.storeErr
	}
	s.entries[meta.Parameter] = op
	return nil
}

func TestCachedBuilder_HitAndMiss(t *testing.T) {
	inner := &countingBuilder{}
	store := &memoryStore{entries: map[float64]*qubit.Operator{}}
	b := Cached(inner, store, zerolog.New(nil).Level(zerolog.Disabled))

	assert.Equal(t, "Fake", b.Name())

	op1, _, err := b.Build(context.Background(), 0.5)
	require.NoError(t, err)
	op2, meta, err := b.Build(context.Background(), 0.5)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, store.stores)
	assert.Equal(t, op1.Terms(), op2.Terms())
	assert.Equal(t, 0.5, meta.Parameter)
}

func TestCachedBuilder_StoreFailuresAreNotFatal(t *testing.T) {
	inner := &countingBuilder{}
	store := &memoryStore{loadErr: errors.New("disk gone"), storeErr: errors.New("disk gone")}
	b := Cached(inner, store, zerolog.New(nil).Level(zerolog.Disabled))

	op, _, err := b.Build(context.Background(), 1.0)
	require.NoError(t, err)
	assert.NotNil(t, op)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedBuilder_PropagatesBuildErrors(t *testing.T) {
	boom := errors.New("driver failed")
	inner := &countingBuilder{err: boom}
	store := &memoryStore{entries: map[float64]*qubit.Operator{}}
	b := Cached(inner, store, zerolog.New(nil).Level(zerolog.Disabled))

	_, _, err := b.Build(context.Background(), 1.0)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.stores)
}
