package pes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/aristath/pescan/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func setupRunTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// A second connection would see a different in-memory database
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db, "pescan"))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupRunTestDB(t), zerolog.Nop())

	run := &Run{
		Molecule:      "h2",
		Points:        []float64{0.5, 0.735, 1.0},
		Ansatz:        "RealAmplitudes",
		Reps:          3,
		MaxIterations: 200,
		Seed:          42,
	}
	require.NoError(t, repo.Create(ctx, run))
	require.NotEmpty(t, run.ID)
	assert.Equal(t, StatusPending, run.Status)
	assert.Equal(t, 1, run.Workers)

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Points, got.Points)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.Result)
	assert.Nil(t, got.StartedAt)
	assert.Equal(t, Options{Ansatz: "RealAmplitudes", Reps: 3, MaxIterations: 200, Seed: 42, Workers: 1}, got.Options())

	require.NoError(t, repo.MarkRunning(ctx, run.ID))
	got, err = repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.NotNil(t, got.StartedAt)

	result := sampleResult()
	require.NoError(t, repo.Complete(ctx, run.ID, result))
	got, err = repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, result.Distances, got.Result.Distances)
	assert.Equal(t, result.VQEEnergies, got.Result.VQEEnergies)
	assert.NotNil(t, got.CompletedAt)
}

func TestRepository_Fail(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupRunTestDB(t), zerolog.Nop())

	run := &Run{Molecule: "lih", Points: []float64{1.5}, Ansatz: "EfficientSU2", Reps: 1, MaxIterations: 10}
	require.NoError(t, repo.Create(ctx, run))
	require.NoError(t, repo.Fail(ctx, run.ID, errors.New("driver exploded")))

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "driver exploded", got.Error)
	assert.Nil(t, got.Result)
}

func TestRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupRunTestDB(t), zerolog.Nop())

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, repo.MarkRunning(ctx, "missing"), ErrRunNotFound)
}

func TestRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupRunTestDB(t), zerolog.Nop())

	ids := []string{}
	for _, m := range []string{"h2", "lih", "beh2"} {
		run := &Run{Molecule: m, Points: []float64{1}, Ansatz: "RealAmplitudes", Reps: 1, MaxIterations: 5}
		require.NoError(t, repo.Create(ctx, run))
		ids = append(ids, run.ID)
	}
	require.NoError(t, repo.MarkRunning(ctx, ids[1]))

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[StatusPending])
	assert.Equal(t, 1, counts[StatusRunning])

	n, err := repo.ResetStale(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "runs created after the cutoff are left alone")

	n, err = repo.ResetStale(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	counts, err = repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[StatusFailed])
}
