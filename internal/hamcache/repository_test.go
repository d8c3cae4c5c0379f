package hamcache

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/pescan/internal/database"
	"github.com/aristath/pescan/internal/events"
	"github.com/aristath/pescan/internal/modules/molecules"
	"github.com/aristath/pescan/internal/qubit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.ApplySchema(db, "pescan"))
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleEntry(t *testing.T, parameter float64) (*qubit.Operator, *molecules.Context) {
	t.Helper()
	op, err := qubit.FromLabels(map[string]complex128{
		"IIII": -0.81,
		"ZIZI": 0.17,
		"XXYY": complex(0, 0.04),
	})
	require.NoError(t, err)
	return op, &molecules.Context{
		Molecule:           "H2",
		Parameter:          parameter,
		Geometry:           "H 0.0 0.0 0.0; H 0.0 0.0 0.735",
		NuclearRepulsion:   0.72,
		HFEnergy:           -1.117,
		NumParticles:       2,
		NumSpatialOrbitals: 2,
		NumQubits:          4,
	}
}

func TestStoreAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), time.Hour)
	op, meta := sampleEntry(t, 0.735)

	require.NoError(t, repo.Store(ctx, op, meta))

	gotOp, gotMeta, err := repo.Load(ctx, "h2", 0.735)
	require.NoError(t, err)
	require.NotNil(t, gotOp)
	assert.Equal(t, op.NumQubits(), gotOp.NumQubits())
	assert.Equal(t, op.Terms(), gotOp.Terms())
	assert.Equal(t, *meta, *gotMeta)
}

func TestLoad_Miss(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), time.Hour)
	op, meta := sampleEntry(t, 0.735)
	require.NoError(t, repo.Store(ctx, op, meta))

	gotOp, gotMeta, err := repo.Load(ctx, "H2", 0.74)
	require.NoError(t, err)
	assert.Nil(t, gotOp)
	assert.Nil(t, gotMeta)

	gotOp, _, err = repo.Load(ctx, "LiH", 0.735)
	require.NoError(t, err)
	assert.Nil(t, gotOp)
}

func TestLoad_Expired(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), time.Hour)
	op, meta := sampleEntry(t, 1.0)
	require.NoError(t, repo.Store(ctx, op, meta))

	repo.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	gotOp, _, err := repo.Load(ctx, "H2", 1.0)
	require.NoError(t, err)
	assert.Nil(t, gotOp)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := repo.DeleteExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_ReplacesAndDeletes(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), 0)
	assert.Equal(t, DefaultTTL, repo.ttl)

	op, meta := sampleEntry(t, 0.5)
	require.NoError(t, repo.Store(ctx, op, meta))
	require.NoError(t, repo.Store(ctx, op, meta))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.Delete(ctx, "H2", 0.5))
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Error(t, repo.Store(ctx, nil, meta))
}

func TestCachedBuilderUsesRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), time.Hour)

	builder := molecules.Cached(molecules.H2(), repo, zerolog.Nop())
	first, meta, err := builder.Build(ctx, 0.735)
	require.NoError(t, err)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	second, meta2, err := builder.Build(ctx, 0.735)
	require.NoError(t, err)
	assert.Equal(t, first.Terms(), second.Terms())
	assert.Equal(t, meta.NuclearRepulsion, meta2.NuclearRepulsion)
}

func TestCleanupJob(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(setupTestDB(t), time.Hour)
	op, meta := sampleEntry(t, 0.9)
	require.NoError(t, repo.Store(ctx, op, meta))
	repo.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

	bus := events.NewBus()
	var cleaned *events.Event
	bus.Subscribe(events.CacheCleaned, func(e *events.Event) { cleaned = e })

	job := NewCleanupJob(repo, events.NewManager(bus, zerolog.Nop()), zerolog.Nop())
	assert.Equal(t, "hamiltonian_cache_cleanup", job.Name())
	require.NoError(t, job.Run())

	require.NotNil(t, cleaned)
	assert.EqualValues(t, 1, cleaned.Data["deleted"])
}
