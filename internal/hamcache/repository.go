// Package hamcache persists qubit Hamiltonians keyed by molecule and geometric
// parameter so repeated scans skip the SCF and the fermion-to-qubit mapping.
// Entries are msgpack blobs with an expiration timestamp.
package hamcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/pescan/internal/modules/molecules"
	"github.com/aristath/pescan/internal/qubit"
	"github.com/vmihailenco/msgpack/v5"
)

// Entry is the stored form of one mapped Hamiltonian.
type Entry struct {
	Operator *qubit.Operator    `msgpack:"op"`
	Context  *molecules.Context `msgpack:"ctx"`
}

// Repository provides cache operations for mapped Hamiltonians.
type Repository struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewRepository creates a cache repository. A non-positive ttl uses DefaultTTL.
func NewRepository(db *sql.DB, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{db: db, ttl: ttl, now: time.Now}
}

// parameterKey renders a parameter the same way for Store and Load.
func parameterKey(parameter float64) string {
	return strconv.FormatFloat(parameter, 'g', -1, 64)
}

func moleculeKey(name string) string {
	return strings.ToLower(name)
}

// Store saves op with expiration = now + ttl, replacing any previous entry.
func (r *Repository) Store(ctx context.Context, op *qubit.Operator, meta *molecules.Context) error {
	if op == nil || meta == nil {
		return fmt.Errorf("hamiltonian cache: operator and context are required")
	}

	data, err := msgpack.Marshal(&Entry{Operator: op, Context: meta})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO hamiltonian_cache (molecule, parameter, data, expires_at) VALUES (?, ?, ?, ?)",
		moleculeKey(meta.Molecule), parameterKey(meta.Parameter), data, expiresAt(r.now(), r.ttl))
	if err != nil {
		return fmt.Errorf("failed to store hamiltonian for %s at %g: %w", meta.Molecule, meta.Parameter, err)
	}
	return nil
}

// Load returns the fresh entry for molecule at parameter.
// A miss (absent or expired) returns nil, nil, nil.
func (r *Repository) Load(ctx context.Context, molecule string, parameter float64) (*qubit.Operator, *molecules.Context, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM hamiltonian_cache WHERE molecule = ? AND parameter = ? AND expires_at > ?",
		moleculeKey(molecule), parameterKey(parameter), r.now().Unix()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load hamiltonian for %s at %g: %w", molecule, parameter, err)
	}

	var entry Entry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, nil, fmt.Errorf("failed to decode hamiltonian for %s at %g: %w", molecule, parameter, err)
	}
	if entry.Operator == nil || entry.Context == nil {
		return nil, nil, fmt.Errorf("hamiltonian cache entry for %s at %g is incomplete", molecule, parameter)
	}
	return entry.Operator, entry.Context, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(ctx context.Context, molecule string, parameter float64) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM hamiltonian_cache WHERE molecule = ? AND parameter = ?",
		moleculeKey(molecule), parameterKey(parameter))
	if err != nil {
		return fmt.Errorf("failed to delete hamiltonian: %w", err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at <= now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM hamiltonian_cache WHERE expires_at <= ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired hamiltonians: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// Count returns the number of cached entries, fresh or not.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hamiltonian_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count hamiltonians: %w", err)
	}
	return n, nil
}
