package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tactics/internal/game/combat"
)

// FlagRepository stores per-actor flags in the actor_flags table. A row's
// presence means the flag is set, so Acquire is a single conditional insert
// and is atomic across engine processes sharing the database.
type FlagRepository struct {
	db *pgxpool.Pool
}

var _ combat.FlagStore = (*FlagRepository)(nil)

// NewFlagRepository creates a FlagRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewFlagRepository(db *pgxpool.Pool) *FlagRepository {
	return &FlagRepository{db: db}
}

// Acquire implements combat.FlagStore.
func (r *FlagRepository) Acquire(ctx context.Context, actorID, flag string) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`INSERT INTO actor_flags (actor_id, flag)
		 VALUES ($1, $2)
		 ON CONFLICT (actor_id, flag) DO NOTHING`,
		actorID, flag,
	)
	if err != nil {
		return false, fmt.Errorf("acquiring flag %q for %q: %w", flag, actorID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release implements combat.FlagStore.
func (r *FlagRepository) Release(ctx context.Context, actorID, flag string) error {
	if _, err := r.db.Exec(ctx,
		`DELETE FROM actor_flags WHERE actor_id = $1 AND flag = $2`,
		actorID, flag,
	); err != nil {
		return fmt.Errorf("releasing flag %q for %q: %w", flag, actorID, err)
	}
	return nil
}

// IsSet reports whether flag is set on actorID.
func (r *FlagRepository) IsSet(ctx context.Context, actorID, flag string) (bool, error) {
	var set bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM actor_flags WHERE actor_id = $1 AND flag = $2)`,
		actorID, flag,
	).Scan(&set)
	if err != nil {
		return false, fmt.Errorf("checking flag %q for %q: %w", flag, actorID, err)
	}
	return set, nil
}
