package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/tactics/internal/game/initiative"
)

// InitiativeRepository stores one initiative record per combatant in the
// initiative_records table.
type InitiativeRepository struct {
	db *pgxpool.Pool
}

var _ initiative.Store = (*InitiativeRepository)(nil)

// NewInitiativeRepository creates an InitiativeRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewInitiativeRepository(db *pgxpool.Pool) *InitiativeRepository {
	return &InitiativeRepository{db: db}
}

const recordColumns = `id, actor_id, combatant_id, actor_name, formula, raw_roll,
	natural_roll, modifier, phase_id, phase_code, value, delayed`

// Save implements initiative.Store. A second save for the same combatant
// overwrites every column, including the record ID.
func (r *InitiativeRepository) Save(ctx context.Context, rec initiative.Record) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO initiative_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (combatant_id) DO UPDATE SET
			id = EXCLUDED.id,
			actor_id = EXCLUDED.actor_id,
			actor_name = EXCLUDED.actor_name,
			formula = EXCLUDED.formula,
			raw_roll = EXCLUDED.raw_roll,
			natural_roll = EXCLUDED.natural_roll,
			modifier = EXCLUDED.modifier,
			phase_id = EXCLUDED.phase_id,
			phase_code = EXCLUDED.phase_code,
			value = EXCLUDED.value,
			delayed = EXCLUDED.delayed,
			updated_at = NOW()`,
		rec.ID, rec.ActorID, rec.CombatantID, rec.ActorName, rec.Formula, rec.RawRoll,
		rec.NaturalRoll, rec.Modifier, rec.PhaseID, rec.PhaseCode, rec.Value, rec.Delayed,
	)
	if err != nil {
		return fmt.Errorf("saving initiative for %q: %w", rec.CombatantID, err)
	}
	return nil
}

// Get implements initiative.Store.
func (r *InitiativeRepository) Get(ctx context.Context, combatantID string) (initiative.Record, bool, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM initiative_records WHERE combatant_id = $1`,
		combatantID,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return initiative.Record{}, false, nil
		}
		return initiative.Record{}, false, fmt.Errorf("loading initiative for %q: %w", combatantID, err)
	}
	return rec, true, nil
}

// List implements initiative.Store.
func (r *InitiativeRepository) List(ctx context.Context) ([]initiative.Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recordColumns+` FROM initiative_records ORDER BY value, combatant_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing initiative: %w", err)
	}
	defer rows.Close()

	var out []initiative.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning initiative: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Clear implements initiative.Store.
func (r *InitiativeRepository) Clear(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM initiative_records`); err != nil {
		return fmt.Errorf("clearing initiative: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (initiative.Record, error) {
	var rec initiative.Record
	err := row.Scan(
		&rec.ID, &rec.ActorID, &rec.CombatantID, &rec.ActorName, &rec.Formula, &rec.RawRoll,
		&rec.NaturalRoll, &rec.Modifier, &rec.PhaseID, &rec.PhaseCode, &rec.Value, &rec.Delayed,
	)
	return rec, err
}
