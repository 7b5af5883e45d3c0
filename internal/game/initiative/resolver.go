package initiative

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxFace is assumed when the formula names no die.
const DefaultMaxFace = 10

var (
	modifierPattern = regexp.MustCompile(`\+\s*(\d+)`)
	diePattern      = regexp.MustCompile(`(?i)d\s*(\d+)`)
)

// Roll is an initiative roll reported by the host.
type Roll struct {
	ActorID     string `yaml:"actor_id"`
	CombatantID string `yaml:"combatant_id"`
	ActorName   string `yaml:"actor_name"`
	Formula     string `yaml:"formula"`
	Total       int    `yaml:"total"`
}

// ParseModifier returns the first "+ N" term of formula, or 0.
func ParseModifier(formula string) int {
	m := modifierPattern.FindStringSubmatch(formula)
	if m == nil {
		return 0
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return v
}

// MaxFace returns the number of sides of the first die in formula, or
// DefaultMaxFace.
func MaxFace(formula string) int {
	m := diePattern.FindStringSubmatch(formula)
	if m == nil {
		return DefaultMaxFace
	}
	v, err := strconv.Atoi(m[1])
	if err != nil || v < 1 {
		return DefaultMaxFace
	}
	return v
}

// Resolver turns initiative rolls into phase records.
type Resolver struct {
	table  *PhaseTable
	store  Store
	logger *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: all arguments must be non-nil.
func NewResolver(table *PhaseTable, store Store, logger *zap.Logger) *Resolver {
	return &Resolver{table: table, store: store, logger: logger}
}

// Resolve assigns roll to a phase and stores the record, replacing any
// earlier record of the same combatant.
func (r *Resolver) Resolve(ctx context.Context, roll Roll) (Record, error) {
	mod := ParseModifier(roll.Formula)
	natural := roll.Total - mod
	base := r.table.PhaseFor(mod)
	phase := r.table.ByID(Adjust(base.ID, natural, MaxFace(roll.Formula)))

	rec := Record{
		ID:          uuid.New().String(),
		ActorID:     roll.ActorID,
		CombatantID: roll.CombatantID,
		ActorName:   roll.ActorName,
		Formula:     roll.Formula,
		RawRoll:     roll.Total,
		NaturalRoll: natural,
		Modifier:    mod,
		PhaseID:     phase.ID,
		PhaseCode:   phase.Code,
		Value:       CompositeValue(phase.ID, roll.Total),
	}
	prev, ok, err := r.store.Get(ctx, roll.CombatantID)
	if err != nil {
		return Record{}, fmt.Errorf("loading initiative for %q: %w", roll.CombatantID, err)
	}
	if ok {
		rec.ID = prev.ID
	}
	if err := r.store.Save(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("saving initiative for %q: %w", roll.CombatantID, err)
	}

	r.logger.Info("initiative resolved",
		zap.String("combatant", roll.CombatantID),
		zap.String("actor", roll.ActorName),
		zap.Int("natural", natural),
		zap.Int("modifier", mod),
		zap.String("phase", phase.Code),
		zap.Float64("value", rec.Value),
	)
	return rec, nil
}

// Delay moves combatantID behind everyone else in the current order.
func (r *Resolver) Delay(ctx context.Context, combatantID string) (Record, error) {
	rec, ok, err := r.store.Get(ctx, combatantID)
	if err != nil {
		return Record{}, fmt.Errorf("loading initiative for %q: %w", combatantID, err)
	}
	if !ok {
		return Record{}, fmt.Errorf("no initiative recorded for %q", combatantID)
	}
	all, err := r.store.List(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("listing initiative: %w", err)
	}
	rec.Value = DelayedValue(all)
	rec.Delayed = true
	if err := r.store.Save(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("saving initiative for %q: %w", combatantID, err)
	}
	r.logger.Info("turn delayed", zap.String("combatant", combatantID), zap.Float64("value", rec.Value))
	return rec, nil
}

// Order returns the stored records in initiative order.
func (r *Resolver) Order(ctx context.Context) ([]Record, error) {
	return r.store.List(ctx)
}

// Reset clears every stored record, as when combat ends.
func (r *Resolver) Reset(ctx context.Context) error {
	return r.store.Clear(ctx)
}
