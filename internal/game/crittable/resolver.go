package crittable

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/dice"
)

// DefaultCreature is used when a target declares no creature type.
const DefaultCreature = "humanoid"

// Roller evaluates a dice formula.
type Roller interface {
	Roll(ctx context.Context, formula string) (dice.RollResult, error)
}

// Request describes one critical hit to look up.
type Request struct {
	TargetName string
	Severity   string
	Creature   string
	DamageType string
	// Location is a location name, or RandomLocation (or empty) to roll one.
	Location string
}

// Result is a resolved critical hit.
type Result struct {
	Request
	Location     string
	LocationRoll int // zero when the location was chosen
	EffectRoll   int
	Effect       string
}

// Resolver picks critical hit locations and effects.
type Resolver struct {
	reg    *Registry
	roller Roller
	logger *zap.Logger
}

// NewResolver creates a Resolver.
//
// Precondition: all arguments must be non-nil.
func NewResolver(reg *Registry, roller Roller, logger *zap.Logger) *Resolver {
	return &Resolver{reg: reg, roller: roller, logger: logger}
}

// Resolve finds the effect table for req, rolls a location when asked to, and
// rolls 1d6 to pick the effect.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Creature) == "" {
		req.Creature = DefaultCreature
	}
	key := Key{Severity: req.Severity, Creature: req.Creature, DamageType: req.DamageType}
	table, err := r.reg.Effects(key)
	if err != nil {
		return Result{}, err
	}

	res := Result{Request: req, Location: req.Location}
	if res.Location == "" || strings.EqualFold(res.Location, RandomLocation) {
		locs, err := r.reg.Locations(req.Creature)
		if err != nil {
			return Result{}, err
		}
		roll, err := r.roller.Roll(ctx, locs.Dice)
		if err != nil {
			return Result{}, fmt.Errorf("rolling hit location: %w", err)
		}
		loc, ok := locs.Lookup(roll.Total())
		if !ok {
			return Result{}, fmt.Errorf("%w: %s roll %d", ErrUnknownLocation, req.Creature, roll.Total())
		}
		res.Location, res.LocationRoll = loc, roll.Total()
	}

	row, ok := table.Row(res.Location)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q in %s", ErrUnknownLocation, res.Location, key.normalized())
	}
	roll, err := r.roller.Roll(ctx, fmt.Sprintf("1d%d", EffectCount))
	if err != nil {
		return Result{}, fmt.Errorf("rolling critical effect: %w", err)
	}
	idx := min(max(roll.Total(), 1), EffectCount) - 1
	res.EffectRoll = roll.Total()
	res.Effect = row.Effects[idx]

	r.logger.Info("critical hit resolved",
		zap.String("target", req.TargetName),
		zap.String("table", key.normalized().String()),
		zap.String("location", res.Location),
		zap.Int("effect_roll", res.EffectRoll),
	)
	return res, nil
}
