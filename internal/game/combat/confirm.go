package combat

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/dice"
)

// Roller evaluates a dice formula.
type Roller interface {
	Roll(ctx context.Context, formula string) (dice.RollResult, error)
}

// ConfirmRequest describes one secondary confirmation roll.
type ConfirmRequest struct {
	ActorID   string
	ActorName string
	// Formula is the original attack roll formula, rerolled as-is.
	Formula string
	// TargetAC is the AC the secondary roll must reach.
	TargetAC Maybe
	// Comparison is the actor's THAC0.
	Comparison Maybe
	Kind       RollKind
}

// Confirmation is the outcome of a secondary roll.
type Confirmation struct {
	Confirmed bool
	// Busy is true when another confirmation of the same kind was already in
	// flight for the actor; no roll was made.
	Busy  bool
	Roll  dice.RollResult
	HitAC Maybe
	Err   error
}

// Evaluate decides a confirmation from a completed secondary roll.
// A natural 1 never confirms a critical and always confirms a fumble; the die's
// maximum face does the opposite. Otherwise hitAC = comparison - total must
// reach the target AC for a critical, or miss it for a fumble. Unknown AC or
// comparison leaves only the natural overrides.
func Evaluate(req ConfirmRequest, roll dice.RollResult) Confirmation {
	c := Confirmation{Roll: roll}
	if req.Comparison.OK {
		c.HitAC = Known(req.Comparison.V - roll.Total())
	}
	switch {
	case roll.Natural() == 1:
		c.Confirmed = req.Kind == KindFumble
	case roll.IsNaturalMax():
		c.Confirmed = req.Kind == KindCritical
	case c.HitAC.OK && req.TargetAC.OK:
		if req.Kind == KindCritical {
			c.Confirmed = c.HitAC.V <= req.TargetAC.V
		} else {
			c.Confirmed = c.HitAC.V > req.TargetAC.V
		}
	}
	return c
}

// Confirmer runs secondary confirmation rolls, allowing at most one in flight
// per (actor, kind).
type Confirmer struct {
	locks    *LockTable
	roller   Roller
	notifier Notifier
	logger   *zap.Logger
}

// NewConfirmer creates a Confirmer.
//
// Precondition: all arguments must be non-nil.
func NewConfirmer(locks *LockTable, roller Roller, notifier Notifier, logger *zap.Logger) *Confirmer {
	return &Confirmer{locks: locks, roller: roller, notifier: notifier, logger: logger}
}

// Confirm performs the secondary roll for req.
//
// Postcondition: the (actor, kind) lock is released before Confirm returns,
// including when the roller fails or panics. A call made while the lock is
// held returns a Busy, unconfirmed result without rolling.
func (c *Confirmer) Confirm(ctx context.Context, req ConfirmRequest) (conf Confirmation) {
	release, ok := c.locks.TryAcquire(req.ActorID, req.Kind)
	if !ok {
		c.logger.Debug("secondary roll already in flight",
			zap.String("actor", req.ActorName),
			zap.String("kind", string(req.Kind)),
		)
		return Confirmation{Busy: true}
	}
	defer release()
	defer func() {
		if p := recover(); p != nil {
			conf = Confirmation{Err: fmt.Errorf("secondary %s roll panicked: %v", req.Kind, p)}
			c.fail(ctx, req, conf.Err)
		}
	}()

	roll, err := c.roller.Roll(ctx, req.Formula)
	if err != nil {
		err = fmt.Errorf("secondary %s roll: %w", req.Kind, err)
		c.fail(ctx, req, err)
		return Confirmation{Err: err}
	}

	conf = Evaluate(req, roll)
	c.logger.Info("secondary roll evaluated",
		zap.String("actor", req.ActorName),
		zap.String("kind", string(req.Kind)),
		zap.Int("natural", roll.Natural()),
		zap.Int("total", roll.Total()),
		zap.Stringer("hit_ac", conf.HitAC),
		zap.Stringer("target_ac", req.TargetAC),
		zap.Bool("confirmed", conf.Confirmed),
	)
	c.notifier.Post(ctx, Message{
		Kind:    MessageConfirmation,
		Speaker: req.ActorName,
		Title:   confirmationTitle(req.Kind, conf.Confirmed),
		Lines:   rollLines(roll),
		Fields: map[string]string{
			"kind":      string(req.Kind),
			"natural":   strconv.Itoa(roll.Natural()),
			"total":     strconv.Itoa(roll.Total()),
			"hit_ac":    conf.HitAC.String(),
			"target_ac": req.TargetAC.String(),
			"thac0":     req.Comparison.String(),
		},
	})
	return conf
}

func (c *Confirmer) fail(ctx context.Context, req ConfirmRequest, err error) {
	c.logger.Warn("secondary roll failed",
		zap.String("actor", req.ActorName),
		zap.String("kind", string(req.Kind)),
		zap.Error(err),
	)
	c.notifier.Post(ctx, Message{
		Kind:    MessageError,
		Speaker: req.ActorName,
		Title:   "Secondary roll failed",
		Lines:   []string{err.Error()},
	})
}

func confirmationTitle(kind RollKind, confirmed bool) string {
	switch {
	case kind == KindCritical && confirmed:
		return "Critical Confirmed!"
	case kind == KindCritical:
		return "Critical Not Confirmed"
	case confirmed:
		return "Fumble Confirmed!"
	default:
		return "Fumble Not Confirmed"
	}
}

func rollLines(roll dice.RollResult) []string {
	if roll.Expression == "" {
		return nil
	}
	return []string{roll.String()}
}
