package combat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/critical"
	"github.com/cory-johannsen/tactics/internal/game/fumble"
	"github.com/cory-johannsen/tactics/internal/game/knockdown"
)

// References resolves actor, weapon, and target references. A nil entity
// with a nil error means the reference did not resolve.
type References interface {
	Lookup(ctx context.Context, ref string) (*Entity, error)
}

// Settings supplies the current critical hit and miss options.
type Settings interface {
	CriticalOptions() critical.Options
}

// FumbleDispatcher rolls on the fumble table.
type FumbleDispatcher interface {
	Dispatch(ctx context.Context, actorName string) (fumble.Outcome, error)
}

// Hooks observes engine output. Implementations must not block.
type Hooks interface {
	AttackResolved(ctx context.Context, res AttackResolution)
	KnockdownRolled(ctx context.Context, res AttackResolution, kd KnockdownRoll)
	FumbleDispatched(ctx context.Context, res AttackResolution, out fumble.Outcome)
}

// KnockdownRoll is a rolled knockdown check.
type KnockdownRoll struct {
	knockdown.Result
	Roll    int
	Success bool
}

// Report is everything Process produced for one roll event.
type Report struct {
	// Skipped is true when the event was ignored; Reason says why.
	Skipped    bool
	Reason     string
	Resolution AttackResolution

	Knockdown     *KnockdownRoll
	CriticalCheck *Confirmation
	FumbleCheck   *Confirmation
	Fumble        *fumble.Outcome
}

// Engine applies the attack house rules to roll events.
type Engine struct {
	refs      References
	roller    Roller
	confirmer *Confirmer
	fumbles   FumbleDispatcher
	notifier  Notifier
	flags     FlagStore
	settings  Settings
	hooks     Hooks
	logger    *zap.Logger
}

// NewEngine creates an Engine.
//
// Precondition: all arguments must be non-nil.
func NewEngine(refs References, roller Roller, confirmer *Confirmer, fumbles FumbleDispatcher,
	notifier Notifier, flags FlagStore, settings Settings, logger *zap.Logger) *Engine {
	return &Engine{
		refs:      refs,
		roller:    roller,
		confirmer: confirmer,
		fumbles:   fumbles,
		notifier:  notifier,
		flags:     flags,
		settings:  settings,
		logger:    logger,
	}
}

// SetHooks installs h as the engine's observer; nil removes it.
func (e *Engine) SetHooks(h Hooks) { e.hooks = h }

// Process resolves one attack roll event end to end: context, resolution,
// knockdown roll on a hit, deferred confirmations, the critical detail
// handoff, and the fumble table.
//
// Postcondition: the returned error is non-nil only when ctx is done before
// processing starts. Rule and roller failures degrade to defaults or to an
// unconfirmed result and are reported through the Notifier.
func (e *Engine) Process(ctx context.Context, ev RollEvent) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	opts := e.settings.CriticalOptions()
	if opts.Disabled() {
		return Report{Skipped: true, Reason: "critical hit and miss options are both none"}, nil
	}
	if ev.NaturalRoll == 0 {
		e.logger.Debug("roll event without natural roll", zap.String("event", ev.ID))
		return Report{Skipped: true, Reason: "no natural roll"}, nil
	}

	p := Participants{
		Actor:  e.lookup(ctx, "actor", ev.ActorRef),
		Weapon: e.lookup(ctx, "weapon", ev.WeaponRef),
		Target: e.lookup(ctx, "target", ev.TargetRef),
	}
	ac, notes := BuildContext(ev, p, opts)
	for _, n := range notes {
		e.logger.Warn("attack context default applied", zap.String("event", ev.ID), zap.String("detail", n))
	}

	res := Resolve(ac)
	rep := Report{}

	if res.AttackHit {
		if kd, ok := e.rollKnockdown(ctx, res); ok {
			rep.Knockdown = &kd
		}
	}

	critOK, fumbleOK := false, false
	if res.CriticalNeedsReroll {
		c := e.confirmer.Confirm(ctx, e.confirmRequest(ac, KindCritical))
		rep.CriticalCheck = &c
		critOK = c.Confirmed
	}
	if res.FumbleNeedsReroll {
		c := e.confirmer.Confirm(ctx, e.confirmRequest(ac, KindFumble))
		rep.FumbleCheck = &c
		fumbleOK = c.Confirmed
	}
	res = res.confirmed(critOK, fumbleOK)
	rep.Resolution = res

	e.logger.Info("attack resolved",
		zap.String("event", ev.ID),
		zap.String("actor", ac.ActorName),
		zap.String("weapon", ac.WeaponName),
		zap.String("target", ac.TargetName),
		zap.Int("natural", ac.NaturalRoll),
		zap.Stringer("hit_by", res.HitBy),
		zap.Bool("hit", res.AttackHit),
		zap.Int("critical_range", res.CriticalRange),
		zap.Bool("critical", res.CriticalConfirmed),
		zap.Bool("fumble", res.FumbleConfirmed),
		zap.String("severity", string(res.Severity)),
	)

	if res.CriticalConfirmed {
		e.notifier.OpenCriticalDialog(ctx, CriticalDetail{
			EventID:        ac.EventID,
			ActorName:      ac.ActorName,
			TargetName:     ac.TargetName,
			TargetCreature: ac.TargetCreature,
			DamageType:     ac.WeaponDamageType,
			Severity:       res.Severity,
		})
	}
	if res.FumbleConfirmed {
		if out, ok := e.dispatchFumble(ctx, ac); ok {
			rep.Fumble = &out
		}
	}

	if e.hooks != nil {
		e.hooks.AttackResolved(ctx, res)
		if rep.Knockdown != nil {
			e.hooks.KnockdownRolled(ctx, res, *rep.Knockdown)
		}
		if rep.Fumble != nil {
			e.hooks.FumbleDispatched(ctx, res, *rep.Fumble)
		}
	}
	return rep, nil
}

func (e *Engine) lookup(ctx context.Context, role, ref string) *Entity {
	if ref == "" {
		return nil
	}
	ent, err := e.refs.Lookup(ctx, ref)
	if err != nil {
		e.logger.Warn("reference lookup failed", zap.String("role", role), zap.String("ref", ref), zap.Error(err))
		return nil
	}
	if ent == nil {
		e.logger.Warn("reference not found", zap.String("role", role), zap.String("ref", ref))
	}
	return ent
}

func (e *Engine) confirmRequest(ac AttackContext, kind RollKind) ConfirmRequest {
	return ConfirmRequest{
		ActorID:    ac.ActorID,
		ActorName:  ac.ActorName,
		Formula:    ac.RollFormula,
		TargetAC:   ac.TargetAC,
		Comparison: ac.THAC0,
		Kind:       kind,
	}
}

func (e *Engine) rollKnockdown(ctx context.Context, res AttackResolution) (out KnockdownRoll, ok bool) {
	ac := res.Context
	defer func() {
		if p := recover(); p != nil {
			out, ok = KnockdownRoll{}, false
			e.rollFailed(ctx, ac, "Knockdown roll failed", fmt.Errorf("knockdown roll panicked: %v", p))
		}
	}()

	kd := KnockdownRoll{Result: res.Knockdown()}
	roll, err := e.roller.Roll(ctx, string(kd.Die))
	if err != nil {
		e.rollFailed(ctx, ac, "Knockdown roll failed", err)
		return KnockdownRoll{}, false
	}
	kd.Roll = roll.Total()
	kd.Success = kd.Succeeds(kd.Roll)

	title, lines := "No Knockdown", []string(nil)
	if kd.Success {
		title = ac.TargetName + " Knocked Down!"
		lines = []string{ac.TargetName + " must save vs. paralyzation or be knocked prone!"}
	}
	e.notifier.Post(ctx, Message{
		Kind:    MessageKnockdown,
		Speaker: ac.ActorName,
		Title:   title,
		Lines:   lines,
		Fields: map[string]string{
			"die":      string(kd.Die),
			"base_die": string(kd.BaseDie),
			"roll":     strconv.Itoa(kd.Roll),
			"dc":       res.KnockdownDC.String(),
			"target":   ac.TargetName,
		},
	})
	return kd, true
}

// dispatchFumble rolls the fumble table once per actor at a time, guarded by
// the fumbleProcessed flag.
func (e *Engine) dispatchFumble(ctx context.Context, ac AttackContext) (fumble.Outcome, bool) {
	if ac.ActorID == "" {
		e.logger.Warn("fumble without actor identity; guard skipped", zap.String("event", ac.EventID))
		return e.rollFumble(ctx, ac)
	}
	acquired, err := e.flags.Acquire(ctx, ac.ActorID, FlagFumbleProcessed)
	if err != nil {
		e.logger.Warn("acquiring fumble flag", zap.String("actor", ac.ActorName), zap.Error(err))
		return fumble.Outcome{}, false
	}
	if !acquired {
		e.logger.Debug("fumble already processing", zap.String("actor", ac.ActorName))
		return fumble.Outcome{}, false
	}
	defer func() {
		// Release with a fresh context so a cancelled event still clears the flag.
		if err := e.flags.Release(context.WithoutCancel(ctx), ac.ActorID, FlagFumbleProcessed); err != nil {
			e.logger.Error("releasing fumble flag", zap.String("actor", ac.ActorName), zap.Error(err))
		}
	}()
	return e.rollFumble(ctx, ac)
}

// rollFumble dispatches the fumble table and posts the outcome. A failing or
// panicking roller yields no result and an error message.
func (e *Engine) rollFumble(ctx context.Context, ac AttackContext) (out fumble.Outcome, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			out, ok = fumble.Outcome{}, false
			e.rollFailed(ctx, ac, "Fumble table roll failed", fmt.Errorf("fumble table roll panicked: %v", p))
		}
	}()

	out, err := e.fumbles.Dispatch(ctx, ac.ActorName)
	if err != nil {
		e.rollFailed(ctx, ac, "Fumble table roll failed", err)
		return fumble.Outcome{}, false
	}
	e.notifier.Post(ctx, Message{
		Kind:    MessageFumble,
		Speaker: ac.ActorName,
		Title:   "Fumble Result",
		Lines:   out.Lines(),
		Fields: map[string]string{
			"roll":     strconv.Itoa(out.Roll),
			"sub_roll": strconv.Itoa(out.SubRoll),
			"entry":    out.Entry.ID,
		},
	})
	return out, true
}

func (e *Engine) rollFailed(ctx context.Context, ac AttackContext, title string, err error) {
	e.logger.Warn(strings.ToLower(title), zap.String("actor", ac.ActorName), zap.Error(err))
	e.notifier.Post(ctx, Message{
		Kind:    MessageError,
		Speaker: ac.ActorName,
		Title:   title,
		Lines:   []string{err.Error()},
	})
}
