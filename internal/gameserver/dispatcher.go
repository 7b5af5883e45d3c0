package gameserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/config"
	"github.com/cory-johannsen/tactics/internal/game/clock"
	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/fatigue"
	"github.com/cory-johannsen/tactics/internal/game/initiative"
	"github.com/cory-johannsen/tactics/internal/game/spellpoints"
)

// Message kinds posted by the dispatcher.
const (
	MessageInitiative combat.MessageKind = "initiative"
	MessageFatigue    combat.MessageKind = "fatigue"
	MessageSpell      combat.MessageKind = "spell"
	MessageClock      combat.MessageKind = "clock"
)

// Components are the engines a Dispatcher routes to. Every field is
// required.
type Components struct {
	Attacks    *combat.Engine
	Initiative *initiative.Resolver
	Clock      *clock.Clock
	Fatigue    *fatigue.Tracker
	Spells     *spellpoints.Ledger
	Registry   *Registry
	Roller     combat.Roller
	Notifier   combat.Notifier
}

// Dispatcher routes host events to the engine that owns them. Rule toggles
// are read from the rules section at construction.
type Dispatcher struct {
	c      Components
	rules  config.RulesConfig
	logger *zap.Logger
}

// NewDispatcher creates a Dispatcher.
//
// Precondition: every field of c and logger must be non-nil.
func NewDispatcher(c Components, rules config.RulesConfig, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{c: c, rules: rules, logger: logger}
}

// Handle processes one event.
//
// Postcondition: returns ErrUnknownEvent for an unrecognised type, an error
// for an event missing its payload, or the error of the owning engine.
// Events for a disabled rule return nil and are logged at debug.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventAttack:
		return d.attack(ctx, ev)
	case EventInitiative:
		return d.initiative(ctx, ev)
	case EventSpellInitiative:
		return d.spellInitiative(ctx, ev)
	case EventDelay:
		return d.delay(ctx, ev)
	case EventRoundStart:
		return d.roundStart(ctx)
	case EventCombatEnd:
		return d.combatEnd(ctx)
	case EventHUDAction:
		return d.hudAction(ctx, ev)
	case EventSpellCast:
		return d.spellCast(ctx, ev)
	case EventSpellReset:
		return d.spellReset(ctx, ev)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
}

func (d *Dispatcher) attack(ctx context.Context, ev Event) error {
	if ev.Attack == nil {
		return errors.New("attack event has no attack roll")
	}
	rep, err := d.c.Attacks.Process(ctx, *ev.Attack)
	if err != nil {
		return err
	}
	if rep.Skipped {
		d.logger.Debug("attack skipped", zap.String("event", ev.Attack.ID), zap.String("reason", rep.Reason))
	}
	return nil
}

func (d *Dispatcher) initiative(ctx context.Context, ev Event) error {
	if ev.Initiative == nil {
		return errors.New("initiative event has no roll")
	}
	if !d.rules.EnableInitiativePhases {
		d.logger.Debug("initiative phases disabled", zap.String("combatant", ev.Initiative.CombatantID))
		return nil
	}
	roll := *ev.Initiative
	if roll.CombatantID == "" {
		roll.CombatantID = roll.ActorID
	}
	return d.resolveInitiative(ctx, roll)
}

func (d *Dispatcher) resolveInitiative(ctx context.Context, roll initiative.Roll) error {
	rec, err := d.c.Initiative.Resolve(ctx, roll)
	if err != nil {
		return err
	}
	d.c.Notifier.Post(ctx, combat.Message{
		Kind:    MessageInitiative,
		Speaker: roll.ActorName,
		Title:   "Initiative",
		Lines:   []string{fmt.Sprintf("%s phase (%.2f)", rec.PhaseCode, rec.Value)},
		Fields: map[string]string{
			"natural":  fmt.Sprint(rec.NaturalRoll),
			"modifier": fmt.Sprint(rec.Modifier),
		},
	})
	return nil
}

// spellInitiative rolls the casting-time initiative of a spell for the actor
// and, with phases enabled, resolves it like any other initiative roll.
func (d *Dispatcher) spellInitiative(ctx context.Context, ev Event) error {
	id, name := d.actor(ev.Actor)
	if id == "" {
		return errors.New("spell_initiative event has no actor")
	}
	formula := spellpoints.InitiativeFormula(ev.CastingTime)
	res, err := d.c.Roller.Roll(ctx, formula)
	if err != nil {
		return fmt.Errorf("rolling spell initiative: %w", err)
	}
	roll := initiative.Roll{
		ActorID:     id,
		CombatantID: firstNonEmpty(ev.Combatant, id),
		ActorName:   name,
		Formula:     formula,
		Total:       res.Total(),
	}
	if !d.rules.EnableInitiativePhases {
		d.c.Notifier.Post(ctx, combat.Message{
			Kind:    MessageInitiative,
			Speaker: name,
			Title:   "Spell Initiative",
			Lines:   []string{res.String()},
		})
		return nil
	}
	return d.resolveInitiative(ctx, roll)
}

func (d *Dispatcher) delay(ctx context.Context, ev Event) error {
	id, name := d.actor(ev.Actor)
	combatant := firstNonEmpty(ev.Combatant, id)
	if combatant == "" {
		return errors.New("delay event has no combatant")
	}
	rec, err := d.c.Initiative.Delay(ctx, combatant)
	if err != nil {
		return err
	}
	d.c.Notifier.Post(ctx, combat.Message{
		Kind:    MessageInitiative,
		Speaker: firstNonEmpty(name, rec.ActorName),
		Title:   "Turn Delayed",
		Lines:   []string{fmt.Sprintf("now acting at %.2f", rec.Value)},
	})
	return nil
}

// roundStart advances the clock and, with phases enabled, posts the current
// initiative order.
func (d *Dispatcher) roundStart(ctx context.Context) error {
	now, advanced := d.c.Clock.RoundStarted()
	if advanced {
		d.logger.Info("round started", zap.Duration("world_time", now))
		d.c.Notifier.Post(ctx, combat.Message{
			Kind:  MessageClock,
			Title: "New Round",
			Lines: []string{"World time: " + formatWorldTime(now)},
		})
	}
	if !d.rules.EnableInitiativePhases {
		return nil
	}
	order, err := d.c.Initiative.Order(ctx)
	if err != nil {
		return fmt.Errorf("listing initiative: %w", err)
	}
	if len(order) == 0 {
		return nil
	}
	lines := make([]string, 0, len(order))
	for _, rec := range order {
		line := fmt.Sprintf("%.2f %s (%s)", rec.Value, firstNonEmpty(rec.ActorName, rec.CombatantID), rec.PhaseCode)
		if rec.Delayed {
			line += " delayed"
		}
		lines = append(lines, line)
	}
	d.c.Notifier.Post(ctx, combat.Message{Kind: MessageInitiative, Title: "Initiative Order", Lines: lines})
	return nil
}

func (d *Dispatcher) combatEnd(ctx context.Context) error {
	now, advanced := d.c.Clock.CombatEnded()
	if err := d.c.Initiative.Reset(ctx); err != nil {
		return fmt.Errorf("clearing initiative: %w", err)
	}
	msg := combat.Message{Kind: MessageClock, Title: "Combat Ended"}
	if advanced {
		msg.Lines = []string{"World time: " + formatWorldTime(now)}
	}
	d.c.Notifier.Post(ctx, msg)
	return nil
}

// hudAction applies a fatigue action. A delaying action also moves the
// actor's initiative behind everyone else when one is recorded.
func (d *Dispatcher) hudAction(ctx context.Context, ev Event) error {
	if !d.rules.EnableFatigue {
		d.logger.Debug("fatigue disabled", zap.String("actor", ev.Actor))
		return nil
	}
	id, name := d.actor(ev.Actor)
	if id == "" {
		return errors.New("hud_action event has no actor")
	}
	action, ok := fatigue.ParseAction(ev.Action)
	if !ok {
		return fmt.Errorf("unknown HUD action %q", ev.Action)
	}
	out, err := d.c.Fatigue.Apply(id, action)
	if err != nil {
		return err
	}

	msg := combat.Message{
		Kind:    MessageFatigue,
		Speaker: name,
		Title:   actionTitles[action],
		Fields:  map[string]string{"fatigue": fmt.Sprintf("%d/%d", out.Pool.Current, out.Pool.Max())},
	}
	if out.Effect != nil {
		msg.Lines = append(msg.Lines, fmt.Sprintf("%s for %s", out.Effect.Name, out.Effect.Duration))
	}
	if out.Pool.Max() > 0 && out.Pool.Exhausted() {
		msg.Lines = append(msg.Lines, name+" is exhausted.")
	}
	switch out.Turn {
	case fatigue.TurnDelayed:
		combatant := firstNonEmpty(ev.Combatant, id)
		if rec, err := d.c.Initiative.Delay(ctx, combatant); err == nil {
			msg.Lines = append(msg.Lines, fmt.Sprintf("Turn delayed to %.2f", rec.Value))
		} else {
			d.logger.Debug("no initiative to delay", zap.String("combatant", combatant), zap.Error(err))
		}
	case fatigue.TurnEnded:
		msg.Lines = append(msg.Lines, "Turn ended.")
	}
	d.c.Notifier.Post(ctx, msg)
	return nil
}

func (d *Dispatcher) spellCast(ctx context.Context, ev Event) error {
	id, name := d.actor(ev.Actor)
	if id == "" {
		return errors.New("spell_cast event has no actor")
	}
	p, err := d.c.Spells.Cast(id, ev.Level)
	msg := combat.Message{Kind: MessageSpell, Speaker: name, Title: fmt.Sprintf("Casts a level %d spell", ev.Level)}
	switch {
	case errors.Is(err, spellpoints.ErrInsufficientPoints):
		msg.Title = "Insufficient Spell Points"
		msg.Lines = []string{err.Error()}
	case err != nil:
		return err
	default:
		msg.Lines = []string{fmt.Sprintf("%d/%d spell points (%.0f%%)", p.Current, p.Max, p.Percent())}
	}
	d.c.Notifier.Post(ctx, msg)
	return nil
}

func (d *Dispatcher) spellReset(ctx context.Context, ev Event) error {
	id, name := d.actor(ev.Actor)
	p, ok := d.c.Spells.Reset(id)
	if !ok {
		return fmt.Errorf("no spell points recorded for %q", ev.Actor)
	}
	d.c.Notifier.Post(ctx, combat.Message{
		Kind:    MessageSpell,
		Speaker: name,
		Title:   "Spell Points Restored",
		Lines:   []string{fmt.Sprintf("%d/%d spell points", p.Current, p.Max)},
	})
	return nil
}

// actor resolves ref to an entity ID and display name. An unregistered ref
// is used as both.
func (d *Dispatcher) actor(ref string) (id, name string) {
	if rec, ok := d.c.Registry.Record(ref); ok {
		return rec.ID, firstNonEmpty(rec.Name, rec.ID)
	}
	return ref, ref
}

var actionTitles = map[fatigue.Action]string{
	fatigue.HalfMove:   "Half Move",
	fatigue.Attack:     "Attack",
	fatigue.FullAttack: "Full Attack",
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func formatWorldTime(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
