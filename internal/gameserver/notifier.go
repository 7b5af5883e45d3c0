package gameserver

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tactics/internal/game/combat"
	"github.com/cory-johannsen/tactics/internal/game/crittable"
)

// Message kinds produced outside the combat engine.
const (
	MessageCritical combat.MessageKind = "critical"
	MessageScript   combat.MessageKind = "script"
)

// CriticalResolver looks up critical hit locations and effects.
// *crittable.Resolver satisfies it.
type CriticalResolver interface {
	Resolve(ctx context.Context, req crittable.Request) (crittable.Result, error)
}

// TextNotifier renders notifications as plain text on a writer and resolves
// confirmed critical hits against the critical tables. It is safe for
// concurrent use; each message is written in one call.
type TextNotifier struct {
	mu     sync.Mutex
	w      io.Writer
	crits  CriticalResolver
	logger *zap.Logger
}

var _ combat.Notifier = (*TextNotifier)(nil)

// NewTextNotifier creates a TextNotifier. crits may be nil, in which case the
// critical hit detail is printed without a location or effect.
//
// Precondition: w and logger must be non-nil.
func NewTextNotifier(w io.Writer, crits CriticalResolver, logger *zap.Logger) *TextNotifier {
	return &TextNotifier{w: w, crits: crits, logger: logger}
}

// Post implements combat.Notifier.
func (n *TextNotifier) Post(_ context.Context, msg combat.Message) {
	n.write(Render(msg))
}

// PostScript posts a message from a house-rule script.
func (n *TextNotifier) PostScript(title string, lines []string) {
	n.write(Render(combat.Message{Kind: MessageScript, Title: title, Lines: lines}))
}

// OpenCriticalDialog implements combat.Notifier by rolling a random hit
// location and effect for the detail.
func (n *TextNotifier) OpenCriticalDialog(ctx context.Context, d combat.CriticalDetail) {
	msg := combat.Message{
		Kind:    MessageCritical,
		Speaker: d.ActorName,
		Title:   fmt.Sprintf("Critical Hit on %s (%s)", d.TargetName, d.Severity),
		Fields:  map[string]string{"event": d.EventID},
	}
	if n.crits == nil {
		n.write(Render(msg))
		return
	}
	res, err := n.crits.Resolve(ctx, crittable.Request{
		TargetName: d.TargetName,
		Severity:   string(d.Severity),
		Creature:   d.TargetCreature,
		DamageType: d.DamageType,
		Location:   crittable.RandomLocation,
	})
	if err != nil {
		n.logger.Warn("critical hit lookup failed",
			zap.String("target", d.TargetName),
			zap.String("severity", string(d.Severity)),
			zap.String("damage_type", d.DamageType),
			zap.Error(err),
		)
		msg.Lines = []string{"No critical hit table for this hit."}
		n.write(Render(msg))
		return
	}
	msg.Lines = []string{
		fmt.Sprintf("Location: %s", res.Location),
		fmt.Sprintf("Effect: %s", res.Effect),
	}
	msg.Fields["location_roll"] = fmt.Sprint(res.LocationRoll)
	msg.Fields["effect_roll"] = fmt.Sprint(res.EffectRoll)
	n.write(Render(msg))
}

func (n *TextNotifier) write(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := io.WriteString(n.w, s); err != nil {
		n.logger.Warn("writing notification", zap.Error(err))
	}
}

// Render formats msg as a header line followed by indented body lines and a
// sorted field line, ending in a newline:
//
//	[fumble] Bob: Fumble Result
//	  Armor Trouble: ...
//	  (roll=4)
func Render(msg combat.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", msg.Kind)
	if msg.Speaker != "" {
		b.WriteString(msg.Speaker)
		b.WriteString(": ")
	}
	b.WriteString(msg.Title)
	b.WriteByte('\n')
	for _, line := range msg.Lines {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(msg.Fields) > 0 {
		parts := make([]string, 0, len(msg.Fields))
		for _, k := range slices.Sorted(maps.Keys(msg.Fields)) {
			parts = append(parts, k+"="+msg.Fields[k])
		}
		fmt.Fprintf(&b, "  (%s)\n", strings.Join(parts, ", "))
	}
	return b.String()
}
