package combat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cory-johannsen/tactics/internal/game/critical"
	"github.com/cory-johannsen/tactics/internal/game/knockdown"
	"github.com/cory-johannsen/tactics/internal/game/size"
)

// Display names used when a reference cannot be resolved.
const (
	UnknownActor  = "Unknown Actor"
	UnknownWeapon = "Unknown Weapon"
	UnknownTarget = "Unknown Target"
)

// AnonymousActorPrefix prefixes the event ID to form the actor key of an
// attack that names no actor.
const AnonymousActorPrefix = "anonymous:"

// DefaultDamageType applies when a weapon declares no damage type.
const DefaultDamageType = "slashing"

var critModPattern = regexp.MustCompile(`(?i)crit:\s*(-?\d+)`)

// RollEvent is one attack roll as reported by the host. Every field is
// optional; a zero NaturalRoll means the host reported no die.
type RollEvent struct {
	ID          string `yaml:"id"`
	NaturalRoll int    `yaml:"natural"`
	TotalRoll   int    `yaml:"total"`
	Formula     string `yaml:"formula"`
	ActorRef    string `yaml:"actor"`
	WeaponRef   string `yaml:"weapon"`
	TargetRef   string `yaml:"target"`
	Text        string `yaml:"text"`
}

// Entity is an actor, weapon, or target as resolved from a reference.
// Fields that do not apply to an entity's role are left empty.
type Entity struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Size         string   `yaml:"size"`
	Creature     string   `yaml:"creature"`
	THAC0        *int     `yaml:"thac0"`
	DamageType   string   `yaml:"damage_type"`
	Properties   []string `yaml:"properties"`
	KnockdownDie string   `yaml:"knockdown_die"`
}

// Participants holds the resolved references of one roll event. Any of them
// may be nil.
type Participants struct {
	Actor  *Entity
	Weapon *Entity
	Target *Entity
}

// AttackContext is the immutable input to Resolve.
type AttackContext struct {
	EventID     string
	ActorID     string
	ActorName   string
	WeaponName  string
	TargetName  string
	NaturalRoll int
	TotalRoll   int
	RollFormula string

	ActorSize              size.Category
	WeaponSize             size.Category
	WeaponDamageType       string
	WeaponCriticalModifier int
	WeaponKnockdownDie     knockdown.Step // empty when the weapon declares none
	TargetSize             size.Category
	TargetCreature         string

	TargetAC Maybe
	HitAC    Maybe
	THAC0    Maybe

	Options critical.Options
}

// BuildContext assembles an AttackContext from a roll event and its resolved
// participants, applying defaults for anything missing. The returned notes
// describe each default applied to an unrecognized value, for logging.
//
// Postcondition: ActorSize and WeaponSize are known; TargetSize is Unknown
// only when the target or its size is missing or unrecognized. ActorID is
// empty only when the event names no actor and carries no ID.
func BuildContext(ev RollEvent, p Participants, opts critical.Options) (AttackContext, []string) {
	var notes []string
	c := AttackContext{
		EventID:          ev.ID,
		ActorID:          ev.ActorRef,
		ActorName:        UnknownActor,
		WeaponName:       UnknownWeapon,
		TargetName:       UnknownTarget,
		NaturalRoll:      ev.NaturalRoll,
		TotalRoll:        ev.TotalRoll,
		RollFormula:      ev.Formula,
		ActorSize:        size.Default,
		WeaponDamageType: DefaultDamageType,
		TargetSize:       size.Unknown,
		Options:          opts,
	}

	if a := p.Actor; a != nil {
		if a.ID != "" {
			c.ActorID = a.ID
		}
		c.ActorName = nameOr(a.Name, UnknownActor)
		c.THAC0 = Ptr(a.THAC0)
		c.ActorSize = sizeOr(a.Size, size.Default, "actor", &notes)
	}

	c.WeaponSize = c.ActorSize
	if w := p.Weapon; w != nil {
		c.WeaponName = nameOr(w.Name, UnknownWeapon)
		c.WeaponSize = sizeOr(w.Size, c.ActorSize, "weapon", &notes)
		if dt := strings.TrimSpace(w.DamageType); dt != "" {
			c.WeaponDamageType = strings.ToLower(dt)
		}
		c.WeaponCriticalModifier = CriticalModifier(w.Properties)
		if w.KnockdownDie != "" {
			c.WeaponKnockdownDie = knockdown.Step(strings.ToLower(strings.TrimSpace(w.KnockdownDie)))
			if !c.WeaponKnockdownDie.Valid() {
				notes = append(notes, fmt.Sprintf("weapon knockdown die %q unrecognized, stepping from %s", w.KnockdownDie, knockdown.D8))
			}
		}
	}

	if t := p.Target; t != nil {
		c.TargetName = nameOr(t.Name, UnknownTarget)
		c.TargetCreature = t.Creature
		if s, ok := size.Parse(t.Size); ok {
			c.TargetSize = s
		} else if t.Size != "" {
			notes = append(notes, fmt.Sprintf("target size %q unrecognized, treating as unknown", t.Size))
		}
	}

	if c.ActorID == "" && ev.ID != "" {
		// Anonymous attackers are keyed per event so they never share locks or flags.
		c.ActorID = AnonymousActorPrefix + ev.ID
	}

	hit := ResolveHit(ev.Text)
	c.TargetAC = hit.TargetAC
	c.HitAC = hit.HitAC
	return c, notes
}

// CriticalModifier returns the first "crit: N" value found among a weapon's
// property strings, or 0.
func CriticalModifier(properties []string) int {
	for _, p := range properties {
		m := critModPattern.FindStringSubmatch(p)
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	return 0
}

func nameOr(name, def string) string {
	if strings.TrimSpace(name) == "" {
		return def
	}
	return name
}

func sizeOr(label string, def size.Category, role string, notes *[]string) size.Category {
	if s, ok := size.Parse(label); ok {
		return s
	}
	if label != "" {
		*notes = append(*notes, fmt.Sprintf("%s size %q unrecognized, using %s", role, label, def))
	}
	return def
}
