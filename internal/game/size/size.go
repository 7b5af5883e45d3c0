// Package size defines the ordered creature and weapon size categories.
package size

import "strings"

// Category is a creature or weapon size. The zero value is Tiny; Unknown
// marks a size that was missing or unrecognized.
type Category int

const (
	Unknown Category = iota - 1
	Tiny
	Small
	Medium
	Large
	Huge
	Gargantuan
)

// Default is the size assumed for actors and weapons that declare none.
const Default = Medium

var labels = []string{"tiny", "small", "medium", "large", "huge", "gargantuan"}

// All returns every known category in ascending order.
func All() []Category {
	return []Category{Tiny, Small, Medium, Large, Huge, Gargantuan}
}

// IndexOf returns the ordinal position of label in the size ordering, or -1
// when label is not a known size. Matching ignores case and surrounding space.
func IndexOf(label string) int {
	l := strings.ToLower(strings.TrimSpace(label))
	for i, s := range labels {
		if s == l {
			return i
		}
	}
	return -1
}

// Parse converts label to a Category. ok is false for unrecognized labels,
// in which case Unknown is returned.
func Parse(label string) (c Category, ok bool) {
	idx := IndexOf(label)
	if idx < 0 {
		return Unknown, false
	}
	return Category(idx), true
}

// ParseOr converts label to a Category, returning def when it is unrecognized.
func ParseOr(label string, def Category) Category {
	if c, ok := Parse(label); ok {
		return c
	}
	return def
}

// Index returns the ordinal position of c, or -1 for Unknown.
func (c Category) Index() int {
	if !c.Known() {
		return -1
	}
	return int(c)
}

// Known reports whether c is one of the six ordered sizes.
func (c Category) Known() bool {
	return c >= Tiny && c <= Gargantuan
}

// String returns the lowercase label, or "unknown".
func (c Category) String() string {
	if !c.Known() {
		return "unknown"
	}
	return labels[c]
}
