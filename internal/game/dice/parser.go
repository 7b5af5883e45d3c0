package dice

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Expression represents a parsed dice formula ready to be rolled.
//
// Invariant: Count >= 1 and Sides >= 2 after a successful Parse.
type Expression struct {
	Raw         string // original input string
	Count       int    // number of dice
	Sides       int    // faces per die
	Modifier    int    // sum of all flat modifiers (may be negative)
	KeepHighest int    // if > 0, keep only the N highest dice (e.g. 4d6kh3)
}

var (
	formulaRe  = regexp.MustCompile(`^(\d*)d(\d+)(?:kh(\d+))?((?:[+-]\d+)*)$`)
	modifierRe = regexp.MustCompile(`[+-]\d+`)
)

// Parse parses a dice formula into an Expression.
// Supported forms: "d20", "1d20+3", "1d10 + 4", "4d8-2", "1d20+3-1", "4d6kh3".
// Whitespace anywhere in the formula is ignored.
//
// Postcondition: Returns a valid Expression or a descriptive error.
func Parse(formula string) (Expression, error) {
	s := strings.ToLower(strings.Join(strings.Fields(formula), ""))
	if s == "" {
		return Expression{}, fmt.Errorf("dice: empty expression")
	}

	m := formulaRe.FindStringSubmatch(s)
	if m == nil {
		return Expression{}, fmt.Errorf("dice: malformed expression %q", formula)
	}

	count := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: %w", formula, err)
		}
		if n <= 0 {
			return Expression{}, fmt.Errorf("dice: invalid die count in %q: must be >= 1", formula)
		}
		count = n
	}

	sides, err := strconv.Atoi(m[2])
	if err != nil {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: %w", formula, err)
	}
	if sides < 2 {
		return Expression{}, fmt.Errorf("dice: invalid die sides in %q: must be >= 2", formula)
	}

	keep := 0
	if m[3] != "" {
		keep, err = strconv.Atoi(m[3])
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid kh value in %q: %w", formula, err)
		}
		if keep <= 0 || keep >= count {
			return Expression{}, fmt.Errorf("dice: kh value %d must be > 0 and < count %d in %q", keep, count, formula)
		}
	}

	modifier := 0
	for _, part := range modifierRe.FindAllString(m[4], -1) {
		v, err := strconv.Atoi(part)
		if err != nil {
			return Expression{}, fmt.Errorf("dice: invalid modifier in %q: %w", formula, err)
		}
		modifier += v
	}

	return Expression{
		Raw:         formula,
		Count:       count,
		Sides:       sides,
		Modifier:    modifier,
		KeepHighest: keep,
	}, nil
}

// MustParse parses formula and panics on error. Useful for package-level tables.
func MustParse(formula string) Expression {
	e, err := Parse(formula)
	if err != nil {
		panic("dice: MustParse failed for expression " + formula + ": " + err.Error())
	}
	return e
}
