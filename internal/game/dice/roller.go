package dice

import (
	"context"
	"sort"

	"go.uber.org/zap"
)

// Roll evaluates an Expression using the given Source.
// With KeepHighest set, Dice holds the kept dice in descending order and
// First still records the first die rolled.
//
// Precondition: expr must come from Parse; src must be non-nil.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}

	kept := rolled
	if expr.KeepHighest > 0 {
		sorted := make([]int, len(rolled))
		copy(sorted, rolled)
		sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
		kept = sorted[:expr.KeepHighest]
	}

	return RollResult{
		Expression: expr.Raw,
		Sides:      expr.Sides,
		Dice:       kept,
		Modifier:   expr.Modifier,
		First:      rolled[0],
	}
}

// RollExpr parses formula and rolls it using src in a single call.
func RollExpr(formula string, src Source) (RollResult, error) {
	e, err := Parse(formula)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, src), nil
}

// Roller rolls formulas against a Source and logs every roll at debug level
// with expression, dice values, modifier, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll parses and evaluates formula.
//
// Postcondition: Returns the logged RollResult, a parse error, or ctx.Err()
// when ctx is already done.
func (r *Roller) Roll(ctx context.Context, formula string) (RollResult, error) {
	if err := ctx.Err(); err != nil {
		return RollResult{}, err
	}
	result, err := RollExpr(formula, r.src)
	if err != nil {
		return RollResult{}, err
	}
	r.logger.Debug("dice roll",
		zap.String("expression", result.Expression),
		zap.Ints("dice", result.Dice),
		zap.Int("modifier", result.Modifier),
		zap.Int("total", result.Total()),
	)
	return result, nil
}
