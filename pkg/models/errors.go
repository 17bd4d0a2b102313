package models

import (
	"errors"
	"fmt"
)

// Error kinds for the valuation engine. Concrete failures wrap one of
// these sentinels so callers can branch with errors.Is without caring
// about the exact message.
var (
	// ErrModelDivergence: a terminal-value or discount-rate precondition
	// is violated (g >= rate). Fatal for a single run; Monte Carlo draws
	// hitting it are discarded.
	ErrModelDivergence = errors.New("model divergence")

	// ErrMissingData: a required anchor (FCF, revenue, EPS, book value,
	// dividend) is absent and no manual override exists.
	ErrMissingData = errors.New("missing data")

	// ErrInvalidInput: non-positive shares, negative flows in automatic
	// mode, or an out-of-range parameter.
	ErrInvalidInput = errors.New("invalid input")
)

// NewModelDivergence reports the Gordon precondition failure g >= rate.
func NewModelDivergence(rate, growth float64) error {
	return fmt.Errorf("%w: perpetual growth %.4f >= discount rate %.4f", ErrModelDivergence, growth, rate)
}

// NewMissingAnchor reports an absent valuation anchor.
func NewMissingAnchor(name string) error {
	return fmt.Errorf("%w: no %s available and no manual override supplied", ErrMissingData, name)
}

// NewInvalidShares reports a non-positive resolved share count.
func NewInvalidShares(shares float64) error {
	return fmt.Errorf("%w: resolved shares outstanding %.2f must be > 0", ErrInvalidInput, shares)
}

// NewNegativeFlow reports a non-positive anchor in automatic mode.
func NewNegativeFlow(name string, value float64) error {
	return fmt.Errorf("%w: %s is %.2f (must be > 0 without a manual override)", ErrInvalidInput, name, value)
}
