/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package optimizer

import (
	"fmt"
	"math"
)

// Contract is a priced rental request valid over [Start, Start+Duration).
type Contract struct {
	Name     string `json:"name" yaml:"name"`
	Start    int64  `json:"start" yaml:"start"`
	Duration int64  `json:"duration" yaml:"duration"`
	Price    int64  `json:"price" yaml:"price"`
}

// End returns the first instant after the contract period.
func (c Contract) End() int64 {
	return c.Start + c.Duration
}

// Intersects reports whether both contracts claim a common instant.
// A contract ending exactly when the other starts does not intersect it.
func (c Contract) Intersects(other Contract) bool {
	return (c.Start <= other.Start && other.Start < c.End()) ||
		(other.Start <= c.Start && c.Start < other.End())
}

// Validate checks the contract on its own. Name uniqueness is checked by Optimize.
func (c Contract) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidContract, c.Duration)
	}
	if c.Start > math.MaxInt64-c.Duration {
		return fmt.Errorf("%w: end overflows (start %d, duration %d)", ErrInvalidContract, c.Start, c.Duration)
	}
	return nil
}

// Result is the best selection of non-overlapping contracts.
type Result struct {
	Income int64    `json:"income" yaml:"income"`
	Path   []string `json:"path" yaml:"path"`
}

// Empty returns the result for an empty input.
func Empty() Result {
	return Result{Income: 0, Path: []string{}}
}
