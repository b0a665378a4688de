/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package optimizer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidContract is returned for a non-positive duration or an end that overflows int64.
	ErrInvalidContract = errors.New("invalid contract")

	// ErrDuplicateName is returned when two contracts share a name.
	ErrDuplicateName = errors.New("duplicate contract name")

	// ErrIncomeOverflow is returned when a path income does not fit in int64.
	ErrIncomeOverflow = errors.New("income overflows int64")
)

// ValidationError locates the contract that was rejected.
type ValidationError struct {
	Index int    // position in the caller's slice
	Name  string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("contract %d (%q): %v", e.Index, e.Name, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
