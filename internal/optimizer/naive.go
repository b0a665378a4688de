/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package optimizer

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// OptimizeNaive solves the same problem in O(n²) by trying every successor of
// every contract. It always takes at least one contract, so with only
// negative prices it returns the least negative one where Optimize returns
// the empty selection. Kept as a reference for Optimize.
func OptimizeNaive(contracts []Contract) (Result, error) {
	if err := validate(contracts); err != nil {
		return Result{}, err
	}
	if len(contracts) == 0 {
		return Empty(), nil
	}

	sorted := slices.Clone(contracts)
	slices.SortStableFunc(sorted, func(a, b Contract) int {
		return cmp.Compare(a.End(), b.End())
	})

	n := len(sorted)
	best := make([]bestPath, n)
	for i := n - 1; i >= 0; i-- {
		ci := sorted[i]
		successor := -1
		var successorIncome int64

		for j := i + 1; j < n; j++ {
			if ci.Intersects(sorted[j]) {
				continue
			}
			if best[j].income > successorIncome {
				successorIncome = best[j].income
				successor = j
			}
		}

		node := &pathNode{contract: i}
		if successor >= 0 {
			node.next = best[successor].head
		}
		income, ok := addIncome(ci.Price, successorIncome)
		if !ok {
			return Result{}, fmt.Errorf("path from contract %q: %w", ci.Name, ErrIncomeOverflow)
		}
		best[i] = bestPath{income: income, head: node}
	}

	return extract(sorted, best), nil
}

// Algorithm names a solver.
type Algorithm string

const (
	AlgorithmFast  Algorithm = "fast"
	AlgorithmNaive Algorithm = "naive"
)

// ParseAlgorithm maps a user supplied name to an Algorithm. Empty means fast.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", AlgorithmFast:
		return AlgorithmFast, nil
	case AlgorithmNaive:
		return AlgorithmNaive, nil
	default:
		return "", fmt.Errorf("unknown algorithm %q", name)
	}
}

// Solve runs the solver named by a.
func (a Algorithm) Solve(contracts []Contract) (Result, error) {
	if a == AlgorithmNaive {
		return OptimizeNaive(contracts)
	}
	return Optimize(contracts)
}
