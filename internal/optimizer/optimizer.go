/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package optimizer selects the set of non-overlapping contracts with the
// highest total price (weighted interval scheduling).
package optimizer

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sort"
)

// pathNode is one contract of a best path. Nodes are shared between the
// paths of several table entries and never modified once linked.
type pathNode struct {
	contract int // index into the sorted slice
	next     *pathNode
}

// bestPath pairs an income with the path achieving it. A nil head is the
// empty path.
type bestPath struct {
	income int64
	head   *pathNode
}

// Optimize returns the maximum total price over all subsets of mutually
// non-overlapping contracts, with the names of one such subset ordered by
// start. The input slice is not modified.
//
// Contracts are processed by ascending start, from the last one to the
// first. For each contract the best path either skips it (the best path of
// the next contract) or takes it followed by the best path of its nearest
// successor. The contract is only taken when that strictly improves the
// income, so between equally profitable selections the one skipping earlier
// contracts wins.
func Optimize(contracts []Contract) (Result, error) {
	if err := validate(contracts); err != nil {
		return Result{}, err
	}
	if len(contracts) == 0 {
		return Empty(), nil
	}

	sorted := sortByStart(contracts)
	n := len(sorted)
	best := make([]bestPath, n)

	for i := n - 1; i >= 0; i-- {
		c := sorted[i]

		var without bestPath
		if i < n-1 {
			without = best[i+1]
		}

		with := bestPath{income: c.Price, head: &pathNode{contract: i}}
		if j, ok := nearestSuccessor(sorted, i); ok {
			income, ok := addIncome(c.Price, best[j].income)
			if !ok {
				return Result{}, fmt.Errorf("path from contract %q: %w", c.Name, ErrIncomeOverflow)
			}
			with = bestPath{income: income, head: &pathNode{contract: i, next: best[j].head}}
		}

		if with.income > without.income {
			best[i] = with
		} else {
			best[i] = without
		}
	}

	return extract(sorted, best), nil
}

// nearestSuccessor returns the first index after i whose contract starts at
// or after the end of sorted[i]. Every later index is a successor as well.
func nearestSuccessor(sorted []Contract, i int) (int, bool) {
	end := sorted[i].End()
	from := i + 1
	j := from + sort.Search(len(sorted)-from, func(k int) bool {
		return sorted[from+k].Start >= end
	})
	return j, j < len(sorted)
}

// extract picks the entry with the highest income, the lowest index on ties.
func extract(sorted []Contract, best []bestPath) Result {
	top := 0
	for i := 1; i < len(best); i++ {
		if best[i].income > best[top].income {
			top = i
		}
	}
	return materialize(sorted, best[top])
}

func materialize(sorted []Contract, bp bestPath) Result {
	path := []string{}
	for node := bp.head; node != nil; node = node.next {
		path = append(path, sorted[node.contract].Name)
	}
	return Result{Income: bp.income, Path: path}
}

func validate(contracts []Contract) error {
	seen := make(map[string]int, len(contracts))
	for i, c := range contracts {
		if err := c.Validate(); err != nil {
			return &ValidationError{Index: i, Name: c.Name, Err: err}
		}
		if first, dup := seen[c.Name]; dup {
			return &ValidationError{
				Index: i,
				Name:  c.Name,
				Err:   fmt.Errorf("%w: also used by contract %d", ErrDuplicateName, first),
			}
		}
		seen[c.Name] = i
	}
	return nil
}

// sortByStart returns a copy ordered by start, keeping input order among
// contracts starting together.
func sortByStart(contracts []Contract) []Contract {
	sorted := slices.Clone(contracts)
	slices.SortStableFunc(sorted, func(a, b Contract) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return sorted
}

func addIncome(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}
