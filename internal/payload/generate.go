/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package payload

import (
	"math/rand/v2"

	"github.com/friendsincode/spaceship_rental/internal/optimizer"
)

// Ranges used for generated contracts, bounds included.
const (
	NameLength  = 12
	MaxStart    = 1000
	MinDuration = 1
	MaxDuration = 1000
	MaxPrice    = 1000
)

const nameAlphabet = "abcdefghijklmnopqrstuvwxyz"

// Generator produces random contracts with unique names.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator whose output depends only on seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Generate returns n random contracts.
func (g *Generator) Generate(n int) []optimizer.Contract {
	contracts := make([]optimizer.Contract, 0, n)
	used := make(map[string]struct{}, n)
	for len(contracts) < n {
		name := g.name()
		if _, dup := used[name]; dup {
			continue
		}
		used[name] = struct{}{}
		contracts = append(contracts, optimizer.Contract{
			Name:     name,
			Start:    g.rng.Int64N(MaxStart + 1),
			Duration: MinDuration + g.rng.Int64N(MaxDuration-MinDuration+1),
			Price:    g.rng.Int64N(MaxPrice + 1),
		})
	}
	return contracts
}

func (g *Generator) name() string {
	b := make([]byte, NameLength)
	for i := range b {
		b[i] = nameAlphabet[g.rng.IntN(len(nameAlphabet))]
	}
	return string(b)
}
