/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/spaceship_rental/internal/optimizer"
	"github.com/friendsincode/spaceship_rental/internal/payload"
)

var (
	benchSizes  []int
	benchRepeat int
	benchNaive  bool
	benchSeed   uint64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time the optimizer on random payloads",
	Long: `Time the optimizer on random payloads of increasing size.

Each size is generated once and solved --repeat times; the average is printed.
With --naive the quadratic reference solver is timed as well.

Examples:
  spaceshiprental bench --sizes 10,100,1000,10000
  spaceshiprental bench --sizes 100,1000 --repeat 10 --naive
`,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().IntSliceVar(&benchSizes, "sizes", []int{10, 100, 1000, 10000}, "Payload sizes")
	benchCmd.Flags().IntVar(&benchRepeat, "repeat", 5, "Runs per size")
	benchCmd.Flags().BoolVar(&benchNaive, "naive", false, "Also time the naive solver")
	benchCmd.Flags().Uint64Var(&benchSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchRepeat < 1 {
		return fmt.Errorf("repeat must be positive, got %d", benchRepeat)
	}

	algorithms := []optimizer.Algorithm{optimizer.AlgorithmFast}
	if benchNaive {
		algorithms = append(algorithms, optimizer.AlgorithmNaive)
	}

	return bench(cmd.OutOrStdout(), payload.NewGenerator(benchSeed), benchSizes, benchRepeat, algorithms)
}

func bench(out io.Writer, gen *payload.Generator, sizes []int, repeat int, algorithms []optimizer.Algorithm) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SIZE\tALGORITHM\tAVERAGE\tINCOME")

	for _, size := range sizes {
		if size < 0 {
			return fmt.Errorf("size must not be negative, got %d", size)
		}
		contracts := gen.Generate(size)

		for _, algorithm := range algorithms {
			var (
				total  time.Duration
				result optimizer.Result
			)
			for i := 0; i < repeat; i++ {
				started := time.Now()
				res, err := algorithm.Solve(contracts)
				if err != nil {
					return fmt.Errorf("size %d: %w", size, err)
				}
				total += time.Since(started)
				result = res
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", size, algorithm, total/time.Duration(repeat), result.Income)
		}
	}
	return tw.Flush()
}
