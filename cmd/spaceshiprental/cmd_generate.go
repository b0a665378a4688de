/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/spaceship_rental/internal/payload"
	"github.com/friendsincode/spaceship_rental/internal/storage"
)

var (
	generateCount  int
	generateSeed   uint64
	generateOutput string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a random payload file",
	Long: `Generate random contracts and write them as a payload file.

Names are 12 random lowercase letters. Starts and prices are drawn from
[0, 1000] and durations from [1, 1000]. The output format follows the file
extension (.json, .yaml or .yml).

Examples:
  spaceshiprental generate --count 10000 --output payload.json
  spaceshiprental generate --count 500 --seed 42 --output s3://payloads/sample.yaml
`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 100, "Number of contracts")
	generateCmd.Flags().Uint64Var(&generateSeed, "seed", 0, "Random seed (0 = time based)")
	generateCmd.Flags().StringVarP(&generateOutput, "output", "o", "", "Output path or s3://bucket/key")
	_ = generateCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if generateCount < 0 {
		return fmt.Errorf("count must not be negative, got %d", generateCount)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	seed := generateSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	store, key, err := storage.Open(ctx, generateOutput, s3Config())
	if err != nil {
		return err
	}

	contracts := payload.NewGenerator(seed).Generate(generateCount)
	if err := payload.Save(ctx, store, key, contracts); err != nil {
		return err
	}

	logger.Info().
		Int("count", generateCount).
		Uint64("seed", seed).
		Str("output", generateOutput).
		Msg("payload written")
	return nil
}
