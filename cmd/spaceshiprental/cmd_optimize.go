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

	"github.com/friendsincode/spaceship_rental/internal/db"
	"github.com/friendsincode/spaceship_rental/internal/models"
	"github.com/friendsincode/spaceship_rental/internal/optimizer"
	"github.com/friendsincode/spaceship_rental/internal/payload"
	"github.com/friendsincode/spaceship_rental/internal/runs"
	"github.com/friendsincode/spaceship_rental/internal/storage"
)

var (
	optimizeInput     string
	optimizeFormat    string
	optimizeAlgorithm string
	optimizeRecord    bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize a payload file",
	Long: `Load a contract list and print the most profitable selection.

The input is a local path or an s3://bucket/key location. Its format follows
the file extension unless --format is given; the result is printed in the same
format.

Examples:
  spaceshiprental optimize --input contracts.json
  spaceshiprental optimize --input s3://payloads/week-12.yaml --algorithm naive
`,
	RunE: runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVarP(&optimizeInput, "input", "i", "", "Payload path or s3://bucket/key")
	optimizeCmd.Flags().StringVar(&optimizeFormat, "format", "", "Payload format: json or yaml (default: by extension)")
	optimizeCmd.Flags().StringVar(&optimizeAlgorithm, "algorithm", "fast", "Solver: fast or naive")
	optimizeCmd.Flags().BoolVar(&optimizeRecord, "record", false, "Store the run in the run history database")
	_ = optimizeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	algorithm, err := optimizer.ParseAlgorithm(optimizeAlgorithm)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, key, err := storage.Open(ctx, optimizeInput, s3Config())
	if err != nil {
		return err
	}

	format := payload.FormatForKey(key)
	if optimizeFormat != "" {
		if format, err = payload.ParseFormat(optimizeFormat); err != nil {
			return err
		}
	}

	data, err := store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", optimizeInput, err)
	}
	contracts, err := payload.Decode(data, format)
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := algorithm.Solve(contracts)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	elapsed := time.Since(started)

	logger.Debug().
		Int("contracts", len(contracts)).
		Int64("income", result.Income).
		Str("algorithm", string(algorithm)).
		Dur("elapsed", elapsed).
		Msg("optimization completed")

	if optimizeRecord {
		if err := recordCLIRun(ctx, algorithm, contracts, result, elapsed); err != nil {
			return err
		}
	}

	out, err := payload.Encode(result, format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

func recordCLIRun(ctx context.Context, algorithm optimizer.Algorithm, contracts []optimizer.Contract, result optimizer.Result, elapsed time.Duration) error {
	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return err
	}

	run := &models.OptimizationRun{
		Source:         models.RunSourceCLI,
		Algorithm:      string(algorithm),
		InputDigest:    payload.Digest(contracts),
		ContractCount:  len(contracts),
		Income:         result.Income,
		Path:           result.Path,
		DurationMicros: elapsed.Microseconds(),
	}
	if err := runs.NewService(database, nil, logger).Record(ctx, run); err != nil {
		return err
	}
	logger.Info().Str("run_id", run.ID).Msg("run recorded")
	return nil
}
