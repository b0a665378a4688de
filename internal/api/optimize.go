/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/friendsincode/spaceship_rental/internal/auth"
	"github.com/friendsincode/spaceship_rental/internal/cache"
	"github.com/friendsincode/spaceship_rental/internal/events"
	"github.com/friendsincode/spaceship_rental/internal/models"
	"github.com/friendsincode/spaceship_rental/internal/optimizer"
	"github.com/friendsincode/spaceship_rental/internal/payload"
	"github.com/friendsincode/spaceship_rental/internal/telemetry"
)

func (a *API) handleOptimize(w http.ResponseWriter, r *http.Request) {
	algorithm, err := optimizer.ParseAlgorithm(r.URL.Query().Get("algorithm"))
	if err != nil {
		writeErrorDetail(w, http.StatusBadRequest, "invalid_algorithm", err.Error())
		return
	}

	body := r.Body
	if a.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, a.maxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.reject("payload_too_large", algorithm)
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	contracts, err := payload.Decode(data, payload.FormatJSON)
	if err != nil {
		a.reject("invalid_json", algorithm)
		writeErrorDetail(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if a.maxContracts > 0 && len(contracts) > a.maxContracts {
		a.reject("too_many_contracts", algorithm)
		writeError(w, http.StatusRequestEntityTooLarge, "too_many_contracts")
		return
	}

	ctx, span := telemetry.StartSolveSpan(r.Context(), string(algorithm), len(contracts))
	defer span.End()

	digest := payload.Digest(contracts)
	cacheKey := cache.ResultKey(algorithm, digest)
	cacheEnabled := a.cache != nil && a.cache.IsAvailable()

	started := time.Now()
	var (
		result   optimizer.Result
		cacheHit bool
	)
	if cacheEnabled {
		result, cacheHit = a.cache.GetResult(ctx, cacheKey)
	}
	if !cacheHit {
		result, err = algorithm.Solve(contracts)
		if err != nil {
			telemetry.RecordError(span, err)
			code := errorCode(err)
			a.reject(code, algorithm)
			writeErrorDetail(w, http.StatusUnprocessableEntity, code, err.Error())
			return
		}
		telemetry.OptimizeDuration.WithLabelValues(string(algorithm)).Observe(time.Since(started).Seconds())
		telemetry.OptimizeContracts.Observe(float64(len(contracts)))
		if cacheEnabled {
			a.cache.SetResult(ctx, cacheKey, result)
		}
	}
	elapsed := time.Since(started)
	telemetry.FinishSolveSpan(span, result.Income, cacheHit)

	a.logger.Debug().
		Int("contracts", len(contracts)).
		Int64("income", result.Income).
		Str("algorithm", string(algorithm)).
		Bool("cache_hit", cacheHit).
		Dur("elapsed", elapsed).
		Msg("optimization completed")

	run := &models.OptimizationRun{
		Source:         models.RunSourceAPI,
		Algorithm:      string(algorithm),
		InputDigest:    digest,
		ContractCount:  len(contracts),
		Income:         result.Income,
		Path:           result.Path,
		DurationMicros: elapsed.Microseconds(),
		CacheHit:       cacheHit,
		Subject:        auth.SubjectFromContext(ctx),
	}
	if a.runs != nil {
		if err := a.runs.Record(ctx, run); err != nil {
			a.logger.Warn().Err(err).Msg("record run failed")
		} else {
			w.Header().Set("X-Run-ID", run.ID)
		}
	}
	if cacheEnabled {
		if cacheHit {
			w.Header().Set("X-Cache", "hit")
		} else {
			w.Header().Set("X-Cache", "miss")
		}
	}

	a.publish(events.EventOptimizationCompleted, events.Payload{
		"run_id":    run.ID,
		"algorithm": string(algorithm),
		"contracts": len(contracts),
		"income":    result.Income,
		"cache_hit": cacheHit,
		"digest":    digest,
	})

	writeJSON(w, http.StatusOK, result)
}

func (a *API) reject(code string, algorithm optimizer.Algorithm) {
	telemetry.OptimizeRejected.WithLabelValues(code).Inc()
	a.publish(events.EventOptimizationRejected, events.Payload{
		"reason":    code,
		"algorithm": string(algorithm),
	})
}

// errorCode maps optimizer errors to response codes.
func errorCode(err error) string {
	switch {
	case errors.Is(err, optimizer.ErrDuplicateName):
		return "duplicate_name"
	case errors.Is(err, optimizer.ErrIncomeOverflow):
		return "income_overflow"
	default:
		return "invalid_contract"
	}
}
