package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/friendsincode/spaceship_rental/internal/optimizer"
	"github.com/friendsincode/spaceship_rental/internal/payload"
)

func TestBench_PrintsOneRowPerSizeAndAlgorithm(t *testing.T) {
	var out bytes.Buffer
	algorithms := []optimizer.Algorithm{optimizer.AlgorithmFast, optimizer.AlgorithmNaive}

	if err := bench(&out, payload.NewGenerator(7), []int{0, 10, 50}, 2, algorithms); err != nil {
		t.Fatalf("bench: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1+3*2 {
		t.Fatalf("expected header and 6 rows, got %d:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "SIZE") {
		t.Fatalf("missing header: %q", lines[0])
	}
}

func TestBench_RejectsNegativeSize(t *testing.T) {
	var out bytes.Buffer
	if err := bench(&out, payload.NewGenerator(7), []int{-1}, 1, []optimizer.Algorithm{optimizer.AlgorithmFast}); err == nil {
		t.Fatal("expected error for negative size")
	}
}
