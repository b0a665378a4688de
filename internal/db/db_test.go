package db

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/friendsincode/spaceship_rental/internal/config"
	"github.com/friendsincode/spaceship_rental/internal/models"
	"github.com/friendsincode/spaceship_rental/internal/telemetry"
)

func TestConnect_SQLiteMigrateAndCallbacks(t *testing.T) {
	cfg := &config.Config{
		Environment: "test",
		DBBackend:   config.DatabaseSQLite,
		DBDSN:       ":memory:",
	}

	database, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer Close(database)

	if err := Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if !database.Migrator().HasTable(&models.OptimizationRun{}) {
		t.Fatal("expected optimization_runs table")
	}

	run := models.OptimizationRun{ID: "00000000-0000-0000-0000-000000000001", Source: models.RunSourceCLI, Algorithm: "fast"}
	if err := database.Create(&run).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var loaded models.OptimizationRun
	if err := database.First(&loaded, "id = ?", run.ID).Error; err != nil {
		t.Fatalf("first: %v", err)
	}
	if n := testutil.CollectAndCount(telemetry.DatabaseQueryDuration); n < 2 {
		t.Fatalf("expected create and query duration series, got %d", n)
	}
}

func TestConnect_UnknownBackend(t *testing.T) {
	cfg := &config.Config{DBBackend: config.DatabaseNone}
	if _, err := Connect(cfg); err == nil {
		t.Fatal("expected error for backend none")
	}
}
