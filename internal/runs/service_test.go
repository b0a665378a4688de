package runs

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/friendsincode/spaceship_rental/internal/events"
	"github.com/friendsincode/spaceship_rental/internal/models"
)

func newTestService(t *testing.T) (*Service, *events.Bus) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.OptimizationRun{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bus := events.NewBus()
	return NewService(db, bus, zerolog.Nop()), bus
}

func TestService_RecordAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	run := &models.OptimizationRun{
		Source:        models.RunSourceAPI,
		Algorithm:     "fast",
		ContractCount: 4,
		Income:        18,
		Path:          []string{"Contract1", "Contract3"},
	}
	if err := svc.Record(ctx, run); err != nil {
		t.Fatalf("record: %v", err)
	}
	if run.ID == "" || run.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be assigned, got %+v", run)
	}

	got, err := svc.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Income != 18 || !slices.Equal(got.Path, run.Path) {
		t.Fatalf("unexpected run %+v", got)
	}

	if _, err := svc.Get(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_GetMalformedIDIsNotFound(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// A closed pool fails any query that reaches the database.
	_ = sqlDB.Close()
	svc := NewService(db, nil, zerolog.Nop())

	for _, id := range []string{"not-a-uuid", "", "1234"} {
		if _, err := svc.Get(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("%q: expected ErrNotFound, got %v", id, err)
		}
	}
	if _, err := svc.Get(context.Background(), "00000000-0000-0000-0000-000000000000"); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected a database error for a well-formed id, got %v", err)
	}
}

func TestService_ListNewestFirstWithoutPaths(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		run := &models.OptimizationRun{
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Source:    models.RunSourceAPI,
			Algorithm: "fast",
			Income:    int64(i),
			Path:      []string{"x"},
		}
		if err := svc.Record(ctx, run); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	list, err := svc.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(list))
	}
	if list[0].Income != 2 || list[1].Income != 1 {
		t.Fatalf("expected newest first, got incomes %d, %d", list[0].Income, list[1].Income)
	}
	if list[0].Path != nil {
		t.Fatalf("expected path to be omitted, got %v", list[0].Path)
	}
}

func TestService_PrunePublishesEvent(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()
	sub := bus.Subscribe(events.EventRunsPruned)

	old := &models.OptimizationRun{CreatedAt: time.Now().UTC().Add(-48 * time.Hour), Source: models.RunSourceCLI, Algorithm: "fast"}
	recent := &models.OptimizationRun{Source: models.RunSourceCLI, Algorithm: "fast"}
	for _, run := range []*models.OptimizationRun{old, recent} {
		if err := svc.Record(ctx, run); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	deleted, err := svc.Prune(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted run, got %d", deleted)
	}
	if _, err := svc.Get(ctx, old.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old run to be gone, got %v", err)
	}
	if _, err := svc.Get(ctx, recent.ID); err != nil {
		t.Fatalf("expected recent run to remain: %v", err)
	}

	select {
	case p := <-sub:
		if p["deleted"] != int64(1) {
			t.Fatalf("unexpected payload %v", p)
		}
	default:
		t.Fatal("expected runs.pruned event")
	}
}

func TestPruner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := NewPruner(svc, "not a schedule", time.Hour, zerolog.Nop()); err == nil {
		t.Fatal("expected invalid schedule error")
	}
	if _, err := NewPruner(svc, "@hourly", 0, zerolog.Nop()); err == nil {
		t.Fatal("expected invalid retention error")
	}

	p, err := NewPruner(svc, "@hourly", time.Hour, zerolog.Nop())
	if err != nil {
		t.Fatalf("new pruner: %v", err)
	}
	stale := &models.OptimizationRun{CreatedAt: time.Now().UTC().Add(-2 * time.Hour), Source: models.RunSourceAPI, Algorithm: "fast"}
	if err := svc.Record(ctx, stale); err != nil {
		t.Fatalf("record: %v", err)
	}

	deleted, err := p.RunOnce(ctx)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted run, got %d", deleted)
	}

	p.Start()
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	p.Stop(stopCtx)
}

func TestPruner_GateSkipsScheduledRuns(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := NewPruner(svc, "@hourly", time.Hour, zerolog.Nop())
	if err != nil {
		t.Fatalf("new pruner: %v", err)
	}
	stale := &models.OptimizationRun{CreatedAt: time.Now().UTC().Add(-2 * time.Hour), Source: models.RunSourceAPI, Algorithm: "fast"}
	if err := svc.Record(ctx, stale); err != nil {
		t.Fatalf("record: %v", err)
	}

	leader := false
	p.SetGate(func() bool { return leader })
	p.tick()
	if _, err := svc.Get(ctx, stale.ID); err != nil {
		t.Fatalf("follower pruned a run: %v", err)
	}

	leader = true
	p.tick()
	if _, err := svc.Get(ctx, stale.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("leader did not prune, got %v", err)
	}
}
