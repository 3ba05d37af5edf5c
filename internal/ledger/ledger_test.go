package ledger_test

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"meal-menu-service/internal/database"
	"meal-menu-service/internal/ledger"
)

func newTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return ledger.New(db.SQL)
}

func TestTrackAndRecord(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	ids := []string{"r1", "r2", "r3"}
	if err := led.Track(ctx, "anna@example.com", ids, "2025-11"); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	rec, err := led.Record(ctx, "anna@example.com", "2025-11")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record, got nil")
	}
	if !reflect.DeepEqual(rec.RecipeIDs, ids) {
		t.Errorf("expected recipe ids %v, got %v", ids, rec.RecipeIDs)
	}
	if rec.Period != "2025-11" {
		t.Errorf("expected period 2025-11, got %s", rec.Period)
	}
}

func TestRecordMissingReturnsNil(t *testing.T) {
	led := newTestLedger(t)

	rec, err := led.Record(context.Background(), "ghost@example.com", "2025-11")
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil for missing record, got %+v", rec)
	}
}

func TestTrackIsIdempotentPerPeriod(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	if err := led.Track(ctx, "bob@example.com", []string{"r1", "r2"}, "2025-11"); err != nil {
		t.Fatalf("first Track failed: %v", err)
	}
	if err := led.Track(ctx, "bob@example.com", []string{"r3", "r4"}, "2025-11"); err != nil {
		t.Fatalf("second Track failed: %v", err)
	}

	records, err := led.Records(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one record after double write, got %d", len(records))
	}
	if !reflect.DeepEqual(records[0].RecipeIDs, []string{"r3", "r4"}) {
		t.Errorf("expected the second write to win, got %v", records[0].RecipeIDs)
	}
}

func TestRecordsOrderedByPeriod(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	if err := led.Track(ctx, "carol@example.com", []string{"b"}, "2025-12"); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if err := led.Track(ctx, "carol@example.com", []string{"a"}, "2025-11"); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	records, err := led.Records(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Period != "2025-11" || records[1].Period != "2025-12" {
		t.Errorf("records out of order: %s, %s", records[0].Period, records[1].Period)
	}
}

func TestSeenRecipeIDsUnionOldestFirst(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	if err := led.Track(ctx, "dave@example.com", []string{"r1", "r2"}, "2025-10"); err != nil {
		t.Fatalf("Track failed: %v", err)
	}
	if err := led.Track(ctx, "dave@example.com", []string{"r2", "r3"}, "2025-11"); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	seen, err := led.SeenRecipeIDs(ctx, "dave@example.com")
	if err != nil {
		t.Fatalf("SeenRecipeIDs failed: %v", err)
	}
	want := []string{"r1", "r2", "r3"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("expected deduplicated oldest-first union %v, got %v", want, seen)
	}
}

func TestSeenRecipeIDsIsolatedPerCustomer(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	if err := led.Track(ctx, "erin@example.com", []string{"r1"}, "2025-11"); err != nil {
		t.Fatalf("Track failed: %v", err)
	}

	seen, err := led.SeenRecipeIDs(ctx, "frank@example.com")
	if err != nil {
		t.Fatalf("SeenRecipeIDs failed: %v", err)
	}
	if len(seen) != 0 {
		t.Errorf("expected empty history for another customer, got %v", seen)
	}
}

func TestTrackRejectsBadInput(t *testing.T) {
	led := newTestLedger(t)
	ctx := context.Background()

	if err := led.Track(ctx, "", []string{"r1"}, "2025-11"); err == nil {
		t.Error("expected error for empty customer id")
	}
	if err := led.Track(ctx, "x@example.com", nil, "2025-11"); err == nil {
		t.Error("expected error for empty recipe list")
	}
}

func TestPeriodHelpers(t *testing.T) {
	instant := time.Date(2025, time.November, 15, 23, 30, 0, 0, time.UTC)
	if p := ledger.PeriodOf(instant); p != "2025-11" {
		t.Errorf("PeriodOf = %s, want 2025-11", p)
	}

	p, err := ledger.ParsePeriod("2025-11")
	if err != nil {
		t.Fatalf("ParsePeriod failed: %v", err)
	}
	if got := p.Time(); got.Year() != 2025 || got.Month() != time.November {
		t.Errorf("Time() = %v, want November 2025", got)
	}

	for _, bad := range []string{"2025-13", "2025/11", "november", ""} {
		if _, err := ledger.ParsePeriod(bad); err == nil {
			t.Errorf("ParsePeriod(%q) should fail", bad)
		}
	}
}
