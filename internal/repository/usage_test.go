package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/joseph-ayodele/invoice-extractor/internal/costing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{DSN: "sqlite://" + filepath.Join(t.TempDir(), "usage.db")}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestUsageRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewUsageRepository(db, nil)

	if err := repo.RecordUsage(ctx, "u1_s1", costing.Record{
		Filename: "a.pdf", Model: "gemini-2.5-flash",
		InputTokens: 1000, OutputTokens: 200, InputCost: 0.0003, OutputCost: 0.0005, TotalCost: 0.0008,
	}); err != nil {
		t.Fatalf("RecordUsage: %v", err)
	}
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := repo.Insert(ctx, UsageRecord{SessionKey: "u1_s1", Filename: "b.pdf", Model: "gpt-4o-mini", CreatedAt: at}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Insert(ctx, UsageRecord{SessionKey: "u2_s9", Filename: "c.pdf", Model: "gpt-4o-mini"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := repo.ListBySession(ctx, "u1_s1")
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if got[0].Filename != "a.pdf" || got[0].InputTokens != 1000 || got[0].TotalCost != 0.0008 {
		t.Errorf("first = %+v", got[0])
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not defaulted")
	}
	if !got[1].CreatedAt.Equal(at) {
		t.Errorf("created_at = %v, want %v", got[1].CreatedAt, at)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if err := db.HealthCheck(context.Background(), time.Second); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestIsPostgres(t *testing.T) {
	cases := map[string]bool{
		"postgres://u:p@localhost/db": true,
		"postgresql://localhost/db":   true,
		"sqlite:///tmp/usage.db":      false,
		"usage.db":                    false,
	}
	for dsn, want := range cases {
		if got := isPostgres(dsn); got != want {
			t.Errorf("isPostgres(%q) = %v", dsn, got)
		}
	}
}
