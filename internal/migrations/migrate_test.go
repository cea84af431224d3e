package migrations

import (
	"context"
	"testing"

	"github.com/KAMASDM/augustina/internal/db"
)

func TestUpCreatesSchema(t *testing.T) {
	ctx := context.Background()
	database, err := db.Open(ctx, db.Memory)
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	defer database.Close()

	if err := Up(ctx, database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	// A second run has nothing to apply.
	if err := Up(ctx, database); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}

	for _, table := range []string{"enquiries", "notification_routes", "enquiry_deliveries"} {
		var n int
		if err := database.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n); err != nil {
			t.Fatalf("look up table %s: %v", table, err)
		}
		if n != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}

	version, err := Version(ctx, database)
	if err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != 3 {
		t.Fatalf("expected schema version 3, got %d", version)
	}
}
