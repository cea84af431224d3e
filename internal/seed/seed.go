// Package seed upserts the notification routes enquiries are delivered to.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Route is a named notification and the mail template it renders with.
type Route struct {
	Name       string
	TemplateID string
}

// Config contains the values required by startup seed.
type Config struct {
	Routes []Route
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, db *sql.DB, cfg Config) (Stats, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}
	now := time.Now().UTC().Format(time.RFC3339)

	for _, route := range cfg.Routes {
		if err := ensureRoute(ctx, tx, route, now, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureRoute(ctx context.Context, tx *sql.Tx, route Route, now string, stats *Stats) error {
	if route.Name == "" || route.TemplateID == "" {
		return fmt.Errorf("route %q: name and template are required", route.Name)
	}

	var current string
	err := tx.QueryRowContext(ctx, `SELECT template_id FROM notification_routes WHERE name = ?`, route.Name).Scan(&current)
	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO notification_routes (name, template_id, active, updated_at)
			VALUES (?, ?, 1, ?)
		`, route.Name, route.TemplateID, now); err != nil {
			return fmt.Errorf("insert route %q: %w", route.Name, err)
		}
		stats.Inserts++
		return nil
	case err != nil:
		return fmt.Errorf("check route %q: %w", route.Name, err)
	}

	if current == route.TemplateID {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE notification_routes SET template_id = ?, updated_at = ? WHERE name = ?
	`, route.TemplateID, now, route.Name); err != nil {
		return fmt.Errorf("update route %q: %w", route.Name, err)
	}
	stats.Updates++
	return nil
}
