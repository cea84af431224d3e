package enquiry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Delivery statuses.
const (
	StatusPending = "pending"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// ErrNoRoutes is returned when an enquiry would produce no notifications.
var ErrNoRoutes = errors.New("no active notification routes")

// Delivery is one notification of one enquiry.
type Delivery struct {
	ID         int64
	Route      string
	TemplateID string
	Status     string
	LastError  string
	Enquiry    Enquiry
}

// Store persists enquiries and their deliveries in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save records the enquiry and queues one pending delivery per active route.
// It returns the number of deliveries queued.
func (s *Store) Save(ctx context.Context, e Enquiry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin enquiry transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	created := e.CreatedAt.UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO enquiries (id, name, email, phone, message, remote_addr, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.Email, e.Phone, e.Message, e.RemoteAddr, created); err != nil {
		return 0, fmt.Errorf("insert enquiry: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO enquiry_deliveries (enquiry_id, route, template_id, status, created_at)
		SELECT ?, name, template_id, ?, ?
		FROM notification_routes
		WHERE active = 1
		ORDER BY name
	`, e.ID, StatusPending, created)
	if err != nil {
		return 0, fmt.Errorf("queue deliveries: %w", err)
	}
	queued, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count queued deliveries: %w", err)
	}
	if queued == 0 {
		return 0, ErrNoRoutes
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit enquiry: %w", err)
	}
	return int(queued), nil
}

// Pending returns up to limit pending deliveries, oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.route, d.template_id, d.status, d.last_error,
		       e.id, e.name, e.email, e.phone, e.message, e.remote_addr, e.created_at
		FROM enquiry_deliveries d
		JOIN enquiries e ON e.id = d.enquiry_id
		WHERE d.status = ?
		ORDER BY d.id
		LIMIT ?
	`, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var (
			d       Delivery
			created string
		)
		if err := rows.Scan(
			&d.ID, &d.Route, &d.TemplateID, &d.Status, &d.LastError,
			&d.Enquiry.ID, &d.Enquiry.Name, &d.Enquiry.Email, &d.Enquiry.Phone,
			&d.Enquiry.Message, &d.Enquiry.RemoteAddr, &created,
		); err != nil {
			return nil, fmt.Errorf("scan pending delivery: %w", err)
		}
		if d.Enquiry.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse enquiry time %q: %w", created, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending deliveries: %w", err)
	}
	return out, nil
}

// Claim moves a pending delivery to sending before its mail goes out. A
// claimed delivery is never returned by Pending again.
func (s *Store) Claim(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusPending, StatusSending, "", sql.NullString{})
}

// Release hands a claimed delivery back to the outbox unsent.
func (s *Store) Release(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusSending, StatusPending, "", sql.NullString{})
}

// MarkSent records a successful delivery of a claimed delivery.
func (s *Store) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return s.transition(ctx, id, StatusSending, StatusSent, "", sql.NullString{String: at.UTC().Format(time.RFC3339), Valid: true})
}

// MarkFailed records a failed delivery of a claimed delivery. Failed
// deliveries are not picked up again.
func (s *Store) MarkFailed(ctx context.Context, id int64, cause error) error {
	return s.transition(ctx, id, StatusSending, StatusFailed, cause.Error(), sql.NullString{})
}

func (s *Store) transition(ctx context.Context, id int64, from, to, lastError string, sentAt sql.NullString) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE enquiry_deliveries
		SET status = ?, last_error = ?, sent_at = ?
		WHERE id = ? AND status = ?
	`, to, lastError, sentAt, id, from)
	if err != nil {
		return fmt.Errorf("mark delivery %d %s: %w", id, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark delivery %d %s: %w", id, to, err)
	}
	if n == 0 {
		return fmt.Errorf("mark delivery %d %s: not %s", id, to, from)
	}
	return nil
}

// Statuses returns the delivery status per route for one enquiry.
func (s *Store) Statuses(ctx context.Context, enquiryID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT route, status FROM enquiry_deliveries WHERE enquiry_id = ?
	`, enquiryID)
	if err != nil {
		return nil, fmt.Errorf("query delivery statuses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var route, status string
		if err := rows.Scan(&route, &status); err != nil {
			return nil, fmt.Errorf("scan delivery status: %w", err)
		}
		out[route] = status
	}
	return out, rows.Err()
}
