package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type sqlRegistrationRepo struct{ db *sql.DB }

func NewSQLRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &sqlRegistrationRepo{db}
}

// Create relies on UNIQUE(user_id, event_id) to reject duplicates that slip
// past the service-level check.
func (r *sqlRegistrationRepo) Create(ctx context.Context, reg *Registration) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO registrations(user_id, event_id, registered_at) VALUES ($1,$2,$3) RETURNING id`,
		reg.UserID, reg.EventID, reg.RegisteredAt,
	).Scan(&reg.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateRegistration
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

func (r *sqlRegistrationRepo) Exists(ctx context.Context, userID int64, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM registrations WHERE user_id=$1 AND event_id=$2)`,
		userID, eventID,
	).Scan(&exists)
	return exists, err
}

func (r *sqlRegistrationRepo) Delete(ctx context.Context, userID int64, eventID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE user_id=$1 AND event_id=$2`, userID, eventID)
	if err != nil {
		return false, fmt.Errorf("delete registration: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *sqlRegistrationRepo) DeleteByEvent(ctx context.Context, eventID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE event_id=$1`, eventID)
	if err != nil {
		return 0, fmt.Errorf("delete registrations for event: %w", err)
	}
	return res.RowsAffected()
}

func (r *sqlRegistrationRepo) CountByEvent(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT event_id, COUNT(*) FROM registrations GROUP BY event_id`)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var eventID string
		var n int
		if err := rows.Scan(&eventID, &n); err != nil {
			return nil, err
		}
		out[eventID] = n
	}
	return out, rows.Err()
}

func (r *sqlRegistrationRepo) ListByEvent(ctx context.Context, eventID string) ([]Attendee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.event_id, r.registered_at, u.username, u.email
		 FROM registrations r JOIN users u ON u.id = r.user_id
		 WHERE r.event_id=$1
		 ORDER BY r.registered_at, r.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations for event: %w", err)
	}
	defer rows.Close()

	out := []Attendee{}
	for rows.Next() {
		var a Attendee
		if err := rows.Scan(&a.ID, &a.UserID, &a.EventID, &a.RegisteredAt, &a.Username, &a.Email); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *sqlRegistrationRepo) ListByUser(ctx context.Context, userID int64) ([]Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, event_id, registered_at FROM registrations
		 WHERE user_id=$1 ORDER BY registered_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations for user: %w", err)
	}
	defer rows.Close()

	out := []Registration{}
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.ID, &reg.UserID, &reg.EventID, &reg.RegisteredAt); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	return out, rows.Err()
}
