package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultEnrollmentLimit = 100
	maxEnrollmentLimit     = 500

	// Fixed-width so created_at sorts lexically.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var ErrInvalidEnrollment = errors.New("invalid enrollment")

// Enrollment is one recorded signup or withdrawal.
type Enrollment struct {
	ID        string `json:"id"`
	Activity  string `json:"activity"`
	Email     string `json:"email"`
	Action    string `json:"action"`
	CreatedAt string `json:"created_at"`
}

type EnrollmentWrite struct {
	Activity  string
	Email     string
	Action    string
	CreatedAt time.Time
}

type EnrollmentQuery struct {
	Activity string
	Email    string
	Limit    int
}

func (s *Store) InsertEnrollment(ctx context.Context, write EnrollmentWrite) (Enrollment, error) {
	activity := strings.TrimSpace(write.Activity)
	action := strings.TrimSpace(write.Action)
	if activity == "" || action == "" {
		return Enrollment{}, ErrInvalidEnrollment
	}
	created := write.CreatedAt.UTC()
	if write.CreatedAt.IsZero() {
		created = time.Now().UTC()
	}

	out := Enrollment{
		ID:        uuid.NewString(),
		Activity:  activity,
		Email:     write.Email,
		Action:    action,
		CreatedAt: created.Format(timestampLayout),
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO enrollments (
		id, activity, email, action, created_at
	) VALUES (?, ?, ?, ?, ?)`,
		out.ID, out.Activity, out.Email, out.Action, out.CreatedAt,
	)
	if err != nil {
		return Enrollment{}, err
	}
	return out, nil
}

// ListEnrollments returns matching entries newest first.
func (s *Store) ListEnrollments(ctx context.Context, query EnrollmentQuery) ([]Enrollment, error) {
	limit := query.Limit
	switch {
	case limit <= 0:
		limit = defaultEnrollmentLimit
	case limit > maxEnrollmentLimit:
		limit = maxEnrollmentLimit
	}

	var (
		where []string
		args  []any
	)
	if v := strings.TrimSpace(query.Activity); v != "" {
		where = append(where, "activity = ?")
		args = append(args, v)
	}
	if v := strings.TrimSpace(query.Email); v != "" {
		where = append(where, "email = ?")
		args = append(args, v)
	}

	sqlQuery := "SELECT id, activity, email, action, created_at FROM enrollments"
	if len(where) > 0 {
		sqlQuery += " WHERE " + strings.Join(where, " AND ")
	}
	sqlQuery += " ORDER BY created_at DESC, seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...) //nolint:gosec // clauses are fixed strings, values are bound
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]Enrollment, 0, limit)
	for rows.Next() {
		var e Enrollment
		if err := rows.Scan(&e.ID, &e.Activity, &e.Email, &e.Action, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CountEnrollments(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM enrollments").Scan(&n)
	return n, err
}

// PruneEnrollments keeps the newest maxRows entries and deletes the rest.
func (s *Store) PruneEnrollments(ctx context.Context, maxRows int) (int64, error) {
	if maxRows <= 0 {
		return 0, nil
	}
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM enrollments
		  WHERE seq IN (
			SELECT seq
			FROM enrollments
			ORDER BY created_at DESC, seq DESC
			LIMIT -1 OFFSET ?
		  )`,
		maxRows,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
