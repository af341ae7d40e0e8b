package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"cleanbot/internal/model"
)

const userColumns = `id, telegram_id, role, city, is_active, created_at`

// pq error code for unique_violation.
const uniqueViolation = "23505"

// EnsureUser returns the user for telegramID, creating the row on first
// contact. A concurrent insert losing the unique race falls back to
// re-reading the winner's row.
func (s *Store) EnsureUser(ctx context.Context, telegramID int64, role model.Role) (*model.User, error) {
	var u model.User
	q := `
		INSERT INTO users (telegram_id, role)
		VALUES ($1, $2)
		RETURNING ` + userColumns
	err := s.db.GetContext(ctx, &u, q, telegramID, role)
	if err == nil {
		return &u, nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolation {
		return nil, fmt.Errorf("insert user %d: %w", telegramID, err)
	}
	return s.UserByTelegramID(ctx, telegramID)
}

// UserByTelegramID returns the user row or sql.ErrNoRows.
func (s *Store) UserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var u model.User
	q := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	if err := s.db.GetContext(ctx, &u, q, telegramID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select user %d: %w", telegramID, err)
	}
	return &u, nil
}

// SetUserRole updates the role of an existing user.
func (s *Store) SetUserRole(ctx context.Context, telegramID int64, role model.Role) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = $2 WHERE telegram_id = $1`, telegramID, role)
	if err != nil {
		return fmt.Errorf("set role for user %d: %w", telegramID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetUserActive toggles the active flag of an existing user.
func (s *Store) SetUserActive(ctx context.Context, telegramID int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_active = $2 WHERE telegram_id = $1`, telegramID, active)
	if err != nil {
		return fmt.Errorf("set active for user %d: %w", telegramID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UserFilter narrows Users listings. Zero values mean "no filter".
type UserFilter struct {
	Role   model.Role
	Active *bool
	Limit  int
}

// Users lists users matching the filter, newest first.
func (s *Store) Users(ctx context.Context, f UserFilter) ([]model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	args := []any{}
	if f.Role != "" {
		args = append(args, f.Role)
		q += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		q += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	q += " ORDER BY id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	var out []model.User
	if err := s.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	return out, nil
}

// ActiveUsersByRole lists active users holding the role; pass an empty role
// for every active user. Used by broadcast.
func (s *Store) ActiveUsersByRole(ctx context.Context, role model.Role) ([]model.User, error) {
	active := true
	return s.Users(ctx, UserFilter{Role: role, Active: &active})
}

// CountUsersByRole returns user counts keyed by role.
func (s *Store) CountUsersByRole(ctx context.Context) (map[model.Role]int, error) {
	var rows []CountRow
	q := `SELECT role AS key, COUNT(*) AS count FROM users GROUP BY role`
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("count users by role: %w", err)
	}
	out := make(map[model.Role]int, len(rows))
	for _, r := range rows {
		out[model.Role(r.Key)] = r.Count
	}
	return out, nil
}
