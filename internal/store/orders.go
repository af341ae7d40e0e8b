package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cleanbot/internal/model"
)

const orderColumns = `id, city, address, date, time, type, equipment, conditions,
	comment, client_contact, manager_contact, manager_id, master_id, status, created_at`

// CreateOrder inserts a new order and fills its id and creation timestamp.
func (s *Store) CreateOrder(ctx context.Context, o *model.Order) error {
	const q = `
		INSERT INTO orders (city, address, date, time, type, equipment, conditions,
			comment, client_contact, manager_contact, manager_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at`
	err := s.db.QueryRowxContext(ctx, q,
		o.City, o.Address, o.Date, o.Time, o.Type, o.Equipment, o.Conditions,
		o.Comment, o.ClientContact, o.ManagerContact, o.ManagerID, o.Status,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// OrderByID returns a single order or sql.ErrNoRows.
func (s *Store) OrderByID(ctx context.Context, id int64) (*model.Order, error) {
	var o model.Order
	q := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := s.db.GetContext(ctx, &o, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("select order %d: %w", id, err)
	}
	return &o, nil
}

// ClaimOrder assigns the order to masterID if and only if it is still free.
// The assignment and the response record commit in one transaction.
// sql.ErrNoRows means the conditional update matched nothing: the order is
// gone or already taken. A master re-claiming an order they responded to
// before keeps the original response row.
func (s *Store) ClaimOrder(ctx context.Context, orderID, masterID int64) (*model.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var o model.Order
	q := `
		UPDATE orders
		SET master_id = $2, status = $3
		WHERE id = $1 AND master_id IS NULL AND status IN ($4, $5)
		RETURNING ` + orderColumns
	err = tx.GetContext(ctx, &o, q,
		orderID, masterID, model.StatusAssigned, model.StatusCreated, model.StatusPublished,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("claim order %d: %w", orderID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO responses (order_id, master_id) VALUES ($1, $2)
		 ON CONFLICT (order_id, master_id) DO NOTHING`,
		orderID, masterID,
	)
	if err != nil {
		return nil, fmt.Errorf("record response for order %d: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return &o, nil
}

// ReassignOrder unconditionally hands the order to masterID and records a
// response. Used by the admin reassign path only.
func (s *Store) ReassignOrder(ctx context.Context, orderID, masterID int64) (*model.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reassign tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var o model.Order
	q := `
		UPDATE orders
		SET master_id = $2, status = $3
		WHERE id = $1
		RETURNING ` + orderColumns
	err = tx.GetContext(ctx, &o, q, orderID, masterID, model.StatusAssigned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("reassign order %d: %w", orderID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO responses (order_id, master_id) VALUES ($1, $2)
		 ON CONFLICT (order_id, master_id) DO NOTHING`,
		orderID, masterID,
	)
	if err != nil {
		return nil, fmt.Errorf("record response for order %d: %w", orderID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reassign tx: %w", err)
	}
	return &o, nil
}

// UnassignOrder clears the master and returns the order to published.
func (s *Store) UnassignOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	var o model.Order
	q := `
		UPDATE orders
		SET master_id = NULL, status = $2
		WHERE id = $1
		RETURNING ` + orderColumns
	err := s.db.GetContext(ctx, &o, q, orderID, model.StatusPublished)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("unassign order %d: %w", orderID, err)
	}
	return &o, nil
}

// TransitionOrder moves the order from one status to another with a
// conditional update. sql.ErrNoRows means the expected status no longer
// holds.
func (s *Store) TransitionOrder(ctx context.Context, orderID int64, from, to model.Status) (*model.Order, error) {
	var o model.Order
	q := `
		UPDATE orders
		SET status = $3
		WHERE id = $1 AND status = $2
		RETURNING ` + orderColumns
	err := s.db.GetContext(ctx, &o, q, orderID, from, to)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("transition order %d %s->%s: %w", orderID, from, to, err)
	}
	return &o, nil
}

// ForceOrderStatus overwrites the status without any transition check.
func (s *Store) ForceOrderStatus(ctx context.Context, orderID int64, to model.Status) (*model.Order, error) {
	var o model.Order
	q := `
		UPDATE orders
		SET status = $2
		WHERE id = $1
		RETURNING ` + orderColumns
	err := s.db.GetContext(ctx, &o, q, orderID, to)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("force order %d status %s: %w", orderID, to, err)
	}
	return &o, nil
}

// Orders returns every order, newest first.
func (s *Store) Orders(ctx context.Context) ([]model.Order, error) {
	var out []model.Order
	q := `SELECT ` + orderColumns + ` FROM orders ORDER BY id DESC`
	if err := s.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	return out, nil
}

// OrdersRecent returns the newest orders, optionally filtered by status.
// Pass an empty status for no filter.
func (s *Store) OrdersRecent(ctx context.Context, status model.Status, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []model.Order
	if status == "" {
		q := `SELECT ` + orderColumns + ` FROM orders ORDER BY id DESC LIMIT $1`
		if err := s.db.SelectContext(ctx, &out, q, limit); err != nil {
			return nil, fmt.Errorf("select recent orders: %w", err)
		}
		return out, nil
	}
	q := `SELECT ` + orderColumns + ` FROM orders WHERE status = $1 ORDER BY id DESC LIMIT $2`
	if err := s.db.SelectContext(ctx, &out, q, status, limit); err != nil {
		return nil, fmt.Errorf("select recent orders by status: %w", err)
	}
	return out, nil
}

// OrdersByManager returns orders created by the manager, newest first.
func (s *Store) OrdersByManager(ctx context.Context, managerID int64) ([]model.Order, error) {
	var out []model.Order
	q := `SELECT ` + orderColumns + ` FROM orders WHERE manager_id = $1 ORDER BY id DESC`
	if err := s.db.SelectContext(ctx, &out, q, managerID); err != nil {
		return nil, fmt.Errorf("select manager orders: %w", err)
	}
	return out, nil
}

// OrdersByMaster returns orders assigned to the master, newest first.
func (s *Store) OrdersByMaster(ctx context.Context, masterID int64) ([]model.Order, error) {
	var out []model.Order
	q := `SELECT ` + orderColumns + ` FROM orders WHERE master_id = $1 ORDER BY id DESC`
	if err := s.db.SelectContext(ctx, &out, q, masterID); err != nil {
		return nil, fmt.Errorf("select master orders: %w", err)
	}
	return out, nil
}

// CountRow pairs an aggregation key with its order count.
type CountRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// UserCountRow pairs a telegram user id with its order count.
type UserCountRow struct {
	UserID int64 `db:"user_id"`
	Count  int   `db:"count"`
}

// CountOrdersByStatus returns order counts keyed by status. Statuses with
// no orders are absent from the result.
func (s *Store) CountOrdersByStatus(ctx context.Context) (map[model.Status]int, error) {
	var rows []CountRow
	q := `SELECT status AS key, COUNT(*) AS count FROM orders GROUP BY status`
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("count orders by status: %w", err)
	}
	out := make(map[model.Status]int, len(rows))
	for _, r := range rows {
		out[model.Status(r.Key)] = r.Count
	}
	return out, nil
}

// CountOrdersByCity returns order counts keyed by city.
func (s *Store) CountOrdersByCity(ctx context.Context) (map[string]int, error) {
	var rows []CountRow
	q := `SELECT city AS key, COUNT(*) AS count FROM orders GROUP BY city`
	if err := s.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, fmt.Errorf("count orders by city: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}

// TopManagers returns managers ordered by number of created orders.
func (s *Store) TopManagers(ctx context.Context, limit int) ([]UserCountRow, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []UserCountRow
	q := `
		SELECT manager_id AS user_id, COUNT(*) AS count
		FROM orders
		GROUP BY manager_id
		ORDER BY count DESC, manager_id
		LIMIT $1`
	if err := s.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, fmt.Errorf("top managers: %w", err)
	}
	return rows, nil
}

// TopMasters returns masters ordered by number of assigned orders.
func (s *Store) TopMasters(ctx context.Context, limit int) ([]UserCountRow, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []UserCountRow
	q := `
		SELECT master_id AS user_id, COUNT(*) AS count
		FROM orders
		WHERE master_id IS NOT NULL
		GROUP BY master_id
		ORDER BY count DESC, master_id
		LIMIT $1`
	if err := s.db.SelectContext(ctx, &rows, q, limit); err != nil {
		return nil, fmt.Errorf("top masters: %w", err)
	}
	return rows, nil
}
