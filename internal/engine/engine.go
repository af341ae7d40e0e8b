// Package engine owns the order lifecycle: every status change passes
// through it, and each operation resolves its guards before the store
// mutation commits.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"log/slog"

	"cleanbot/internal/logger"
	"cleanbot/internal/model"
)

const component = "engine"

// Store is the persistence surface the engine drives. *store.Store
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	CreateOrder(ctx context.Context, o *model.Order) error
	OrderByID(ctx context.Context, id int64) (*model.Order, error)
	ClaimOrder(ctx context.Context, orderID, masterID int64) (*model.Order, error)
	ReassignOrder(ctx context.Context, orderID, masterID int64) (*model.Order, error)
	UnassignOrder(ctx context.Context, orderID int64) (*model.Order, error)
	TransitionOrder(ctx context.Context, orderID int64, from, to model.Status) (*model.Order, error)
	ForceOrderStatus(ctx context.Context, orderID int64, to model.Status) (*model.Order, error)
	Orders(ctx context.Context) ([]model.Order, error)
	OrdersRecent(ctx context.Context, status model.Status, limit int) ([]model.Order, error)
	OrdersByManager(ctx context.Context, managerID int64) ([]model.Order, error)
	OrdersByMaster(ctx context.Context, masterID int64) ([]model.Order, error)
	AddOrderPhoto(ctx context.Context, p *model.OrderPhoto) error
	OrderPhotos(ctx context.Context, orderID int64) ([]model.OrderPhoto, error)
}

// Engine coordinates order lifecycle operations over a Store.
type Engine struct {
	store Store
}

// New builds an Engine over the given store.
func New(s Store) *Engine {
	return &Engine{store: s}
}

// Publish persists a confirmed draft as a published order. The order's
// required fields must all be present.
func (e *Engine) Publish(ctx context.Context, o *model.Order) (*model.Order, error) {
	if err := validateOrder(o); err != nil {
		return nil, err
	}
	o.Status = model.StatusPublished
	o.MasterID = sql.NullInt64{}
	if err := e.store.CreateOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("publish order: %w", err)
	}
	logger.Info(ctx, component, "order.published",
		slog.Int64("order_id", o.ID),
		slog.Int64("manager_id", o.ManagerID),
		slog.String("city", o.City),
	)
	return o, nil
}

// Get returns one order.
func (e *Engine) Get(ctx context.Context, orderID int64) (*model.Order, error) {
	o, err := e.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, mapNotFound(err, orderID)
	}
	return o, nil
}

// Claim atomically assigns a free order to the master and records the
// response. Exactly one of two concurrent claims succeeds; the loser gets
// ErrAlreadyTaken.
func (e *Engine) Claim(ctx context.Context, orderID, masterID int64) (*model.Order, error) {
	o, err := e.store.ClaimOrder(ctx, orderID, masterID)
	if err == nil {
		logger.Info(ctx, component, "order.claimed",
			slog.Int64("order_id", o.ID),
			slog.Int64("master_id", masterID),
		)
		return o, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("claim order %d: %w", orderID, err)
	}
	// The conditional update matched nothing. Distinguish a missing order
	// from a lost race.
	if _, readErr := e.store.OrderByID(ctx, orderID); readErr != nil {
		return nil, mapNotFound(readErr, orderID)
	}
	logger.Info(ctx, component, "order.claim_conflict",
		slog.Int64("order_id", orderID),
		slog.Int64("master_id", masterID),
	)
	return nil, fmt.Errorf("order %d: %w", orderID, ErrAlreadyTaken)
}

// Accept moves the master's assigned order into in_progress.
func (e *Engine) Accept(ctx context.Context, orderID, masterID int64) (*model.Order, error) {
	return e.masterTransition(ctx, orderID, masterID, model.StatusAssigned, model.StatusInProgress, "order.accepted")
}

// Decline returns the master's assigned order to the published pool.
func (e *Engine) Decline(ctx context.Context, orderID, masterID int64) (*model.Order, error) {
	o, err := e.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireMaster(o, masterID); err != nil {
		return nil, err
	}
	if o.Status != model.StatusAssigned {
		return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, ErrValidation)
	}
	out, err := e.store.UnassignOrder(ctx, orderID)
	if err != nil {
		return nil, mapNotFound(err, orderID)
	}
	logger.Info(ctx, component, "order.declined",
		slog.Int64("order_id", orderID),
		slog.Int64("master_id", masterID),
	)
	return out, nil
}

// Finish completes the master's in_progress order. No minimum photo count
// is required.
func (e *Engine) Finish(ctx context.Context, orderID, masterID int64) (*model.Order, error) {
	return e.masterTransition(ctx, orderID, masterID, model.StatusInProgress, model.StatusCompleted, "order.completed")
}

func (e *Engine) masterTransition(ctx context.Context, orderID, masterID int64, from, to model.Status, event string) (*model.Order, error) {
	o, err := e.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireMaster(o, masterID); err != nil {
		return nil, err
	}
	if o.Status != from {
		return nil, fmt.Errorf("order %d is %s, want %s: %w", orderID, o.Status, from, ErrValidation)
	}
	out, err := e.store.TransitionOrder(ctx, orderID, from, to)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %d left %s concurrently: %w", orderID, from, ErrValidation)
		}
		return nil, fmt.Errorf("transition order %d: %w", orderID, err)
	}
	logger.Info(ctx, component, event,
		slog.Int64("order_id", orderID),
		slog.Int64("master_id", masterID),
	)
	return out, nil
}

// Unassign clears the order's master and republishes it. Idempotent when
// the order is already published.
func (e *Engine) Unassign(ctx context.Context, orderID int64) (*model.Order, error) {
	o, err := e.store.UnassignOrder(ctx, orderID)
	if err != nil {
		return nil, mapNotFound(err, orderID)
	}
	logger.Info(ctx, component, "order.unassigned",
		slog.Int64("order_id", orderID),
	)
	return o, nil
}

// Reassign hands the order to the given master regardless of its current
// state. Admin path.
func (e *Engine) Reassign(ctx context.Context, orderID, masterID int64) (*model.Order, error) {
	o, err := e.store.ReassignOrder(ctx, orderID, masterID)
	if err != nil {
		return nil, mapNotFound(err, orderID)
	}
	logger.Warn(ctx, component, "order.reassigned",
		slog.Int64("order_id", orderID),
		slog.Int64("master_id", masterID),
	)
	return o, nil
}

// ForceStatus overwrites the status without a transition check. Admin
// path; logged distinctly.
func (e *Engine) ForceStatus(ctx context.Context, orderID int64, status model.Status) (*model.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrValidation)
	}
	o, err := e.store.ForceOrderStatus(ctx, orderID, status)
	if err != nil {
		return nil, mapNotFound(err, orderID)
	}
	logger.Warn(ctx, component, "order.force_status",
		slog.Int64("order_id", orderID),
		slog.String("status", string(status)),
	)
	return o, nil
}

// AddPhoto appends a before/after photo to the master's in_progress order.
// Never transitions the order.
func (e *Engine) AddPhoto(ctx context.Context, orderID, masterID int64, fileID, category string) (*model.OrderPhoto, error) {
	if category != model.PhotoBefore && category != model.PhotoAfter {
		return nil, fmt.Errorf("unknown photo category %q: %w", category, ErrValidation)
	}
	if fileID == "" {
		return nil, fmt.Errorf("empty file id: %w", ErrValidation)
	}
	o, err := e.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireMaster(o, masterID); err != nil {
		return nil, err
	}
	if o.Status != model.StatusInProgress {
		return nil, fmt.Errorf("order %d is %s: %w", orderID, o.Status, ErrValidation)
	}
	p := &model.OrderPhoto{OrderID: orderID, FileID: fileID, Type: category}
	if err := e.store.AddOrderPhoto(ctx, p); err != nil {
		return nil, fmt.Errorf("add photo to order %d: %w", orderID, err)
	}
	logger.Debug(ctx, component, "order.photo_added",
		slog.Int64("order_id", orderID),
		slog.String("category", category),
	)
	return p, nil
}

// ListAll returns every order, newest first.
func (e *Engine) ListAll(ctx context.Context) ([]model.Order, error) {
	return e.store.Orders(ctx)
}

// ListRecent returns the newest orders, optionally filtered by status.
func (e *Engine) ListRecent(ctx context.Context, status model.Status, limit int) ([]model.Order, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, ErrValidation)
	}
	return e.store.OrdersRecent(ctx, status, limit)
}

// ListByManager returns the orders a manager created.
func (e *Engine) ListByManager(ctx context.Context, managerID int64) ([]model.Order, error) {
	return e.store.OrdersByManager(ctx, managerID)
}

// ListByMaster returns the orders assigned to a master.
func (e *Engine) ListByMaster(ctx context.Context, masterID int64) ([]model.Order, error) {
	return e.store.OrdersByMaster(ctx, masterID)
}

// ListPhotos returns the photo log of one order.
func (e *Engine) ListPhotos(ctx context.Context, orderID int64) ([]model.OrderPhoto, error) {
	return e.store.OrderPhotos(ctx, orderID)
}

func requireMaster(o *model.Order, masterID int64) error {
	if !o.MasterID.Valid || o.MasterID.Int64 != masterID {
		return fmt.Errorf("order %d: %w", o.ID, ErrUnauthorized)
	}
	return nil
}

func mapNotFound(err error, orderID int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	return err
}

func validateOrder(o *model.Order) error {
	required := []struct {
		name, value string
	}{
		{"city", o.City},
		{"date", o.Date},
		{"time", o.Time},
		{"address", o.Address},
		{"type", o.Type},
		{"equipment", o.Equipment},
		{"conditions", o.Conditions},
		{"client_contact", o.ClientContact},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("missing %s: %w", f.name, ErrValidation)
		}
	}
	if o.ManagerID == 0 {
		return fmt.Errorf("missing manager: %w", ErrValidation)
	}
	return nil
}
