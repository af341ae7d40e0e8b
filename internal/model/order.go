package model

import (
	"database/sql"
	"time"
)

// Order is a single cleaning job moving through the lifecycle. Date and
// time are free-text fields by convention (dd.mm.yyyy / HH:MM) and are not
// validated as calendar types.
type Order struct {
	ID             int64         `db:"id"`
	City           string        `db:"city"`
	Address        string        `db:"address"`
	Date           string        `db:"date"`
	Time           string        `db:"time"`
	Type           string        `db:"type"`
	Equipment      string        `db:"equipment"`
	Conditions     string        `db:"conditions"`
	Comment        string        `db:"comment"`
	ClientContact  string        `db:"client_contact"`
	ManagerContact string        `db:"manager_contact"`
	ManagerID      int64         `db:"manager_id"`
	MasterID       sql.NullInt64 `db:"master_id"`
	Status         Status        `db:"status"`
	CreatedAt      time.Time     `db:"created_at"`
}

// Assigned reports whether a master currently holds the order.
func (o Order) Assigned() bool {
	return o.MasterID.Valid
}

// Master returns the assigned master's Telegram id, or 0 when unassigned.
func (o Order) Master() int64 {
	if o.MasterID.Valid {
		return o.MasterID.Int64
	}
	return 0
}

// Consistent checks the assignment invariant: a master is set exactly while
// the status allows one. The admin force-status override is the only
// documented way to break it.
func (o Order) Consistent() bool {
	return o.MasterID.Valid == o.Status.AllowsMaster()
}

// Response is an append-only record of a winning claim. Rows are written in
// the same transaction as the conditional assignment, so the response count
// per order equals the number of successful claims (losing racers leave no
// row).
type Response struct {
	ID           int64     `db:"id"`
	OrderID      int64     `db:"order_id"`
	MasterID     int64     `db:"master_id"`
	ResponseTime time.Time `db:"response_time"`
}

// Photo categories for the before/after workflow.
const (
	PhotoBefore = "before"
	PhotoAfter  = "after"
)

// OrderPhoto stores the Telegram file handle of an uploaded photo. The
// binary data stays with Telegram; only the reference is kept.
type OrderPhoto struct {
	ID         int64     `db:"id"`
	OrderID    int64     `db:"order_id"`
	FileID     string    `db:"file_id"`
	Type       string    `db:"type"`
	UploadedAt time.Time `db:"uploaded_at"`
}
