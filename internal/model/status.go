package model

import "fmt"

// Status is the lifecycle state of an order. The value is stored as-is in
// the orders table; every guarded transition goes through the engine, which
// consults CanTransition before writing.
type Status string

const (
	// StatusCreated is the initial state of a persisted but unpublished order.
	StatusCreated Status = "created"
	// StatusPublished means the order is announced and open for claims.
	StatusPublished Status = "published"
	// StatusAssigned means exactly one master has claimed the order.
	StatusAssigned Status = "assigned"
	// StatusInProgress means the assigned master accepted and started work.
	StatusInProgress Status = "in_progress"
	// StatusCompleted is a terminal state reached when the master finishes.
	StatusCompleted Status = "completed"
	// StatusCancelled is a terminal state reachable from any non-terminal one.
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every valid status in lifecycle order.
var AllStatuses = []Status{
	StatusCreated,
	StatusPublished,
	StatusAssigned,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

var statusTransitions = map[Status][]Status{
	StatusCreated:    {StatusPublished, StatusAssigned, StatusCancelled},
	StatusPublished:  {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusPublished, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// ParseStatus maps a raw token to a Status.
func ParseStatus(raw string) (Status, error) {
	st := Status(raw)
	if !st.Valid() {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return st, nil
}

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Claimable reports whether a master may still claim the order.
func (s Status) Claimable() bool {
	return s == StatusCreated || s == StatusPublished
}

// CanTransition reports whether moving from s to next is a valid guarded
// transition. The admin force-status override bypasses this check on
// purpose and is logged separately.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowsMaster reports whether an order in this status may carry a master
// assignment. Together with Claimable it expresses the invariant that a
// master is set exactly while the order is assigned, in progress, or done.
func (s Status) AllowsMaster() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
