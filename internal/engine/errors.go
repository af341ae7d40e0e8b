package engine

import "errors"

var (
	// ErrNotFound reports that the referenced order or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyTaken reports a lost claim race: the order has a master.
	ErrAlreadyTaken = errors.New("order already taken")
	// ErrUnauthorized reports that the actor is not the order's master.
	ErrUnauthorized = errors.New("not the assigned master")
	// ErrValidation reports a rejected input or an impossible transition.
	ErrValidation = errors.New("validation failed")
)
