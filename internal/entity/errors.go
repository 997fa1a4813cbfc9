package entity

import "fmt"

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports an unknown listing id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("listing %s not found", e.ID)
}

// NotEligibleError reports a listing that is not in a purchasable state.
// Reason names the predicate clause that failed.
type NotEligibleError struct {
	ID     string
	Reason string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("listing %s is not eligible: %s", e.ID, e.Reason)
}

// UnsupportedActionError reports an action the listing type does not offer.
type UnsupportedActionError struct {
	ListingID   string
	ListingType ListingType
	Action      Action
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("listing %s of type %q does not support %q", e.ListingID, e.ListingType, e.Action)
}

// InvalidQuantityError reports a non-positive quantity or rent duration.
type InvalidQuantityError struct {
	Field string
	Value int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("%s must be a positive integer, got %d", e.Field, e.Value)
}

// PersistenceError reports a store write that could not be completed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
