package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Precondition failure reasons.
var (
	ErrEmptyCart  = errors.New("cannot place order: cart is empty")
	ErrOutOfStock = errors.New("cannot place order: item out of stock")
)

// PreconditionError rejects a checkout before any state is touched.
type PreconditionError struct {
	Reason error
	// ProductID is set for out-of-stock failures.
	ProductID string
}

func (e *PreconditionError) Error() string {
	return e.Reason.Error()
}

func (e *PreconditionError) Unwrap() error {
	return e.Reason
}

// StorageError means the local commit failed and nothing was persisted.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// MirrorError is a failed remote replication. It is never returned to
// callers of Finalize.
type MirrorError struct {
	OrderCode string
	Err       error
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("mirror order %s: %v", e.OrderCode, e.Err)
}

func (e *MirrorError) Unwrap() error {
	return e.Err
}
