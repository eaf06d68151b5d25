// Package voucher turns catalog voucher programs into customer coupons.
package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/voucher-checkout/internal/domain/coupon"
)

var (
	// ErrProgramNotFound is returned by catalogs for unknown program IDs.
	ErrProgramNotFound = errors.New("voucher program not found")
	// ErrProgramEnded is returned when claiming a program past its end date.
	ErrProgramEnded = errors.New("voucher program has ended")
	// ErrProgramNotStarted is returned when claiming a program before its start date.
	ErrProgramNotStarted = errors.New("voucher program has not started")
	// ErrClaimNotFound is returned when the customer has not claimed the program.
	ErrClaimNotFound = errors.New("voucher claim not found")
	// ErrCodeTaken is returned when a new coupon code collides with an existing one.
	ErrCodeTaken = errors.New("coupon code already taken")
)

// NotFoundError reports an unknown voucher program.
type NotFoundError struct {
	ProgramID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("voucher program %q not found", e.ProgramID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrProgramNotFound
}

// Program is a catalog-level promotion. The catalog owns it; this package
// only reads it.
type Program struct {
	ID   string
	Name string
	// Title is the freeform discount description, e.g. "Giảm 20% tối đa 50k".
	Title    string
	MinOrder decimal.Decimal
	StartsAt time.Time
	// ExpiresAt ends the program and bounds coupons claimed from it. Nil
	// means open-ended.
	ExpiresAt *time.Time
}

// Active reports whether the program can be claimed at now.
func (p *Program) Active(now time.Time) bool {
	if now.Before(p.StartsAt) {
		return false
	}
	return p.ExpiresAt == nil || now.Before(*p.ExpiresAt)
}

// ProgramCatalog is the external source of voucher programs.
type ProgramCatalog interface {
	// ListActive returns the programs the customer can currently claim.
	ListActive(ctx context.Context, customerID string) ([]Program, error)
	// Get returns a program by ID, or ErrProgramNotFound.
	Get(ctx context.Context, programID string) (*Program, error)
}

// ClaimRepository is the claim ledger. It maps (customer, program) to at
// most one coupon and keeps coupon codes unique.
type ClaimRepository interface {
	coupon.Repository

	// FindClaim returns the coupon claimed by the customer from the program,
	// or ErrClaimNotFound.
	FindClaim(ctx context.Context, customerID, programID string) (*coupon.Coupon, error)
	// InsertIfAbsent atomically stores c unless the customer already holds a
	// coupon for c.ProgramID. It returns the coupon that ends up stored and
	// whether c was the one inserted. A code collision yields ErrCodeTaken.
	InsertIfAbsent(ctx context.Context, c *coupon.Coupon) (stored *coupon.Coupon, inserted bool, err error)
	// CodeExists reports whether any customer holds the code.
	CodeExists(ctx context.Context, code string) (bool, error)
}
