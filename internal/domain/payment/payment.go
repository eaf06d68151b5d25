// Package payment describes the payment options offered at checkout.
// Settlement happens elsewhere; this package only prices the choice.
package payment

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Well-known method identifiers.
const (
	MethodCOD          = "cod"
	MethodBankTransfer = "bank_transfer"
	MethodEWallet      = "ewallet"
)

// ErrUnknownMethod is returned for a method the catalog does not list.
var ErrUnknownMethod = errors.New("unknown payment method")

// Method is a payment option with its surcharge and discount.
type Method struct {
	ID          string
	DisplayName string
	Fee         decimal.Decimal
	Discount    decimal.Decimal
}

// Catalog provides lookup of payment methods.
type Catalog interface {
	Get(methodID string) (Method, error)
}

// StaticCatalog is an in-process Catalog.
type StaticCatalog struct {
	methods map[string]Method
}

var _ Catalog = (*StaticCatalog)(nil)

// NewStaticCatalog indexes methods by ID.
func NewStaticCatalog(methods ...Method) *StaticCatalog {
	c := &StaticCatalog{methods: make(map[string]Method, len(methods))}
	for _, m := range methods {
		c.methods[m.ID] = m
	}
	return c
}

// DefaultMethods returns the current payment options. Every fee and
// discount is zero today; the fields stay so pricing can change per method.
func DefaultMethods() []Method {
	return []Method{
		{ID: MethodCOD, DisplayName: "Thanh toán khi nhận hàng", Fee: decimal.Zero, Discount: decimal.Zero},
		{ID: MethodBankTransfer, DisplayName: "Chuyển khoản ngân hàng", Fee: decimal.Zero, Discount: decimal.Zero},
		{ID: MethodEWallet, DisplayName: "Ví điện tử", Fee: decimal.Zero, Discount: decimal.Zero},
	}
}

// Get returns the method with the given ID.
func (c *StaticCatalog) Get(methodID string) (Method, error) {
	m, ok := c.methods[methodID]
	if !ok {
		return Method{}, fmt.Errorf("%w: %q", ErrUnknownMethod, methodID)
	}
	return m, nil
}
