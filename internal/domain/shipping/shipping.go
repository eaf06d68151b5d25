// Package shipping resolves delivery fees for a cart.
package shipping

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Well-known method identifiers.
const (
	MethodStandard = "standard"
	MethodExpress  = "express"
	MethodPickup   = "pickup"
)

// ErrUnknownMethod is returned for a method the catalog does not list.
var ErrUnknownMethod = errors.New("unknown shipping method")

// Method describes one delivery option.
type Method struct {
	ID          string
	DisplayName string
	BasePrice   decimal.Decimal
	// Duration is the human-readable delivery estimate, e.g. "3-5 days".
	Duration string
}

// Catalog provides lookup of shipping methods.
type Catalog interface {
	Get(methodID string) (Method, error)
}

// StaticCatalog is an in-process Catalog built from a fixed method list.
type StaticCatalog struct {
	methods map[string]Method
	order   []string
}

var _ Catalog = (*StaticCatalog)(nil)

// NewStaticCatalog indexes methods by ID. Later duplicates win.
func NewStaticCatalog(methods ...Method) *StaticCatalog {
	c := &StaticCatalog{methods: make(map[string]Method, len(methods))}
	for _, m := range methods {
		if _, ok := c.methods[m.ID]; !ok {
			c.order = append(c.order, m.ID)
		}
		c.methods[m.ID] = m
	}
	return c
}

// DefaultMethods returns the storefront's standard delivery options.
// Store pickup is free by catalog convention.
func DefaultMethods() []Method {
	return []Method{
		{ID: MethodStandard, DisplayName: "Giao hàng tiêu chuẩn", BasePrice: decimal.NewFromInt(30000), Duration: "3-5 days"},
		{ID: MethodExpress, DisplayName: "Giao hàng nhanh", BasePrice: decimal.NewFromInt(50000), Duration: "1-2 days"},
		{ID: MethodPickup, DisplayName: "Nhận tại cửa hàng", BasePrice: decimal.Zero, Duration: "same day"},
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

// List returns all methods in registration order.
func (c *StaticCatalog) List() []Method {
	out := make([]Method, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.methods[id])
	}
	return out
}

// Resolver computes the shipping fee for a method and subtotal.
type Resolver struct {
	catalog       Catalog
	freeThreshold decimal.Decimal
}

// NewResolver creates a Resolver. Standard shipping is waived when the
// subtotal reaches freeThreshold; a non-positive threshold disables the waiver.
func NewResolver(catalog Catalog, freeThreshold decimal.Decimal) *Resolver {
	return &Resolver{catalog: catalog, freeThreshold: freeThreshold}
}

// Quote is a resolved shipping choice.
type Quote struct {
	Method Method
	Fee    decimal.Decimal
}

// Quote resolves the method and its fee for the given cart subtotal.
func (r *Resolver) Quote(methodID string, subtotal decimal.Decimal) (Quote, error) {
	m, err := r.catalog.Get(methodID)
	if err != nil {
		return Quote{}, err
	}
	fee := m.BasePrice
	if methodID == MethodStandard && r.freeThreshold.IsPositive() && subtotal.GreaterThanOrEqual(r.freeThreshold) {
		fee = decimal.Zero
	}
	return Quote{Method: m, Fee: fee}, nil
}

// Resolve returns the fee for methodID given the cart subtotal.
func (r *Resolver) Resolve(methodID string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	q, err := r.Quote(methodID, subtotal)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Fee, nil
}
