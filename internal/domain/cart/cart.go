// Package cart holds a customer's in-progress shopping cart and draft order note.
package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrItemNotFound is returned when a cart line does not exist.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrInvalidQuantity is returned for a negative quantity.
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// Item is a single cart line.
type Item struct {
	ID        string
	ProductID string
	Name      string
	Price     decimal.Decimal
	// OriginalPrice is the pre-markdown price. Nil when the item is not marked down.
	OriginalPrice *decimal.Decimal
	Quantity      int
	InStock       bool
	// MaxQuantity caps the purchasable quantity. Zero means unlimited.
	MaxQuantity int
}

// LineTotal returns price × quantity.
func (i *Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ListTotal returns the line total at the original price, or at the
// current price when the item has no original price.
func (i *Item) ListTotal() decimal.Decimal {
	if i.OriginalPrice == nil {
		return i.LineTotal()
	}
	return i.OriginalPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineSaving returns the direct markdown saved on this line.
func (i *Item) LineSaving() decimal.Decimal {
	if i.OriginalPrice == nil {
		return decimal.Zero
	}
	return i.OriginalPrice.Sub(i.Price).Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Clone returns a deep copy of the item.
func (i *Item) Clone() Item {
	cp := *i
	if i.OriginalPrice != nil {
		p := *i.OriginalPrice
		cp.OriginalPrice = &p
	}
	return cp
}

// Subtotal sums the line totals.
func Subtotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].LineTotal())
	}
	return total
}

// Repository persists cart lines and the draft note per customer.
type Repository interface {
	// Items returns the customer's cart lines in insertion order.
	Items(ctx context.Context, customerID string) ([]Item, error)
	// SaveItem inserts or replaces the line with item.ID.
	SaveItem(ctx context.Context, customerID string, item Item) error
	// DeleteItem removes a line. Missing lines yield ErrItemNotFound.
	DeleteItem(ctx context.Context, customerID, itemID string) error
	// Clear removes every line and the draft note.
	Clear(ctx context.Context, customerID string) error
	Note(ctx context.Context, customerID string) (string, error)
	SetNote(ctx context.Context, customerID, note string) error
}
