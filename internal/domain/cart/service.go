package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service encapsulates cart mutation rules.
type Service struct {
	repo  Repository
	newID func() string
}

// NewService creates a cart Service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		newID: func() string { return uuid.NewString() },
	}
}

// AddItemRequest describes a product being put into the cart.
type AddItemRequest struct {
	ProductID     string
	Name          string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Quantity      int
	InStock       bool
	MaxQuantity   int
}

// Items returns the customer's cart lines.
func (s *Service) Items(ctx context.Context, customerID string) ([]Item, error) {
	items, err := s.repo.Items(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return items, nil
}

// AddItem puts a product into the cart. Adding a product that is already
// present increases that line's quantity instead of creating a new line.
func (s *Service) AddItem(ctx context.Context, customerID string, req AddItemRequest) (*Item, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	items, err := s.Items(ctx, customerID)
	if err != nil {
		return nil, err
	}

	item := Item{
		ID:            s.newID(),
		ProductID:     req.ProductID,
		Name:          req.Name,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		InStock:       req.InStock,
		MaxQuantity:   req.MaxQuantity,
	}
	for i := range items {
		if items[i].ProductID == req.ProductID {
			// Keep the line identity, refresh the product data.
			item.ID = items[i].ID
			item.Quantity = items[i].Quantity
			break
		}
	}
	item.Quantity = clampQuantity(item.Quantity+req.Quantity, item.MaxQuantity)

	if err := s.repo.SaveItem(ctx, customerID, item); err != nil {
		return nil, errors.Wrap(err, "save item")
	}
	return &item, nil
}

// UpdateQuantity sets a line's quantity, clamped to [1, MaxQuantity].
// A quantity of zero removes the line and returns nil.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, itemID string, quantity int) (*Item, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if quantity == 0 {
		return nil, s.RemoveItem(ctx, customerID, itemID)
	}

	items, err := s.Items(ctx, customerID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID != itemID {
			continue
		}
		item := items[i]
		item.Quantity = clampQuantity(quantity, item.MaxQuantity)
		if err := s.repo.SaveItem(ctx, customerID, item); err != nil {
			return nil, errors.Wrap(err, "save item")
		}
		return &item, nil
	}
	return nil, ErrItemNotFound
}

// RemoveItem deletes a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, customerID, itemID string) error {
	if err := s.repo.DeleteItem(ctx, customerID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return err
		}
		return errors.Wrap(err, "delete item")
	}
	return nil
}

// Note returns the draft order note.
func (s *Service) Note(ctx context.Context, customerID string) (string, error) {
	note, err := s.repo.Note(ctx, customerID)
	if err != nil {
		return "", errors.Wrap(err, "load note")
	}
	return note, nil
}

// SetNote replaces the draft order note.
func (s *Service) SetNote(ctx context.Context, customerID, note string) error {
	if err := s.repo.SetNote(ctx, customerID, note); err != nil {
		return errors.Wrap(err, "save note")
	}
	return nil
}

// Clear empties the cart and the draft note.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	if err := s.repo.Clear(ctx, customerID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

func clampQuantity(q, limit int) int {
	if q < 1 {
		q = 1
	}
	if limit > 0 && q > limit {
		q = limit
	}
	return q
}
