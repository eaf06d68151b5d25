package cart

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCartRepo struct {
	items   []Item
	note    string
	saveErr error
}

func (m *mockCartRepo) Items(_ context.Context, _ string) ([]Item, error) {
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *mockCartRepo) SaveItem(_ context.Context, _ string, item Item) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	for i := range m.items {
		if m.items[i].ID == item.ID {
			m.items[i] = item
			return nil
		}
	}
	m.items = append(m.items, item)
	return nil
}

func (m *mockCartRepo) DeleteItem(_ context.Context, _ string, itemID string) error {
	for i := range m.items {
		if m.items[i].ID == itemID {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

func (m *mockCartRepo) Clear(_ context.Context, _ string) error {
	m.items = nil
	m.note = ""
	return nil
}

func (m *mockCartRepo) Note(_ context.Context, _ string) (string, error) {
	return m.note, nil
}

func (m *mockCartRepo) SetNote(_ context.Context, _ string, note string) error {
	m.note = note
	return nil
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("item-%d", n)
	}
	return svc
}

func TestService_AddItemMergesByProduct(t *testing.T) {
	repo := &mockCartRepo{}
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.AddItem(ctx, "cust-1", AddItemRequest{
		ProductID: "p1", Name: "Áo thun", Price: decimal.NewFromInt(150000), Quantity: 2, InStock: true,
	})
	require.NoError(t, err)

	second, err := svc.AddItem(ctx, "cust-1", AddItemRequest{
		ProductID: "p1", Name: "Áo thun", Price: decimal.NewFromInt(150000), Quantity: 3, InStock: true,
	})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	require.Len(t, repo.items, 1)
}

func TestService_AddItemRespectsMaxQuantity(t *testing.T) {
	repo := &mockCartRepo{}
	svc := newTestService(repo)

	item, err := svc.AddItem(context.Background(), "cust-1", AddItemRequest{
		ProductID: "p1", Price: decimal.NewFromInt(1000), Quantity: 10, InStock: true, MaxQuantity: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
}

func TestService_AddItemInvalidQuantity(t *testing.T) {
	svc := newTestService(&mockCartRepo{})

	_, err := svc.AddItem(context.Background(), "cust-1", AddItemRequest{ProductID: "p1", Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestService_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		want     int
		removed  bool
		wantErr  error
	}{
		{name: "within bounds", quantity: 3, want: 3},
		{name: "clamped to max", quantity: 99, want: 5},
		{name: "zero removes", quantity: 0, removed: true},
		{name: "negative rejected", quantity: -1, wantErr: ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCartRepo{items: []Item{
				{ID: "item-1", ProductID: "p1", Price: decimal.NewFromInt(1000), Quantity: 1, InStock: true, MaxQuantity: 5},
			}}
			svc := newTestService(repo)

			item, err := svc.UpdateQuantity(context.Background(), "cust-1", "item-1", tt.quantity)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.removed {
				assert.Nil(t, item)
				assert.Empty(t, repo.items)
				return
			}
			assert.Equal(t, tt.want, item.Quantity)
			assert.Equal(t, tt.want, repo.items[0].Quantity)
		})
	}
}

func TestService_UpdateQuantityMissingItem(t *testing.T) {
	svc := newTestService(&mockCartRepo{})

	_, err := svc.UpdateQuantity(context.Background(), "cust-1", "nope", 2)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestService_SaveError(t *testing.T) {
	svc := newTestService(&mockCartRepo{saveErr: errors.New("disk full")})

	_, err := svc.AddItem(context.Background(), "cust-1", AddItemRequest{ProductID: "p1", Quantity: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save item")
}

func TestService_NoteAndClear(t *testing.T) {
	repo := &mockCartRepo{items: []Item{{ID: "item-1", ProductID: "p1", Quantity: 1}}}
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.SetNote(ctx, "cust-1", "giao giờ hành chính"))
	note, err := svc.Note(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "giao giờ hành chính", note)

	require.NoError(t, svc.Clear(ctx, "cust-1"))
	assert.Empty(t, repo.items)
	assert.Empty(t, repo.note)
}

func TestItem_Totals(t *testing.T) {
	orig := decimal.NewFromInt(200000)
	item := Item{Price: decimal.NewFromInt(150000), OriginalPrice: &orig, Quantity: 2}

	assert.True(t, decimal.NewFromInt(300000).Equal(item.LineTotal()))
	assert.True(t, decimal.NewFromInt(400000).Equal(item.ListTotal()))
	assert.True(t, decimal.NewFromInt(100000).Equal(item.LineSaving()))

	cp := item.Clone()
	*cp.OriginalPrice = decimal.NewFromInt(1)
	assert.True(t, orig.Equal(*item.OriginalPrice))

	plain := Item{Price: decimal.NewFromInt(1000), Quantity: 3}
	assert.True(t, plain.LineSaving().IsZero())
	assert.True(t, plain.ListTotal().Equal(plain.LineTotal()))
}
