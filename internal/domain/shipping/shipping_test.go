package shipping

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(NewStaticCatalog(DefaultMethods()...), decimal.NewFromInt(500000))

	tests := []struct {
		name     string
		method   string
		subtotal int64
		want     int64
	}{
		{name: "standard below threshold", method: MethodStandard, subtotal: 499999, want: 30000},
		{name: "standard at threshold", method: MethodStandard, subtotal: 500000, want: 0},
		{name: "standard above threshold", method: MethodStandard, subtotal: 1200000, want: 0},
		{name: "express never waived", method: MethodExpress, subtotal: 1200000, want: 50000},
		{name: "pickup free by catalog", method: MethodPickup, subtotal: 1000, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, err := r.Resolve(tt.method, decimal.NewFromInt(tt.subtotal))
			require.NoError(t, err)
			assert.True(t, decimal.NewFromInt(tt.want).Equal(fee), "want %d, got %s", tt.want, fee)
		})
	}
}

func TestResolver_UnknownMethod(t *testing.T) {
	r := NewResolver(NewStaticCatalog(DefaultMethods()...), decimal.NewFromInt(500000))

	_, err := r.Resolve("drone", decimal.NewFromInt(100))
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestResolver_ThresholdDisabled(t *testing.T) {
	r := NewResolver(NewStaticCatalog(DefaultMethods()...), decimal.Zero)

	fee, err := r.Resolve(MethodStandard, decimal.NewFromInt(10_000_000))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(30000).Equal(fee))
}

func TestStaticCatalog_List(t *testing.T) {
	c := NewStaticCatalog(
		Method{ID: "a", BasePrice: decimal.NewFromInt(1)},
		Method{ID: "b", BasePrice: decimal.NewFromInt(2)},
		Method{ID: "a", BasePrice: decimal.NewFromInt(3)},
	)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.True(t, decimal.NewFromInt(3).Equal(list[0].BasePrice))
}
