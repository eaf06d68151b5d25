package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func capped(v string) *decimal.Decimal {
	c := d(v)
	return &c
}

func TestComputeSavings(t *testing.T) {
	tests := []struct {
		name         string
		coupon       Coupon
		subtotal     decimal.Decimal
		wantEligible bool
		wantAmount   decimal.Decimal
	}{
		{
			name:         "percentage without minimum",
			coupon:       Coupon{Type: DiscountPercentage, Discount: d("10")},
			subtotal:     d("250000"),
			wantEligible: true,
			wantAmount:   d("25000"),
		},
		{
			name:         "percentage capped by max discount",
			coupon:       Coupon{Type: DiscountPercentage, Discount: d("20"), MaxDiscount: capped("50000")},
			subtotal:     d("1000000"),
			wantEligible: true,
			wantAmount:   d("50000"),
		},
		{
			name:         "percentage below cap",
			coupon:       Coupon{Type: DiscountPercentage, Discount: d("20"), MaxDiscount: capped("50000")},
			subtotal:     d("100000"),
			wantEligible: true,
			wantAmount:   d("20000"),
		},
		{
			name:         "percentage floors fractional dong",
			coupon:       Coupon{Type: DiscountPercentage, Discount: d("15")},
			subtotal:     d("33333"),
			wantEligible: true,
			wantAmount:   d("4999"),
		},
		{
			name:         "minimum order met exactly",
			coupon:       Coupon{Type: DiscountPercentage, Discount: d("10"), MinOrder: d("1000000")},
			subtotal:     d("1000000"),
			wantEligible: true,
			wantAmount:   d("100000"),
		},
		{
			name:         "minimum order not met",
			coupon:       Coupon{Type: DiscountPercentage, Discount: d("10"), MinOrder: d("1000000")},
			subtotal:     d("800000"),
			wantEligible: false,
			wantAmount:   decimal.Zero,
		},
		{
			name:         "fixed not capped by subtotal",
			coupon:       Coupon{Type: DiscountFixed, Discount: d("500000")},
			subtotal:     d("300000"),
			wantEligible: true,
			wantAmount:   d("500000"),
		},
		{
			name:         "fixed below minimum",
			coupon:       Coupon{Type: DiscountFixed, Discount: d("50000"), MinOrder: d("300000")},
			subtotal:     d("299999"),
			wantEligible: false,
			wantAmount:   decimal.Zero,
		},
		{
			name:         "inert zero percentage",
			coupon:       Coupon{Type: DiscountPercentage, Discount: decimal.Zero},
			subtotal:     d("500000"),
			wantEligible: true,
			wantAmount:   decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSavings(&tt.coupon, tt.subtotal)
			assert.Equal(t, tt.wantEligible, got.Eligible)
			assert.True(t, tt.wantAmount.Equal(got.Amount), "want %s, got %s", tt.wantAmount, got.Amount)
		})
	}
}

func TestComputeSavings_NeverExceedsBounds(t *testing.T) {
	coupons := []Coupon{
		{Type: DiscountPercentage, Discount: d("5")},
		{Type: DiscountPercentage, Discount: d("35"), MaxDiscount: capped("70000")},
		{Type: DiscountPercentage, Discount: d("50"), MinOrder: d("400000"), MaxDiscount: capped("100000")},
		{Type: DiscountFixed, Discount: d("30000"), MinOrder: d("150000")},
	}

	for sub := int64(0); sub <= 2_000_000; sub += 12_345 {
		subtotal := decimal.NewFromInt(sub)
		for i := range coupons {
			c := &coupons[i]
			got := ComputeSavings(c, subtotal)

			if c.MinOrder.IsPositive() && subtotal.LessThan(c.MinOrder) {
				require.True(t, got.Amount.IsZero(), "coupon %d at %s must save nothing", i, subtotal)
				continue
			}
			if c.Type != DiscountPercentage {
				continue
			}
			bound := subtotal.Mul(c.Discount).Div(hundred)
			if c.MaxDiscount != nil {
				bound = decimal.Min(bound, *c.MaxDiscount)
			}
			require.True(t, got.Amount.LessThanOrEqual(bound), "coupon %d at %s: %s exceeds %s", i, subtotal, got.Amount, bound)
		}
	}
}

func TestSelectBest(t *testing.T) {
	tenPct := Coupon{Code: "TEN", Type: DiscountPercentage, Discount: d("10"), MinOrder: d("1000000")}
	fixed50 := Coupon{Code: "FIFTY", Type: DiscountFixed, Discount: d("50000")}
	fixed50b := Coupon{Code: "FIFTY-B", Type: DiscountFixed, Discount: d("50000")}
	inert := Coupon{Code: "INERT", Type: DiscountPercentage, Discount: decimal.Zero}
	bigMin := Coupon{Code: "BIG", Type: DiscountFixed, Discount: d("300000"), MinOrder: d("5000000")}

	tests := []struct {
		name     string
		coupons  []Coupon
		subtotal decimal.Decimal
		wantCode string
		wantOK   bool
		wantSave decimal.Decimal
	}{
		{
			name:     "percentage wins above minimum",
			coupons:  []Coupon{fixed50, tenPct},
			subtotal: d("1200000"),
			wantCode: "TEN",
			wantOK:   true,
			wantSave: d("120000"),
		},
		{
			name:     "ineligible percentage skipped",
			coupons:  []Coupon{tenPct, fixed50},
			subtotal: d("800000"),
			wantCode: "FIFTY",
			wantOK:   true,
			wantSave: d("50000"),
		},
		{
			name:     "ties resolve to first",
			coupons:  []Coupon{fixed50b, fixed50},
			subtotal: d("200000"),
			wantCode: "FIFTY-B",
			wantOK:   true,
			wantSave: d("50000"),
		},
		{
			name:     "zero savings never selected",
			coupons:  []Coupon{inert, fixed50},
			subtotal: d("200000"),
			wantCode: "FIFTY",
			wantOK:   true,
			wantSave: d("50000"),
		},
		{
			name:     "nothing eligible",
			coupons:  []Coupon{inert, bigMin},
			subtotal: d("200000"),
			wantOK:   false,
		},
		{
			name:     "empty input",
			subtotal: d("200000"),
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, savings, ok := SelectBest(tt.coupons, tt.subtotal)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				assert.Nil(t, best)
				return
			}
			require.NotNil(t, best)
			assert.Equal(t, tt.wantCode, best.Code)
			assert.True(t, tt.wantSave.Equal(savings.Amount), "want %s, got %s", tt.wantSave, savings.Amount)
		})
	}
}

func TestSelectBest_ReturnsCopy(t *testing.T) {
	coupons := []Coupon{{Code: "CAP", Type: DiscountPercentage, Discount: d("10"), MaxDiscount: capped("5000")}}

	best, _, ok := SelectBest(coupons, d("100000"))
	require.True(t, ok)

	*best.MaxDiscount = d("1")
	best.Code = "CHANGED"
	assert.Equal(t, "CAP", coupons[0].Code)
	assert.True(t, d("5000").Equal(*coupons[0].MaxDiscount))
}
