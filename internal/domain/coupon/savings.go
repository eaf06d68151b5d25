package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Savings is the outcome of evaluating a coupon against a subtotal.
type Savings struct {
	Eligible bool
	Amount   decimal.Decimal
}

// ComputeSavings returns what the coupon takes off the given subtotal.
// A coupon whose minimum order is not met is ineligible and saves nothing.
// Percentage savings are floored to whole đồng and never exceed MaxDiscount.
// Fixed savings may exceed the subtotal.
func ComputeSavings(c *Coupon, subtotal decimal.Decimal) Savings {
	if c.MinOrder.IsPositive() && subtotal.LessThan(c.MinOrder) {
		return Savings{Eligible: false, Amount: decimal.Zero}
	}

	var amount decimal.Decimal
	switch c.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(c.Discount).Div(hundred).Floor()
		if c.MaxDiscount != nil && amount.GreaterThan(*c.MaxDiscount) {
			amount = *c.MaxDiscount
		}
	case DiscountFixed:
		amount = c.Discount
	default:
		amount = decimal.Zero
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	return Savings{Eligible: true, Amount: amount}
}

// SelectBest returns the eligible coupon with the highest positive savings.
// Ties go to the coupon that appears first. ok is false when no coupon
// saves anything.
func SelectBest(coupons []Coupon, subtotal decimal.Decimal) (best *Coupon, savings Savings, ok bool) {
	bestIdx := -1
	for i := range coupons {
		s := ComputeSavings(&coupons[i], subtotal)
		if !s.Eligible || !s.Amount.IsPositive() {
			continue
		}
		if bestIdx < 0 || s.Amount.GreaterThan(savings.Amount) {
			bestIdx = i
			savings = s
		}
	}
	if bestIdx < 0 {
		return nil, Savings{}, false
	}
	return coupons[bestIdx].Clone(), savings, true
}
