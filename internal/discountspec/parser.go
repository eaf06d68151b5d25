// Package discountspec turns freeform promotion titles into structured
// discount rules.
//
// Upstream voucher feeds describe a promotion only by its marketing title
// ("Giảm 20% tối đa 50.000đ", "Giảm 50k", "30k off"). The Parser interface
// keeps the regex heuristics in one place so callers can switch to a
// structured feed without changes.
package discountspec

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xenking/voucher-checkout/internal/domain/coupon"
)

// Spec is the structured form of a promotion title.
type Spec struct {
	Type     coupon.DiscountType
	Discount decimal.Decimal
	// MaxDiscount caps percentage savings. Nil means uncapped.
	MaxDiscount *decimal.Decimal
}

// Inert reports whether s grants nothing. Inert rules come from
// titles the parser could not interpret.
func (s Spec) Inert() bool {
	return !s.Discount.IsPositive()
}

// Parser extracts a discount Spec from a promotion title.
type Parser interface {
	Parse(title string) Spec
}

const amountToken = `(\d[\d.,]*\s*(?:vnđ|vnd|triệu|trieu|tr|k|đ|d)?)`

var (
	percentPattern = regexp.MustCompile(`(\d{1,3})\s*%`)
	// "up to" is left out: in English titles it qualifies the percentage.
	capPattern     = regexp.MustCompile(`(?i)(?:max|tối\s*đa|toi\s*da)\s*:?\s*` + amountToken)
	percentSuffix  = regexp.MustCompile(`^\s*%`)
	fixedPatterns  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)` + amountToken + `\s*off`),
		regexp.MustCompile(`(?i)(?:giảm|giam)\s*(?:ngay\s*)?` + amountToken),
	}
)

// TitleParser implements Parser with regular expressions tuned for the
// Vietnamese and English titles seen in voucher feeds.
type TitleParser struct{}

var _ Parser = TitleParser{}

// NewTitleParser returns the default title parser.
func NewTitleParser() TitleParser {
	return TitleParser{}
}

// Parse applies, in order: a percentage rule with an optional cap, then a
// fixed-amount rule, and finally falls back to an inert zero percentage.
func (TitleParser) Parse(title string) Spec {
	if m := percentPattern.FindStringSubmatch(title); m != nil {
		pct, err := strconv.Atoi(m[1])
		if err == nil {
			spec := Spec{
				Type:     coupon.DiscountPercentage,
				Discount: decimal.NewFromInt(int64(pct)),
			}
			if limit, ok := findCap(title); ok {
				spec.MaxDiscount = &limit
			}
			return spec
		}
	}

	for _, p := range fixedPatterns {
		if m := p.FindStringSubmatch(title); m != nil {
			if amount := ParseAmount(m[1]); amount.IsPositive() {
				return Spec{Type: coupon.DiscountFixed, Discount: amount}
			}
		}
	}

	return Spec{Type: coupon.DiscountPercentage, Discount: decimal.Zero}
}

// findCap returns the first capped amount in title. Numbers followed by a
// percent sign are the rate itself, as in "Giảm tối đa 20%", not a cap.
func findCap(title string) (decimal.Decimal, bool) {
	for _, loc := range capPattern.FindAllStringSubmatchIndex(title, -1) {
		if percentSuffix.MatchString(title[loc[1]:]) {
			continue
		}
		if limit := ParseAmount(title[loc[2]:loc[3]]); limit.IsPositive() {
			return limit, true
		}
	}
	return decimal.Zero, false
}
