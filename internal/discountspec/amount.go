package discountspec

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	thousand = decimal.NewFromInt(1000)
	million  = decimal.NewFromInt(1_000_000)

	// amountDigits matches the numeric body of an amount, separators included.
	amountDigits = regexp.MustCompile(`\d[\d.,]*`)

	// currencySuffixes are stripped before scaling. Longest first so "vnđ"
	// is not reduced to "vn".
	currencySuffixes = []string{"vnđ", "vnd", "đ", "d"}

	// scaleSuffixes multiply the amount.
	scaleSuffixes = []struct {
		suffix string
		factor decimal.Decimal
	}{
		{"triệu", million},
		{"trieu", million},
		{"tr", million},
		{"k", thousand},
	}
)

// ParseAmount converts a human-written amount such as "50.000đ", "50k",
// "1,200,000 VND", "1.5K" or "1,5tr" into whole đồng. Thousands separators
// are dropped and currency suffixes are ignored. A trailing k multiplies by
// 1000 and tr (triệu) by 1,000,000. It returns zero when the input holds no
// digits.
func ParseAmount(s string) decimal.Decimal {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range currencySuffixes {
		if strings.HasSuffix(s, suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	var factor decimal.Decimal
	for _, sc := range scaleSuffixes {
		if strings.HasSuffix(s, sc.suffix) {
			factor = sc.factor
			s = strings.TrimSpace(strings.TrimSuffix(s, sc.suffix))
			break
		}
	}

	body := amountDigits.FindString(s)
	if body == "" {
		return decimal.Zero
	}
	body = strings.TrimRight(body, ".,")

	if !factor.IsZero() {
		// "1.5k" and "1,5tr" carry a fractional part rather than a separator.
		v, err := decimal.NewFromString(normalizeFraction(body))
		if err != nil {
			return decimal.Zero
		}
		return v.Mul(factor).Floor()
	}

	v, err := decimal.NewFromString(stripSeparators(body))
	if err != nil {
		return decimal.Zero
	}
	return v
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

// normalizeFraction treats a single separator followed by one or two digits
// as a decimal point and drops every other separator.
func normalizeFraction(s string) string {
	i := strings.LastIndexAny(s, ".,")
	if i < 0 {
		return s
	}
	if tail := s[i+1:]; len(tail) > 0 && len(tail) <= 2 {
		return stripSeparators(s[:i]) + "." + tail
	}
	return stripSeparators(s)
}
