package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Monetary amounts cross the system as decimal strings plus an ISO currency
// code. They are only ever converted to integer minor units (cents) for
// arithmetic and for the payment processor boundary.

// ParseAmount converts a decimal amount string (e.g. "330.00") into minor
// units (33000). At most two fractional digits are accepted.
func ParseAmount(amount string) (int64, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", amount)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	minor := major*100 + cents
	if neg {
		minor = -minor
	}
	return minor, nil
}

// FormatAmount renders minor units back into a decimal string. A whole number
// of tens of cents keeps a single decimal place ("330.0"), otherwise two
// ("120.25").
func FormatAmount(minor int64) string {
	neg := ""
	if minor < 0 {
		neg = "-"
		minor = -minor
	}
	if minor%10 == 0 {
		return fmt.Sprintf("%s%d.%d", neg, minor/100, (minor%100)/10)
	}
	return fmt.Sprintf("%s%d.%02d", neg, minor/100, minor%100)
}
