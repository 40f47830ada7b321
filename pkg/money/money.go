// Package money parses and formats the hand-typed currency amounts found in
// the weekly exports. Parsing keeps cent precision via shopspring/decimal;
// formatting goes through go-money so displayed amounts match what the
// spreadsheets show.
package money

import (
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyCode is the reporting currency for every weekly metric source.
const CurrencyCode = "AUD"

// Parse reads a human-formatted amount: "$1,234.56", "1234.56", "(450)".
// Currency punctuation and surrounding whitespace are stripped, and a
// parenthesized amount is negative.
func Parse(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "("), ")")
	}
	cleaned = strings.NewReplacer("$", "", ",", "", " ", "").Replace(cleaned)
	cleaned = strings.TrimSpace(cleaned)

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// Format renders an amount the way the spreadsheets do, to the cent.
func Format(d decimal.Decimal) string {
	cents := d.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
	return gomoney.New(cents, CurrencyCode).Display()
}

// Cents converts an amount to integer cents, rounding half up.
func Cents(d decimal.Decimal) int64 {
	return d.Round(2).Mul(decimal.NewFromInt(100)).IntPart()
}
