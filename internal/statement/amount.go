package statement

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// currencyTokens are currency-code words stripped before numeric parsing.
// Symbols (₹ $ € £ ¥) fall out naturally in the digit filter below.
var currencyTokens = []string{"inr", "rs.", "rs", "usd", "eur", "gbp"}

// emptyTokens are values that mean "no amount" rather than a parse failure.
var emptyTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"none": true,
	"null": true,
	"n/a":  true,
	"na":   true,
	"-":    true,
}

// ParseAmount converts free-form monetary text into a decimal value. It is
// total: any input yields a number, and empty or unparseable input yields
// zero. Missing amounts are financially zero, not failures.
//
// Examples: "1,23,456.78 Cr" → 123456.78, "₹ 500.00" → 500, "-45.00" → -45.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.ToLower(strings.TrimSpace(raw))
	if emptyTokens[s] {
		return decimal.Zero
	}

	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}

	// Keep digits, one decimal point and one leading minus; everything else
	// (currency glyphs, thousands separators, Cr/Dr markers, footnotes) is
	// dropped.
	var b strings.Builder
	sawDigit := false
	sawDot := false
	sawMinus := false
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
			sawDigit = true
		case r == '.' && !sawDot:
			b.WriteRune(r)
			sawDot = true
		case r == '-' && !sawMinus && !sawDigit && b.Len() == 0:
			b.WriteRune(r)
			sawMinus = true
		}
	}

	cleaned := b.String()
	if !sawDigit {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SumAmounts normalizes and sums a sequence of raw amount values.
func SumAmounts(values []string) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(ParseAmount(v))
	}
	return sum
}

// looksNumeric reports whether a raw cell holds a genuinely numeric value:
// after stripping separators it must parse strictly, with no leftover text.
// Unlike ParseAmount this does not tolerate Cr/Dr suffixes or stray words,
// so it is the right test for "is this column numeric at all".
func looksNumeric(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	s = strings.ReplaceAll(s, ",", "")
	_, err := decimal.NewFromString(s)
	return err == nil
}

// columnIsNumeric reports whether a column has at least one non-empty value
// and every non-empty value is strictly numeric.
func columnIsNumeric(t *Table, col string) bool {
	nonEmpty := 0
	for _, row := range t.Rows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		nonEmpty++
		if !looksNumeric(v) {
			return false
		}
	}
	return nonEmpty > 0
}
