// Package core holds the domain types and pure functions of the expense
// ledger: money normalization, category canonicalization and record
// validation. Nothing in this package touches storage or the network.
package core

import (
	"fmt"
	"strings"
	"unicode"
)

// MaxPaise is the largest amount the ledger accepts, chosen so that every
// stored amount survives a round trip through a float64 (2^53-1).
const MaxPaise int64 = 1<<53 - 1

// ParseMoneyToPaise converts a human-entered amount into an exact count of
// paise. It accepts plain decimals with up to two fraction digits and
// tolerates a leading rupee symbol, thousands separators and stray
// whitespace ("₹5,432.00" -> 543200, "12.5" -> 1250).
//
// Negative notation is rejected up front with ErrNegativeAmount so callers
// can tell "user typed a minus" apart from garbage input: both a leading
// minus sign and the accounting style "(1,234.00)" count as negative.
func ParseMoneyToPaise(input string) (int64, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return 0, ErrAmountRequired
	}

	if strings.HasPrefix(raw, "-") || hasParenthesizedRun(raw) {
		return 0, ErrNegativeAmount
	}

	cleaned := strings.Map(func(r rune) rune {
		if r == '₹' || r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	intPart, fracPart, err := splitAmount(cleaned)
	if err != nil {
		return 0, err
	}

	var rupees int64
	for _, r := range intPart {
		d := int64(r - '0')
		if rupees > (MaxPaise-d)/10 {
			return 0, ErrAmountTooLarge
		}
		rupees = rupees*10 + d
	}

	// A missing or one-digit fraction is right-padded: ".5" means 50 paise.
	paise := int64(0)
	if len(fracPart) > 0 {
		paise = int64(fracPart[0]-'0') * 10
	}
	if len(fracPart) > 1 {
		paise += int64(fracPart[1] - '0')
	}

	if rupees > (MaxPaise-paise)/100 {
		return 0, ErrAmountTooLarge
	}
	total := rupees*100 + paise
	if total == 0 {
		return 0, ErrAmountNotPositive
	}
	return total, nil
}

// splitAmount enforces "one or more digits, optionally followed by a decimal
// point and one or two fraction digits".
func splitAmount(s string) (intPart, fracPart string, err error) {
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return "", "", ErrInvalidAmount
	}
	intPart = parts[0]
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" || len(parts) == 2 && (fracPart == "" || len(fracPart) > 2) {
		return "", "", ErrInvalidAmount
	}
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return "", "", ErrInvalidAmount
		}
	}
	return intPart, fracPart, nil
}

// hasParenthesizedRun reports whether s contains "( ... )", the common
// accounting notation for a negative amount.
func hasParenthesizedRun(s string) bool {
	open := strings.IndexByte(s, '(')
	return open >= 0 && strings.IndexByte(s[open:], ')') > 0
}

// FormatPaise renders paise as a decimal rupee string with exactly two
// fraction digits ("1250" -> "12.50"). Display only; it is never parsed back.
func FormatPaise(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s%d.%02d", sign, paise/100, paise%100)
}
