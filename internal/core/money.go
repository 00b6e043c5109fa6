// Package core holds the canonical transaction model shared by every
// other package. It has no dependencies outside the standard library.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a currency string from a bank export into signed
// cents. It tolerates the usual export noise: leading currency symbols,
// thousands separators, decimal comma, surrounding whitespace, and
// accounting-style parentheses for negative amounts.
//
//	ParseAmount("-4.50")      -> -450
//	ParseAmount("$1,234.56")  -> 123456
//	ParseAmount("1.234,56")   -> 123456
//	ParseAmount("(12.00)")    -> -1200
//
// A third decimal digit is half-up rounded, which absorbs float
// artifacts like "4.499999" from sloppy exporters.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "-"):
		neg = !neg
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	// Strip currency symbols and inner spaces: "$ 1 234.56" -> "1234.56"
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == ',' {
			b.WriteRune(r)
		} else if !unicode.IsSpace(r) && !unicode.IsSymbol(r) {
			return 0, ErrInvalidAmount
		}
	}
	s = b.String()
	if s == "" {
		return 0, ErrInvalidAmount
	}

	intPart, fracPart, err := splitDecimal(s)
	if err != nil {
		return 0, err
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}

	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}

	cents := iv*100 + frac
	if neg {
		cents = -cents
	}
	return cents, nil
}

// splitDecimal separates a digits-and-separators string into integer and
// fractional digit runs. When both '.' and ',' appear, the later one is
// the decimal separator. A lone separator followed by exactly three
// digits, or a repeated separator, is read as thousands grouping
// ("1,234" -> 1234, "1.234.567" -> 1234567).
func splitDecimal(s string) (string, string, error) {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	sep := byte(0)
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			sep = '.'
		} else {
			sep = ','
		}
	case lastDot >= 0:
		if strings.Count(s, ".") == 1 && len(s)-lastDot-1 != 3 {
			sep = '.'
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3 {
			sep = ','
		}
	}

	intPart, fracPart := s, ""
	if sep != 0 {
		idx := strings.LastIndexByte(s, sep)
		intPart, fracPart = s[:idx], s[idx+1:]
	}

	intPart, err := joinThousands(intPart)
	if err != nil {
		return "", "", err
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return "", "", ErrInvalidAmount
		}
	}
	if len(fracPart) > 9 {
		return "", "", ErrInvalidAmount
	}
	return intPart, fracPart, nil
}

// joinThousands strips thousands separators from an integer part,
// requiring every group after the first to be exactly three digits.
func joinThousands(s string) (string, error) {
	if s == "" {
		return "0", nil
	}
	groups := strings.FieldsFunc(s, func(r rune) bool {
		return r == '.' || r == ','
	})
	if len(groups) == 0 {
		return "0", nil
	}
	for i, g := range groups {
		if i > 0 && len(g) != 3 {
			return "", ErrInvalidAmount
		}
		if i == 0 && len(groups) > 1 && len(g) > 3 {
			return "", ErrInvalidAmount
		}
	}
	return strings.Join(groups, ""), nil
}

// String renders the amount as a plain decimal, e.g. "-4.50".
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
