// Package core provides money parsing and handling utilities.
//
// All amounts are held as integer minor units (cents, fen). Decimal input is
// converted once at the boundary with shopspring/decimal; nothing inside the
// engine divides or uses floats.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in the minor unit of its currency.
type Money struct {
	Minor int64
}

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount must be positive")
	ErrAmountOverflow  = errors.New("amount out of range")
	ErrUnknownCurrency = errors.New("unknown currency")
)

// currencyExponents lists the supported ISO 4217 codes and their minor-unit exponent.
var currencyExponents = map[string]int32{
	"CNY": 2,
	"HKD": 2,
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"CHF": 2,
	"SGD": 2,
	"JPY": 0,
	"KRW": 0,
}

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// KnownCurrency reports whether code is a supported currency.
func KnownCurrency(code string) bool {
	_, ok := currencyExponents[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// CurrencyExponent returns the number of minor-unit digits for code (2 when unknown).
func CurrencyExponent(code string) int32 {
	if exp, ok := currencyExponents[strings.ToUpper(strings.TrimSpace(code))]; ok {
		return exp
	}
	return 2
}

// decimalComma lists the currencies whose amounts may use a comma as the
// decimal separator ("1.234,56").
var decimalComma = map[string]bool{
	"EUR": true,
}

var (
	groupedDot   = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d*)?$`)
	groupedComma = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+,\d+$`)
	commaDecimal = regexp.MustCompile(`^[+-]?\d+,\d+$`)
)

// UsesDecimalComma reports whether amounts in code may use a decimal comma.
func UsesDecimalComma(code string) bool {
	return decimalComma[strings.ToUpper(strings.TrimSpace(code))]
}

// normalizeSeparators rewrites s to plain "1234.56" form. A comma followed by
// groups of exactly three digits is a thousands separator; a decimal comma is
// only read for currencies that use one. Anything else with a comma is
// ambiguous and rejected.
func normalizeSeparators(s, currency string) (string, error) {
	if !strings.Contains(s, ",") {
		return s, nil
	}
	switch {
	case groupedDot.MatchString(s):
		return strings.ReplaceAll(s, ",", ""), nil
	case UsesDecimalComma(currency) && groupedComma.MatchString(s):
		return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1), nil
	case UsesDecimalComma(currency) && commaDecimal.MatchString(s):
		return strings.Replace(s, ",", ".", 1), nil
	}
	return "", fmt.Errorf("%w: ambiguous separators in %q", ErrInvalidAmount, s)
}

// ParseDecimalToMinor converts a decimal string to minor units of currency.
//
// "1234.56" and "1,234.56" are accepted for every currency; "1234,56" and
// "1.234,56" only for decimal-comma currencies. Digits beyond the currency's
// precision are rounded half away from zero. Negative values are returned
// as-is so the caller can decide by record kind.
func ParseDecimalToMinor(s, currency string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s, err := normalizeSeparators(s, currency)
	if err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return decimalToMinor(d, currency)
}

// AmountToMinor converts a decoded JSON value (json.Number, string, float64 or
// integer) into minor units.
func AmountToMinor(v any, currency string) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, ErrInvalidAmount
	case json.Number:
		return ParseDecimalToMinor(x.String(), currency)
	case string:
		return ParseDecimalToMinor(x, currency)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, ErrInvalidAmount
		}
		return decimalToMinor(decimal.NewFromFloat(x), currency)
	case int:
		return decimalToMinor(decimal.NewFromInt(int64(x)), currency)
	case int64:
		return decimalToMinor(decimal.NewFromInt(x), currency)
	}
	return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidAmount, v)
}

func decimalToMinor(d decimal.Decimal, currency string) (int64, error) {
	minor := d.Shift(CurrencyExponent(currency)).Round(0)
	if minor.Abs().GreaterThan(maxMinor) {
		return 0, ErrAmountOverflow
	}
	return minor.IntPart(), nil
}

// Major renders the amount in major units ("1234.56") for display.
func (m Money) Major(currency string) string {
	exp := CurrencyExponent(currency)
	return decimal.New(m.Minor, -exp).StringFixed(exp)
}

// MinorToMajor renders a raw minor-unit value for display.
func MinorToMajor(minor int64, currency string) string {
	return Money{Minor: minor}.Major(currency)
}

// Add returns m+o, reporting overflow.
func (m Money) Add(o Money) (Money, error) {
	sum := m.Minor + o.Minor
	if (o.Minor > 0 && sum < m.Minor) || (o.Minor < 0 && sum > m.Minor) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Minor: sum}, nil
}
