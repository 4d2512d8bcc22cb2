package service

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const dateOnly = "2006-01-02"

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("amount must be a positive number with at most two decimals")

	// NUMERIC(14,2) 的上限
	maxAmount = decimal.RequireFromString("999999999999.99")
)

// ParseMovementDate 接受 RFC3339 或 YYYY-MM-DD (視為 UTC 當日零時)
func ParseMovementDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}

// ParseRangeEnd 與 ParseMovementDate 相同，但純日期會延伸到當日結束
func ParseRangeEnd(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t.Add(24*time.Hour - time.Nanosecond), nil
	}
	return ParseMovementDate(s)
}

const (
	// 指數超出範圍時 Round 會展開成巨大的 big.Int，需先擋下
	maxAmountExponent = 12
	minAmountExponent = -20
	maxAmountDigits   = 40
)

// CheckAmount 金額需大於零、最多兩位小數且不超過 NUMERIC(14,2)
func CheckAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if exp := d.Exponent(); exp > maxAmountExponent || exp < minAmountExponent || d.NumDigits() > maxAmountDigits {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	if !d.IsPositive() || d.GreaterThan(maxAmount) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	cents := d.Round(2)
	if !d.Equal(cents) {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return cents, nil
}

// OptionalText 去除空白，空字串回傳 nil
func OptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

const maxConceptLen = 255

var ErrInvalidConcept = errors.New("concept is required and must be at most 255 characters")

// NormalizeConcept 去除前後空白，不可為空且長度有上限
func NormalizeConcept(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > maxConceptLen {
		return "", ErrInvalidConcept
	}
	return s, nil
}
