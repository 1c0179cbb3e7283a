package common

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := map[string]string{
		"0":         "₹0.00",
		"970":       "₹970.00",
		"1200.5":    "₹1,200.50",
		"25000":     "₹25,000.00",
		"1234567.8": "₹1,234,567.80",
		"-50":       "-₹50.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestSameMonth(t *testing.T) {
	loc := LoadLocation("Asia/Kolkata")

	a := time.Date(2026, 3, 31, 20, 0, 0, 0, time.UTC) // 1 апреля 01:30 IST
	b := time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC)
	assert.True(t, SameMonth(a, b, loc))
	assert.False(t, SameMonth(a, b, time.UTC))

	lastYear := time.Date(2025, 4, 15, 12, 0, 0, 0, time.UTC)
	assert.False(t, SameMonth(b, lastYear, loc))
}

func TestDayOf(t *testing.T) {
	loc := LoadLocation("Asia/Kolkata")
	got := DayOf(time.Date(2026, 1, 1, 19, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, "2026-01-02", DateKey(got))
	assert.Equal(t, 0, got.Hour())
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "1 заявка", CountRequests(1))
	assert.Equal(t, "3 заявки", CountRequests(3))
	assert.Equal(t, "11 заявок", CountRequests(11))
	assert.Equal(t, "21 заявка", CountRequests(21))
	assert.Equal(t, "дня", PluralizeDays(24))
	assert.Equal(t, "пользователей", PluralizeUsers(12))
}
