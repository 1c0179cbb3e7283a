// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: ошибки предметной области, форматирование сумм,
// русская плюрализация для админ-консоли, работа с часовыми поясами.
package common

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CurrencySymbol: символ валюты кошелька.
const CurrencySymbol = "₹"

// LoadLocation возвращает часовой пояс по имени из конфигурации.
// Если tzdata недоступна (alpine без пакета), используем IST (UTC+5:30) вручную.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("IST", 5*60*60+30*60)
	}
	return loc
}

// DayOf возвращает начало календарного дня t в поясе loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameMonth сообщает, попадают ли a и b в один календарный месяц одного года.
func SameMonth(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// DateKey: дата в формате 2006-01-02, используется как ключ суток.
func DateKey(day time.Time) string {
	return day.Format("2006-01-02")
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04".
func FormatDateTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02.01.2006 15:04")
}

// FormatMoney форматирует сумму с разделителями тысяч и двумя знаками.
// Пример: FormatMoney(decimal.RequireFromString("12000")) → "₹12,000.00"
func FormatMoney(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	return sign + CurrencySymbol + groupThousands(intPart) + "." + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
