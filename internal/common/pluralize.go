// Package common: pluralize.go содержит функции склонения русских
// числительных для сообщений админ-консоли.
package common

import "fmt"

// pluralize выбирает форму слова для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → one (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → many (0, 5-20, 25-30, 100, ...)
func pluralize(n int, one, few, many string) string {
	if n < 0 {
		n = -n
	}
	lastDigit := n % 10
	lastTwoDigits := n % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeDays возвращает правильную форму слова «день» для числа n.
func PluralizeDays(n int) string {
	return pluralize(n, "день", "дня", "дней")
}

// PluralizeRequests возвращает правильную форму слова «заявка».
func PluralizeRequests(n int) string {
	return pluralize(n, "заявка", "заявки", "заявок")
}

// PluralizeUsers возвращает правильную форму слова «пользователь».
func PluralizeUsers(n int) string {
	return pluralize(n, "пользователь", "пользователя", "пользователей")
}

// CountRequests создаёт строку вида "3 заявки".
//
// Примеры:
//
//	CountRequests(1)  → "1 заявка"
//	CountRequests(5)  → "5 заявок"
//	CountRequests(22) → "22 заявки"
func CountRequests(n int) string {
	return fmt.Sprintf("%d %s", n, PluralizeRequests(n))
}
