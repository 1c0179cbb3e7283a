// Package common: errors.go определяет ошибки предметной области,
// которые используются во всех модулях сервиса.
// Каждая ошибка относится к одному виду (Kind): по виду HTTP-слой и
// админ-консоль выбирают код ответа и текст для пользователя.
package common

import "errors"

// Kind: вид ошибки, видимый вызывающей стороне.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindNotFound          Kind = "not_found"
	KindAlreadyProcessed  Kind = "already_processed"
	KindRateLimited       Kind = "rate_limited"
	KindPlanLimitExceeded Kind = "plan_limit_exceeded"
	KindDuplicateUser     Kind = "duplicate_user"
	KindUnauthorized      Kind = "unauthorized"
	// KindInternal: непредвиденный сбой, детали наружу не отдаются
	KindInternal Kind = "internal"
)

// Ошибки кошелька
var (
	// ErrInvalidInput: некорректные входные данные
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidAmount: отрицательная сумма при зачислении/списании
	ErrInvalidAmount = errors.New("amount must not be negative")
	// ErrInsufficientFunds: на балансе недостаточно средств
	ErrInsufficientFunds = errors.New("insufficient balance")
)

// Ошибки журнала заявок
var (
	// ErrNotFound: запись не найдена
	ErrNotFound = errors.New("not found")
	// ErrAlreadyProcessed: заявка уже одобрена или отклонена
	ErrAlreadyProcessed = errors.New("request already processed")
	// ErrRateLimited: уже есть ожидающая заявка на вывод за последние 24 часа
	ErrRateLimited = errors.New("you can only request one withdrawal per 24 hours")
	// ErrPlanLimitExceeded: план уже покупали в этом календарном месяце
	ErrPlanLimitExceeded = errors.New("you can only purchase one plan per month")
)

// Ошибки аккаунтов и доступа
var (
	// ErrDuplicateUser: хэндл уже занят
	ErrDuplicateUser = errors.New("user already exists")
	// ErrUnauthorized: нет прав администратора
	ErrUnauthorized = errors.New("admin access required")
	// ErrInvalidCredentials: неверный хэндл или пароль при входе
	ErrInvalidCredentials = errors.New("invalid mobile or password")
)

// ErrGamesDisabled: игры отключены в настройках
var ErrGamesDisabled = errors.New("games are temporarily disabled")

// Ошибки админ-консоли в Telegram
var (
	// ErrWrongPassword: неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts: слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired: сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidInput, KindInvalidInput},
	{ErrInvalidAmount, KindInvalidInput},
	{ErrGamesDisabled, KindInvalidInput},
	{ErrInvalidCredentials, KindInvalidInput},
	{ErrInsufficientFunds, KindInsufficientFunds},
	{ErrNotFound, KindNotFound},
	{ErrAlreadyProcessed, KindAlreadyProcessed},
	{ErrRateLimited, KindRateLimited},
	{ErrPlanLimitExceeded, KindPlanLimitExceeded},
	{ErrDuplicateUser, KindDuplicateUser},
	{ErrUnauthorized, KindUnauthorized},
}

// KindOf возвращает вид ошибки. Всё, что не является известной ошибкой
// предметной области, считается KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// IsDomain сообщает, что ошибку можно показать пользователю как есть.
func IsDomain(err error) bool {
	k := KindOf(err)
	return k != "" && k != KindInternal
}
