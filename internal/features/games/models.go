// Package games реализует мини-игры на баланс кошелька: слоты, кости,
// монетку и колесо удачи.
// models.go описывает варианты игр, символы и таблицы выплат.
package games

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"serotonyl.ru/goldmine/internal/common"
)

// Variant: вариант игры. Значения совпадают с gameType в API.
type Variant string

const (
	VariantReels Variant = "slot"
	VariantDice  Variant = "dice"
	VariantCoin  Variant = "coinflip"
	VariantWheel Variant = "lucky-wheel"
)

// Variants: все доступные игры.
var Variants = []Variant{VariantReels, VariantDice, VariantCoin, VariantWheel}

// ParseVariant разбирает название игры без учёта регистра.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Variants {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown game %q: %w", s, common.ErrInvalidInput)
}

// Symbol: символ барабана.
type Symbol struct {
	Emoji string // Эмодзи символа
	Name  string // Название для логов
}

// ReelSymbols: алфавит барабанов, все символы равновероятны.
var ReelSymbols = [8]Symbol{
	{Emoji: "🍒", Name: "Cherry"},
	{Emoji: "🍋", Name: "Lemon"},
	{Emoji: "🍊", Name: "Orange"},
	{Emoji: "🍇", Name: "Grape"},
	{Emoji: "🔔", Name: "Bell"},
	{Emoji: "⭐", Name: "Star"},
	{Emoji: "💎", Name: "Diamond"},
	{Emoji: "7️⃣", Name: "Seven"},
}

// Side: сторона монеты.
type Side int

const (
	Heads Side = iota
	Tails
)

func (s Side) String() string {
	if s == Heads {
		return "heads"
	}
	return "tails"
}

// WheelSector: сектор колеса удачи.
type WheelSector struct {
	Multiplier  decimal.Decimal
	Probability float64
}

// WheelSectors: сектора колеса. Сумма вероятностей равна 1,
// ожидаемый множитель 2.325, вероятность ненулевого множителя 0.95.
var WheelSectors = []WheelSector{
	{Multiplier: decimal.NewFromInt(10), Probability: 0.05},
	{Multiplier: decimal.NewFromInt(5), Probability: 0.10},
	{Multiplier: decimal.NewFromInt(3), Probability: 0.15},
	{Multiplier: decimal.NewFromInt(2), Probability: 0.20},
	{Multiplier: decimal.RequireFromString("1.5"), Probability: 0.25},
	{Multiplier: decimal.RequireFromString("0.5"), Probability: 0.20},
	{Multiplier: decimal.Zero, Probability: 0.05},
}

// Множители выплат.
var (
	reelsTripleMultiplier = decimal.NewFromInt(10)
	reelsPairMultiplier   = decimal.NewFromInt(2)
	diceHighMultiplier    = decimal.NewFromInt(3) // сумма 11 или 12
	diceTenMultiplier     = decimal.NewFromInt(2) // сумма ровно 10
	coinMultiplier        = decimal.NewFromInt(2)
)

// Outcome: результат одной игры.
type Outcome struct {
	Variant    Variant
	Win        bool
	Multiplier decimal.Decimal
	Payout     decimal.Decimal // stake × Multiplier, 0 при проигрыше
	Label      string          // человекочитаемый результат
}
