package games

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Все функции этого файла чистые: результат зависит только от ставки
// и уже выпавших случайных значений.

func settle(v Variant, stake, multiplier decimal.Decimal, label string) Outcome {
	win := multiplier.IsPositive()
	payout := decimal.Zero
	if win {
		payout = stake.Mul(multiplier).Round(2)
	}
	return Outcome{Variant: v, Win: win, Multiplier: multiplier, Payout: payout, Label: label}
}

// Reels: три барабана. Три одинаковых символа дают 10x,
// любая пара одинаковых: 2x. Индексы берутся из ReelSymbols.
func Reels(stake decimal.Decimal, reels [3]int) Outcome {
	label := fmt.Sprintf("%s %s %s",
		ReelSymbols[reels[0]].Emoji, ReelSymbols[reels[1]].Emoji, ReelSymbols[reels[2]].Emoji)

	a, b, c := reels[0], reels[1], reels[2]
	switch {
	case a == b && b == c:
		return settle(VariantReels, stake, reelsTripleMultiplier, label)
	case a == b || b == c || a == c:
		return settle(VariantReels, stake, reelsPairMultiplier, label)
	default:
		return settle(VariantReels, stake, decimal.Zero, label)
	}
}

// Dice: две кости 1..6. Сумма от 11 даёт 3x, ровно 10: 2x.
func Dice(stake decimal.Decimal, a, b int) Outcome {
	sum := a + b
	label := fmt.Sprintf("Dice: %d + %d = %d", a, b, sum)
	switch {
	case sum >= 11:
		return settle(VariantDice, stake, diceHighMultiplier, label)
	case sum == 10:
		return settle(VariantDice, stake, diceTenMultiplier, label)
	default:
		return settle(VariantDice, stake, decimal.Zero, label)
	}
}

// Coin: монетка. Совпадение результата и загаданной стороны даёт 2x.
func Coin(stake decimal.Decimal, result, guess Side) Outcome {
	label := fmt.Sprintf("Coin: %s (guess: %s)", result, guess)
	if result == guess {
		return settle(VariantCoin, stake, coinMultiplier, label)
	}
	return settle(VariantCoin, stake, decimal.Zero, label)
}

// Wheel: колесо удачи. u: равномерное значение из [0, 1);
// сектор выбирается по накопленной вероятности.
func Wheel(stake decimal.Decimal, u float64) Outcome {
	sector := WheelSectors[len(WheelSectors)-1]
	cumulative := 0.0
	for _, s := range WheelSectors {
		cumulative += s.Probability
		if u < cumulative {
			sector = s
			break
		}
	}
	label := fmt.Sprintf("Wheel: %sx", sector.Multiplier.String())
	return settle(VariantWheel, stake, sector.Multiplier, label)
}
