package games

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/shopspring/decimal"

	"serotonyl.ru/goldmine/internal/common"
)

// Generator разыгрывает игры. Безопасен для конкурентного использования.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator создаёт генератор на заданном источнике.
// В тестах передают rand.NewPCG с фиксированным зерном.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src)}
}

// NewSecureGenerator создаёт генератор ChaCha8 со случайным зерном из crypto/rand.
func NewSecureGenerator() *Generator {
	var seed [32]byte
	_, _ = crand.Read(seed[:]) // с Go 1.24 не возвращает ошибку
	return NewGenerator(rand.NewChaCha8(seed))
}

// Play разыгрывает вариант v со ставкой stake.
func (g *Generator) Play(v Variant, stake decimal.Decimal) (Outcome, error) {
	if !stake.IsPositive() {
		return Outcome{}, fmt.Errorf("stake %s: %w", stake, common.ErrInvalidInput)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	switch v {
	case VariantReels:
		n := len(ReelSymbols)
		return Reels(stake, [3]int{g.rng.IntN(n), g.rng.IntN(n), g.rng.IntN(n)}), nil
	case VariantDice:
		return Dice(stake, g.rng.IntN(6)+1, g.rng.IntN(6)+1), nil
	case VariantCoin:
		// Загаданная сторона тоже выбирается сервером.
		return Coin(stake, Side(g.rng.IntN(2)), Side(g.rng.IntN(2))), nil
	case VariantWheel:
		return Wheel(stake, g.rng.Float64()), nil
	default:
		return Outcome{}, fmt.Errorf("unknown game %q: %w", v, common.ErrInvalidInput)
	}
}
