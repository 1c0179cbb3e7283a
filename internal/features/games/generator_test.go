package games

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/goldmine/internal/common"
)

var stake = decimal.NewFromInt(100)

func TestReelsAllCombinations(t *testing.T) {
	counts := map[string]int{}
	n := len(ReelSymbols)
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			for c := 0; c < n; c++ {
				out := Reels(stake, [3]int{a, b, c})
				counts[out.Multiplier.String()]++
				assert.Equal(t, out.Win, out.Payout.IsPositive())
			}
		}
	}
	assert.Equal(t, 8, counts["10"], "triples")
	assert.Equal(t, 168, counts["2"], "pairs")
	assert.Equal(t, 336, counts["0"], "no match")
}

func TestReelsPayouts(t *testing.T) {
	triple := Reels(stake, [3]int{7, 7, 7})
	assert.True(t, triple.Payout.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "7️⃣ 7️⃣ 7️⃣", triple.Label)

	pair := Reels(stake, [3]int{0, 3, 0})
	assert.True(t, pair.Payout.Equal(decimal.NewFromInt(200)))

	miss := Reels(stake, [3]int{0, 1, 2})
	assert.False(t, miss.Win)
	assert.True(t, miss.Payout.IsZero())
}

func TestDiceAllRolls(t *testing.T) {
	wins := map[string]int{}
	for a := 1; a <= 6; a++ {
		for b := 1; b <= 6; b++ {
			out := Dice(stake, a, b)
			switch sum := a + b; {
			case sum >= 11:
				assert.True(t, out.Payout.Equal(decimal.NewFromInt(300)), "%d+%d", a, b)
			case sum == 10:
				assert.True(t, out.Payout.Equal(decimal.NewFromInt(200)), "%d+%d", a, b)
			default:
				assert.False(t, out.Win, "%d+%d", a, b)
			}
			wins[out.Multiplier.String()]++
		}
	}
	assert.Equal(t, 3, wins["3"])
	assert.Equal(t, 3, wins["2"])
}

func TestCoin(t *testing.T) {
	assert.True(t, Coin(stake, Heads, Heads).Payout.Equal(decimal.NewFromInt(200)))
	assert.True(t, Coin(stake, Tails, Tails).Win)
	assert.False(t, Coin(stake, Heads, Tails).Win)
	assert.Equal(t, "Coin: tails (guess: heads)", Coin(stake, Tails, Heads).Label)
}

func TestWheelSectorBoundaries(t *testing.T) {
	tests := []struct {
		u    float64
		want string
	}{
		{0, "10"},
		{0.049, "10"},
		{0.05, "5"},
		{0.14, "5"},
		{0.2, "3"},
		{0.45, "2"},
		{0.7, "1.5"},
		{0.9, "0.5"},
		{0.97, "0"},
		{0.999999, "0"},
	}
	for _, tt := range tests {
		out := Wheel(stake, tt.u)
		assert.Equal(t, tt.want, out.Multiplier.String(), "u=%v", tt.u)
	}
	assert.False(t, Wheel(stake, 0.99).Win)
	assert.True(t, Wheel(stake, 0.9).Win, "0.5x counts as a win")
	assert.True(t, Wheel(stake, 0.9).Payout.Equal(decimal.NewFromInt(50)))
}

func TestWheelProbabilitiesSumToOne(t *testing.T) {
	sum := 0.0
	expected := decimal.Zero
	for _, s := range WheelSectors {
		sum += s.Probability
		expected = expected.Add(s.Multiplier.Mul(decimal.NewFromFloat(s.Probability)))
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.True(t, expected.Equal(decimal.RequireFromString("2.325")), expected.String())
}

func TestWheelConvergence(t *testing.T) {
	g := NewGenerator(rand.NewPCG(42, 1024))
	one := decimal.NewFromInt(1)

	const trials = 100_000
	wins := 0
	total := decimal.Zero
	for i := 0; i < trials; i++ {
		out, err := g.Play(VariantWheel, one)
		require.NoError(t, err)
		if out.Win {
			wins++
		}
		total = total.Add(out.Payout)
	}

	winRate := float64(wins) / trials
	mean, _ := total.Div(decimal.NewFromInt(trials)).Float64()
	assert.InDelta(t, 0.95, winRate, 0.005)
	assert.InDelta(t, 2.325, mean, 0.05)
}

func TestReelsWinRate(t *testing.T) {
	g := NewGenerator(rand.NewPCG(7, 7))
	const trials = 50_000
	wins := 0
	for i := 0; i < trials; i++ {
		out, err := g.Play(VariantReels, stake)
		require.NoError(t, err)
		if out.Win {
			wins++
		}
	}
	// (8 троек + 168 пар) / 512
	assert.InDelta(t, 176.0/512.0, float64(wins)/trials, 0.02)
}

func TestGeneratorIsDeterministicForSeed(t *testing.T) {
	a := NewGenerator(rand.NewPCG(1, 2))
	b := NewGenerator(rand.NewPCG(1, 2))
	for _, v := range Variants {
		for i := 0; i < 20; i++ {
			oa, err := a.Play(v, stake)
			require.NoError(t, err)
			ob, err := b.Play(v, stake)
			require.NoError(t, err)
			assert.Equal(t, oa.Label, ob.Label)
		}
	}
}

func TestGeneratorRejectsBadInput(t *testing.T) {
	g := NewSecureGenerator()

	_, err := g.Play(VariantDice, decimal.Zero)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = g.Play(Variant("roulette"), stake)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestGeneratorConcurrentUse(t *testing.T) {
	g := NewSecureGenerator()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				_, err := g.Play(VariantCoin, stake)
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()
}

func TestParseVariant(t *testing.T) {
	v, err := ParseVariant(" Lucky-Wheel ")
	require.NoError(t, err)
	assert.Equal(t, VariantWheel, v)

	_, err = ParseVariant("poker")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}
