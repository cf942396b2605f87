package oddsmath_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/oddsmath"
)

func TestProbabilityFromAmericanOdds(t *testing.T) {
	tests := []struct {
		name string
		odds int
		want string
	}{
		{"even +100", 100, "0.5"},
		{"underdog +150", 150, "0.4"},
		{"underdog +300", 300, "0.25"},
		{"even -100", -100, "0.5"},
		{"favorite -200", -200, "0.6667"},
		{"favorite -110", -110, "0.5238"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.ProbabilityFromAmericanOdds(tt.odds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Round(4).String())
		})
	}
}

func TestInvalidAmericanOdds(t *testing.T) {
	for _, odds := range []int{0, 1, 99, -1, -99, 50, -50} {
		_, err := oddsmath.ProbabilityFromAmericanOdds(odds)
		assert.ErrorIs(t, err, domain.ErrInvalidOdds, "odds %d", odds)

		_, err = oddsmath.DecimalFromAmerican(odds)
		assert.ErrorIs(t, err, domain.ErrInvalidOdds, "odds %d", odds)

		_, err = oddsmath.PayoutFromStakeAndOdds(1000, odds)
		assert.ErrorIs(t, err, domain.ErrInvalidOdds, "odds %d", odds)
	}
}

func TestPayoutFromStakeAndOdds(t *testing.T) {
	tests := []struct {
		name  string
		stake domain.Money
		odds  int
		want  domain.Money
	}{
		{"50.00 at -110", 5000, -110, 4545},
		{"100.00 at +150", 10000, 150, 15000},
		{"100.00 at -200", 10000, -200, 5000},
		{"10.00 at +100", 1000, 100, 1000},
		{"0.01 at -110 rounds up to a cent", 1, -110, 1},
		{"33.33 at -150", 3333, -150, 2222},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := oddsmath.PayoutFromStakeAndOdds(tt.stake, tt.odds)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	// odds combinadas de parlay passam do limite de entrada, mas ainda pagam
	got, err := oddsmath.PayoutFromStakeAndOdds(100, 6046617500)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(6046617500), got)

	_, err = oddsmath.PayoutFromStakeAndOdds(0, -110)
	assert.ErrorIs(t, err, domain.ErrInvalidStake)
	_, err = oddsmath.PayoutFromStakeAndOdds(-500, -110)
	assert.ErrorIs(t, err, domain.ErrInvalidStake)
}

func TestDecimalAmericanConversion(t *testing.T) {
	tests := []struct {
		american int
		decimal  string
	}{
		{100, "2"},
		{150, "2.5"},
		{-200, "1.5"},
		{-110, "1.9091"},
		{-150, "1.6667"},
	}

	for _, tt := range tests {
		d, err := oddsmath.DecimalFromAmerican(tt.american)
		require.NoError(t, err)
		assert.Equal(t, tt.decimal, d.Round(4).String())

		back, err := oddsmath.AmericanFromDecimal(d)
		require.NoError(t, err)
		assert.Equal(t, tt.american, back)
	}

	_, err := oddsmath.AmericanFromDecimal(decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)
}

func TestCombinedOdds(t *testing.T) {
	got, err := oddsmath.CombinedOdds([]int{-110, -110})
	require.NoError(t, err)
	assert.Equal(t, 264, got)

	got, err = oddsmath.CombinedOdds([]int{150, -200})
	require.NoError(t, err)
	assert.Equal(t, 275, got)

	got, err = oddsmath.CombinedOdds([]int{-110, -110, -110})
	require.NoError(t, err)
	assert.Equal(t, 596, got)

	_, err = oddsmath.CombinedOdds([]int{-110})
	assert.ErrorIs(t, err, domain.ErrInsufficientLegs)

	_, err = oddsmath.CombinedOdds(nil)
	assert.ErrorIs(t, err, domain.ErrInsufficientLegs)

	_, err = oddsmath.CombinedOdds([]int{-110, 50})
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)
}

func TestProbabilityRoundTrip(t *testing.T) {
	tolerance := decimal.New(5, -3)

	for i := 1; i < 100; i++ {
		p := decimal.New(int64(i), -2)

		odds, err := oddsmath.AmericanOddsFromProbability(p)
		require.NoError(t, err, "p=%s", p)

		back, err := oddsmath.ProbabilityFromAmericanOdds(odds)
		require.NoError(t, err, "p=%s odds=%d", p, odds)

		diff := back.Sub(p).Abs()
		assert.True(t, diff.LessThanOrEqual(tolerance), "p=%s odds=%d back=%s", p, odds, back)
	}
}

func TestAmericanOddsFromProbabilityInvalid(t *testing.T) {
	for _, p := range []string{"0", "1", "-0.5", "1.2"} {
		_, err := oddsmath.AmericanOddsFromProbability(decimal.RequireFromString(p))
		assert.ErrorIs(t, err, domain.ErrInvalidProbability, "p=%s", p)
	}
}

func TestOddsOutOfRange(t *testing.T) {
	require.NoError(t, oddsmath.ValidateAmerican(oddsmath.MaxAmericanOdds))
	require.NoError(t, oddsmath.ValidateAmerican(-oddsmath.MaxAmericanOdds))

	for _, odds := range []int{oddsmath.MaxAmericanOdds + 1, -oddsmath.MaxAmericanOdds - 1, 9_000_000_000_000_000_000} {
		assert.ErrorIs(t, oddsmath.ValidateAmerican(odds), domain.ErrInvalidOdds, "odds %d", odds)
		_, err := oddsmath.DecimalFromAmerican(odds)
		assert.ErrorIs(t, err, domain.ErrInvalidOdds, "odds %d", odds)
	}
}

func TestPayoutOverflowIsRejected(t *testing.T) {
	_, err := oddsmath.PayoutFromStakeAndOdds(10000, 9_000_000_000_000_000_000)
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)

	_, err = oddsmath.PayoutFromStakeAndOdds(domain.Money(math.MaxInt64), 100)
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)

	// lucro cabe, mas stake + lucro não
	_, err = oddsmath.PayoutFromStakeAndOdds(domain.Money(math.MaxInt64/2+1), 100)
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)
}

func TestCombinedOddsTooLarge(t *testing.T) {
	longshots := make([]int, 10)
	for i := range longshots {
		longshots[i] = 10000
	}
	_, err := oddsmath.CombinedOdds(longshots)
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)

	_, err = oddsmath.AmericanFromDecimal(decimal.RequireFromString("1e30"))
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)
	_, err = oddsmath.AmericanFromDecimal(decimal.RequireFromString("1.00000000000000000000001"))
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)

	sixes := make([]int, 10)
	for i := range sixes {
		sixes[i] = 500
	}
	got, err := oddsmath.CombinedOdds(sixes)
	require.NoError(t, err)
	assert.Equal(t, 6046617500, got)
}
