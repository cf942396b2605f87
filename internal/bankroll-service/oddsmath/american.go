package oddsmath

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
)

// MaxAmericanOdds limita as odds informadas pelo usuário (aposta simples ou perna).
// Odds combinadas de parlay podem passar disso, desde que caibam em int64.
const MaxAmericanOdds = 1_000_000

var (
	one      = decimal.NewFromInt(1)
	half     = decimal.New(5, -1)
	hundred  = decimal.NewFromInt(100)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// ValidateAmerican rejeita odds no intervalo aberto (-100, 100), incluindo 0,
// e odds fora de [-MaxAmericanOdds, MaxAmericanOdds].
func ValidateAmerican(odds int) error {
	if err := validateGap(odds); err != nil {
		return err
	}
	if odds > MaxAmericanOdds || odds < -MaxAmericanOdds {
		return fmt.Errorf("odds %d out of range: %w", odds, domain.ErrInvalidOdds)
	}
	return nil
}

func validateGap(odds int) error {
	if odds > -100 && odds < 100 {
		return fmt.Errorf("odds %d: %w", odds, domain.ErrInvalidOdds)
	}
	return nil
}

// toInt64 arredonda e converte; IntPart sozinho dá wrap silencioso fora do intervalo.
func toInt64(d decimal.Decimal) (int64, bool) {
	r := d.Round(0)
	if r.GreaterThan(maxInt64) || r.LessThan(minInt64) {
		return 0, false
	}
	return r.IntPart(), true
}

// ProbabilityFromAmericanOdds converte odds americanas em probabilidade implícita
// +150 -> 0.40 | -110 -> 0.5238
func ProbabilityFromAmericanOdds(odds int) (decimal.Decimal, error) {
	if err := ValidateAmerican(odds); err != nil {
		return decimal.Zero, err
	}
	o := decimal.NewFromInt(int64(odds))
	if odds > 0 {
		return hundred.Div(o.Add(hundred)), nil
	}
	neg := o.Neg()
	return neg.Div(neg.Add(hundred)), nil
}

// AmericanOddsFromProbability é a inversa de ProbabilityFromAmericanOdds, arredondada para o inteiro mais próximo
// 0.40 -> +150 | 0.6667 -> -200
func AmericanOddsFromProbability(p decimal.Decimal) (int, error) {
	if !p.IsPositive() || p.GreaterThanOrEqual(one) {
		return 0, fmt.Errorf("probability %s: %w", p, domain.ErrInvalidProbability)
	}
	var american decimal.Decimal
	if p.GreaterThanOrEqual(half) {
		american = hundred.Mul(p).Div(one.Sub(p)).Neg()
	} else {
		american = hundred.Mul(one.Sub(p)).Div(p)
	}
	v, ok := toInt64(american)
	if !ok || v > math.MaxInt || v < math.MinInt {
		return 0, fmt.Errorf("probability %s: %w", p, domain.ErrInvalidProbability)
	}
	return int(v), nil
}

// DecimalFromAmerican: +150 -> 2.50 | -150 -> 1.666...
func DecimalFromAmerican(odds int) (decimal.Decimal, error) {
	if err := ValidateAmerican(odds); err != nil {
		return decimal.Zero, err
	}
	o := decimal.NewFromInt(int64(odds))
	if odds > 0 {
		return one.Add(o.Div(hundred)), nil
	}
	return one.Add(hundred.Div(o.Neg())), nil
}

// AmericanFromDecimal: 2.50 -> +150 | 1.50 -> -200
func AmericanFromDecimal(d decimal.Decimal) (int, error) {
	if d.LessThanOrEqual(one) {
		return 0, fmt.Errorf("decimal odds %s: %w", d, domain.ErrInvalidOdds)
	}
	profit := d.Sub(one)
	var american decimal.Decimal
	if d.GreaterThanOrEqual(decimal.NewFromInt(2)) {
		american = profit.Mul(hundred)
	} else {
		american = hundred.Div(profit).Neg()
	}
	v, ok := toInt64(american)
	if !ok || v > math.MaxInt || v < math.MinInt {
		return 0, fmt.Errorf("decimal odds %s too large: %w", d, domain.ErrInvalidOdds)
	}
	return int(v), nil
}

// PayoutFromStakeAndOdds retorna o lucro (sem o stake) de uma aposta ganha, arredondado ao centavo.
// Aceita odds combinadas acima de MaxAmericanOdds; stake + lucro precisa caber em Money.
func PayoutFromStakeAndOdds(stake domain.Money, odds int) (domain.Money, error) {
	if stake <= 0 {
		return 0, fmt.Errorf("stake %d: %w", stake, domain.ErrInvalidStake)
	}
	if err := validateGap(odds); err != nil {
		return 0, err
	}
	cents := decimal.NewFromInt(int64(stake))
	o := decimal.NewFromInt(int64(odds))
	var profit decimal.Decimal
	if odds > 0 {
		profit = cents.Mul(o).Div(hundred)
	} else {
		profit = cents.Mul(hundred).Div(o.Neg())
	}
	v, ok := toInt64(profit)
	if !ok || v > math.MaxInt64-int64(stake) {
		return 0, fmt.Errorf("payout of %s at %+d does not fit: %w", stake, odds, domain.ErrInvalidOdds)
	}
	return domain.Money(v), nil
}

// CombinedDecimal multiplica as odds decimais de cada perna.
func CombinedDecimal(odds []int) (decimal.Decimal, error) {
	if len(odds) < 2 {
		return decimal.Zero, fmt.Errorf("%d legs: %w", len(odds), domain.ErrInsufficientLegs)
	}
	product := one
	for _, o := range odds {
		d, err := DecimalFromAmerican(o)
		if err != nil {
			return decimal.Zero, err
		}
		product = product.Mul(d)
	}
	return product, nil
}

// CombinedOdds retorna as odds americanas equivalentes a um parlay das pernas informadas.
func CombinedOdds(odds []int) (int, error) {
	product, err := CombinedDecimal(odds)
	if err != nil {
		return 0, err
	}
	return AmericanFromDecimal(product)
}
