package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money é um valor monetário em centavos. Nunca usamos float para dinheiro.
type Money int64

var hundred = decimal.NewFromInt(100)

// Decimal retorna o valor em unidades (ex.: 1045.45).
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add soma dois valores; erro se o resultado não cabe em int64.
func (m Money) Add(o Money) (Money, error) {
	sum := m + o
	if (o > 0 && sum < m) || (o < 0 && sum > m) {
		return 0, fmt.Errorf("%s %+d overflows: %w", m, int64(o), ErrInvalidAmount)
	}
	return sum, nil
}

// MoneyFromDecimal converte unidades para centavos, arredondando meio-centavo para longe do zero.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Mul(hundred).Round(0).IntPart())
}

// ParseMoney aceita "50.00", "50" ou "-12.5".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse money %q: %w", s, ErrInvalidAmount)
	}
	return MoneyFromDecimal(d), nil
}
