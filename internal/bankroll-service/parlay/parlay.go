package parlay

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/oddsmath"
)

const (
	MinLegs = 2
	MaxLegs = 10
)

// Quotation é derivada, não mexe na banca. Vira aposta só via bets.Service.Place com betType=parlay.
type Quotation struct {
	Legs             []domain.Leg
	Stake            domain.Money
	JointProbability decimal.Decimal
	CombinedDecimal  decimal.Decimal
	CombinedOdds     int
	PotentialPayout  domain.Money // lucro
	ExpectedValue    domain.Money
}

// ValidateLegs checa quantidade de pernas e odds de cada uma.
// Probabilidade zero é aceita aqui (perna sem previsão); Quote exige (0,1).
func ValidateLegs(legs []domain.Leg) error {
	if len(legs) < MinLegs {
		return fmt.Errorf("%d legs: %w", len(legs), domain.ErrTooFewLegs)
	}
	if len(legs) > MaxLegs {
		return fmt.Errorf("%d legs: %w", len(legs), domain.ErrTooManyLegs)
	}
	for i, l := range legs {
		if l.Selection == "" {
			return fmt.Errorf("leg %d: selection required: %w", i, domain.ErrInvalidBet)
		}
		if err := oddsmath.ValidateAmerican(l.Odds); err != nil {
			return fmt.Errorf("leg %d: %w", i, err)
		}
	}
	return nil
}

func legOdds(legs []domain.Leg) []int {
	out := make([]int, len(legs))
	for i, l := range legs {
		out[i] = l.Odds
	}
	return out
}

// CombinedOdds retorna as odds americanas do parlay completo
func CombinedOdds(legs []domain.Leg) (int, error) {
	if err := ValidateLegs(legs); err != nil {
		return 0, err
	}
	return oddsmath.CombinedOdds(legOdds(legs))
}

// Quote calcula a cotação de um parlay.
// As pernas são tratadas como independentes: a probabilidade conjunta é o produto
// das probabilidades. Pernas correlacionadas (mesmo jogo) ficam superestimadas.
func Quote(legs []domain.Leg, stake domain.Money) (Quotation, error) {
	if err := ValidateLegs(legs); err != nil {
		return Quotation{}, err
	}
	if stake <= 0 {
		return Quotation{}, fmt.Errorf("stake %s: %w", stake, domain.ErrInvalidStake)
	}

	one := decimal.NewFromInt(1)
	joint := one
	for i, l := range legs {
		if !l.Probability.IsPositive() || l.Probability.GreaterThanOrEqual(one) {
			return Quotation{}, fmt.Errorf("leg %d probability %s: %w", i, l.Probability, domain.ErrInvalidProbability)
		}
		joint = joint.Mul(l.Probability)
	}

	combinedDec, err := oddsmath.CombinedDecimal(legOdds(legs))
	if err != nil {
		return Quotation{}, err
	}
	combined, err := oddsmath.AmericanFromDecimal(combinedDec)
	if err != nil {
		return Quotation{}, err
	}
	payout, err := oddsmath.PayoutFromStakeAndOdds(stake, combined)
	if err != nil {
		return Quotation{}, err
	}

	// EV = p * lucro - (1 - p) * stake
	ev := joint.Mul(decimal.NewFromInt(int64(payout))).
		Sub(one.Sub(joint).Mul(decimal.NewFromInt(int64(stake))))

	return Quotation{
		Legs:             legs,
		Stake:            stake,
		JointProbability: joint,
		CombinedDecimal:  combinedDec,
		CombinedOdds:     combined,
		PotentialPayout:  payout,
		ExpectedValue:    domain.Money(ev.Round(0).IntPart()),
	}, nil
}

// Resolution é o resultado de um parlay após aplicar a redução de pushes.
type Resolution struct {
	Status  domain.Status
	Odds    int  // odds efetivas sobre as pernas ganhas; 0 se lost/push
	Reduced bool // true quando alguma perna deu push
}

// Resolve liquida o parlay a partir do resultado de cada perna, na ordem das pernas.
// Qualquer lost -> lost. Pushes saem do cálculo; sem pernas ganhas sobra push (devolve stake).
func Resolve(legs []domain.Leg, results []domain.Status) (Resolution, error) {
	if len(results) != len(legs) {
		return Resolution{}, fmt.Errorf("%d results for %d legs: %w", len(results), len(legs), domain.ErrInvalidBet)
	}

	var won []int
	lost := false
	for i, r := range results {
		switch r {
		case domain.StatusWon:
			won = append(won, legs[i].Odds)
		case domain.StatusLost:
			lost = true
		case domain.StatusPush:
		default:
			return Resolution{}, fmt.Errorf("leg %d result %q: %w", i, r, domain.ErrInvalidBet)
		}
	}

	reduced := len(won) < len(legs)
	switch {
	case lost:
		return Resolution{Status: domain.StatusLost}, nil
	case len(won) == 0:
		return Resolution{Status: domain.StatusPush, Reduced: true}, nil
	case len(won) == 1:
		return Resolution{Status: domain.StatusWon, Odds: won[0], Reduced: reduced}, nil
	}

	odds, err := oddsmath.CombinedOdds(won)
	if err != nil {
		return Resolution{}, err
	}
	return Resolution{Status: domain.StatusWon, Odds: odds, Reduced: reduced}, nil
}
