package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BetType string

const (
	BetMoneyline BetType = "moneyline"
	BetSpread    BetType = "spread"
	BetOverUnder BetType = "over_under"
	BetParlay    BetType = "parlay"
)

func ParseBetType(s string) (BetType, error) {
	switch t := BetType(s); t {
	case BetMoneyline, BetSpread, BetOverUnder, BetParlay:
		return t, nil
	}
	return "", fmt.Errorf("bet type %q: %w", s, ErrInvalidBet)
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusPush      Status = "push"
	StatusCancelled Status = "cancelled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusWon, StatusLost, StatusPush, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("status %q: %w", s, ErrInvalidBet)
}

// ParseOutcome aceita apenas resultados de liquidação (won, lost, push).
func ParseOutcome(s string) (Status, error) {
	st, err := ParseStatus(s)
	if err != nil {
		return "", err
	}
	if st == StatusPending || st == StatusCancelled {
		return "", fmt.Errorf("outcome %q: %w", s, ErrInvalidBet)
	}
	return st, nil
}

func (s Status) Terminal() bool { return s != StatusPending }

// CanTransition só permite pending -> estado terminal. Estados terminais são imutáveis.
func (s Status) CanTransition(to Status) bool {
	return s == StatusPending && to.Terminal()
}

// Transition valida a mudança de status, retornando ErrAlreadySettled para apostas já terminais.
func (s Status) Transition(to Status) (Status, error) {
	if s.Terminal() {
		return s, fmt.Errorf("status %s: %w", s, ErrAlreadySettled)
	}
	if !s.CanTransition(to) {
		return s, fmt.Errorf("transition %s -> %s: %w", s, to, ErrInvalidBet)
	}
	return to, nil
}

// Leg é uma perna de parlay. Probability vem do serviço de previsões (read-only).
type Leg struct {
	GameID      string          `json:"gameId"`
	Selection   string          `json:"selection"`
	Probability decimal.Decimal `json:"probability"`
	Odds        int             `json:"americanOdds"`
}

type Bet struct {
	ID              string
	BankrollID      string
	GameID          string
	BetType         BetType
	Selection       string
	Legs            []Leg
	Stake           Money
	Odds            int   // americana, fixada na criação
	PotentialPayout Money // lucro calculado na criação, nunca recalculado
	Payout          Money // valor creditado na liquidação
	Status          Status
	Confidence      *decimal.Decimal
	Notes           string
	IdempotencyKey  string
	CreatedAt       time.Time
	SettledAt       *time.Time
	CancelledAt     *time.Time
}

// TotalReturn é o que volta para a banca se a aposta for ganha.
func (b Bet) TotalReturn() (Money, error) { return b.Stake.Add(b.PotentialPayout) }
