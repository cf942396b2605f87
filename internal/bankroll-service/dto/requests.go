package dto

import "github.com/shopspring/decimal"

// Valores monetários sempre em centavos.

type InitializeRequest struct {
	Amount int64 `json:"amount"`
}

type LegRequest struct {
	GameID      string          `json:"gameId"`
	Selection   string          `json:"selection"`             // "home" | "away" | ...
	Probability decimal.Decimal `json:"probability,omitempty"` // vazio = busca no serviço de previsões
	Odds        int             `json:"americanOdds"`
}

type PlaceBetRequest struct {
	GameID         string           `json:"gameId"`
	BetType        string           `json:"betType"` // moneyline | spread | over_under | parlay
	Selection      string           `json:"selection"`
	Stake          int64            `json:"stake"`
	Odds           int              `json:"odds"`
	Legs           []LegRequest     `json:"legs,omitempty"`
	Confidence     *decimal.Decimal `json:"confidence,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	IdempotencyKey string           `json:"idempotencyKey,omitempty"` // header Idempotency-Key tem precedência
}

type SettleBetRequest struct {
	Status     string   `json:"status"`               // won | lost | push
	LegResults []string `json:"legResults,omitempty"` // parlay: uma por perna, na ordem
}

type AdjustRequest struct {
	Amount int64  `json:"amount"`
	Type   string `json:"type"` // deposit | withdrawal | adjustment
	Notes  string `json:"notes,omitempty"`
}

type ParlayRequest struct {
	Games []LegRequest `json:"games"`
	Stake int64        `json:"stake"`
}
