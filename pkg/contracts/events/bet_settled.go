package events

import "time"

// Evento emitido quando uma aposta chega a um estado terminal (won, lost, push, cancelled).
type BetSettled struct {
	BetID         string    `json:"bet_id"`
	BankrollID    string    `json:"bankroll_id"`
	Status        string    `json:"status"`
	PayoutCents   int64     `json:"payout_cents"`
	TransactionID string    `json:"transaction_id,omitempty"` // vazio quando não há crédito (lost)
	BalanceCents  int64     `json:"balance_cents"`
	Ts            time.Time `json:"ts"`
}

// BankrollAdjusted é publicado em inicializações e ajustes manuais.
type BankrollAdjusted struct {
	BankrollID    string    `json:"bankroll_id"`
	Type          string    `json:"type"`
	AmountCents   int64     `json:"amount_cents"`
	TransactionID string    `json:"transaction_id"`
	BalanceCents  int64     `json:"balance_cents"`
	Notes         string    `json:"notes,omitempty"`
	Ts            time.Time `json:"ts"`
}
