package events

// Evento publicado no tópico "bet_placed" após o commit da aposta e do débito.
type BetPlaced struct {
	BetID           string `json:"bet_id"`
	BankrollID      string `json:"bankroll_id"`
	GameID          string `json:"game_id"`
	BetType         string `json:"bet_type"`
	Selection       string `json:"selection"`
	StakeCents      int64  `json:"stake_cents"`
	Odds            int    `json:"odds"` // americana, fixada na criação
	PotentialPayout int64  `json:"potential_payout_cents"`
	TransactionID   string `json:"transaction_id"`
	BalanceCents    int64  `json:"balance_cents"`
	TsUnixMs        int64  `json:"ts_unix_ms"`
}
