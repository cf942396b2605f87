package topics

const (
	// Apostas
	BetPlaced    = "bet_placed"
	BetSettled   = "bet_settled"
	BetCancelled = "bet_cancelled"

	// Bankroll
	BankrollAdjusted = "bankroll_adjusted"

	// Resultados de jogos consumidos pelo settlement-worker
	GameOutcomes    = "game_outcomes"
	GameOutcomesDLQ = "game_outcomes_dlq"
)
