package events

// GameOutcome chega pelo tópico "game_outcomes" e liquida uma aposta específica.
// Para parlays, LegResults traz o resultado de cada perna na ordem em que foram apostadas.
type GameOutcome struct {
	BetID      string   `json:"bet_id"`
	BankrollID string   `json:"bankroll_id"`
	Status     string   `json:"status"` // won | lost | push
	LegResults []string `json:"leg_results,omitempty"`
}
