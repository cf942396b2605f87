package events

import "time"

// DeadLetter embrulha uma mensagem que o settlement-worker não conseguiu aplicar.
// Payload é a mensagem recebida, sem alteração, para permitir reprocessamento manual.
type DeadLetter struct {
	SourceTopic string    `json:"source_topic"`
	Partition   int       `json:"partition"`
	Offset      int64     `json:"offset"`
	Key         string    `json:"key,omitempty"`
	Payload     string    `json:"payload"`
	Kind        string    `json:"kind"` // decode | invalid_bet | not_found | retries_exhausted ...
	Error       string    `json:"error"`
	Attempts    int       `json:"attempts"`
	Ts          time.Time `json:"ts"`
}
