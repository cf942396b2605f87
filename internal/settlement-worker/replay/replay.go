package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	skafka "github.com/radieske/sports-bankroll-ledger/internal/shared/kafka"
	"github.com/radieske/sports-bankroll-ledger/pkg/contracts/events"
)

// Replayer relê a DLQ e devolve o payload recebido de cada DeadLetter ao tópico de origem.
// Mensagens filtradas por Kinds não são reenviadas, mas o offset do grupo avança.
type Replayer struct {
	Log    *zap.Logger
	Reader skafka.MessageReader
	Writer skafka.MessageWriter
	Target string          // vazio = SourceTopic de cada mensagem
	Kinds  map[string]bool // vazio = todas
	Max    int             // 0 = até o contexto acabar
}

type Stats struct {
	Replayed int
	Skipped  int
}

// Run processa a DLQ até Max mensagens ou até o contexto expirar.
// Expirar o contexto é o fim normal de uma execução manual.
func (r *Replayer) Run(ctx context.Context) (Stats, error) {
	var st Stats
	for r.Max == 0 || st.Replayed+st.Skipped < r.Max {
		m, err := r.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return st, nil
			}
			return st, fmt.Errorf("fetch dlq: %w", err)
		}

		replayed, err := r.one(ctx, m)
		if err != nil {
			return st, err
		}
		if replayed {
			st.Replayed++
		} else {
			st.Skipped++
		}

		if err := r.Reader.CommitMessages(ctx, m); err != nil {
			return st, fmt.Errorf("commit dlq offset %d: %w", m.Offset, err)
		}
	}
	return st, nil
}

func (r *Replayer) one(ctx context.Context, m skafka.Message) (bool, error) {
	var dl events.DeadLetter
	if err := json.Unmarshal(m.Value, &dl); err != nil {
		r.Log.Warn("skipping malformed dead letter", zap.Int64("offset", m.Offset), zap.Error(err))
		return false, nil
	}
	if len(r.Kinds) > 0 && !r.Kinds[dl.Kind] {
		return false, nil
	}

	topic := r.Target
	if topic == "" {
		topic = dl.SourceTopic
	}
	if topic == "" {
		return false, errors.New("dead letter without source topic, use a target topic")
	}

	if err := skafka.WriteJSON(ctx, r.Writer, topic, dl.Key, []byte(dl.Payload)); err != nil {
		return false, fmt.Errorf("republish offset %d: %w", m.Offset, err)
	}
	r.Log.Info("dead letter replayed",
		zap.String("topic", topic),
		zap.String("kind", dl.Kind),
		zap.Int64("source_offset", dl.Offset),
	)
	return true, nil
}
