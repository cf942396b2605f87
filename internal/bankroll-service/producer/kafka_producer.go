package producer

import (
	"context"
	"encoding/json"
	"time"

	skafka "github.com/radieske/sports-bankroll-ledger/internal/shared/kafka"
	"github.com/radieske/sports-bankroll-ledger/pkg/contracts/events"
)

// Topics mapeia cada evento do ledger para o tópico configurado.
type Topics struct {
	BetPlaced        string
	BetSettled       string
	BetCancelled     string
	BankrollAdjusted string
}

// KafkaPublisher publica os eventos do ledger. A key é o id da banca, então
// os eventos de uma mesma banca chegam em ordem na mesma partição.
type KafkaPublisher struct {
	Writer skafka.MessageWriter
	Topics Topics

	OnPublished func(topic string) // métricas
	OnError     func(topic string) // métricas
}

func NewKafkaPublisher(w skafka.MessageWriter, t Topics) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topics: t}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	return p.publish(ctx, p.Topics.BetPlaced, e.BankrollID, e)
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	return p.publish(ctx, p.Topics.BetSettled, e.BankrollID, e)
}

func (p *KafkaPublisher) PublishBetCancelled(ctx context.Context, e events.BetSettled) error {
	return p.publish(ctx, p.Topics.BetCancelled, e.BankrollID, e)
}

func (p *KafkaPublisher) PublishBankrollAdjusted(ctx context.Context, e events.BankrollAdjusted) error {
	return p.publish(ctx, p.Topics.BankrollAdjusted, e.BankrollID, e)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := skafka.WriteJSON(ctx, p.Writer, topic, key, b); err != nil {
		if p.OnError != nil {
			p.OnError(topic)
		}
		return err
	}
	if p.OnPublished != nil {
		p.OnPublished(topic)
	}
	return nil
}
