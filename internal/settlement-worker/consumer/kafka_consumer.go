package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/bets"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	skafka "github.com/radieske/sports-bankroll-ledger/internal/shared/kafka"
	"github.com/radieske/sports-bankroll-ledger/internal/shared/logger"
	"github.com/radieske/sports-bankroll-ledger/pkg/contracts/events"
)

const (
	defaultRetries = 3
	defaultBackoff = 500 * time.Millisecond
)

// Settler é a parte do bets.Service usada pelo worker.
type Settler interface {
	Settle(ctx context.Context, bankrollID, betID string, req bets.SettleRequest) (bets.SettleResult, error)
}

// Processor consome resultados de jogos do Kafka e liquida as apostas correspondentes.
// Erros de domínio vão direto para a DLQ; erros de infraestrutura são tentados Retries vezes antes.
// O offset só é commitado depois que a mensagem foi aplicada ou enviada à DLQ.
type Processor struct {
	Log      *zap.Logger
	Reader   skafka.MessageReader
	Settler  Settler
	DLQ      skafka.MessageWriter // nil = mensagens inválidas são só logadas
	DLQTopic string
	Retries  int
	Backoff  time.Duration

	OnConsumed func()              // métricas
	OnSettled  func(status string) // métricas
	OnDLQ      func(kind string)   // métricas
	OnError    func(stage string)  // métricas por fase
}

// Run inicia o loop de consumo. Retorna quando o contexto é cancelado
// ou quando a DLQ está indisponível (a mensagem volta a ser lida do último commit).
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.errored("fetch")
			if !p.sleep(ctx, p.backoff()) {
				return ctx.Err()
			}
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// a liquidação é idempotente: uma releitura cai em already_settled
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.errored("commit")
		}
	}
}

// handle aplica uma mensagem. Só retorna erro quando nem a DLQ aceitou a mensagem.
func (p *Processor) handle(ctx context.Context, m skafka.Message) error {
	var ev events.GameOutcome
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid message", zap.Int64("offset", m.Offset), zap.Error(err))
		p.errored("decode")
		return p.deadLetter(ctx, m, "decode", err, 0)
	}
	if ev.BetID == "" || ev.BankrollID == "" {
		err := fmt.Errorf("bet_id and bankroll_id required: %w", domain.ErrInvalidBet)
		return p.deadLetter(ctx, m, domain.Kind(err), err, 0)
	}

	req := bets.SettleRequest{Status: domain.Status(ev.Status)}
	for _, r := range ev.LegResults {
		req.LegResults = append(req.LegResults, domain.Status(r))
	}

	log := p.Log.With(zap.String("bet", ev.BetID), zap.String("bankroll", ev.BankrollID))
	retries := p.Retries
	if retries <= 0 {
		retries = defaultRetries
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		res, err := p.Settler.Settle(ctx, ev.BankrollID, ev.BetID, req)
		if err == nil {
			log.Info("bet settled",
				zap.String("status", string(res.Bet.Status)),
				logger.Money("payout", int64(res.Bet.Payout)),
				logger.Money("balance", int64(res.Balance)),
			)
			if p.OnSettled != nil {
				p.OnSettled(string(res.Bet.Status))
			}
			return nil
		}

		if errors.Is(err, domain.ErrAlreadySettled) {
			log.Info("duplicate outcome ignored", zap.Error(err))
			return nil
		}
		if kind := domain.Kind(err); kind != "internal" {
			log.Warn("outcome rejected", zap.String("kind", kind), zap.Error(err))
			return p.deadLetter(ctx, m, kind, err, attempt)
		}

		lastErr = err
		log.Warn("settle failed", zap.Int("attempt", attempt), zap.Error(err))
		p.errored("settle")
		if !p.sleep(ctx, time.Duration(attempt)*p.backoff()) {
			return ctx.Err()
		}
	}
	return p.deadLetter(ctx, m, "retries_exhausted", lastErr, retries)
}

func (p *Processor) deadLetter(ctx context.Context, m skafka.Message, kind string, cause error, attempts int) error {
	if p.OnDLQ != nil {
		p.OnDLQ(kind)
	}
	if p.DLQ == nil {
		p.Log.Error("dropping message without dlq", zap.String("kind", kind), zap.Int64("offset", m.Offset), zap.Error(cause))
		return nil
	}

	dl := events.DeadLetter{
		SourceTopic: m.Topic,
		Partition:   m.Partition,
		Offset:      m.Offset,
		Key:         string(m.Key),
		Payload:     string(m.Value),
		Kind:        kind,
		Error:       cause.Error(),
		Attempts:    attempts,
		Ts:          time.Now().UTC(),
	}
	b, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	if err := skafka.WriteJSON(ctx, p.DLQ, p.DLQTopic, string(m.Key), b); err != nil {
		p.errored("dlq")
		return fmt.Errorf("write dlq: %w", err)
	}
	return nil
}

func (p *Processor) backoff() time.Duration {
	if p.Backoff > 0 {
		return p.Backoff
	}
	return defaultBackoff
}

// sleep espera d ou o cancelamento do contexto; false quando cancelado.
func (p *Processor) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *Processor) errored(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
