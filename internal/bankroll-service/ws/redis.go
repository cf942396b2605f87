package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
)

// DefaultChannel é o canal Redis Pub/Sub usado para mudanças de saldo
const DefaultChannel = "bankroll_balance_updates"

// RedisNotifier publica mudanças de saldo no Redis; todas as réplicas do serviço
// recebem via StartRedisSubscriber e entregam para os seus clientes WebSocket
type RedisNotifier struct {
	R       *redis.Client
	Channel string
}

func NewRedisNotifier(r *redis.Client, channel string) *RedisNotifier {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisNotifier{R: r, Channel: channel}
}

func (n *RedisNotifier) PublishBalance(ctx context.Context, bankrollID string, balance domain.Money, reason string) error {
	b, err := json.Marshal(BalanceUpdate{
		BankrollID:   bankrollID,
		BalanceCents: int64(balance),
		Reason:       reason,
		TsUnixMs:     time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return n.R.Publish(ctx, n.Channel, b).Err()
}

// StartRedisSubscriber confirma a inscrição no canal e inicia uma goroutine
// que repassa cada BalanceUpdate para o Hub até o contexto ser cancelado
func StartRedisSubscriber(ctx context.Context, log *zap.Logger, r *redis.Client, channel string, hub *Hub) error {
	if channel == "" {
		channel = DefaultChannel
	}
	sub := r.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var upd BalanceUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Warn("ws subscriber unmarshal error", zap.Error(err))
					continue
				}
				hub.Broadcast(upd)
			}
		}
	}()
	return nil
}
