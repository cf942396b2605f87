package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultTTL: previsões ficam 15 minutos no Redis.
const DefaultTTL = 15 * time.Minute

func key(gameID string) string { return "forecast:game:" + gameID }

// Cached envolve uma Source com cache Redis. Falha do Redis não impede a consulta.
type Cached struct {
	Log  *zap.Logger
	R    *redis.Client
	TTL  time.Duration
	Next Source

	OnHit  func() // métricas
	OnMiss func() // métricas
}

func NewCached(log *zap.Logger, r *redis.Client, next Source, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cached{Log: log, R: r, TTL: ttl, Next: next}
}

func (c *Cached) Prediction(ctx context.Context, gameID string) (Prediction, error) {
	b, err := c.R.Get(ctx, key(gameID)).Bytes()
	switch {
	case err == nil:
		var p Prediction
		if err := json.Unmarshal(b, &p); err == nil {
			if c.OnHit != nil {
				c.OnHit()
			}
			return p, nil
		}
		c.Log.Warn("invalid cached prediction", zap.String("game", gameID))
	case !errors.Is(err, redis.Nil):
		c.Log.Warn("redis get failed", zap.String("game", gameID), zap.Error(err))
	}

	if c.OnMiss != nil {
		c.OnMiss()
	}
	p, err := c.Next.Prediction(ctx, gameID)
	if err != nil {
		return Prediction{}, err
	}
	if b, err := json.Marshal(p); err == nil {
		if err := c.R.Set(ctx, key(gameID), b, c.TTL).Err(); err != nil {
			c.Log.Warn("redis set failed", zap.String("game", gameID), zap.Error(err))
		}
	}
	return p, nil
}
