package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/sports-bankroll-ledger/pkg/contracts/events"
	"github.com/radieske/sports-bankroll-ledger/pkg/contracts/topics"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func testTopics() Topics {
	return Topics{
		BetPlaced:        topics.BetPlaced,
		BetSettled:       topics.BetSettled,
		BetCancelled:     topics.BetCancelled,
		BankrollAdjusted: topics.BankrollAdjusted,
	}
}

func TestPublishRoutesByTopicAndKeysByBankroll(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, testTopics())
	var published []string
	p.OnPublished = func(topic string) { published = append(published, topic) }
	ctx := context.Background()

	require.NoError(t, p.PublishBetPlaced(ctx, events.BetPlaced{BetID: "b1", BankrollID: "u1", StakeCents: 5000, Odds: -110}))
	require.NoError(t, p.PublishBetSettled(ctx, events.BetSettled{BetID: "b1", BankrollID: "u1", Status: "won", Ts: time.Now()}))
	require.NoError(t, p.PublishBetCancelled(ctx, events.BetSettled{BetID: "b2", BankrollID: "u1", Status: "cancelled"}))
	require.NoError(t, p.PublishBankrollAdjusted(ctx, events.BankrollAdjusted{BankrollID: "u2", Type: "deposit", AmountCents: 100}))

	require.Len(t, w.msgs, 4)
	assert.Equal(t, []string{"bet_placed", "bet_settled", "bet_cancelled", "bankroll_adjusted"}, published)
	for i, want := range published {
		assert.Equal(t, want, w.msgs[i].Topic)
	}
	assert.Equal(t, "u1", string(w.msgs[0].Key))
	assert.Equal(t, "u2", string(w.msgs[3].Key))

	var placed events.BetPlaced
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &placed))
	assert.Equal(t, "b1", placed.BetID)
	assert.Equal(t, int64(5000), placed.StakeCents)
	assert.NotZero(t, placed.TsUnixMs)
}

func TestPublishErrorCallsHook(t *testing.T) {
	w := &fakeWriter{err: errors.New("no brokers")}
	p := NewKafkaPublisher(w, testTopics())
	var failed []string
	p.OnError = func(topic string) { failed = append(failed, topic) }

	err := p.PublishBetSettled(context.Background(), events.BetSettled{BetID: "b1", BankrollID: "u1"})
	assert.Error(t, err)
	assert.Equal(t, []string{"bet_settled"}, failed)
}
