package bets_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/bets"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/ledger"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/oddsmath"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/repo"
	"github.com/radieske/sports-bankroll-ledger/pkg/contracts/events"
)

type recorder struct {
	mu        sync.Mutex
	placed    []events.BetPlaced
	settled   []events.BetSettled
	cancelled []events.BetSettled
	adjusted  []events.BankrollAdjusted
	balances  []domain.Money
	fail      bool
}

func (r *recorder) PublishBetPlaced(_ context.Context, e events.BetPlaced) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, e)
	return r.err()
}

func (r *recorder) PublishBetSettled(_ context.Context, e events.BetSettled) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled = append(r.settled, e)
	return r.err()
}

func (r *recorder) PublishBetCancelled(_ context.Context, e events.BetSettled) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, e)
	return r.err()
}

func (r *recorder) PublishBankrollAdjusted(_ context.Context, e events.BankrollAdjusted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adjusted = append(r.adjusted, e)
	return r.err()
}

func (r *recorder) PublishBalance(_ context.Context, _ string, balance domain.Money, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances = append(r.balances, balance)
	return r.err()
}

func (r *recorder) err() error {
	if r.fail {
		return errors.New("broker down")
	}
	return nil
}

const user = "user-1"

func setup(t *testing.T, initial domain.Money) (*bets.Service, *repo.Memory, *recorder) {
	t.Helper()
	store := repo.NewMemory()
	rec := &recorder{}
	svc := bets.NewService(zap.NewNop(), store, ledger.New(store), rec, rec)
	if initial > 0 {
		_, err := svc.Initialize(context.Background(), user, initial)
		require.NoError(t, err)
	}
	return svc, store, rec
}

func moneyline(stake domain.Money, odds int) bets.PlaceRequest {
	return bets.PlaceRequest{
		BankrollID: user,
		GameID:     "game-1",
		BetType:    domain.BetMoneyline,
		Selection:  "home",
		Stake:      stake,
		Odds:       odds,
	}
}

func balance(t *testing.T, store domain.Store) domain.Money {
	t.Helper()
	b, err := store.GetBankroll(context.Background(), user)
	require.NoError(t, err)
	return b.Balance
}

// assertLedger confere que o saldo é a soma das transações e que balanceAfter bate em cada prefixo.
func assertLedger(t *testing.T, store domain.Store) {
	t.Helper()
	txs, err := store.ListTransactions(context.Background(), user, domain.TransactionFilter{})
	require.NoError(t, err)

	var sum domain.Money
	for _, tr := range txs {
		sum += tr.Amount
		assert.Equal(t, sum, tr.BalanceAfter, "transaction %s", tr.ID)
		assert.GreaterOrEqual(t, int64(tr.BalanceAfter), int64(0))
	}
	assert.Equal(t, balance(t, store), sum)
}

func TestPlaceAndSettleWon(t *testing.T) {
	svc, store, rec := setup(t, 100000)
	ctx := context.Background()

	placed, err := svc.Place(ctx, moneyline(5000, -110))
	require.NoError(t, err)
	assert.Equal(t, domain.Money(95000), placed.Balance)
	assert.Equal(t, domain.Money(4545), placed.Bet.PotentialPayout)
	assert.Equal(t, domain.StatusPending, placed.Bet.Status)
	assert.NotEmpty(t, placed.TransactionID)

	settled, err := svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{Status: domain.StatusWon})
	require.NoError(t, err)
	assert.Equal(t, domain.Money(104545), settled.Balance)
	assert.Equal(t, domain.Money(9545), settled.Bet.Payout)
	assert.Equal(t, domain.StatusWon, settled.Bet.Status)
	assert.NotNil(t, settled.Bet.SettledAt)

	assert.Equal(t, domain.Money(104545), balance(t, store))
	assertLedger(t, store)

	require.Len(t, rec.placed, 1)
	require.Len(t, rec.settled, 1)
	assert.Equal(t, "won", rec.settled[0].Status)
	assert.Equal(t, int64(104545), rec.settled[0].BalanceCents)
}

func TestPlaceInsufficientFunds(t *testing.T) {
	svc, store, rec := setup(t, 100000)
	ctx := context.Background()

	_, err := svc.Place(ctx, moneyline(5000, -110))
	require.NoError(t, err)

	_, err = svc.Place(ctx, moneyline(200000, -110))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.Equal(t, domain.Money(95000), balance(t, store))

	list, err := svc.List(ctx, user, domain.BetFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Len(t, rec.placed, 1)
	assertLedger(t, store)
}

func TestCancelRefundsStakeOnce(t *testing.T) {
	svc, store, _ := setup(t, 10000)
	ctx := context.Background()

	placed, err := svc.Place(ctx, moneyline(3000, 150))
	require.NoError(t, err)
	before := balance(t, store)

	cancelled, err := svc.Cancel(ctx, user, placed.Bet.ID)
	require.NoError(t, err)
	assert.Equal(t, before+3000, cancelled.Balance)
	assert.Equal(t, domain.StatusCancelled, cancelled.Bet.Status)
	assert.NotNil(t, cancelled.Bet.CancelledAt)

	_, err = svc.Cancel(ctx, user, placed.Bet.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	assert.Equal(t, before+3000, balance(t, store))

	txs, err := store.ListTransactions(ctx, user, domain.TransactionFilter{Type: domain.TxPayoutCredit})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "cancel refund", txs[0].Notes)
	assert.Equal(t, placed.Bet.ID, txs[0].RelatedBetID)
	assertLedger(t, store)
}

func TestTerminalBetsAreImmutable(t *testing.T) {
	svc, store, _ := setup(t, 10000)
	ctx := context.Background()

	for _, st := range []domain.Status{domain.StatusWon, domain.StatusLost, domain.StatusPush} {
		placed, err := svc.Place(ctx, moneyline(1000, -110))
		require.NoError(t, err)
		_, err = svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{Status: st})
		require.NoError(t, err)

		before := balance(t, store)
		for _, again := range []domain.Status{domain.StatusWon, domain.StatusLost, domain.StatusPush} {
			_, err = svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{Status: again})
			assert.ErrorIs(t, err, domain.ErrAlreadySettled, "%s -> %s", st, again)
		}
		_, err = svc.Cancel(ctx, user, placed.Bet.ID)
		assert.ErrorIs(t, err, domain.ErrAlreadySettled)
		assert.Equal(t, before, balance(t, store))

		got, err := svc.Get(ctx, user, placed.Bet.ID)
		require.NoError(t, err)
		assert.Equal(t, st, got.Status)
	}
	assertLedger(t, store)
}

func TestSettleLostAndPush(t *testing.T) {
	svc, store, rec := setup(t, 10000)
	ctx := context.Background()

	lost, err := svc.Place(ctx, moneyline(2000, 120))
	require.NoError(t, err)
	res, err := svc.Settle(ctx, user, lost.Bet.ID, bets.SettleRequest{Status: domain.StatusLost})
	require.NoError(t, err)
	assert.Empty(t, res.TransactionID)
	assert.Equal(t, domain.Money(0), res.Bet.Payout)
	assert.Equal(t, domain.Money(8000), balance(t, store))

	push, err := svc.Place(ctx, moneyline(2000, 120))
	require.NoError(t, err)
	res, err = svc.Settle(ctx, user, push.Bet.ID, bets.SettleRequest{Status: domain.StatusPush})
	require.NoError(t, err)
	assert.Equal(t, domain.Money(2000), res.Bet.Payout)
	assert.Equal(t, domain.Money(8000), balance(t, store))

	// lost não gera crédito, então não há push de saldo
	assert.Len(t, rec.settled, 2)
	assertLedger(t, store)
}

func TestSettleRejectsInvalidOutcome(t *testing.T) {
	svc, store, _ := setup(t, 10000)
	ctx := context.Background()

	placed, err := svc.Place(ctx, moneyline(1000, -110))
	require.NoError(t, err)

	for _, st := range []domain.Status{domain.StatusPending, domain.StatusCancelled, ""} {
		_, err = svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{Status: st})
		assert.ErrorIs(t, err, domain.ErrInvalidBet, "status %q", st)
	}
	_, err = svc.Settle(ctx, user, "missing", bets.SettleRequest{Status: domain.StatusWon})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := svc.Get(ctx, user, placed.Bet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, domain.Money(9000), balance(t, store))
}

func TestPlaceValidation(t *testing.T) {
	svc, store, _ := setup(t, 10000)
	svc.MaxStake = 5000
	ctx := context.Background()

	tests := []struct {
		name string
		mod  func(*bets.PlaceRequest)
		want error
	}{
		{"zero stake", func(r *bets.PlaceRequest) { r.Stake = 0 }, domain.ErrInvalidStake},
		{"negative stake", func(r *bets.PlaceRequest) { r.Stake = -100 }, domain.ErrInvalidStake},
		{"above max stake", func(r *bets.PlaceRequest) { r.Stake = 5001 }, domain.ErrInvalidStake},
		{"odds inside (-100,100)", func(r *bets.PlaceRequest) { r.Odds = 50 }, domain.ErrInvalidOdds},
		{"zero odds", func(r *bets.PlaceRequest) { r.Odds = 0 }, domain.ErrInvalidOdds},
		{"unknown bet type", func(r *bets.PlaceRequest) { r.BetType = "teaser" }, domain.ErrInvalidBet},
		{"missing selection", func(r *bets.PlaceRequest) { r.Selection = " " }, domain.ErrInvalidBet},
		{"missing game", func(r *bets.PlaceRequest) { r.GameID = "" }, domain.ErrInvalidBet},
		{"confidence above one", func(r *bets.PlaceRequest) {
			c := decimal.RequireFromString("1.5")
			r.Confidence = &c
		}, domain.ErrInvalidProbability},
		{"parlay with one leg", func(r *bets.PlaceRequest) {
			r.BetType = domain.BetParlay
			r.Legs = []domain.Leg{{GameID: "g1", Selection: "home", Odds: -110}}
		}, domain.ErrTooFewLegs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := moneyline(1000, -110)
			tt.mod(&req)
			_, err := svc.Place(ctx, req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, domain.Money(10000), balance(t, store))

	_, err := svc.Place(ctx, bets.PlaceRequest{BankrollID: "nobody", GameID: "g", BetType: domain.BetMoneyline, Selection: "home", Stake: 100, Odds: -110})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlaceIdempotent(t *testing.T) {
	svc, store, rec := setup(t, 10000)
	ctx := context.Background()

	req := moneyline(1000, -110)
	req.IdempotencyKey = "abc-123"

	first, err := svc.Place(ctx, req)
	require.NoError(t, err)
	second, err := svc.Place(ctx, req)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Bet.ID, second.Bet.ID)
	assert.Equal(t, domain.Money(9000), balance(t, store))
	assert.Len(t, rec.placed, 1)
	assertLedger(t, store)
}

func TestParlayPlaceAndReducedSettle(t *testing.T) {
	svc, store, _ := setup(t, 10000)
	ctx := context.Background()

	legs := []domain.Leg{
		{GameID: "g1", Selection: "home", Probability: decimal.RequireFromString("0.60"), Odds: -150},
		{GameID: "g2", Selection: "away", Probability: decimal.RequireFromString("0.55"), Odds: -122},
		{GameID: "g3", Selection: "home", Probability: decimal.RequireFromString("0.70"), Odds: -233},
	}
	placed, err := svc.Place(ctx, bets.PlaceRequest{
		BankrollID: user,
		BetType:    domain.BetParlay,
		Stake:      1000,
		Odds:       -110, // ignorado
		Legs:       legs,
	})
	require.NoError(t, err)

	full, err := oddsmath.CombinedOdds([]int{-150, -122, -233})
	require.NoError(t, err)
	assert.Equal(t, full, placed.Bet.Odds)
	assert.Equal(t, "home | away | home", placed.Bet.Selection)
	assert.Len(t, placed.Bet.Legs, 3)

	res, err := svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{
		LegResults: []domain.Status{domain.StatusWon, domain.StatusPush, domain.StatusWon},
	})
	require.NoError(t, err)

	reduced, err := oddsmath.CombinedOdds([]int{-150, -233})
	require.NoError(t, err)
	profit, err := oddsmath.PayoutFromStakeAndOdds(1000, reduced)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusWon, res.Bet.Status)
	assert.Equal(t, 1000+profit, res.Bet.Payout)
	assert.Equal(t, domain.Money(9000)+1000+profit, balance(t, store))
	assertLedger(t, store)
}

func TestParlaySettleNeedsLegResults(t *testing.T) {
	svc, _, _ := setup(t, 10000)
	ctx := context.Background()

	placed, err := svc.Place(ctx, bets.PlaceRequest{
		BankrollID: user,
		BetType:    domain.BetParlay,
		Stake:      1000,
		Legs: []domain.Leg{
			{GameID: "g1", Selection: "home", Odds: -110},
			{GameID: "g2", Selection: "home", Odds: -110},
		},
	})
	require.NoError(t, err)

	_, err = svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{Status: domain.StatusWon})
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	_, err = svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{
		Status:     domain.StatusWon,
		LegResults: []domain.Status{domain.StatusWon, domain.StatusLost},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	res, err := svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{
		LegResults: []domain.Status{domain.StatusPush, domain.StatusPush},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPush, res.Bet.Status)
	assert.Equal(t, domain.Money(10000), res.Balance)
}

func TestPlaceRejectsOddsOutOfRange(t *testing.T) {
	svc, store, rec := setup(t, 100000)
	ctx := context.Background()

	_, err := svc.Place(ctx, moneyline(10000, 9_000_000_000_000_000_000))
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)
	_, err = svc.Place(ctx, moneyline(10000, -oddsmath.MaxAmericanOdds-1))
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)

	longshots := make([]domain.Leg, 10)
	for i := range longshots {
		longshots[i] = domain.Leg{GameID: "g", Selection: "dog", Odds: 10000}
	}
	_, err = svc.Place(ctx, bets.PlaceRequest{BankrollID: user, BetType: domain.BetParlay, Stake: 10000, Legs: longshots})
	assert.ErrorIs(t, err, domain.ErrInvalidOdds)

	assert.Equal(t, domain.Money(100000), balance(t, store))
	assert.Empty(t, rec.placed)
}

func TestParlayWithLargeCombinedOdds(t *testing.T) {
	svc, store, _ := setup(t, 10000)
	ctx := context.Background()

	legs := make([]domain.Leg, 10)
	results := make([]domain.Status, 10)
	for i := range legs {
		legs[i] = domain.Leg{GameID: "g", Selection: "dog", Odds: 500}
		results[i] = domain.StatusWon
	}
	placed, err := svc.Place(ctx, bets.PlaceRequest{BankrollID: user, BetType: domain.BetParlay, Stake: 100, Legs: legs})
	require.NoError(t, err)
	assert.Equal(t, 6046617500, placed.Bet.Odds)
	assert.Equal(t, domain.Money(6046617500), placed.Bet.PotentialPayout)

	res, err := svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{LegResults: results})
	require.NoError(t, err)
	assert.Equal(t, domain.Money(6046617600), res.Bet.Payout)
	assert.Equal(t, domain.Money(9900+6046617600), balance(t, store))
	assertLedger(t, store)
}

func TestSettleRefusesWinWithoutCredit(t *testing.T) {
	svc, store, rec := setup(t, 100000)
	ctx := context.Background()

	// aposta gravada com payout corrompido (ex.: linha antiga ou escrita fora do serviço)
	bad := domain.Bet{
		ID:              "bet-corrupt",
		BankrollID:      user,
		GameID:          "game-1",
		BetType:         domain.BetMoneyline,
		Selection:       "home",
		Stake:           10000,
		Odds:            150,
		PotentialPayout: -3890459611768029184,
		Status:          domain.StatusPending,
		CreatedAt:       time.Now().UTC(),
	}
	require.NoError(t, store.WithBankroll(ctx, user, func(tx domain.BankrollTx) error {
		return tx.InsertBet(ctx, bad)
	}))

	_, err := svc.Settle(ctx, user, bad.ID, bets.SettleRequest{Status: domain.StatusWon})
	assert.ErrorIs(t, err, domain.ErrInvalidBet)

	b, err := store.GetBet(ctx, user, bad.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, b.Status)
	assert.Equal(t, domain.Money(100000), balance(t, store))
	assert.Empty(t, rec.settled)

	// perda não credita nada e continua válida
	res, err := svc.Settle(ctx, user, bad.ID, bets.SettleRequest{Status: domain.StatusLost})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLost, res.Bet.Status)
}

func TestAdjust(t *testing.T) {
	svc, store, rec := setup(t, 10000)
	ctx := context.Background()

	res, err := svc.Adjust(ctx, user, 2500, domain.TxDeposit, "")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(10000), res.PreviousBalance)
	assert.Equal(t, domain.Money(12500), res.Balance)
	assert.Equal(t, "Manual deposit", res.Transaction.Notes)

	_, err = svc.Adjust(ctx, user, 20000, domain.TxWithdrawal, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = svc.Adjust(ctx, user, -13000, domain.TxAdjustment, "fix")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	res, err = svc.Adjust(ctx, user, -500, domain.TxAdjustment, "fix")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(12000), res.Balance)

	_, err = svc.Adjust(ctx, user, 100, domain.TxStakeDebit, "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	// initialize + deposit + adjustment
	assert.Len(t, rec.adjusted, 3)
	assertLedger(t, store)

	_, err = svc.Initialize(ctx, user, 5000)
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
}

func TestPublishFailuresDoNotRollBack(t *testing.T) {
	svc, store, rec := setup(t, 10000)
	rec.fail = true
	ctx := context.Background()

	placed, err := svc.Place(ctx, moneyline(1000, -110))
	require.NoError(t, err)
	_, err = svc.Settle(ctx, user, placed.Bet.ID, bets.SettleRequest{Status: domain.StatusWon})
	require.NoError(t, err)

	assert.Equal(t, domain.Money(10909), balance(t, store))
	assertLedger(t, store)
}

func TestConcurrentPlaceNeverOverdraws(t *testing.T) {
	svc, store, _ := setup(t, 10000)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		refused int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Place(ctx, moneyline(1000, -110))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientFunds):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, 15, refused)
	assert.Equal(t, domain.Money(0), balance(t, store))
	assertLedger(t, store)
}

func TestHooks(t *testing.T) {
	svc, _, _ := setup(t, 1000)
	ctx := context.Background()

	var placed, settled, rejected []string
	svc.OnPlaced = func(bt string) { placed = append(placed, bt) }
	svc.OnSettled = func(st string) { settled = append(settled, st) }
	svc.OnRejected = func(kind string) { rejected = append(rejected, kind) }

	res, err := svc.Place(ctx, moneyline(500, -110))
	require.NoError(t, err)
	_, err = svc.Place(ctx, moneyline(5000, -110))
	require.Error(t, err)
	_, err = svc.Cancel(ctx, user, res.Bet.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"moneyline"}, placed)
	assert.Equal(t, []string{"cancelled"}, settled)
	assert.Equal(t, []string{"insufficient_funds"}, rejected)
}
