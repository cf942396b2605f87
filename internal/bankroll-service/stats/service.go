package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
)

const (
	summaryHistoryDays  = 30
	summaryHistoryLimit = 50
	maxPeriodDays       = 365
)

type Summary struct {
	Bankroll domain.Bankroll
	Stats    Stats
	History  []domain.Transaction // últimos 30 dias, mais recente primeiro
}

// Service lê o ledger e agrega sob demanda.
type Service struct {
	store domain.Store
	now   func() time.Time
}

func NewService(store domain.Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Summary(ctx context.Context, bankrollID string) (Summary, error) {
	b, err := s.store.GetBankroll(ctx, bankrollID)
	if err != nil {
		return Summary{}, err
	}
	txs, err := s.store.ListTransactions(ctx, bankrollID, domain.TransactionFilter{})
	if err != nil {
		return Summary{}, fmt.Errorf("list transactions: %w", err)
	}
	bets, err := s.store.ListBets(ctx, bankrollID, domain.BetFilter{})
	if err != nil {
		return Summary{}, fmt.Errorf("list bets: %w", err)
	}

	from := s.now().UTC().AddDate(0, 0, -summaryHistoryDays)
	history, err := s.store.ListTransactions(ctx, bankrollID, domain.TransactionFilter{
		From:        &from,
		NewestFirst: true,
		Limit:       summaryHistoryLimit,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("list history: %w", err)
	}

	return Summary{Bankroll: b, Stats: Compute(txs, bets), History: history}, nil
}

// History lista transações da banca com filtro.
func (s *Service) History(ctx context.Context, bankrollID string, f domain.TransactionFilter) ([]domain.Transaction, error) {
	if _, err := s.store.GetBankroll(ctx, bankrollID); err != nil {
		return nil, err
	}
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("transaction type %q: %w", f.Type, domain.ErrInvalidAmount)
	}
	return s.store.ListTransactions(ctx, bankrollID, f)
}

// Analytics agrega as apostas dos últimos periodDays dias (1..365).
func (s *Service) Analytics(ctx context.Context, bankrollID string, periodDays int) (Analytics, error) {
	if periodDays <= 0 || periodDays > maxPeriodDays {
		return Analytics{}, fmt.Errorf("period %d days: %w", periodDays, domain.ErrInvalidAmount)
	}
	if _, err := s.store.GetBankroll(ctx, bankrollID); err != nil {
		return Analytics{}, err
	}
	since := s.now().UTC().AddDate(0, 0, -periodDays)
	bets, err := s.store.ListBets(ctx, bankrollID, domain.BetFilter{Since: &since})
	if err != nil {
		return Analytics{}, fmt.Errorf("list bets: %w", err)
	}
	return ComputeAnalytics(bets, since, periodDays), nil
}
