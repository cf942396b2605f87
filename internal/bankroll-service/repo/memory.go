package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
)

// Memory implementa domain.Store em memória, com um mutex por banca.
// Usado em testes e no modo local sem Postgres.
type Memory struct {
	mu        sync.RWMutex // protege só o mapa de bancas
	bankrolls map[string]*memBankroll
}

type memBankroll struct {
	mu       sync.Mutex
	bankroll domain.Bankroll
	txs      []domain.Transaction
	bets     map[string]domain.Bet
	betOrder []string
	idem     map[string]string // idempotency key -> bet id
}

func NewMemory() *Memory {
	return &Memory{bankrolls: make(map[string]*memBankroll)}
}

func (m *Memory) entry(id string) (*memBankroll, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.bankrolls[id]
	if !ok {
		return nil, fmt.Errorf("bankroll %s: %w", id, domain.ErrNotFound)
	}
	return e, nil
}

func (m *Memory) CreateBankroll(_ context.Context, b domain.Bankroll, initial domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bankrolls[b.ID]; ok {
		return domain.ErrAlreadyInitialized
	}
	m.bankrolls[b.ID] = &memBankroll{
		bankroll: b,
		txs:      []domain.Transaction{initial},
		bets:     make(map[string]domain.Bet),
		idem:     make(map[string]string),
	}
	return nil
}

// WithBankroll trava a banca e só aplica as escritas se fn retornar nil.
func (m *Memory) WithBankroll(ctx context.Context, bankrollID string, fn func(tx domain.BankrollTx) error) error {
	e, err := m.entry(bankrollID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{e: e, bankroll: e.bankroll, staged: make(map[string]domain.Bet)}
	if err := fn(tx); err != nil {
		return err
	}

	e.bankroll = tx.bankroll
	e.txs = append(e.txs, tx.txs...)
	for _, id := range tx.inserted {
		e.betOrder = append(e.betOrder, id)
	}
	for id, b := range tx.staged {
		e.bets[id] = b
		if b.IdempotencyKey != "" {
			e.idem[b.IdempotencyKey] = id
		}
	}
	return nil
}

func (m *Memory) GetBankroll(_ context.Context, bankrollID string) (domain.Bankroll, error) {
	e, err := m.entry(bankrollID)
	if err != nil {
		return domain.Bankroll{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bankroll, nil
}

func (m *Memory) ListTransactions(_ context.Context, bankrollID string, f domain.TransactionFilter) ([]domain.Transaction, error) {
	e, err := m.entry(bankrollID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Transaction, 0, len(e.txs))
	for _, t := range e.txs {
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.From != nil && t.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && t.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, t)
	}
	if f.NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return page(out, f.Limit, f.Offset), nil
}

func (m *Memory) GetBet(_ context.Context, bankrollID, betID string) (domain.Bet, error) {
	e, err := m.entry(bankrollID)
	if err != nil {
		return domain.Bet{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.bets[betID]
	if !ok {
		return domain.Bet{}, fmt.Errorf("bet %s: %w", betID, domain.ErrNotFound)
	}
	return cloneBet(b), nil
}

// ListBets retorna as apostas mais recentes primeiro.
func (m *Memory) ListBets(_ context.Context, bankrollID string, f domain.BetFilter) ([]domain.Bet, error) {
	e, err := m.entry(bankrollID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.Bet, 0, len(e.betOrder))
	for i := len(e.betOrder) - 1; i >= 0; i-- {
		b := e.bets[e.betOrder[i]]
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Since != nil && b.CreatedAt.Before(*f.Since) {
			continue
		}
		out = append(out, cloneBet(b))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, f.Limit, f.Offset), nil
}

func (m *Memory) Ping(context.Context) error { return nil }

// memTx guarda as escritas até o fim de WithBankroll.
type memTx struct {
	e        *memBankroll
	bankroll domain.Bankroll
	txs      []domain.Transaction
	staged   map[string]domain.Bet
	inserted []string
}

func (t *memTx) Bankroll() domain.Bankroll { return t.bankroll }

func (t *memTx) AppendTransaction(_ context.Context, tr domain.Transaction) error {
	if tr.BankrollID != t.bankroll.ID {
		return fmt.Errorf("transaction for bankroll %s inside %s", tr.BankrollID, t.bankroll.ID)
	}
	if t.bankroll.Balance+tr.Amount != tr.BalanceAfter {
		return fmt.Errorf("balance_after %s does not match %s%+d", tr.BalanceAfter, t.bankroll.Balance, tr.Amount)
	}
	if tr.BalanceAfter < 0 {
		return domain.ErrInsufficientFunds
	}
	t.txs = append(t.txs, tr)
	t.bankroll.Balance = tr.BalanceAfter
	t.bankroll.UpdatedAt = tr.CreatedAt
	return nil
}

func (t *memTx) GetBet(_ context.Context, betID string) (domain.Bet, error) {
	if b, ok := t.staged[betID]; ok {
		return cloneBet(b), nil
	}
	b, ok := t.e.bets[betID]
	if !ok {
		return domain.Bet{}, fmt.Errorf("bet %s: %w", betID, domain.ErrNotFound)
	}
	return cloneBet(b), nil
}

func (t *memTx) FindBetByIdempotencyKey(_ context.Context, key string) (domain.Bet, bool, error) {
	for _, b := range t.staged {
		if b.IdempotencyKey == key {
			return cloneBet(b), true, nil
		}
	}
	id, ok := t.e.idem[key]
	if !ok {
		return domain.Bet{}, false, nil
	}
	return cloneBet(t.e.bets[id]), true, nil
}

func (t *memTx) InsertBet(_ context.Context, b domain.Bet) error {
	if _, ok := t.e.bets[b.ID]; ok {
		return fmt.Errorf("bet %s already exists", b.ID)
	}
	if _, ok := t.staged[b.ID]; ok {
		return fmt.Errorf("bet %s already exists", b.ID)
	}
	t.staged[b.ID] = cloneBet(b)
	t.inserted = append(t.inserted, b.ID)
	return nil
}

func (t *memTx) UpdateBet(_ context.Context, b domain.Bet) error {
	_, staged := t.staged[b.ID]
	if _, ok := t.e.bets[b.ID]; !ok && !staged {
		return fmt.Errorf("bet %s: %w", b.ID, domain.ErrNotFound)
	}
	t.staged[b.ID] = cloneBet(b)
	return nil
}

func cloneBet(b domain.Bet) domain.Bet {
	if b.Legs != nil {
		b.Legs = append([]domain.Leg(nil), b.Legs...)
	}
	return b
}

func page[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return []T{}
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
