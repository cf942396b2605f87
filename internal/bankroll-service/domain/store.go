package domain

import (
	"context"
	"time"
)

// BankrollTx é a seção crítica de uma banca: tudo que acontece dentro dela
// é commitado junto ou descartado junto.
type BankrollTx interface {
	// Bankroll retorna o snapshot travado, já refletindo transações feitas nesta unidade.
	Bankroll() Bankroll
	AppendTransaction(ctx context.Context, t Transaction) error
	GetBet(ctx context.Context, betID string) (Bet, error)
	FindBetByIdempotencyKey(ctx context.Context, key string) (Bet, bool, error)
	InsertBet(ctx context.Context, b Bet) error
	UpdateBet(ctx context.Context, b Bet) error
}

type TransactionFilter struct {
	Type        TransactionType
	From        *time.Time
	To          *time.Time
	NewestFirst bool
	Limit       int // 0 = sem limite
	Offset      int
}

type BetFilter struct {
	Status Status
	Since  *time.Time
	Limit  int // 0 = sem limite
	Offset int
}

// Store é a persistência da banca. WithBankroll trava apenas a banca informada,
// bancas diferentes nunca disputam o mesmo lock.
type Store interface {
	CreateBankroll(ctx context.Context, b Bankroll, initial Transaction) error
	WithBankroll(ctx context.Context, bankrollID string, fn func(tx BankrollTx) error) error

	GetBankroll(ctx context.Context, bankrollID string) (Bankroll, error)
	ListTransactions(ctx context.Context, bankrollID string, f TransactionFilter) ([]Transaction, error)
	GetBet(ctx context.Context, bankrollID, betID string) (Bet, error)
	ListBets(ctx context.Context, bankrollID string, f BetFilter) ([]Bet, error)
	Ping(ctx context.Context) error
}
