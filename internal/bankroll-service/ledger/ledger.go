package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
)

// Result é o retorno de toda operação que altera a banca.
type Result struct {
	PreviousBalance domain.Money
	Balance         domain.Money
	TransactionID   string
	Transaction     domain.Transaction
}

// Ledger aplica débitos e créditos na banca. Nunca edita nem apaga transações,
// o saldo é sempre a soma das transações.
type Ledger struct {
	store domain.Store
	now   func() time.Time
}

func New(store domain.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// WithClock troca o relógio (usado nos testes).
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Initialize cria a banca com um depósito inicial
func (l *Ledger) Initialize(ctx context.Context, bankrollID string, amount domain.Money) (Result, error) {
	if bankrollID == "" {
		return Result{}, fmt.Errorf("bankroll id required: %w", domain.ErrInvalidAmount)
	}
	if amount <= 0 {
		return Result{}, fmt.Errorf("initial amount %s: %w", amount, domain.ErrInvalidAmount)
	}

	now := l.now().UTC()
	t := domain.Transaction{
		ID:           uuid.NewString(),
		BankrollID:   bankrollID,
		Type:         domain.TxDeposit,
		Amount:       amount,
		BalanceAfter: amount,
		Notes:        "Initial bankroll setup",
		CreatedAt:    now,
	}
	b := domain.Bankroll{ID: bankrollID, Balance: amount, InitializedAt: now, UpdatedAt: now}

	if err := l.store.CreateBankroll(ctx, b, t); err != nil {
		return Result{}, fmt.Errorf("initialize bankroll %s: %w", bankrollID, err)
	}
	return Result{Balance: amount, TransactionID: t.ID, Transaction: t}, nil
}

// Debit debita o stake de uma aposta. Deve rodar dentro de Store.WithBankroll:
// a checagem de saldo e o append precisam ser atômicos.
func (l *Ledger) Debit(ctx context.Context, tx domain.BankrollTx, amount domain.Money, relatedBetID string) (Result, error) {
	if amount <= 0 {
		return Result{}, fmt.Errorf("debit %s: %w", amount, domain.ErrInvalidAmount)
	}
	if bal := tx.Bankroll().Balance; bal < amount {
		return Result{}, fmt.Errorf("debit %s with balance %s: %w", amount, bal, domain.ErrInsufficientFunds)
	}
	return l.append(ctx, tx, domain.TxStakeDebit, -amount, relatedBetID, "")
}

// Credit credita pagamento (ou devolução de stake). Não tem limite superior.
func (l *Ledger) Credit(ctx context.Context, tx domain.BankrollTx, amount domain.Money, relatedBetID, notes string) (Result, error) {
	if amount <= 0 {
		return Result{}, fmt.Errorf("credit %s: %w", amount, domain.ErrInvalidAmount)
	}
	return l.append(ctx, tx, domain.TxPayoutCredit, amount, relatedBetID, notes)
}

// Adjust aplica um depósito, saque ou ajuste manual.
// deposit e withdrawal recebem valor positivo; adjustment recebe valor com sinal.
func (l *Ledger) Adjust(ctx context.Context, bankrollID string, amount domain.Money, typ domain.TransactionType, notes string) (Result, error) {
	var delta domain.Money
	switch typ {
	case domain.TxDeposit:
		if amount <= 0 {
			return Result{}, fmt.Errorf("deposit %s: %w", amount, domain.ErrInvalidAmount)
		}
		delta = amount
	case domain.TxWithdrawal:
		if amount <= 0 {
			return Result{}, fmt.Errorf("withdrawal %s: %w", amount, domain.ErrInvalidAmount)
		}
		delta = -amount
	case domain.TxAdjustment:
		if amount == 0 {
			return Result{}, fmt.Errorf("adjustment of zero: %w", domain.ErrInvalidAmount)
		}
		delta = amount
	default:
		return Result{}, fmt.Errorf("adjust type %q: %w", typ, domain.ErrInvalidAmount)
	}
	if notes == "" {
		notes = "Manual " + string(typ)
	}

	var res Result
	err := l.store.WithBankroll(ctx, bankrollID, func(tx domain.BankrollTx) error {
		bal := tx.Bankroll().Balance
		after, err := bal.Add(delta)
		if err != nil {
			return fmt.Errorf("%s: %w", typ, err)
		}
		if after < 0 {
			return fmt.Errorf("%s %s with balance %s: %w", typ, delta, bal, domain.ErrInsufficientFunds)
		}
		r, err := l.append(ctx, tx, typ, delta, "", notes)
		res = r
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (l *Ledger) append(ctx context.Context, tx domain.BankrollTx, typ domain.TransactionType, delta domain.Money, betID, notes string) (Result, error) {
	b := tx.Bankroll()
	after, err := b.Balance.Add(delta)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", typ, err)
	}
	t := domain.Transaction{
		ID:           uuid.NewString(),
		BankrollID:   b.ID,
		Type:         typ,
		Amount:       delta,
		BalanceAfter: after,
		RelatedBetID: betID,
		Notes:        notes,
		CreatedAt:    l.now().UTC(),
	}
	if t.BalanceAfter < 0 {
		return Result{}, fmt.Errorf("%s would leave balance %s: %w", typ, t.BalanceAfter, domain.ErrInsufficientFunds)
	}
	if err := tx.AppendTransaction(ctx, t); err != nil {
		return Result{}, fmt.Errorf("append %s: %w", typ, err)
	}
	return Result{PreviousBalance: b.Balance, Balance: t.BalanceAfter, TransactionID: t.ID, Transaction: t}, nil
}
