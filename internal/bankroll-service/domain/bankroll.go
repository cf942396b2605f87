package domain

import "time"

// Bankroll é a banca virtual de um usuário (id = userId).
// Balance só muda via Transaction.
type Bankroll struct {
	ID            string
	Balance       Money
	InitializedAt time.Time
	UpdatedAt     time.Time
}

type TransactionType string

const (
	TxDeposit      TransactionType = "deposit"
	TxWithdrawal   TransactionType = "withdrawal"
	TxStakeDebit   TransactionType = "stake_debit"
	TxPayoutCredit TransactionType = "payout_credit"
	TxAdjustment   TransactionType = "adjustment"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxStakeDebit, TxPayoutCredit, TxAdjustment:
		return true
	}
	return false
}

// Transaction é imutável e append-only. Amount tem sinal.
type Transaction struct {
	ID           string
	BankrollID   string
	Type         TransactionType
	Amount       Money
	BalanceAfter Money
	RelatedBetID string
	Notes        string
	CreatedAt    time.Time
}
