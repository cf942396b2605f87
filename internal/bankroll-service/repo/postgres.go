package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
)

// Postgres implementa domain.Store em banco Postgres
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

const betColumns = `id, bankroll_id, game_id, bet_type, selection, legs, stake_cents, odds,
	potential_payout_cents, payout_cents, status, confidence, notes, idempotency_key,
	created_at, settled_at, cancelled_at`

// CreateBankroll cria a banca e o depósito inicial na mesma transação
func (p *Postgres) CreateBankroll(ctx context.Context, b domain.Bankroll, initial domain.Transaction) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bankrolls (id, balance_cents, version, initialized_at, updated_at)
		VALUES ($1,$2,1,$3,$4)
		ON CONFLICT (id) DO NOTHING`,
		b.ID, int64(b.Balance), b.InitializedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAlreadyInitialized
	}

	if err = insertTransaction(ctx, tx, initial); err != nil {
		return err
	}
	return tx.Commit()
}

// WithBankroll abre uma transação e trava a linha da banca (lock pessimista).
// Só bancas com o mesmo id esperam umas pelas outras.
func (p *Postgres) WithBankroll(ctx context.Context, bankrollID string, fn func(tx domain.BankrollTx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var b domain.Bankroll
	var bal int64
	err = tx.QueryRowContext(ctx, `
		SELECT id, balance_cents, initialized_at, updated_at
		FROM bankrolls WHERE id=$1 FOR UPDATE`, bankrollID).
		Scan(&b.ID, &bal, &b.InitializedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("bankroll %s: %w", bankrollID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	b.Balance = domain.Money(bal)

	if err := fn(&pgTx{tx: tx, bankroll: b}); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *Postgres) GetBankroll(ctx context.Context, bankrollID string) (domain.Bankroll, error) {
	var b domain.Bankroll
	var bal int64
	err := p.db.QueryRowContext(ctx, `
		SELECT id, balance_cents, initialized_at, updated_at FROM bankrolls WHERE id=$1`, bankrollID).
		Scan(&b.ID, &bal, &b.InitializedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bankroll{}, fmt.Errorf("bankroll %s: %w", bankrollID, domain.ErrNotFound)
	}
	b.Balance = domain.Money(bal)
	return b, err
}

// ListTransactions monta o filtro dinamicamente, na ordem de seq
func (p *Postgres) ListTransactions(ctx context.Context, bankrollID string, f domain.TransactionFilter) ([]domain.Transaction, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, bankroll_id, type, amount_cents, balance_after_cents,
		COALESCE(related_bet_id,''), notes, created_at
		FROM bankroll_transactions WHERE bankroll_id = $1`)
	args := []any{bankrollID}

	if f.Type != "" {
		args = append(args, string(f.Type))
		fmt.Fprintf(&sb, " AND type = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		fmt.Fprintf(&sb, " AND created_at <= $%d", len(args))
	}
	if f.NewestFirst {
		sb.WriteString(" ORDER BY seq DESC")
	} else {
		sb.WriteString(" ORDER BY seq ASC")
	}
	writePage(&sb, &args, f.Limit, f.Offset)

	rows, err := p.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		var typ string
		var amount, after int64
		if err := rows.Scan(&t.ID, &t.BankrollID, &typ, &amount, &after, &t.RelatedBetID, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = domain.TransactionType(typ)
		t.Amount = domain.Money(amount)
		t.BalanceAfter = domain.Money(after)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) GetBet(ctx context.Context, bankrollID, betID string) (domain.Bet, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1 AND bankroll_id=$2`, betID, bankrollID)
	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, fmt.Errorf("bet %s: %w", betID, domain.ErrNotFound)
	}
	return b, err
}

// ListBets retorna as apostas mais recentes primeiro
func (p *Postgres) ListBets(ctx context.Context, bankrollID string, f domain.BetFilter) ([]domain.Bet, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + betColumns + ` FROM bets WHERE bankroll_id = $1`)
	args := []any{bankrollID}

	if f.Status != "" {
		args = append(args, string(f.Status))
		fmt.Fprintf(&sb, " AND status = $%d", len(args))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC")
	writePage(&sb, &args, f.Limit, f.Offset)

	rows, err := p.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Bet{}
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// pgTx é a unidade de trabalho com a linha da banca travada
type pgTx struct {
	tx       *sql.Tx
	bankroll domain.Bankroll
}

func (t *pgTx) Bankroll() domain.Bankroll { return t.bankroll }

// AppendTransaction grava no ledger e atualiza o saldo materializado
func (t *pgTx) AppendTransaction(ctx context.Context, tr domain.Transaction) error {
	if t.bankroll.Balance+tr.Amount != tr.BalanceAfter {
		return fmt.Errorf("balance_after %s does not match %s%+d", tr.BalanceAfter, t.bankroll.Balance, tr.Amount)
	}
	if err := insertTransaction(ctx, t.tx, tr); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, `
		UPDATE bankrolls SET balance_cents = $1, version = version + 1, updated_at = $2 WHERE id = $3`,
		int64(tr.BalanceAfter), tr.CreatedAt, t.bankroll.ID); err != nil {
		return err
	}
	t.bankroll.Balance = tr.BalanceAfter
	t.bankroll.UpdatedAt = tr.CreatedAt
	return nil
}

func (t *pgTx) GetBet(ctx context.Context, betID string) (domain.Bet, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1 AND bankroll_id=$2 FOR UPDATE`, betID, t.bankroll.ID)
	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, fmt.Errorf("bet %s: %w", betID, domain.ErrNotFound)
	}
	return b, err
}

// FindBetByIdempotencyKey garante idempotência por (bankroll_id, idempotency_key)
func (t *pgTx) FindBetByIdempotencyKey(ctx context.Context, key string) (domain.Bet, bool, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE bankroll_id=$1 AND idempotency_key=$2`, t.bankroll.ID, key)
	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Bet{}, false, nil
	}
	if err != nil {
		return domain.Bet{}, false, err
	}
	return b, true, nil
}

func (t *pgTx) InsertBet(ctx context.Context, b domain.Bet) error {
	legs, err := marshalLegs(b.Legs)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO bets (id, bankroll_id, game_id, bet_type, selection, legs, stake_cents, odds,
			potential_payout_cents, payout_cents, status, confidence, notes, idempotency_key,
			created_at, settled_at, cancelled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		b.ID, b.BankrollID, b.GameID, string(b.BetType), b.Selection, legs, int64(b.Stake), b.Odds,
		int64(b.PotentialPayout), int64(b.Payout), string(b.Status), nullDecimal(b.Confidence), b.Notes,
		nullString(b.IdempotencyKey), b.CreatedAt, b.SettledAt, b.CancelledAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("bet %s: duplicate idempotency key: %w", b.ID, domain.ErrInvalidBet)
	}
	return err
}

// UpdateBet só altera os campos de liquidação; odds e payout potencial são fixos
func (t *pgTx) UpdateBet(ctx context.Context, b domain.Bet) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bets SET status=$1, payout_cents=$2, settled_at=$3, cancelled_at=$4
		WHERE id=$5 AND bankroll_id=$6`,
		string(b.Status), int64(b.Payout), b.SettledAt, b.CancelledAt, b.ID, t.bankroll.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bet %s: %w", b.ID, domain.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(r rowScanner) (domain.Bet, error) {
	var (
		b                        domain.Bet
		betType, status          string
		legs                     []byte
		stake, potential, payout int64
		confidence               decimal.NullDecimal
		idem                     sql.NullString
		settledAt, cancelledAt   sql.NullTime
	)
	if err := r.Scan(&b.ID, &b.BankrollID, &b.GameID, &betType, &b.Selection, &legs, &stake, &b.Odds,
		&potential, &payout, &status, &confidence, &b.Notes, &idem,
		&b.CreatedAt, &settledAt, &cancelledAt); err != nil {
		return domain.Bet{}, err
	}
	b.BetType = domain.BetType(betType)
	b.Status = domain.Status(status)
	b.Stake = domain.Money(stake)
	b.PotentialPayout = domain.Money(potential)
	b.Payout = domain.Money(payout)
	if confidence.Valid {
		c := confidence.Decimal
		b.Confidence = &c
	}
	b.IdempotencyKey = idem.String
	if settledAt.Valid {
		ts := settledAt.Time
		b.SettledAt = &ts
	}
	if cancelledAt.Valid {
		ts := cancelledAt.Time
		b.CancelledAt = &ts
	}
	if len(legs) > 0 {
		if err := json.Unmarshal(legs, &b.Legs); err != nil {
			return domain.Bet{}, fmt.Errorf("decode legs of bet %s: %w", b.ID, err)
		}
	}
	return b, nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t domain.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bankroll_transactions (id, bankroll_id, type, amount_cents, balance_after_cents, related_bet_id, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		t.ID, t.BankrollID, string(t.Type), int64(t.Amount), int64(t.BalanceAfter), nullString(t.RelatedBetID), t.Notes, t.CreatedAt)
	return err
}

func writePage(sb *strings.Builder, args *[]any, limit, offset int) {
	if limit > 0 {
		*args = append(*args, limit)
		fmt.Fprintf(sb, " LIMIT $%d", len(*args))
	}
	if offset > 0 {
		*args = append(*args, offset)
		fmt.Fprintf(sb, " OFFSET $%d", len(*args))
	}
}

// marshalLegs envia o JSON como texto; []byte seria enviado como bytea pelo lib/pq
func marshalLegs(legs []domain.Leg) (sql.NullString, error) {
	if len(legs) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(legs)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
