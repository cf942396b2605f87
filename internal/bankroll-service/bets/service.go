package bets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/ledger"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/oddsmath"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/parlay"
	"github.com/radieske/sports-bankroll-ledger/pkg/contracts/events"
)

// Publisher publica eventos do ledger (Kafka). Só é chamado depois do commit.
type Publisher interface {
	PublishBetPlaced(ctx context.Context, e events.BetPlaced) error
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
	PublishBetCancelled(ctx context.Context, e events.BetSettled) error
	PublishBankrollAdjusted(ctx context.Context, e events.BankrollAdjusted) error
}

// Notifier avisa assinantes (websocket) que o saldo mudou.
type Notifier interface {
	PublishBalance(ctx context.Context, bankrollID string, balance domain.Money, reason string) error
}

type PlaceRequest struct {
	BankrollID     string
	GameID         string
	BetType        domain.BetType
	Selection      string
	Stake          domain.Money
	Odds           int // ignorado em parlay, que usa as odds combinadas das pernas
	Legs           []domain.Leg
	Confidence     *decimal.Decimal
	Notes          string
	IdempotencyKey string
}

type PlaceResult struct {
	Bet           domain.Bet
	Balance       domain.Money
	TransactionID string
	Replayed      bool // idempotency key já usada, nada foi debitado
}

// SettleRequest: Status para apostas simples, LegResults (uma por perna, na ordem) para parlay.
type SettleRequest struct {
	Status     domain.Status
	LegResults []domain.Status
}

type SettleResult struct {
	Bet           domain.Bet
	Balance       domain.Money
	TransactionID string // vazio quando perdida
}

type Service struct {
	log      *zap.Logger
	store    domain.Store
	ledger   *ledger.Ledger
	publ     Publisher
	notifier Notifier
	now      func() time.Time

	MaxStake domain.Money // 0 = sem limite

	OnPlaced   func(betType string) // métricas
	OnSettled  func(status string)  // métricas
	OnRejected func(kind string)    // métricas
}

// NewService monta o serviço. publ e notifier podem ser nil (testes, modo local).
func NewService(log *zap.Logger, store domain.Store, l *ledger.Ledger, publ Publisher, notifier Notifier) *Service {
	return &Service{log: log, store: store, ledger: l, publ: publ, notifier: notifier, now: time.Now}
}

// WithClock troca o relógio (usado nos testes).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Initialize cria a banca do usuário com o depósito inicial.
func (s *Service) Initialize(ctx context.Context, bankrollID string, amount domain.Money) (ledger.Result, error) {
	res, err := s.ledger.Initialize(ctx, bankrollID, amount)
	if err != nil {
		s.rejected(err)
		return ledger.Result{}, err
	}
	s.afterAdjust(ctx, res)
	return res, nil
}

// Adjust aplica depósito, saque ou ajuste manual.
func (s *Service) Adjust(ctx context.Context, bankrollID string, amount domain.Money, typ domain.TransactionType, notes string) (ledger.Result, error) {
	res, err := s.ledger.Adjust(ctx, bankrollID, amount, typ, notes)
	if err != nil {
		s.rejected(err)
		return ledger.Result{}, err
	}
	s.afterAdjust(ctx, res)
	return res, nil
}

// Place valida, debita o stake e grava a aposta pendente na mesma unidade de trabalho.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (PlaceResult, error) {
	bet, err := s.prepare(req)
	if err != nil {
		s.rejected(err)
		return PlaceResult{}, err
	}

	var res PlaceResult
	err = s.store.WithBankroll(ctx, req.BankrollID, func(tx domain.BankrollTx) error {
		if req.IdempotencyKey != "" {
			existing, ok, err := tx.FindBetByIdempotencyKey(ctx, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if ok {
				res = PlaceResult{Bet: existing, Balance: tx.Bankroll().Balance, Replayed: true}
				return nil
			}
		}

		debit, err := s.ledger.Debit(ctx, tx, bet.Stake, bet.ID)
		if err != nil {
			return err
		}
		if err := tx.InsertBet(ctx, bet); err != nil {
			return fmt.Errorf("insert bet: %w", err)
		}
		res = PlaceResult{Bet: bet, Balance: debit.Balance, TransactionID: debit.TransactionID}
		return nil
	})
	if err != nil {
		s.rejected(err)
		return PlaceResult{}, fmt.Errorf("place bet: %w", err)
	}
	if res.Replayed {
		s.log.Info("idempotent replay", zap.String("bankroll", req.BankrollID), zap.String("bet", res.Bet.ID))
		return res, nil
	}

	s.log.Info("bet placed",
		zap.String("bankroll", bet.BankrollID),
		zap.String("bet", bet.ID),
		zap.String("type", string(bet.BetType)),
		zap.Int64("stake_cents", int64(bet.Stake)),
		zap.Int("odds", bet.Odds),
	)
	if s.OnPlaced != nil {
		s.OnPlaced(string(bet.BetType))
	}
	if s.publ != nil {
		if err := s.publ.PublishBetPlaced(ctx, events.BetPlaced{
			BetID:           bet.ID,
			BankrollID:      bet.BankrollID,
			GameID:          bet.GameID,
			BetType:         string(bet.BetType),
			Selection:       bet.Selection,
			StakeCents:      int64(bet.Stake),
			Odds:            bet.Odds,
			PotentialPayout: int64(bet.PotentialPayout),
			TransactionID:   res.TransactionID,
			BalanceCents:    int64(res.Balance),
		}); err != nil {
			s.log.Warn("publish bet_placed failed", zap.String("bet", bet.ID), zap.Error(err))
		}
	}
	s.notify(ctx, bet.BankrollID, res.Balance, "bet_placed")
	return res, nil
}

// prepare valida o pedido e monta a aposta, sem tocar na banca.
func (s *Service) prepare(req PlaceRequest) (domain.Bet, error) {
	if req.BankrollID == "" {
		return domain.Bet{}, fmt.Errorf("bankroll id required: %w", domain.ErrInvalidBet)
	}
	if _, err := domain.ParseBetType(string(req.BetType)); err != nil {
		return domain.Bet{}, err
	}
	if req.Stake <= 0 {
		return domain.Bet{}, fmt.Errorf("stake %s: %w", req.Stake, domain.ErrInvalidStake)
	}
	if s.MaxStake > 0 && req.Stake > s.MaxStake {
		return domain.Bet{}, fmt.Errorf("stake %s above limit %s: %w", req.Stake, s.MaxStake, domain.ErrInvalidStake)
	}
	if req.Confidence != nil && (req.Confidence.IsNegative() || req.Confidence.GreaterThan(decimal.NewFromInt(1))) {
		return domain.Bet{}, fmt.Errorf("confidence %s: %w", req.Confidence, domain.ErrInvalidProbability)
	}

	bet := domain.Bet{
		ID:             uuid.NewString(),
		BankrollID:     req.BankrollID,
		GameID:         req.GameID,
		BetType:        req.BetType,
		Selection:      strings.TrimSpace(req.Selection),
		Stake:          req.Stake,
		Odds:           req.Odds,
		Status:         domain.StatusPending,
		Confidence:     req.Confidence,
		Notes:          req.Notes,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      s.now().UTC(),
	}

	if req.BetType == domain.BetParlay {
		odds, err := parlay.CombinedOdds(req.Legs)
		if err != nil {
			return domain.Bet{}, err
		}
		bet.Odds = odds
		bet.Legs = append([]domain.Leg(nil), req.Legs...)
		if bet.Selection == "" {
			sel := make([]string, len(req.Legs))
			for i, l := range req.Legs {
				sel[i] = l.Selection
			}
			bet.Selection = strings.Join(sel, " | ")
		}
	} else {
		if len(req.Legs) > 0 {
			return domain.Bet{}, fmt.Errorf("legs only allowed on parlay: %w", domain.ErrInvalidBet)
		}
		if req.GameID == "" {
			return domain.Bet{}, fmt.Errorf("game id required: %w", domain.ErrInvalidBet)
		}
		if err := oddsmath.ValidateAmerican(req.Odds); err != nil {
			return domain.Bet{}, err
		}
	}
	if bet.Selection == "" {
		return domain.Bet{}, fmt.Errorf("selection required: %w", domain.ErrInvalidBet)
	}

	payout, err := oddsmath.PayoutFromStakeAndOdds(bet.Stake, bet.Odds)
	if err != nil {
		return domain.Bet{}, err
	}
	bet.PotentialPayout = payout
	return bet, nil
}

// Settle liquida uma aposta pendente. A mudança de status e o crédito commitam juntos.
func (s *Service) Settle(ctx context.Context, bankrollID, betID string, req SettleRequest) (SettleResult, error) {
	var res SettleResult
	err := s.store.WithBankroll(ctx, bankrollID, func(tx domain.BankrollTx) error {
		bet, err := tx.GetBet(ctx, betID)
		if err != nil {
			return err
		}
		if bet.Status.Terminal() {
			return fmt.Errorf("bet %s is %s: %w", bet.ID, bet.Status, domain.ErrAlreadySettled)
		}

		status, credit, err := settlement(bet, req)
		if err != nil {
			return err
		}
		// won e push sempre devolvem pelo menos o stake
		if status != domain.StatusLost && credit < bet.Stake {
			return fmt.Errorf("bet %s %s would credit %s for stake %s: %w", bet.ID, status, credit, bet.Stake, domain.ErrInvalidBet)
		}
		next, err := bet.Status.Transition(status)
		if err != nil {
			return err
		}

		res.Balance = tx.Bankroll().Balance
		if credit > 0 {
			c, err := s.ledger.Credit(ctx, tx, credit, bet.ID, "bet "+string(next))
			if err != nil {
				return err
			}
			res.Balance = c.Balance
			res.TransactionID = c.TransactionID
		}

		now := s.now().UTC()
		bet.Status = next
		bet.Payout = credit
		bet.SettledAt = &now
		if err := tx.UpdateBet(ctx, bet); err != nil {
			return fmt.Errorf("update bet: %w", err)
		}
		res.Bet = bet
		return nil
	})
	if err != nil {
		s.rejected(err)
		return SettleResult{}, fmt.Errorf("settle bet %s: %w", betID, err)
	}

	bet := res.Bet
	s.log.Info("bet settled",
		zap.String("bankroll", bankrollID),
		zap.String("bet", bet.ID),
		zap.String("status", string(bet.Status)),
		zap.Int64("payout_cents", int64(bet.Payout)),
	)
	if s.OnSettled != nil {
		s.OnSettled(string(bet.Status))
	}
	if s.publ != nil {
		if err := s.publ.PublishBetSettled(ctx, settledEvent(bet, res.TransactionID, res.Balance, *bet.SettledAt)); err != nil {
			s.log.Warn("publish bet_settled failed", zap.String("bet", bet.ID), zap.Error(err))
		}
	}
	if res.TransactionID != "" {
		s.notify(ctx, bankrollID, res.Balance, "bet_settled")
	}
	return res, nil
}

// settlement decide o status final e o valor a creditar (stake + lucro, stake, ou zero).
func settlement(bet domain.Bet, req SettleRequest) (domain.Status, domain.Money, error) {
	if bet.BetType != domain.BetParlay {
		if len(req.LegResults) > 0 {
			return "", 0, fmt.Errorf("leg results only allowed on parlay: %w", domain.ErrInvalidBet)
		}
		switch req.Status {
		case domain.StatusWon:
			total, err := bet.TotalReturn()
			return domain.StatusWon, total, err
		case domain.StatusPush:
			return domain.StatusPush, bet.Stake, nil
		case domain.StatusLost:
			return domain.StatusLost, 0, nil
		}
		return "", 0, fmt.Errorf("settle status %q: %w", req.Status, domain.ErrInvalidBet)
	}

	if len(req.LegResults) == 0 {
		return "", 0, fmt.Errorf("parlay requires leg results: %w", domain.ErrInvalidBet)
	}
	r, err := parlay.Resolve(bet.Legs, req.LegResults)
	if err != nil {
		return "", 0, err
	}
	if req.Status != "" && req.Status != r.Status {
		return "", 0, fmt.Errorf("status %s disagrees with leg results (%s): %w", req.Status, r.Status, domain.ErrInvalidBet)
	}

	switch r.Status {
	case domain.StatusLost:
		return r.Status, 0, nil
	case domain.StatusPush:
		return r.Status, bet.Stake, nil
	}
	if !r.Reduced {
		total, err := bet.TotalReturn()
		return r.Status, total, err
	}
	profit, err := oddsmath.PayoutFromStakeAndOdds(bet.Stake, r.Odds)
	if err != nil {
		return "", 0, err
	}
	total, err := bet.Stake.Add(profit)
	return r.Status, total, err
}

// Cancel devolve o stake de uma aposta pendente.
func (s *Service) Cancel(ctx context.Context, bankrollID, betID string) (SettleResult, error) {
	var res SettleResult
	err := s.store.WithBankroll(ctx, bankrollID, func(tx domain.BankrollTx) error {
		bet, err := tx.GetBet(ctx, betID)
		if err != nil {
			return err
		}
		next, err := bet.Status.Transition(domain.StatusCancelled)
		if err != nil {
			return err
		}
		c, err := s.ledger.Credit(ctx, tx, bet.Stake, bet.ID, "cancel refund")
		if err != nil {
			return err
		}

		now := s.now().UTC()
		bet.Status = next
		bet.Payout = bet.Stake
		bet.CancelledAt = &now
		if err := tx.UpdateBet(ctx, bet); err != nil {
			return fmt.Errorf("update bet: %w", err)
		}
		res = SettleResult{Bet: bet, Balance: c.Balance, TransactionID: c.TransactionID}
		return nil
	})
	if err != nil {
		s.rejected(err)
		return SettleResult{}, fmt.Errorf("cancel bet %s: %w", betID, err)
	}

	bet := res.Bet
	s.log.Info("bet cancelled", zap.String("bankroll", bankrollID), zap.String("bet", bet.ID))
	if s.OnSettled != nil {
		s.OnSettled(string(bet.Status))
	}
	if s.publ != nil {
		if err := s.publ.PublishBetCancelled(ctx, settledEvent(bet, res.TransactionID, res.Balance, *bet.CancelledAt)); err != nil {
			s.log.Warn("publish bet_cancelled failed", zap.String("bet", bet.ID), zap.Error(err))
		}
	}
	s.notify(ctx, bankrollID, res.Balance, "bet_cancelled")
	return res, nil
}

func (s *Service) Get(ctx context.Context, bankrollID, betID string) (domain.Bet, error) {
	return s.store.GetBet(ctx, bankrollID, betID)
}

// List retorna as apostas mais recentes primeiro.
func (s *Service) List(ctx context.Context, bankrollID string, f domain.BetFilter) ([]domain.Bet, error) {
	if _, err := s.store.GetBankroll(ctx, bankrollID); err != nil {
		return nil, err
	}
	return s.store.ListBets(ctx, bankrollID, f)
}

func (s *Service) afterAdjust(ctx context.Context, res ledger.Result) {
	t := res.Transaction
	s.log.Info("bankroll adjusted",
		zap.String("bankroll", t.BankrollID),
		zap.String("type", string(t.Type)),
		zap.Int64("amount_cents", int64(t.Amount)),
		zap.Int64("balance_cents", int64(res.Balance)),
	)
	if s.publ != nil {
		if err := s.publ.PublishBankrollAdjusted(ctx, events.BankrollAdjusted{
			BankrollID:    t.BankrollID,
			Type:          string(t.Type),
			AmountCents:   int64(t.Amount),
			TransactionID: t.ID,
			BalanceCents:  int64(res.Balance),
			Notes:         t.Notes,
			Ts:            t.CreatedAt,
		}); err != nil {
			s.log.Warn("publish bankroll_adjusted failed", zap.String("bankroll", t.BankrollID), zap.Error(err))
		}
	}
	s.notify(ctx, t.BankrollID, res.Balance, string(t.Type))
}

func (s *Service) notify(ctx context.Context, bankrollID string, balance domain.Money, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishBalance(ctx, bankrollID, balance, reason); err != nil {
		s.log.Warn("balance notify failed", zap.String("bankroll", bankrollID), zap.Error(err))
	}
}

func (s *Service) rejected(err error) {
	if s.OnRejected != nil {
		s.OnRejected(domain.Kind(err))
	}
}

func settledEvent(bet domain.Bet, txID string, balance domain.Money, ts time.Time) events.BetSettled {
	return events.BetSettled{
		BetID:         bet.ID,
		BankrollID:    bet.BankrollID,
		Status:        string(bet.Status),
		PayoutCents:   int64(bet.Payout),
		TransactionID: txID,
		BalanceCents:  int64(balance),
		Ts:            ts,
	}
}
