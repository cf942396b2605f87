package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
)

var hundred = decimal.NewFromInt(100)

// Stats é sempre recalculado a partir do histórico, nunca fica em cache.
type Stats struct {
	CurrentBalance domain.Money
	TotalBets      int
	TotalWagered   domain.Money // stakes de apostas não canceladas
	TotalWon       int
	TotalLost      int
	TotalPending   int
	TotalPush      int
	WinRate        decimal.Decimal // % de won sobre won+lost
	ProfitLoss     domain.Money    // saldo - depósitos + saques
	ROI            decimal.Decimal // % de ProfitLoss sobre TotalWagered
}

// Compute agrega transações e apostas de uma banca.
func Compute(txs []domain.Transaction, bets []domain.Bet) Stats {
	var s Stats
	var deposits, withdrawals domain.Money
	for _, t := range txs {
		s.CurrentBalance += t.Amount
		switch t.Type {
		case domain.TxDeposit:
			deposits += t.Amount
		case domain.TxWithdrawal:
			withdrawals -= t.Amount
		}
	}

	for _, b := range bets {
		if b.Status == domain.StatusCancelled {
			continue
		}
		s.TotalBets++
		s.TotalWagered += b.Stake
		switch b.Status {
		case domain.StatusWon:
			s.TotalWon++
		case domain.StatusLost:
			s.TotalLost++
		case domain.StatusPush:
			s.TotalPush++
		case domain.StatusPending:
			s.TotalPending++
		}
	}

	s.WinRate = percent(int64(s.TotalWon), int64(s.TotalWon+s.TotalLost))
	s.ProfitLoss = s.CurrentBalance - deposits + withdrawals
	s.ROI = percent(int64(s.ProfitLoss), int64(s.TotalWagered))
	return s
}

// percent retorna num/den*100 com duas casas, 0 quando den é zero.
func percent(num, den int64) decimal.Decimal {
	if den == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(num).Mul(hundred).Div(decimal.NewFromInt(den)).Round(2)
}

// Result é o lucro líquido de uma aposta liquidada: lucro se ganhou, -stake se perdeu, 0 caso contrário.
func Result(b domain.Bet) domain.Money {
	switch b.Status {
	case domain.StatusWon:
		return b.Payout - b.Stake
	case domain.StatusLost:
		return -b.Stake
	}
	return 0
}

type BetTypeStats struct {
	BetType      domain.BetType
	TotalBets    int
	TotalWagered domain.Money
	Wins         int
	Losses       int
	ProfitLoss   domain.Money
	WinRate      decimal.Decimal
}

type DayStats struct {
	Date       string // YYYY-MM-DD, UTC
	Bets       int
	Wins       int
	ProfitLoss domain.Money
}

type PeriodStats struct {
	TotalBets       int
	TotalWagered    domain.Money
	TotalProfitLoss domain.Money
	AvgBetSize      domain.Money
	BiggestWin      domain.Money
	BiggestLoss     domain.Money
}

type Analytics struct {
	PeriodDays int
	ByBetType  []BetTypeStats // ordenado por tipo
	Daily      []DayStats     // dia mais recente primeiro
	Period     PeriodStats
}

// ComputeAnalytics agrega as apostas feitas a partir de since. Canceladas ficam de fora.
func ComputeAnalytics(bets []domain.Bet, since time.Time, periodDays int) Analytics {
	a := Analytics{PeriodDays: periodDays}
	byType := map[domain.BetType]*BetTypeStats{}
	byDay := map[string]*DayStats{}
	first := true

	for _, b := range bets {
		if b.Status == domain.StatusCancelled || b.CreatedAt.Before(since) {
			continue
		}
		r := Result(b)

		ts, ok := byType[b.BetType]
		if !ok {
			ts = &BetTypeStats{BetType: b.BetType}
			byType[b.BetType] = ts
		}
		ts.TotalBets++
		ts.TotalWagered += b.Stake
		ts.ProfitLoss += r
		switch b.Status {
		case domain.StatusWon:
			ts.Wins++
		case domain.StatusLost:
			ts.Losses++
		}

		day := b.CreatedAt.UTC().Format(time.DateOnly)
		ds, ok := byDay[day]
		if !ok {
			ds = &DayStats{Date: day}
			byDay[day] = ds
		}
		ds.Bets++
		ds.ProfitLoss += r
		if b.Status == domain.StatusWon {
			ds.Wins++
		}

		p := &a.Period
		p.TotalBets++
		p.TotalWagered += b.Stake
		p.TotalProfitLoss += r
		if first || r > p.BiggestWin {
			p.BiggestWin = r
		}
		if first || r < p.BiggestLoss {
			p.BiggestLoss = r
		}
		first = false
	}

	if a.Period.TotalBets > 0 {
		avg := decimal.NewFromInt(int64(a.Period.TotalWagered)).Div(decimal.NewFromInt(int64(a.Period.TotalBets)))
		a.Period.AvgBetSize = domain.Money(avg.Round(0).IntPart())
	}

	for _, ts := range byType {
		ts.WinRate = percent(int64(ts.Wins), int64(ts.Wins+ts.Losses))
		a.ByBetType = append(a.ByBetType, *ts)
	}
	sort.Slice(a.ByBetType, func(i, j int) bool { return a.ByBetType[i].BetType < a.ByBetType[j].BetType })

	for _, ds := range byDay {
		a.Daily = append(a.Daily, *ds)
	}
	sort.Slice(a.Daily, func(i, j int) bool { return a.Daily[i].Date > a.Daily[j].Date })
	return a
}
