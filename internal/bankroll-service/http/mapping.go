package httpapi

import (
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/dto"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/stats"
)

func fromLegs(in []dto.LegRequest) []domain.Leg {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Leg, len(in))
	for i, l := range in {
		out[i] = domain.Leg{GameID: l.GameID, Selection: l.Selection, Probability: l.Probability, Odds: l.Odds}
	}
	return out
}

func toLegs(in []domain.Leg) []dto.LegResponse {
	if len(in) == 0 {
		return nil
	}
	out := make([]dto.LegResponse, len(in))
	for i, l := range in {
		out[i] = dto.LegResponse{GameID: l.GameID, Selection: l.Selection, Probability: l.Probability, Odds: l.Odds}
	}
	return out
}

func toBet(b domain.Bet) dto.BetResponse {
	return dto.BetResponse{
		ID:              b.ID,
		GameID:          b.GameID,
		BetType:         string(b.BetType),
		Selection:       b.Selection,
		Legs:            toLegs(b.Legs),
		Stake:           int64(b.Stake),
		Odds:            b.Odds,
		PotentialPayout: int64(b.PotentialPayout),
		Payout:          int64(b.Payout),
		Status:          string(b.Status),
		Confidence:      b.Confidence,
		Notes:           b.Notes,
		CreatedAt:       b.CreatedAt,
		SettledAt:       b.SettledAt,
		CancelledAt:     b.CancelledAt,
	}
}

func toTransactions(in []domain.Transaction) []dto.TransactionResponse {
	out := make([]dto.TransactionResponse, 0, len(in))
	for _, t := range in {
		out = append(out, dto.TransactionResponse{
			ID:           t.ID,
			Type:         string(t.Type),
			Amount:       int64(t.Amount),
			BalanceAfter: int64(t.BalanceAfter),
			RelatedBetID: t.RelatedBetID,
			Notes:        t.Notes,
			CreatedAt:    t.CreatedAt,
		})
	}
	return out
}

func toStats(s stats.Stats) dto.StatsResponse {
	return dto.StatsResponse{
		CurrentBalance: int64(s.CurrentBalance),
		TotalBets:      s.TotalBets,
		TotalWagered:   int64(s.TotalWagered),
		TotalWon:       s.TotalWon,
		TotalLost:      s.TotalLost,
		TotalPending:   s.TotalPending,
		TotalPush:      s.TotalPush,
		WinRate:        s.WinRate,
		ProfitLoss:     int64(s.ProfitLoss),
		ROI:            s.ROI,
	}
}

func toAnalytics(a stats.Analytics) dto.AnalyticsResponse {
	out := dto.AnalyticsResponse{
		PeriodDays:       a.PeriodDays,
		ByBetType:        make([]dto.BetTypeStatsResponse, 0, len(a.ByBetType)),
		DailyPerformance: make([]dto.DayStatsResponse, 0, len(a.Daily)),
		PeriodStats: dto.PeriodStatsResponse{
			TotalBets:       a.Period.TotalBets,
			TotalWagered:    int64(a.Period.TotalWagered),
			TotalProfitLoss: int64(a.Period.TotalProfitLoss),
			AvgBetSize:      int64(a.Period.AvgBetSize),
			BiggestWin:      int64(a.Period.BiggestWin),
			BiggestLoss:     int64(a.Period.BiggestLoss),
		},
	}
	for _, t := range a.ByBetType {
		out.ByBetType = append(out.ByBetType, dto.BetTypeStatsResponse{
			BetType:      string(t.BetType),
			TotalBets:    t.TotalBets,
			TotalWagered: int64(t.TotalWagered),
			Wins:         t.Wins,
			Losses:       t.Losses,
			ProfitLoss:   int64(t.ProfitLoss),
			WinRate:      t.WinRate,
		})
	}
	for _, d := range a.Daily {
		out.DailyPerformance = append(out.DailyPerformance, dto.DayStatsResponse{
			Date:       d.Date,
			Bets:       d.Bets,
			Wins:       d.Wins,
			ProfitLoss: int64(d.ProfitLoss),
		})
	}
	return out
}
