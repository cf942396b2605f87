package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type LegResponse struct {
	GameID      string          `json:"gameId"`
	Selection   string          `json:"selection"`
	Probability decimal.Decimal `json:"probability"`
	Odds        int             `json:"americanOdds"`
}

type BetResponse struct {
	ID              string           `json:"id"`
	GameID          string           `json:"gameId,omitempty"`
	BetType         string           `json:"betType"`
	Selection       string           `json:"selection"`
	Legs            []LegResponse    `json:"legs,omitempty"`
	Stake           int64            `json:"stake"`
	Odds            int              `json:"odds"`
	PotentialPayout int64            `json:"potentialPayout"`
	Payout          int64            `json:"payout"`
	Status          string           `json:"status"`
	Confidence      *decimal.Decimal `json:"confidence,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	SettledAt       *time.Time       `json:"settledAt,omitempty"`
	CancelledAt     *time.Time       `json:"cancelledAt,omitempty"`
}

type TransactionResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       int64     `json:"amount"`
	BalanceAfter int64     `json:"balanceAfter"`
	RelatedBetID string    `json:"relatedBetId,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type StatsResponse struct {
	CurrentBalance int64           `json:"currentBalance"`
	TotalBets      int             `json:"totalBets"`
	TotalWagered   int64           `json:"totalWagered"`
	TotalWon       int             `json:"totalWon"`
	TotalLost      int             `json:"totalLost"`
	TotalPending   int             `json:"totalPending"`
	TotalPush      int             `json:"totalPush"`
	WinRate        decimal.Decimal `json:"winRate"`
	ProfitLoss     int64           `json:"profitLoss"`
	ROI            decimal.Decimal `json:"roi"`
}

type BankrollResponse struct {
	BankrollID    string                `json:"bankrollId"`
	Balance       int64                 `json:"balance"`
	InitializedAt time.Time             `json:"initializedAt"`
	Stats         StatsResponse         `json:"stats"`
	History       []TransactionResponse `json:"history"`
}

type InitializeResponse struct {
	Balance       int64  `json:"balance"`
	TransactionID string `json:"transactionId"`
}

type CancelResponse struct {
	Message string `json:"message"`
	Balance int64  `json:"balance"`
}

type AdjustResponse struct {
	PreviousBalance int64  `json:"previousBalance"`
	ChangeAmount    int64  `json:"changeAmount"`
	NewBalance      int64  `json:"newBalance"`
	TransactionID   string `json:"transactionId"`
}

type ParlayResponse struct {
	Legs             []LegResponse   `json:"legs"`
	Stake            int64           `json:"stake"`
	JointProbability decimal.Decimal `json:"jointProbability"`
	CombinedDecimal  decimal.Decimal `json:"combinedDecimalOdds"`
	CombinedOdds     int             `json:"combinedOdds"`
	PotentialPayout  int64           `json:"potentialPayout"`
	TotalReturn      int64           `json:"totalReturn"`
	ExpectedValue    int64           `json:"expectedValue"`
}

type BetTypeStatsResponse struct {
	BetType      string          `json:"betType"`
	TotalBets    int             `json:"totalBets"`
	TotalWagered int64           `json:"totalWagered"`
	Wins         int             `json:"wins"`
	Losses       int             `json:"losses"`
	ProfitLoss   int64           `json:"profitLoss"`
	WinRate      decimal.Decimal `json:"winRate"`
}

type DayStatsResponse struct {
	Date       string `json:"date"`
	Bets       int    `json:"bets"`
	Wins       int    `json:"wins"`
	ProfitLoss int64  `json:"profitLoss"`
}

type PeriodStatsResponse struct {
	TotalBets       int   `json:"totalBets"`
	TotalWagered    int64 `json:"totalWagered"`
	TotalProfitLoss int64 `json:"totalProfitLoss"`
	AvgBetSize      int64 `json:"avgBetSize"`
	BiggestWin      int64 `json:"biggestWin"`
	BiggestLoss     int64 `json:"biggestLoss"`
}

type AnalyticsResponse struct {
	PeriodDays       int                    `json:"periodDays"`
	ByBetType        []BetTypeStatsResponse `json:"byBetType"`
	DailyPerformance []DayStatsResponse     `json:"dailyPerformance"`
	PeriodStats      PeriodStatsResponse    `json:"periodStats"`
}
