package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/bets"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/dto"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/forecast"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/parlay"
)

// getBankroll retorna estatísticas e o histórico recente
func (a *API) getBankroll(w http.ResponseWriter, r *http.Request) {
	sum, err := a.Stats.Summary(r.Context(), userID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BankrollResponse{
		BankrollID:    sum.Bankroll.ID,
		Balance:       int64(sum.Bankroll.Balance),
		InitializedAt: sum.Bankroll.InitializedAt,
		Stats:         toStats(sum.Stats),
		History:       toTransactions(sum.History),
	})
}

func (a *API) initialize(w http.ResponseWriter, r *http.Request) {
	var req dto.InitializeRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.Bets.Initialize(r.Context(), userID(r), domain.Money(req.Amount))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.InitializeResponse{Balance: int64(res.Balance), TransactionID: res.TransactionID})
}

func (a *API) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if !decode(w, r, &req) {
		return
	}
	key := req.IdempotencyKey
	if h := r.Header.Get(idempotencyHeader); h != "" {
		key = h
	}

	res, err := a.Bets.Place(r.Context(), bets.PlaceRequest{
		BankrollID:     userID(r),
		GameID:         req.GameID,
		BetType:        domain.BetType(req.BetType),
		Selection:      req.Selection,
		Stake:          domain.Money(req.Stake),
		Odds:           req.Odds,
		Legs:           fromLegs(req.Legs),
		Confidence:     req.Confidence,
		Notes:          req.Notes,
		IdempotencyKey: key,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, toBet(res.Bet))
}

func (a *API) listBets(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	f := domain.BetFilter{Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("status"); v != "" {
		st, err := domain.ParseStatus(v)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		f.Status = st
	}

	list, err := a.Bets.List(r.Context(), userID(r), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	out := make([]dto.BetResponse, 0, len(list))
	for _, b := range list {
		out = append(out, toBet(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	b, err := a.Bets.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBet(b))
}

func (a *API) settleBet(w http.ResponseWriter, r *http.Request) {
	var req dto.SettleBetRequest
	if !decode(w, r, &req) {
		return
	}
	sr := bets.SettleRequest{Status: domain.Status(req.Status)}
	for _, lr := range req.LegResults {
		sr.LegResults = append(sr.LegResults, domain.Status(lr))
	}

	res, err := a.Bets.Settle(r.Context(), userID(r), chi.URLParam(r, "id"), sr)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBet(res.Bet))
}

func (a *API) cancelBet(w http.ResponseWriter, r *http.Request) {
	res, err := a.Bets.Cancel(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CancelResponse{Message: "Bet cancelled and stake refunded", Balance: int64(res.Balance)})
}

func (a *API) adjust(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := a.Bets.Adjust(r.Context(), userID(r), domain.Money(req.Amount), domain.TransactionType(req.Type), req.Notes)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AdjustResponse{
		PreviousBalance: int64(res.PreviousBalance),
		ChangeAmount:    int64(res.Transaction.Amount),
		NewBalance:      int64(res.Balance),
		TransactionID:   res.TransactionID,
	})
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	q := r.URL.Query()
	from, err := parseTime(q.Get("from"))
	if err != nil {
		badRequest(w, "invalid from")
		return
	}
	to, err := parseTime(q.Get("to"))
	if err != nil {
		badRequest(w, "invalid to")
		return
	}

	txs, err := a.Stats.History(r.Context(), userID(r), domain.TransactionFilter{
		Type:        domain.TransactionType(q.Get("type")),
		From:        from,
		To:          to,
		NewestFirst: true,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactions(txs))
}

func (a *API) analytics(w http.ResponseWriter, r *http.Request) {
	period := 30
	if v := r.URL.Query().Get("period"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "invalid period")
			return
		}
		period = n
	}
	an, err := a.Stats.Analytics(r.Context(), userID(r), period)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAnalytics(an))
}

// quoteParlay cota um parlay sem tocar na banca. Pernas sem probabilidade usam o serviço de previsões.
func (a *API) quoteParlay(w http.ResponseWriter, r *http.Request) {
	var req dto.ParlayRequest
	if !decode(w, r, &req) {
		return
	}
	legs := fromLegs(req.Games)
	if err := parlay.ValidateLegs(legs); err != nil {
		a.writeError(w, r, err)
		return
	}
	legs, err := forecast.FillLegs(r.Context(), a.Forecast, legs)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	q, err := parlay.Quote(legs, domain.Money(req.Stake))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ParlayResponse{
		Legs:             toLegs(q.Legs),
		Stake:            int64(q.Stake),
		JointProbability: q.JointProbability.Round(6),
		CombinedDecimal:  q.CombinedDecimal.Round(4),
		CombinedOdds:     q.CombinedOdds,
		PotentialPayout:  int64(q.PotentialPayout),
		TotalReturn:      int64(q.Stake + q.PotentialPayout),
		ExpectedValue:    int64(q.ExpectedValue),
	})
}
