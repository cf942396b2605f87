package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/bets"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/dto"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/forecast"
	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/stats"
)

const (
	userHeader        = "X-User-ID"
	idempotencyHeader = "Idempotency-Key"
	maxBodyBytes      = 1 << 20
	defaultLimit      = 50
	maxLimit          = 500
)

// API expõe os endpoints REST da banca e das apostas
// A identidade chega no header X-User-ID, setado pelo gateway
type API struct {
	Log      *zap.Logger
	Bets     *bets.Service
	Stats    *stats.Service
	Forecast forecast.Source // pode ser nil: parlay exige probabilidade em todas as pernas
	WS       http.HandlerFunc

	CORSOrigins []string

	OnRequest func(route string, status int, d time.Duration) // métricas
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(a.instrument)

	origins := a.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", userHeader, idempotencyHeader},
		MaxAge:         300,
	}))

	r.Route("/bankroll", func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/", a.getBankroll)
		r.Post("/initialize", a.initialize)
		r.Post("/bet", a.placeBet)
		r.Get("/bets", a.listBets)
		r.Get("/bets/{id}", a.getBet)
		r.Put("/bets/{id}/settle", a.settleBet)
		r.Delete("/bets/{id}", a.cancelBet)
		r.Post("/adjust", a.adjust)
		r.Get("/history", a.history)
		r.Get("/analytics", a.analytics)
	})
	r.Post("/predictions/parlay", a.quoteParlay)

	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

// instrument mede latência e status por rota (padrão do chi, não a URL crua)
func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if a.OnRequest == nil {
			return
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		a.OnRequest(r.Method+" "+route, status, time.Since(start))
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(userHeader) == "" {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: dto.ErrorBody{Kind: "unauthorized", Message: userHeader + " header required"}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *http.Request) string { return r.Header.Get(userHeader) }

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor mapeia os erros de domínio para status HTTP
func statusFor(kind string) int {
	switch kind {
	case "not_found":
		return http.StatusNotFound
	case "insufficient_funds":
		return http.StatusPaymentRequired
	case "already_settled", "already_initialized":
		return http.StatusConflict
	case "internal":
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

// writeError responde {"error":{"kind","message"}}. Erros internos não vazam detalhes.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.Kind(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.Log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, status, dto.ErrorResponse{Error: dto.ErrorBody{Kind: kind, Message: msg}})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: dto.ErrorBody{Kind: "bad_request", Message: msg}})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, "bad json")
		return false
	}
	return true
}

// pagination lê limit/offset; limit é limitado a maxLimit
func pagination(r *http.Request) (limit, offset int, err error) {
	limit, offset = defaultLimit, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errors.New("invalid limit")
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("invalid offset")
		}
	}
	if limit == 0 || limit > maxLimit {
		limit = maxLimit
	}
	return limit, offset, nil
}

// parseTime aceita RFC3339 ou YYYY-MM-DD (UTC)
func parseTime(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
