package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/sports-bankroll-ledger/internal/bankroll-service/domain"
)

// Prediction é a previsão de um jogo vinda do serviço de ML (somente leitura).
type Prediction struct {
	GameID              string          `json:"gameId"`
	PredictedWinner     string          `json:"predictedWinner"`
	HomeWinProbability  decimal.Decimal `json:"homeWinProbability"`
	Confidence          decimal.Decimal `json:"confidence"`
	SpreadPrediction    decimal.Decimal `json:"spreadPrediction"`
	OverUnderPrediction decimal.Decimal `json:"overUnderPrediction"`
}

// Source devolve a previsão de um jogo.
type Source interface {
	Prediction(ctx context.Context, gameID string) (Prediction, error)
}

// Client chama GET {BaseURL}/api/predictions/game/{gameId}
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(base string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(base, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Prediction(ctx context.Context, gameID string) (Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/predictions/game/"+url.PathEscape(gameID), nil)
	if err != nil {
		return Prediction{}, err
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return Prediction{}, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return Prediction{}, fmt.Errorf("prediction for game %s: %w", gameID, domain.ErrNotFound)
	}
	if res.StatusCode >= 300 {
		return Prediction{}, fmt.Errorf("forecast http %d", res.StatusCode)
	}
	var out Prediction
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	if out.GameID == "" {
		out.GameID = gameID
	}
	return out, nil
}

// LegProbability traduz a previsão para a seleção da perna: "home" usa p, "away" usa 1-p.
func LegProbability(p Prediction, selection string) (decimal.Decimal, error) {
	switch strings.ToLower(strings.TrimSpace(selection)) {
	case "home":
		return p.HomeWinProbability, nil
	case "away":
		return decimal.NewFromInt(1).Sub(p.HomeWinProbability), nil
	}
	return decimal.Zero, fmt.Errorf("no forecast for selection %q: %w", selection, domain.ErrInvalidProbability)
}

// FillLegs completa as pernas sem probabilidade consultando a fonte. Não altera o slice de entrada.
func FillLegs(ctx context.Context, src Source, legs []domain.Leg) ([]domain.Leg, error) {
	out := make([]domain.Leg, len(legs))
	copy(out, legs)
	for i, l := range out {
		if !l.Probability.IsZero() {
			continue
		}
		if src == nil {
			return nil, fmt.Errorf("leg %d without probability: %w", i, domain.ErrInvalidProbability)
		}
		pred, err := src.Prediction(ctx, l.GameID)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		p, err := LegProbability(pred, l.Selection)
		if err != nil {
			return nil, fmt.Errorf("leg %d: %w", i, err)
		}
		out[i].Probability = p
	}
	return out, nil
}
