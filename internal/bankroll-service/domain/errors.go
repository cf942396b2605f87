package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyInitialized = errors.New("bankroll already initialized")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrAlreadySettled     = errors.New("bet already settled")
	ErrInvalidOdds        = errors.New("invalid american odds")
	ErrInvalidStake       = errors.New("invalid stake")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidProbability = errors.New("invalid probability")
	ErrInvalidBet         = errors.New("invalid bet")
	ErrInsufficientLegs   = errors.New("at least two legs required")
	ErrTooFewLegs         = errors.New("too few parlay legs")
	ErrTooManyLegs        = errors.New("too many parlay legs")
)

// Kind devolve um identificador estável do erro, usado em respostas HTTP e labels de métrica.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrAlreadySettled):
		return "already_settled"
	case errors.Is(err, ErrInvalidOdds):
		return "invalid_odds"
	case errors.Is(err, ErrInvalidStake):
		return "invalid_stake"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInvalidProbability):
		return "invalid_probability"
	case errors.Is(err, ErrInsufficientLegs), errors.Is(err, ErrTooFewLegs):
		return "too_few_legs"
	case errors.Is(err, ErrTooManyLegs):
		return "too_many_legs"
	case errors.Is(err, ErrInvalidBet):
		return "invalid_bet"
	}
	return "internal"
}
