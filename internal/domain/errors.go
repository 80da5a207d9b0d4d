package domain

import "errors"

var (
	// ErrNoActiveMarket indica que ningún slot cercano tiene un mercado abierto.
	ErrNoActiveMarket = errors.New("no active market")

	// ErrNoSavedState indica que todavía no hay estado persistido.
	ErrNoSavedState = errors.New("no saved portfolio state")

	// ErrMalformedState indica que el estado persistido no es utilizable.
	ErrMalformedState = errors.New("malformed portfolio state")
)
