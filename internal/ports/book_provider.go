package ports

import (
	"context"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// BookProvider obtiene orderbooks del CLOB.
type BookProvider interface {
	// FetchOrderBook devuelve el book de un token, bids desc y asks asc.
	FetchOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
}

// SpotPriceProvider obtiene el precio spot del activo subyacente.
type SpotPriceProvider interface {
	FetchSpotPrice(ctx context.Context, symbol string) (float64, error)
}
