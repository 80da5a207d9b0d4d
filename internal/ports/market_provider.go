package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// MarketProvider descubre el mercado "Up or Down" activo para un instante.
type MarketProvider interface {
	// FindActiveMarket devuelve el mercado cuyo slot de 5 minutos contiene now,
	// o domain.ErrNoActiveMarket si ninguno está abierto.
	FindActiveMarket(ctx context.Context, now time.Time) (domain.Market, error)
}
