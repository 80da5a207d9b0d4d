package ports

import (
	"context"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// StateStore persiste trades y el estado del portfolio entre reinicios.
type StateStore interface {
	// SaveTrade hace upsert del trade por ID.
	SaveTrade(ctx context.Context, t *domain.Trade) error

	// SavePortfolioState guarda la fila única del ledger.
	SavePortfolioState(ctx context.Context, capital, initialCapital float64, pnlHistory []float64, tradeCounter int) error

	// LoadState restaura el ledger. Devuelve domain.ErrMalformedState si los
	// datos guardados no son utilizables.
	LoadState(ctx context.Context) (domain.PortfolioState, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
