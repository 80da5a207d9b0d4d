package ports

import (
	"context"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Publisher presenta el estado de cada ciclo (consola, dashboard).
type Publisher interface {
	Publish(ctx context.Context, state domain.DashboardState) error
}

// MetricsRecorder registra métricas operativas del bot.
type MetricsRecorder interface {
	ObserveSignal(sig domain.Signal)
	ObserveEntry(t *domain.Trade)
	ObserveLiquidation(liq domain.Liquidation)
	ObservePortfolio(stats domain.PortfolioStats)
	ObserveCycle(seconds float64, degraded []string)
}
