package domain

import "time"

// PortfolioState is the persisted ledger restored once at startup.
type PortfolioState struct {
	Capital        float64
	InitialCapital float64
	PnLHistory     []float64
	TradeCounter   int
	ClosedTrades   []Trade
	OpenTrade      *Trade
}

// Valid reports whether the restored numbers are usable.
func (s PortfolioState) Valid() bool {
	return s.InitialCapital > 0 && s.Capital >= 0 && s.TradeCounter >= 0
}

// MarketView is the dashboard summary of the active market.
type MarketView struct {
	ConditionID string            `json:"condition_id"`
	Question    string            `json:"question"`
	Slug        string            `json:"slug"`
	SecsLeft    *float64          `json:"secs_left"`
	Prices      Prices            `json:"prices"`
	Up          BookMetrics       `json:"up"`
	Down        *BookMetrics      `json:"down,omitempty"`
	Degraded    bool              `json:"degraded"`
	Momentum    *MomentumSnapshot `json:"momentum,omitempty"`
}

// Status values carried by DashboardState.
const (
	StateSearching = "searching"
	StateLive      = "live"
	StateStopped   = "stopped"
)

// DashboardState is the envelope pushed to dashboard clients every cycle.
type DashboardState struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Market    *MarketView    `json:"market,omitempty"`
	Signal    *Signal        `json:"signal,omitempty"`
	Portfolio PortfolioStats `json:"portfolio"`
}

// PortfolioStats is a read-only reporting snapshot of the ledger.
type PortfolioStats struct {
	Policy         string             `json:"policy"`
	Capital        float64            `json:"capital"`
	InitialCapital float64            `json:"initial_capital"`
	Committed      float64            `json:"committed"`
	Equity         float64            `json:"equity"`
	RealizedPnL    float64            `json:"realized_pnl"`
	UnrealizedPnL  float64            `json:"unrealized_pnl"`
	ReturnPct      float64            `json:"return_pct"`
	Trades         int                `json:"trades"`
	Wins           int                `json:"wins"`
	Losses         int                `json:"losses"`
	Cancelled      int                `json:"cancelled"`
	WinRate        float64            `json:"win_rate"`
	ExitCounts     map[ExitReason]int `json:"exit_counts"`
	OpenTrade      *Trade             `json:"open_trade,omitempty"`
	RecentTrades   []Trade            `json:"recent_trades"`
	PnLHistory     []float64          `json:"pnl_history"`
}
