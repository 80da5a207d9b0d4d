// Package portfolio owns the capital ledger and drives the single open trade
// through its lifecycle according to a pluggable Policy.
package portfolio

import (
	"log/slog"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

const (
	// DefaultInitialCapital is used when no valid state can be restored.
	DefaultInitialCapital = 100.0

	recentTradesLen = 10
	pnlHistoryLen   = 50
)

// Config holds the ledger settings that do not belong to a policy.
type Config struct {
	InitialCapital float64
	Session        string
	Clock          func() time.Time
}

// Depth carries the full books so entries can be depth-walked.
type Depth struct {
	Up   domain.OrderBook
	Down domain.OrderBook
}

func (d *Depth) book(s domain.Side) domain.OrderBook {
	if s == domain.SideDown {
		return d.Down
	}
	return d.Up
}

// Manager is the single source of truth for capital and the open trade.
// It is not safe for concurrent use; one goroutine must own it.
type Manager struct {
	cfg    Config
	policy Policy

	capital        float64
	initialCapital float64
	active         *domain.Trade
	closed         []domain.Trade
	pnlHistory     []float64
	counter        int

	marketID string
	question string
}

// New creates a Manager with a fresh ledger.
func New(cfg Config, policy Policy) *Manager {
	if cfg.InitialCapital <= 0 {
		cfg.InitialCapital = DefaultInitialCapital
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Manager{
		cfg:            cfg,
		policy:         policy,
		capital:        cfg.InitialCapital,
		initialCapital: cfg.InitialCapital,
	}
}

// Restore replaces the ledger with a persisted state. Invalid state is
// ignored and the fresh ledger kept; the return value reports which happened.
func (m *Manager) Restore(s domain.PortfolioState) bool {
	if !s.Valid() {
		slog.Warn("portfolio: malformed saved state, starting fresh",
			"capital", s.Capital, "initial", s.InitialCapital, "counter", s.TradeCounter)
		return false
	}
	m.capital = s.Capital
	m.initialCapital = s.InitialCapital
	m.counter = s.TradeCounter
	m.pnlHistory = append([]float64(nil), s.PnLHistory...)
	m.closed = append([]domain.Trade(nil), s.ClosedTrades...)
	m.active = nil
	if s.OpenTrade != nil && s.OpenTrade.IsOpen() {
		t := copyTrade(*s.OpenTrade)
		m.active = &t
		if t.ID > m.counter {
			m.counter = t.ID
		}
	}
	return true
}

// Policy returns the active policy.
func (m *Manager) Policy() Policy { return m.policy }

// Capital returns the uncommitted capital.
func (m *Manager) Capital() float64 { return m.capital }

// InitialCapital returns the reporting baseline.
func (m *Manager) InitialCapital() float64 { return m.initialCapital }

// TradeCounter returns the last trade ID handed out.
func (m *Manager) TradeCounter() int { return m.counter }

// PnLHistory returns a copy of the cumulative P&L series.
func (m *Manager) PnLHistory() []float64 { return append([]float64(nil), m.pnlHistory...) }

// ActiveTrade returns the open trade, or nil. Callers must not mutate it.
func (m *Manager) ActiveTrade() *domain.Trade { return m.active }

// ConsiderEntry opens a trade when nothing is open, capital allows it, the
// time remaining is known and the policy accepts the setup.
func (m *Manager) ConsiderEntry(sig domain.Signal, prices domain.Prices, secsLeft *float64, depth *Depth) bool {
	cfg := m.policy.Config()
	if m.active != nil || secsLeft == nil {
		return false
	}
	if m.capital < cfg.MinCapital || m.capital <= 0 {
		return false
	}
	if !prices.Tradable() {
		return false
	}

	plan, ok := m.policy.ConsiderEntry(EntryContext{
		Signal:   sig,
		Prices:   prices,
		SecsLeft: *secsLeft,
		Capital:  m.capital,
	})
	if !ok || plan.BetSize <= 0 || plan.BetSize > m.capital {
		return false
	}

	var fill *domain.Fill
	if depth != nil && cfg.PriceSource != PriceMark {
		if f, ok := depth.book(plan.Direction).WalkAsks(plan.BetSize); ok {
			// the zone bounds the price actually paid, not just the touch
			if !cfg.inZone(f.AvgPrice) {
				slog.Debug("portfolio: depth-walked fill outside entry zone",
					"direction", plan.Direction, "touch", plan.Price, "avg", f.AvgPrice)
				return false
			}
			fill = &f
		}
	}

	trade, ok := domain.NewTrade(domain.TradeParams{
		ID:              m.counter + 1,
		Session:         m.cfg.Session,
		MarketID:        m.marketID,
		Question:        m.question,
		Direction:       plan.Direction,
		Price:           plan.Price,
		BetSize:         plan.BetSize,
		Fill:            fill,
		FeeRate:         cfg.FeeRate,
		StopLoss:        cfg.StopLoss,
		TrailActivation: cfg.TrailActivation,
		TrailDistance:   cfg.TrailDistance,
		Stages:          cfg.Stages,
		SecsAtEntry:     *secsLeft,
		At:              m.cfg.Clock(),
	})
	if !ok {
		return false
	}

	m.counter++
	m.capital -= plan.BetSize
	m.active = trade

	slog.Info("portfolio: trade opened",
		"id", trade.ID,
		"policy", m.policy.Name(),
		"direction", trade.Direction,
		"price", trade.EntryPrice,
		"shares", trade.Shares,
		"bet", trade.BetSize,
		"secs_left", *secsLeft,
	)
	return true
}

// SetMarket sets the market new trades are opened on.
func (m *Manager) SetMarket(id, question string) {
	m.marketID, m.question = id, question
}

// CheckExits ratchets the trailing stop and asks the policy for at most one
// exit reason.
func (m *Manager) CheckExits(sig domain.Signal, prices domain.Prices, secsLeft *float64) (domain.ExitDecision, bool) {
	if m.active == nil {
		return domain.ExitDecision{}, false
	}
	if !prices.Tradable() {
		m.SkipCycle()
		return domain.ExitDecision{}, false
	}
	price := prices.For(m.active.Direction).SellPrice()
	if m.active.UpdateTrailing(price) {
		slog.Debug("portfolio: stop raised", "id", m.active.ID, "stop", m.active.StopPrice)
	}
	return m.policy.CheckExits(m.active, ExitContext{Signal: sig, Prices: prices, SecsLeft: secsLeft})
}

// SkipCycle records a cycle in which the open trade was not evaluated, so
// per-cycle counters in the policy restart.
func (m *Manager) SkipCycle() {
	if m.active == nil {
		return
	}
	if s, ok := m.policy.(cycleSkipper); ok {
		s.SkipCycle()
	}
}

// ExecuteExit applies a decision from CheckExits at the prevailing sell price.
func (m *Manager) ExecuteExit(d domain.ExitDecision, prices domain.Prices) (domain.Liquidation, bool) {
	if m.active == nil {
		return domain.Liquidation{}, false
	}
	price := prices.For(m.active.Direction).SellPrice()
	if d.Partial() {
		return m.ExecuteStage(d.Stage, price)
	}
	return m.CloseActive(price, d.Reason)
}

// ExecuteStage sells stage k of the open trade.
func (m *Manager) ExecuteStage(k int, price float64) (domain.Liquidation, bool) {
	if m.active == nil {
		return domain.Liquidation{}, false
	}
	liq, ok := m.active.ExecuteStage(k, price, m.cfg.Clock())
	if ok {
		m.settle(liq)
	}
	return liq, ok
}

// CloseActive liquidates the rest of the open trade at price.
func (m *Manager) CloseActive(price float64, reason domain.ExitReason) (domain.Liquidation, bool) {
	if m.active == nil {
		return domain.Liquidation{}, false
	}
	liq, ok := m.active.CloseMarket(price, reason, m.cfg.Clock())
	if ok {
		m.settle(liq)
	}
	return liq, ok
}

// ResolveActive settles the open trade on the market outcome.
func (m *Manager) ResolveActive(upWon bool) (domain.Liquidation, bool) {
	if m.active == nil {
		return domain.Liquidation{}, false
	}
	won := (m.active.Direction == domain.SideUp) == upWon
	liq, ok := m.active.Resolve(won, m.cfg.Clock())
	if ok {
		m.settle(liq)
	}
	return liq, ok
}

// CancelActiveTrade voids the open trade and returns its remaining
// committed capital.
func (m *Manager) CancelActiveTrade() (domain.Liquidation, bool) {
	if m.active == nil {
		return domain.Liquidation{}, false
	}
	liq, ok := m.active.Cancel(m.cfg.Clock())
	if ok {
		m.settle(liq)
	}
	return liq, ok
}

// settle credits exactly the liquidated tranche and archives the trade once
// it leaves OPEN.
func (m *Manager) settle(liq domain.Liquidation) {
	m.capital += liq.Credit()

	t := m.active
	slog.Info("portfolio: liquidation",
		"id", t.ID,
		"reason", liq.Reason,
		"shares", liq.Shares,
		"price", liq.Price,
		"pnl", liq.PnL,
		"capital", m.capital,
	)
	if t.IsOpen() {
		return
	}

	var total float64
	if n := len(m.pnlHistory); n > 0 {
		total = m.pnlHistory[n-1]
	}
	m.pnlHistory = append(m.pnlHistory, total+t.RealizedPnL)
	m.closed = append(m.closed, copyTrade(*t))
	m.active = nil

	slog.Info("portfolio: trade closed",
		"id", t.ID,
		"status", t.Status,
		"reason", t.ExitReason,
		"pnl", t.RealizedPnL,
	)
}

func copyTrade(t domain.Trade) domain.Trade {
	t.Stages = append([]domain.StageExit(nil), t.Stages...)
	return t
}
