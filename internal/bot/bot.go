// Package bot drives the per-cycle loop: find the live market, read both
// books, evaluate the signal, manage the single open trade and publish the
// resulting state.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/portfolio"
	"github.com/alejandrodnm/updownbot/internal/ports"
	"github.com/alejandrodnm/updownbot/internal/signal"
)

// Degraded kinds reported to the metrics recorder.
const (
	DegradedDownBook = "down_book"
	DegradedSpot     = "spot"
)

// Config contiene la configuración del loop.
type Config struct {
	Interval          time.Duration
	SearchBackoff     time.Duration
	ResolveBeforeSecs float64
	BookDepth         int
	Clock             func() time.Time
}

// DefaultConfig devuelve la configuración de producción.
func DefaultConfig() Config {
	return Config{
		Interval:          2 * time.Second,
		SearchBackoff:     10 * time.Second,
		ResolveBeforeSecs: 5,
		BookDepth:         domain.DefaultBookDepth,
	}
}

// MomentumSource yields the spot momentum reading for one cycle.
type MomentumSource interface {
	Snapshot(ctx context.Context, upPrice float64) domain.MomentumSnapshot
}

// Deps are the collaborators of the loop. Momentum, Store and Metrics are
// optional.
type Deps struct {
	Markets    ports.MarketProvider
	Books      ports.BookProvider
	Momentum   MomentumSource
	Store      ports.StateStore
	Publishers []ports.Publisher
	Metrics    ports.MetricsRecorder
	Engine     *signal.Engine
	Portfolio  *portfolio.Manager
}

// Bot owns the Engine and the Manager; neither is touched by any other
// goroutine while Run is active.
type Bot struct {
	cfg  Config
	deps Deps

	market       *domain.Market
	lastMarketID string
	nextSearch   time.Time
	lastPrices   *domain.Prices
}

// New crea un Bot con todas las dependencias inyectadas.
func New(cfg Config, deps Deps) *Bot {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.SearchBackoff <= 0 {
		cfg.SearchBackoff = def.SearchBackoff
	}
	if cfg.ResolveBeforeSecs <= 0 {
		cfg.ResolveBeforeSecs = def.ResolveBeforeSecs
	}
	if cfg.BookDepth <= 0 {
		cfg.BookDepth = def.BookDepth
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Bot{cfg: cfg, deps: deps}
}

// Restore loads the persisted ledger. A missing or malformed state leaves the
// fresh ledger in place.
func (b *Bot) Restore(ctx context.Context) {
	if b.deps.Store == nil {
		return
	}
	st, err := b.deps.Store.LoadState(ctx)
	switch {
	case errors.Is(err, domain.ErrNoSavedState):
		slog.Info("no saved state, starting fresh", "capital", b.deps.Portfolio.Capital())
		return
	case err != nil:
		slog.Warn("could not load saved state, starting fresh", "err", err)
		return
	}
	if b.deps.Portfolio.Restore(st) {
		slog.Info("state restored",
			"capital", st.Capital,
			"trades", st.TradeCounter,
			"open", st.OpenTrade != nil,
		)
	}
}

// Run ejecuta el loop hasta que el contexto se cancele. El primer ciclo corre
// inmediatamente.
func (b *Bot) Run(ctx context.Context) error {
	slog.Info("bot starting",
		"interval", b.cfg.Interval,
		"policy", b.deps.Portfolio.Policy().Name(),
	)
	b.Restore(ctx)
	b.runCycle(ctx)

	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.shutdown()
			slog.Info("bot stopped")
			return nil
		case <-ticker.C:
			b.runCycle(ctx)
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve el estado publicado.
func (b *Bot) RunOnce(ctx context.Context) domain.DashboardState {
	return b.runCycle(ctx)
}

// Stats returns the ledger summary marked at the last valid prices.
func (b *Bot) Stats() domain.PortfolioStats {
	return b.deps.Portfolio.Stats(b.lastPrices)
}

// runCycle never fails; every error is logged and the cycle degrades.
func (b *Bot) runCycle(ctx context.Context) domain.DashboardState {
	start := time.Now()
	now := b.cfg.Clock()

	state := domain.DashboardState{Status: domain.StateSearching, Timestamp: now}
	var degraded []string

	if b.ensureMarket(ctx, now) {
		view, sig, kinds := b.trade(ctx, now)
		degraded = kinds
		state.Status = domain.StateLive
		state.Market = view
		state.Signal = sig
	}

	state.Portfolio = b.deps.Portfolio.Stats(b.lastPrices)
	b.publish(ctx, state)

	if m := b.deps.Metrics; m != nil {
		m.ObservePortfolio(state.Portfolio)
		if state.Signal != nil {
			m.ObserveSignal(*state.Signal)
		}
		m.ObserveCycle(time.Since(start).Seconds(), degraded)
	}

	slog.Debug("cycle complete",
		"status", state.Status,
		"degraded", degraded,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return state
}

// ensureMarket reports whether a market is being tracked after the call.
func (b *Bot) ensureMarket(ctx context.Context, now time.Time) bool {
	if b.market != nil {
		return true
	}
	if now.Before(b.nextSearch) {
		return false
	}

	m, err := b.deps.Markets.FindActiveMarket(ctx, now)
	if err != nil {
		if errors.Is(err, domain.ErrNoActiveMarket) {
			slog.Info("no active market, retrying later", "backoff", b.cfg.SearchBackoff)
		} else {
			slog.Warn("market discovery failed", "err", err, "backoff", b.cfg.SearchBackoff)
		}
		b.nextSearch = now.Add(b.cfg.SearchBackoff)
		return false
	}

	b.market = &m
	b.lastPrices = nil
	if m.ConditionID != b.lastMarketID {
		b.lastMarketID = m.ConditionID
		b.deps.Engine.Reset()
		b.deps.Portfolio.SetMarket(m.ConditionID, m.Question)
		slog.Info("tracking market", "question", m.Question, "slug", m.Slug, "end", m.EndDate)

		if t := b.deps.Portfolio.ActiveTrade(); t != nil && t.MarketID != m.ConditionID {
			if liq, ok := b.deps.Portfolio.CancelActiveTrade(); ok {
				slog.Warn("cancelled trade from a previous market", "id", t.ID, "market", t.MarketID)
				b.recordLiquidation(ctx, t, liq)
			}
		}
	}
	return true
}

// trade runs the market half of the cycle. It returns the view published to
// the dashboard, the signal (nil when the UP book was unavailable) and the
// degraded kinds.
func (b *Bot) trade(ctx context.Context, now time.Time) (*domain.MarketView, *domain.Signal, []string) {
	m := *b.market
	secsLeft := m.SecondsRemaining(now)

	view := &domain.MarketView{
		ConditionID: m.ConditionID,
		Question:    m.Question,
		Slug:        m.Slug,
		SecsLeft:    secsLeft,
	}

	var (
		sig      *domain.Signal
		degraded []string
	)

	upBook, err := b.deps.Books.FetchOrderBook(ctx, m.UpToken().TokenID)
	if err != nil {
		slog.Warn("up book unavailable, skipping cycle", "err", err)
		b.deps.Portfolio.SkipCycle()
	} else {
		s, prices, depth, kinds := b.evaluate(ctx, m, upBook, view)
		sig, degraded = &s, kinds
		b.lastPrices = &prices
		if prices.Tradable() {
			b.manage(ctx, s, prices, secsLeft, depth)
		} else {
			slog.Debug("book not tradable, skipping entry and exits",
				"up_bid", prices.Up.Bid, "up_ask", prices.Up.Ask)
			b.deps.Portfolio.SkipCycle()
		}
	}

	if b.lastPrices != nil {
		view.Prices = *b.lastPrices
	}
	b.resolve(ctx, secsLeft)

	if secsLeft != nil && *secsLeft <= 0 {
		slog.Info("market expired", "question", m.Question)
		b.market = nil
	}
	return view, sig, degraded
}

func (b *Bot) evaluate(ctx context.Context, m domain.Market, upBook domain.OrderBook, view *domain.MarketView) (domain.Signal, domain.Prices, *portfolio.Depth, []string) {
	var degraded []string

	upMetrics := domain.ComputeBookMetrics(upBook, b.cfg.BookDepth)
	prices := domain.Prices{Up: domain.QuoteFromMetrics(upMetrics)}
	view.Up = upMetrics

	var downMetrics *domain.BookMetrics
	depth := &portfolio.Depth{Up: upBook}

	downBook, err := b.deps.Books.FetchOrderBook(ctx, m.DownToken().TokenID)
	if err != nil {
		slog.Warn("down book unavailable, using complement", "err", err)
		degraded = append(degraded, DegradedDownBook)
		prices.Down = prices.Up.Complement()
		view.Degraded = true
		depth = nil
	} else {
		dm := domain.ComputeBookMetrics(downBook, b.cfg.BookDepth)
		downMetrics = &dm
		prices.Down = domain.QuoteFromMetrics(dm)
		view.Down = downMetrics
		depth.Down = downBook
	}

	var mom *domain.MomentumSnapshot
	if b.deps.Momentum != nil {
		snap := b.deps.Momentum.Snapshot(ctx, prices.Up.Mark)
		if !snap.Available {
			degraded = append(degraded, DegradedSpot)
		}
		mom = &snap
		view.Momentum = mom
	}

	sig := b.deps.Engine.Evaluate(signal.Input{
		CombinedOBI: domain.CombineImbalance(upMetrics, downMetrics),
		Up:          upMetrics,
		Down:        downMetrics,
		Momentum:    mom,
	})
	return sig, prices, depth, degraded
}

// manage checks exits first and executes at most one. Entry is only
// considered on a cycle with no exit.
func (b *Bot) manage(ctx context.Context, sig domain.Signal, prices domain.Prices, secsLeft *float64, depth *portfolio.Depth) {
	pm := b.deps.Portfolio

	if t := pm.ActiveTrade(); t != nil {
		d, ok := pm.CheckExits(sig, prices, secsLeft)
		if !ok {
			return
		}
		if liq, ok := pm.ExecuteExit(d, prices); ok {
			b.recordLiquidation(ctx, t, liq)
		}
		return
	}

	if pm.ConsiderEntry(sig, prices, secsLeft, depth) {
		t := pm.ActiveTrade()
		if b.deps.Metrics != nil {
			b.deps.Metrics.ObserveEntry(t)
		}
		b.persist(ctx, t)
	}
}

func (b *Bot) resolve(ctx context.Context, secsLeft *float64) {
	t := b.deps.Portfolio.ActiveTrade()
	if t == nil || secsLeft == nil || *secsLeft >= b.cfg.ResolveBeforeSecs || b.lastPrices == nil {
		return
	}
	upWon := b.lastPrices.Up.Mark > 0.5
	if liq, ok := b.deps.Portfolio.ResolveActive(upWon); ok {
		slog.Info("market resolved", "id", t.ID, "up_won", upWon, "status", t.Status, "pnl", t.RealizedPnL)
		b.recordLiquidation(ctx, t, liq)
	}
}

// recordLiquidation takes the trade pointer captured before the liquidation;
// the Manager has already archived it when the trade closed.
func (b *Bot) recordLiquidation(ctx context.Context, t *domain.Trade, liq domain.Liquidation) {
	if b.deps.Metrics != nil {
		b.deps.Metrics.ObserveLiquidation(liq)
	}
	b.persist(ctx, t)
}

func (b *Bot) persist(ctx context.Context, t *domain.Trade) {
	if b.deps.Store == nil {
		return
	}
	if t != nil {
		if err := b.deps.Store.SaveTrade(ctx, t); err != nil {
			slog.Warn("storage error", "op", "save_trade", "id", t.ID, "err", err)
		}
	}
	b.savePortfolio(ctx)
}

func (b *Bot) savePortfolio(ctx context.Context) {
	pm := b.deps.Portfolio
	if err := b.deps.Store.SavePortfolioState(ctx, pm.Capital(), pm.InitialCapital(), pm.PnLHistory(), pm.TradeCounter()); err != nil {
		slog.Warn("storage error", "op", "save_portfolio", "err", err)
	}
}

func (b *Bot) publish(ctx context.Context, state domain.DashboardState) {
	for _, p := range b.deps.Publishers {
		if err := p.Publish(ctx, state); err != nil {
			slog.Warn("publisher error", "err", err)
		}
	}
}

// shutdown saves the ledger and publishes a final stopped state. It runs
// after ctx is cancelled, so it uses a short detached context.
func (b *Bot) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if b.deps.Store != nil {
		b.savePortfolio(ctx)
	}
	b.publish(ctx, domain.DashboardState{
		Status:    domain.StateStopped,
		Timestamp: b.cfg.Clock(),
		Portfolio: b.deps.Portfolio.Stats(b.lastPrices),
	})
}
