package bot_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updownbot/internal/bot"
	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/portfolio"
	"github.com/alejandrodnm/updownbot/internal/ports"
	"github.com/alejandrodnm/updownbot/internal/signal"
)

// --- mocks ---

type mockMarketProvider struct {
	market domain.Market
	err    error
	calls  int
}

func (m *mockMarketProvider) FindActiveMarket(_ context.Context, _ time.Time) (domain.Market, error) {
	m.calls++
	return m.market, m.err
}

type mockBookProvider struct {
	books map[string]domain.OrderBook
	errs  map[string]error
}

func (m *mockBookProvider) FetchOrderBook(_ context.Context, tokenID string) (domain.OrderBook, error) {
	if err := m.errs[tokenID]; err != nil {
		return domain.OrderBook{}, err
	}
	b, ok := m.books[tokenID]
	if !ok {
		return domain.OrderBook{}, fmt.Errorf("no book for %s", tokenID)
	}
	return b, nil
}

type mockMomentum struct {
	snap domain.MomentumSnapshot
}

func (m *mockMomentum) Snapshot(_ context.Context, _ float64) domain.MomentumSnapshot {
	return m.snap
}

type mockStore struct {
	state      domain.PortfolioState
	loadErr    error
	trades     []domain.Trade
	savedState int
	capital    float64
}

func (m *mockStore) SaveTrade(_ context.Context, t *domain.Trade) error {
	m.trades = append(m.trades, *t)
	return nil
}

func (m *mockStore) SavePortfolioState(_ context.Context, capital, _ float64, _ []float64, _ int) error {
	m.savedState++
	m.capital = capital
	return nil
}

func (m *mockStore) LoadState(_ context.Context) (domain.PortfolioState, error) {
	return m.state, m.loadErr
}

func (m *mockStore) Close() error { return nil }

type mockPublisher struct {
	states []domain.DashboardState
}

func (m *mockPublisher) Publish(_ context.Context, s domain.DashboardState) error {
	m.states = append(m.states, s)
	return nil
}

type mockMetrics struct {
	signals      int
	entries      int
	liquidations []domain.Liquidation
	cycles       int
	degraded     [][]string
}

func (m *mockMetrics) ObserveSignal(domain.Signal)             { m.signals++ }
func (m *mockMetrics) ObserveEntry(*domain.Trade)              { m.entries++ }
func (m *mockMetrics) ObservePortfolio(domain.PortfolioStats)  {}
func (m *mockMetrics) ObserveLiquidation(l domain.Liquidation) { m.liquidations = append(m.liquidations, l) }
func (m *mockMetrics) ObserveCycle(_ float64, degraded []string) {
	m.cycles++
	m.degraded = append(m.degraded, degraded)
}

// --- helpers ---

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func makeMarket(id string, end time.Time) domain.Market {
	return domain.Market{
		ConditionID: id,
		Question:    "Solana Up or Down?",
		Slug:        "sol-updown-5m-1",
		EndDate:     end,
		Active:      true,
		Tokens: [2]domain.Token{
			{TokenID: "up", Outcome: "Up"},
			{TokenID: "down", Outcome: "Down"},
		},
	}
}

func book(id string, bid, ask float64) domain.OrderBook {
	return domain.OrderBook{
		TokenID: id,
		Bids:    []domain.BookEntry{{Price: bid, Size: 100}},
		Asks:    []domain.BookEntry{{Price: ask, Size: 100}},
	}
}

type fixture struct {
	clock     *clock
	markets   *mockMarketProvider
	books     *mockBookProvider
	store     *mockStore
	publisher *mockPublisher
	metrics   *mockMetrics
	manager   *portfolio.Manager
	bot       *bot.Bot
}

// newFixture tracks a market ending 30s after start, with UP favoured at
// 0.91 and DOWN priced in the underdog zone at 0.09.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:   &clock{now: start},
		markets: &mockMarketProvider{market: makeMarket("m1", start.Add(30*time.Second))},
		books: &mockBookProvider{
			books: map[string]domain.OrderBook{
				"up":   book("up", 0.90, 0.92),
				"down": book("down", 0.08, 0.10),
			},
			errs: map[string]error{},
		},
		store:     &mockStore{loadErr: domain.ErrNoSavedState},
		publisher: &mockPublisher{},
		metrics:   &mockMetrics{},
	}

	policy, err := portfolio.NewPolicy(portfolio.DefaultUnderdogConfig())
	require.NoError(t, err)
	f.manager = portfolio.New(portfolio.Config{
		InitialCapital: 100,
		Session:        "test",
		Clock:          f.clock.Now,
	}, policy)

	f.bot = bot.New(bot.Config{
		Interval:          time.Second,
		SearchBackoff:     10 * time.Second,
		ResolveBeforeSecs: 5,
		Clock:             f.clock.Now,
	}, bot.Deps{
		Markets:    f.markets,
		Books:      f.books,
		Store:      f.store,
		Publishers: []ports.Publisher{f.publisher},
		Metrics:    f.metrics,
		Engine:     signal.New(signal.DefaultConfig("sol")),
		Portfolio:  f.manager,
	})
	return f
}

// --- tests ---

func TestRunOnce_EntersUnderdogAndPersists(t *testing.T) {
	f := newFixture(t)

	state := f.bot.RunOnce(context.Background())

	assert.Equal(t, domain.StateLive, state.Status)
	require.NotNil(t, state.Market)
	require.NotNil(t, state.Signal)
	assert.InDelta(t, 0.91, state.Market.Prices.Up.Mark, 1e-9)
	assert.False(t, state.Market.Degraded)

	trade := f.manager.ActiveTrade()
	require.NotNil(t, trade)
	assert.Equal(t, domain.SideDown, trade.Direction)
	assert.Equal(t, "m1", trade.MarketID)
	assert.InDelta(t, 99.0, f.manager.Capital(), 1e-9)

	require.Len(t, f.store.trades, 1)
	assert.Equal(t, domain.StatusOpen, f.store.trades[0].Status)
	assert.Equal(t, 1, f.store.savedState)
	assert.Equal(t, 1, f.metrics.entries)
	assert.Equal(t, 1, f.metrics.signals)
	assert.Len(t, f.publisher.states, 1)
}

func TestRunOnce_ResolvesBeforeExpiry(t *testing.T) {
	f := newFixture(t)
	f.bot.RunOnce(context.Background())
	require.NotNil(t, f.manager.ActiveTrade())

	f.clock.now = start.Add(27 * time.Second)
	state := f.bot.RunOnce(context.Background())

	assert.Nil(t, f.manager.ActiveTrade())
	assert.Equal(t, 1, state.Portfolio.Losses)
	require.Len(t, f.metrics.liquidations, 1)
	assert.Equal(t, domain.ReasonExpire, f.metrics.liquidations[0].Reason)

	last := f.store.trades[len(f.store.trades)-1]
	assert.Equal(t, domain.StatusLoss, last.Status)
	assert.Less(t, f.store.capital, 100.0)
}

func TestRunOnce_ResolvesWithLastQuotesWhenUpBookFails(t *testing.T) {
	f := newFixture(t)
	f.bot.RunOnce(context.Background())
	require.NotNil(t, f.manager.ActiveTrade())

	f.books.errs["up"] = errors.New("timeout")
	f.clock.now = start.Add(27 * time.Second)
	state := f.bot.RunOnce(context.Background())

	assert.Nil(t, state.Signal)
	assert.Nil(t, f.manager.ActiveTrade())
	assert.Equal(t, 1, state.Portfolio.Losses)
}

func TestRunOnce_DownBookFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.books.errs["down"] = errors.New("boom")

	state := f.bot.RunOnce(context.Background())

	require.NotNil(t, state.Market)
	assert.True(t, state.Market.Degraded)
	assert.Nil(t, state.Market.Down)
	assert.InDelta(t, 0.08, state.Market.Prices.Down.Bid, 1e-9)
	assert.InDelta(t, 0.10, state.Market.Prices.Down.Ask, 1e-9)
	assert.Equal(t, [][]string{{bot.DegradedDownBook}}, f.metrics.degraded)
	assert.NotNil(t, f.manager.ActiveTrade())
}

func TestRunOnce_SpotUnavailableIsDegraded(t *testing.T) {
	f := newFixture(t)
	b := bot.New(bot.Config{Clock: f.clock.Now}, bot.Deps{
		Markets:   f.markets,
		Books:     f.books,
		Momentum:  &mockMomentum{snap: domain.MomentumSnapshot{Available: false, Symbol: "SOLUSDT"}},
		Metrics:   f.metrics,
		Engine:    signal.New(signal.DefaultConfig("sol")),
		Portfolio: f.manager,
	})

	state := b.RunOnce(context.Background())

	require.NotNil(t, state.Market)
	require.NotNil(t, state.Market.Momentum)
	assert.False(t, state.Signal.Fused)
	assert.Equal(t, [][]string{{bot.DegradedSpot}}, f.metrics.degraded)
}

func TestRunOnce_UpBookFailureSkipsTrading(t *testing.T) {
	f := newFixture(t)
	f.books.errs["up"] = errors.New("timeout")

	state := f.bot.RunOnce(context.Background())

	assert.Equal(t, domain.StateLive, state.Status)
	assert.Nil(t, state.Signal)
	assert.Nil(t, f.manager.ActiveTrade())
	assert.Empty(t, f.store.trades)
	assert.Len(t, f.publisher.states, 1)
}

func TestRunOnce_CrossedBookSkipsEntry(t *testing.T) {
	f := newFixture(t)
	f.books.books["down"] = book("down", 0.12, 0.08)

	state := f.bot.RunOnce(context.Background())

	require.NotNil(t, state.Signal)
	assert.Nil(t, f.manager.ActiveTrade())
}

func TestRunOnce_SearchBackoff(t *testing.T) {
	f := newFixture(t)
	f.markets.err = fmt.Errorf("polymarket: %w", domain.ErrNoActiveMarket)

	state := f.bot.RunOnce(context.Background())
	assert.Equal(t, domain.StateSearching, state.Status)
	assert.Nil(t, state.Market)
	assert.Equal(t, 1, f.markets.calls)

	f.clock.now = start.Add(5 * time.Second)
	f.bot.RunOnce(context.Background())
	assert.Equal(t, 1, f.markets.calls, "no search inside the back-off")

	f.markets.err = nil
	f.clock.now = start.Add(11 * time.Second)
	state = f.bot.RunOnce(context.Background())
	assert.Equal(t, 2, f.markets.calls)
	assert.Equal(t, domain.StateLive, state.Status)
}

func TestRunOnce_DropsExpiredMarket(t *testing.T) {
	f := newFixture(t)
	f.bot.RunOnce(context.Background())

	f.clock.now = start.Add(31 * time.Second)
	f.bot.RunOnce(context.Background())
	assert.Equal(t, 1, f.markets.calls)

	f.markets.market = makeMarket("m2", start.Add(331*time.Second))
	state := f.bot.RunOnce(context.Background())
	assert.Equal(t, 2, f.markets.calls)
	require.NotNil(t, state.Market)
	assert.Equal(t, "m2", state.Market.ConditionID)
}

func TestRestore_CancelsTradeFromAnotherMarket(t *testing.T) {
	f := newFixture(t)
	open, ok := domain.NewTrade(domain.TradeParams{
		ID:          7,
		Session:     "old",
		MarketID:    "stale",
		Direction:   domain.SideUp,
		Price:       0.10,
		BetSize:     1,
		FeeRate:     domain.DefaultFeeRate,
		SecsAtEntry: 40,
		At:          start.Add(-10 * time.Minute),
	})
	require.True(t, ok)
	f.store.loadErr = nil
	f.store.state = domain.PortfolioState{
		Capital:        49,
		InitialCapital: 50,
		TradeCounter:   7,
		OpenTrade:      open,
	}
	// Out of the entry zone so the cycle cannot reopen.
	f.books.books["down"] = book("down", 0.30, 0.32)
	f.books.books["up"] = book("up", 0.68, 0.70)

	f.bot.Restore(context.Background())
	require.NotNil(t, f.manager.ActiveTrade())

	f.bot.RunOnce(context.Background())

	assert.Nil(t, f.manager.ActiveTrade())
	assert.InDelta(t, 50.0, f.manager.Capital(), 1e-9)
	require.NotEmpty(t, f.store.trades)
	assert.Equal(t, domain.StatusCancelled, f.store.trades[0].Status)
	assert.Equal(t, 7, f.store.trades[0].ID)
}

func TestRestore_NoSavedStateKeepsFreshLedger(t *testing.T) {
	f := newFixture(t)
	f.bot.Restore(context.Background())
	assert.InDelta(t, 100.0, f.manager.Capital(), 1e-9)
	assert.Equal(t, 0, f.manager.TradeCounter())
}

func TestRun_StopsOnCancelAndPublishesStopped(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.bot.Run(ctx))

	require.GreaterOrEqual(t, len(f.publisher.states), 2)
	assert.Equal(t, domain.StateStopped, f.publisher.states[len(f.publisher.states)-1].Status)
	assert.GreaterOrEqual(t, f.store.savedState, 1)
}
