package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/updownbot/internal/adapters/notify"
	"github.com/alejandrodnm/updownbot/internal/domain"
)

func liveState() domain.DashboardState {
	secs := 142.0
	down := domain.BookMetrics{
		OBI:     -0.2,
		TopBids: []domain.BookEntry{{Price: 0.46, Size: 30}},
		TopAsks: []domain.BookEntry{{Price: 0.48, Size: 20}},
	}
	return domain.DashboardState{
		Status:    domain.StateLive,
		Timestamp: time.Date(2026, 2, 22, 17, 2, 38, 0, time.UTC),
		Market: &domain.MarketView{
			ConditionID: "0xcond",
			Question:    "Solana Up or Down",
			SecsLeft:    &secs,
			Prices: domain.Prices{
				Up:   domain.Quote{Mark: 0.53, Bid: 0.52, Ask: 0.54},
				Down: domain.Quote{Mark: 0.47, Bid: 0.46, Ask: 0.48},
			},
			Up: domain.BookMetrics{
				OBI:       0.2,
				SpreadPct: 0.037,
				TopBids:   []domain.BookEntry{{Price: 0.52, Size: 120}, {Price: 0.51, Size: 40}},
				TopAsks:   []domain.BookEntry{{Price: 0.54, Size: 60}},
			},
			Down: &down,
		},
		Signal: &domain.Signal{Label: domain.LabelUp, Confidence: 71, Score: 0.21, Confirmed: true},
		Portfolio: domain.PortfolioStats{
			Capital: 98,
			Equity:  100.12,
			OpenTrade: &domain.Trade{
				ID:         3,
				Direction:  domain.SideUp,
				EntryPrice: 0.54,
				StopPrice:  0.405,
				Status:     domain.StatusOpen,
			},
		},
	}
}

func TestConsole_Publish_Compact(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	require.NoError(t, c.Publish(context.Background(), liveState()))

	out := buf.String()
	assert.Contains(t, out, "[17:02:38]")
	assert.Contains(t, out, "Solana Up or Down 142s")
	assert.Contains(t, out, "UP 0.52/0.54 DN 0.46/0.48")
	assert.Contains(t, out, "UP 71% +0.210")
	assert.Contains(t, out, "cap $98.00 eq $100.12")
	assert.Contains(t, out, "open UP@0.540 sl 0.405")
	assert.NotContains(t, out, "Bid size")
}

func TestConsole_Publish_Searching(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	err := c.Publish(context.Background(), domain.DashboardState{
		Status:    domain.StateSearching,
		Portfolio: domain.PortfolioStats{Capital: 100, Equity: 100},
	})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "searching | cap $100.00 eq $100.00")
}

func TestConsole_Publish_TableShowsBooks(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, true)

	require.NoError(t, c.Publish(context.Background(), liveState()))

	out := buf.String()
	assert.Contains(t, out, "DOWN")
	assert.Contains(t, out, "0.510")
	assert.Contains(t, out, "120.0")
}

func TestConsole_PrintReport(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf, false)

	c.PrintReport(domain.PortfolioStats{
		Policy:         "momentum",
		Capital:        108.99,
		InitialCapital: 100,
		Equity:         108.99,
		RealizedPnL:    8.994375,
		ReturnPct:      8.99,
		Trades:         1,
		Wins:           1,
		WinRate:        100,
		ExitCounts:     map[domain.ExitReason]int{domain.ReasonExpire: 1, domain.ReasonTakeProfit: 2},
		RecentTrades: []domain.Trade{{
			ID:         1,
			Direction:  domain.SideUp,
			EntryPrice: 0.10,
			ExitPrice:  1,
			BetSize:    1,
			ExitReason: domain.ReasonExpire,
			Status:     domain.StatusWin,
			// RealizedPnL del escenario binario ganador
			RealizedPnL: 8.994375,
		}},
	})

	out := buf.String()
	assert.Contains(t, out, "policy momentum")
	assert.Contains(t, out, "+8.9944")
	assert.Contains(t, out, "WIN")
	assert.Contains(t, out, "EXPIRE=1 TAKE_PROFIT=2")
	assert.Contains(t, out, "win rate 100.0%")
}

func TestConsole_PrintReport_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf, false).PrintReport(domain.PortfolioStats{Policy: "underdog", InitialCapital: 100, Capital: 100, Equity: 100})
	assert.Contains(t, buf.String(), "No trades yet.")
}
