package portfolio

import "github.com/alejandrodnm/updownbot/internal/domain"

// Stats builds a reporting snapshot. prices may be nil, in which case the
// open position is carried at zero unrealized P&L. Never mutates the ledger.
func (m *Manager) Stats(prices *domain.Prices) domain.PortfolioStats {
	s := domain.PortfolioStats{
		Policy:         m.policy.Name(),
		Capital:        m.capital,
		InitialCapital: m.initialCapital,
		ExitCounts:     make(map[domain.ExitReason]int),
	}

	for _, t := range m.closed {
		s.RealizedPnL += t.RealizedPnL
		countExits(s.ExitCounts, t)
		switch t.Status {
		case domain.StatusWin:
			s.Wins++
		case domain.StatusLoss:
			s.Losses++
		case domain.StatusCancelled:
			s.Cancelled++
		}
	}
	s.Trades = len(m.closed)
	if decided := s.Wins + s.Losses; decided > 0 {
		s.WinRate = float64(s.Wins) / float64(decided) * 100
	}

	if t := m.active; t != nil {
		s.RealizedPnL += t.RealizedPnL
		countExits(s.ExitCounts, *t)
		s.Committed = t.CommittedRemaining()
		if prices != nil {
			if price := prices.For(t.Direction).SellPrice(); price > 0 {
				if liq, ok := t.PreviewClose(price); ok {
					s.UnrealizedPnL = liq.PnL
				}
			}
		}
		open := copyTrade(*t)
		s.OpenTrade = &open
	}

	s.Equity = s.Capital + s.Committed + s.UnrealizedPnL
	if s.InitialCapital > 0 {
		s.ReturnPct = (s.Equity - s.InitialCapital) / s.InitialCapital * 100
	}

	start := len(m.closed) - recentTradesLen
	if start < 0 {
		start = 0
	}
	s.RecentTrades = make([]domain.Trade, 0, len(m.closed)-start)
	for i := len(m.closed) - 1; i >= start; i-- {
		s.RecentTrades = append(s.RecentTrades, copyTrade(m.closed[i]))
	}

	hist := m.pnlHistory
	if len(hist) > pnlHistoryLen {
		hist = hist[len(hist)-pnlHistoryLen:]
	}
	s.PnLHistory = append([]float64(nil), hist...)
	return s
}

func countExits(counts map[domain.ExitReason]int, t domain.Trade) {
	for _, st := range t.Stages {
		if st.Executed {
			counts[domain.ReasonTakeProfit]++
		}
	}
	if !t.IsOpen() && t.ExitReason != "" && !(t.ExitReason == domain.ReasonTakeProfit && len(t.Stages) > 0) {
		counts[t.ExitReason]++
	}
}
