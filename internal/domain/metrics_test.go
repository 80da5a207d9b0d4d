package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBook() OrderBook {
	return OrderBook{
		TokenID: "up",
		Bids:    []BookEntry{{Price: 0.50, Size: 100}, {Price: 0.49, Size: 50}},
		Asks:    []BookEntry{{Price: 0.52, Size: 40}, {Price: 0.53, Size: 10}},
	}
}

// --- ComputeBookMetrics ---

func TestComputeBookMetrics_Basic(t *testing.T) {
	m := ComputeBookMetrics(sampleBook(), 15)

	assert.InDelta(t, 150.0, m.BidVolume, 1e-9)
	assert.InDelta(t, 50.0, m.AskVolume, 1e-9)
	assert.InDelta(t, 200.0, m.TotalVolume, 1e-9)
	assert.InDelta(t, 0.5, m.OBI, 1e-9)
	assert.InDelta(t, 0.5, m.DepthPressure, 1e-9)
	assert.InDelta(t, 0.50, m.BestBid, 1e-9)
	assert.InDelta(t, 0.52, m.BestAsk, 1e-9)
	assert.InDelta(t, 0.02, m.Spread, 1e-9)
	assert.InDelta(t, 0.02/0.52, m.SpreadPct, 1e-9)
	// (74.5 + 26.1) / 200
	assert.InDelta(t, 0.503, m.VWAPMid, 1e-9)
	assert.Equal(t, 2, m.NumBids)
	assert.Equal(t, 2, m.NumAsks)
}

func TestComputeBookMetrics_EmptyBook(t *testing.T) {
	m := ComputeBookMetrics(OrderBook{}, 15)
	assert.Zero(t, m.OBI)
	assert.Zero(t, m.DepthPressure)
	assert.Zero(t, m.VWAPMid)
	assert.Equal(t, 1.0, m.SpreadPct)
}

func TestComputeBookMetrics_DepthLimitAndPressure(t *testing.T) {
	book := OrderBook{
		Bids: []BookEntry{{0.50, 10}, {0.49, 10}, {0.48, 10}, {0.47, 100}},
		Asks: []BookEntry{{0.52, 30}, {0.53, 30}, {0.54, 30}, {0.55, 1}},
	}
	m := ComputeBookMetrics(book, 4)
	assert.InDelta(t, (130.0-91.0)/221.0, m.OBI, 1e-9)
	// top 3: 30 vs 90
	assert.InDelta(t, -0.5, m.DepthPressure, 1e-9)

	shallow := ComputeBookMetrics(book, 1)
	assert.InDelta(t, (10.0-30.0)/40.0, shallow.OBI, 1e-9)
}

func TestComputeBookMetrics_UnsortedInputIsSorted(t *testing.T) {
	book := OrderBook{
		Bids: []BookEntry{{0.40, 1}, {0.45, 2}},
		Asks: []BookEntry{{0.60, 1}, {0.55, 2}},
	}
	m := ComputeBookMetrics(book, 15)
	assert.InDelta(t, 0.45, m.BestBid, 1e-9)
	assert.InDelta(t, 0.55, m.BestAsk, 1e-9)
}

func TestComputeBookMetrics_VWAPClampedToTouch(t *testing.T) {
	book := OrderBook{
		Bids: []BookEntry{{0.50, 1}, {0.10, 1000}},
		Asks: []BookEntry{{0.52, 1}},
	}
	m := ComputeBookMetrics(book, 15)
	assert.GreaterOrEqual(t, m.VWAPMid, m.BestBid)
	assert.LessOrEqual(t, m.VWAPMid, m.BestAsk)
}

func TestComputeBookMetrics_OBIBounded(t *testing.T) {
	for _, sizes := range [][2]float64{{0, 5}, {5, 0}, {1, 1}, {1000, 0.001}} {
		book := OrderBook{
			Bids: []BookEntry{{0.4, sizes[0]}},
			Asks: []BookEntry{{0.6, sizes[1]}},
		}
		m := ComputeBookMetrics(book, 15)
		assert.GreaterOrEqual(t, m.OBI, -1.0)
		assert.LessOrEqual(t, m.OBI, 1.0)
	}
}

func TestComputeBookMetrics_DisplayLevelsTruncated(t *testing.T) {
	var book OrderBook
	for i := 0; i < 12; i++ {
		book.Bids = append(book.Bids, BookEntry{Price: 0.40 - float64(i)*0.01, Size: 1})
	}
	m := ComputeBookMetrics(book, 15)
	assert.Len(t, m.TopBids, DisplayLevels)
	assert.Equal(t, 12, m.NumBids)
}

// --- CombineImbalance ---

func TestCombineImbalance_Full(t *testing.T) {
	up := BookMetrics{OBI: 0.5, TotalVolume: 200}
	down := BookMetrics{OBI: 0.2, TotalVolume: 100}
	assert.InDelta(t, 80.0/300.0, CombineImbalance(up, &down), 1e-9)
}

func TestCombineImbalance_Degraded(t *testing.T) {
	up := BookMetrics{OBI: -0.3, TotalVolume: 50}
	assert.Equal(t, -0.3, CombineImbalance(up, nil))
}

func TestCombineImbalance_ZeroVolume(t *testing.T) {
	assert.Zero(t, CombineImbalance(BookMetrics{}, &BookMetrics{}))
}

// --- OrderBook ---

func TestOrderBook_WalkAsks(t *testing.T) {
	book := OrderBook{Asks: []BookEntry{{0.10, 5}, {0.12, 10}}}

	fill, ok := book.WalkAsks(1.0)
	require.True(t, ok)
	wantShares := 5 + 0.5/0.12
	assert.InDelta(t, wantShares, fill.Shares, 1e-9)
	assert.InDelta(t, 1.0/wantShares, fill.AvgPrice, 1e-9)

	_, ok = book.WalkAsks(10)
	assert.False(t, ok, "depth does not cover the budget")

	_, ok = book.WalkAsks(0)
	assert.False(t, ok)
}

// --- Quote ---

func TestQuote_Complement(t *testing.T) {
	q := Quote{Mark: 0.30, Bid: 0.29, Ask: 0.31}
	c := q.Complement()
	assert.InDelta(t, 0.70, c.Mark, 1e-9)
	assert.InDelta(t, 0.69, c.Bid, 1e-9)
	assert.InDelta(t, 0.71, c.Ask, 1e-9)
	assert.True(t, c.Tradable())
}

func TestQuote_PricesFallBackToMark(t *testing.T) {
	q := Quote{Mark: 0.4}
	assert.Equal(t, 0.4, q.BuyPrice())
	assert.Equal(t, 0.4, q.SellPrice())
	assert.Zero(t, q.Spread())
	assert.False(t, q.Tradable())
}
