package domain

import (
	"math"
	"sort"
)

const (
	// DefaultBookDepth is how many levels per side feed the volume sums.
	DefaultBookDepth = 15
	// PressureDepth is the number of near-touch levels used for depth pressure.
	PressureDepth = 3
	// DisplayLevels is how many levels per side are kept for display.
	DisplayLevels = 8
)

// BookMetrics is the read-only summary of one token's order book for a cycle.
type BookMetrics struct {
	BidVolume     float64     `json:"bid_volume"`
	AskVolume     float64     `json:"ask_volume"`
	TotalVolume   float64     `json:"total_volume"`
	OBI           float64     `json:"obi"`
	DepthPressure float64     `json:"depth_pressure"`
	BestBid       float64     `json:"best_bid"`
	BestAsk       float64     `json:"best_ask"`
	Spread        float64     `json:"spread"`
	SpreadPct     float64     `json:"spread_pct"`
	VWAPMid       float64     `json:"vwap_mid"`
	NumBids       int         `json:"num_bids"`
	NumAsks       int         `json:"num_asks"`
	TopBids       []BookEntry `json:"top_bids"`
	TopAsks       []BookEntry `json:"top_asks"`
}

// ComputeBookMetrics derives imbalance, VWAP, depth pressure and spread from
// the top depth levels of each side. depth <= 0 uses DefaultBookDepth.
func ComputeBookMetrics(book OrderBook, depth int) BookMetrics {
	if depth <= 0 {
		depth = DefaultBookDepth
	}
	bids := sortedLevels(book.Bids, false)
	asks := sortedLevels(book.Asks, true)

	topBids := head(bids, depth)
	topAsks := head(asks, depth)

	bidVol, bidNotional := sumLevels(topBids)
	askVol, askNotional := sumLevels(topAsks)

	m := BookMetrics{
		BidVolume:   bidVol,
		AskVolume:   askVol,
		TotalVolume: bidVol + askVol,
		OBI:         imbalance(bidVol, askVol),
		NumBids:     len(bids),
		NumAsks:     len(asks),
		TopBids:     append([]BookEntry(nil), head(bids, DisplayLevels)...),
		TopAsks:     append([]BookEntry(nil), head(asks, DisplayLevels)...),
	}
	if len(bids) > 0 {
		m.BestBid = bids[0].Price
	}
	if len(asks) > 0 {
		m.BestAsk = asks[0].Price
	}

	pBid, _ := sumLevels(head(bids, PressureDepth))
	pAsk, _ := sumLevels(head(asks, PressureDepth))
	m.DepthPressure = imbalance(pBid, pAsk)

	if m.BestAsk > 0 {
		m.Spread = m.BestAsk - m.BestBid
		m.SpreadPct = m.Spread / m.BestAsk
	} else {
		m.SpreadPct = 1.0
	}

	m.VWAPMid = vwapMid(m.BestBid, m.BestAsk, bidVol, askVol, bidNotional, askNotional)
	return m
}

// CombineImbalance blends the UP and DOWN books into one directional value
// weighted by volume. DOWN-side buying pressure counts as downward pressure.
// With no DOWN book the UP imbalance is returned unchanged.
func CombineImbalance(up BookMetrics, down *BookMetrics) float64 {
	if down == nil {
		return up.OBI
	}
	total := up.TotalVolume + down.TotalVolume
	if total <= 0 {
		return 0
	}
	return clamp((up.OBI*up.TotalVolume-down.OBI*down.TotalVolume)/total, -1, 1)
}

func vwapMid(bestBid, bestAsk, bidVol, askVol, bidNotional, askNotional float64) float64 {
	if bidVol+askVol <= 0 {
		return (bestBid + bestAsk) / 2
	}
	var bidVWAP, askVWAP float64
	if bidVol > 0 {
		bidVWAP = bidNotional / bidVol
	}
	if askVol > 0 {
		askVWAP = askNotional / askVol
	}
	mid := (bidVWAP*bidVol + askVWAP*askVol) / (bidVol + askVol)

	// Deep levels can drag the blend outside the touch.
	if bidVol > 0 && askVol > 0 && bestAsk >= bestBid {
		mid = clamp(mid, bestBid, bestAsk)
	}
	return mid
}

func imbalance(bid, ask float64) float64 {
	total := bid + ask
	if total <= 0 {
		return 0
	}
	return (bid - ask) / total
}

func sumLevels(levels []BookEntry) (volume, notional float64) {
	for _, l := range levels {
		if l.Size <= 0 {
			continue
		}
		volume += l.Size
		notional += l.Size * l.Price
	}
	return volume, notional
}

func sortedLevels(levels []BookEntry, ascending bool) []BookEntry {
	out := make([]BookEntry, 0, len(levels))
	for _, l := range levels {
		if l.Price > 0 && l.Size > 0 {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if ascending {
			return out[i].Price < out[j].Price
		}
		return out[i].Price > out[j].Price
	})
	return out
}

func head(levels []BookEntry, n int) []BookEntry {
	if len(levels) > n {
		return levels[:n]
	}
	return levels
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
