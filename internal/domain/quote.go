package domain

// Side is the outcome token a trade holds.
type Side string

const (
	SideUp   Side = "UP"
	SideDown Side = "DOWN"
)

// Quote is the prevailing price of one outcome token. Mark is the
// volume-weighted mid; Bid and Ask are 0 when that side is unknown.
type Quote struct {
	Mark float64 `json:"mark"`
	Bid  float64 `json:"bid"`
	Ask  float64 `json:"ask"`
}

// QuoteFromMetrics builds a quote from one side's book metrics.
func QuoteFromMetrics(m BookMetrics) Quote {
	return Quote{Mark: m.VWAPMid, Bid: m.BestBid, Ask: m.BestAsk}
}

// Complement returns the implied quote for the opposite outcome of a binary
// market (prices sum to 1, bid and ask swap).
func (q Quote) Complement() Quote {
	c := Quote{Mark: 1 - q.Mark}
	if q.Ask > 0 {
		c.Bid = 1 - q.Ask
	}
	if q.Bid > 0 {
		c.Ask = 1 - q.Bid
	}
	return c
}

// BuyPrice is the price paid to open: the ask, or the mark when unknown.
func (q Quote) BuyPrice() float64 {
	if q.Ask > 0 {
		return q.Ask
	}
	return q.Mark
}

// SellPrice is the price received to close: the bid, or the mark when unknown.
func (q Quote) SellPrice() float64 {
	if q.Bid > 0 {
		return q.Bid
	}
	return q.Mark
}

// Spread returns ask - bid, or 0 when either side is missing.
func (q Quote) Spread() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return 0
	}
	return q.Ask - q.Bid
}

// Tradable reports whether the quote has a positive, uncrossed touch.
func (q Quote) Tradable() bool {
	return q.Bid > 0 && q.Ask > 0 && q.Ask > q.Bid
}

// Prices holds the quotes for both outcomes of the active market.
type Prices struct {
	Up   Quote `json:"up"`
	Down Quote `json:"down"`
}

// For returns the quote of the given side.
func (p Prices) For(s Side) Quote {
	if s == SideDown {
		return p.Down
	}
	return p.Up
}

// Tradable reports whether both outcomes can be traded this cycle.
func (p Prices) Tradable() bool {
	return p.Up.Tradable() && p.Down.Tradable()
}
