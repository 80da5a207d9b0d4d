package domain

import (
	"math"
	"time"
)

// TradeStatus is the lifecycle state of a Trade.
type TradeStatus string

const (
	StatusOpen      TradeStatus = "OPEN"
	StatusWin       TradeStatus = "WIN"
	StatusLoss      TradeStatus = "LOSS"
	StatusCancelled TradeStatus = "CANCELLED"
)

// ExitReason names why shares were liquidated.
type ExitReason string

const (
	ReasonStopLoss     ExitReason = "STOP_LOSS"
	ReasonTrailingStop ExitReason = "TRAILING_STOP"
	ReasonTakeProfit   ExitReason = "TAKE_PROFIT"
	ReasonReversal     ExitReason = "SIGNAL_REVERSAL"
	ReasonTimeExit     ExitReason = "TIME_EXIT"
	ReasonExpire       ExitReason = "EXPIRE"
	ReasonCancelled    ExitReason = "CANCELLED"
)

const shareEpsilon = 1e-9

// Stage is one partial profit-taking target: sell Fraction of the original
// shares once the sell price reaches entry * (1 + Gain).
type Stage struct {
	Gain     float64 `yaml:"gain" json:"gain"`
	Fraction float64 `yaml:"fraction" json:"fraction"`
}

// StageExit is the execution state of one Stage within a trade.
type StageExit struct {
	Stage
	Executed bool      `json:"executed"`
	Shares   float64   `json:"shares"`
	Price    float64   `json:"price"`
	Fee      float64   `json:"fee"`
	PnL      float64   `json:"pnl"`
	At       time.Time `json:"at"`
}

// ExitDecision is what a policy asks the portfolio to do with the open trade.
// Stage is only meaningful for ReasonTakeProfit.
type ExitDecision struct {
	Reason ExitReason `json:"reason"`
	Stage  int        `json:"stage"`
}

// Partial reports whether the decision sells a single stage.
func (d ExitDecision) Partial() bool { return d.Reason == ReasonTakeProfit }

// Liquidation describes exactly the shares one transition sold.
// Committed is the share of the original bet those shares carried.
type Liquidation struct {
	Reason    ExitReason `json:"reason"`
	Stage     int        `json:"stage"`
	Shares    float64    `json:"shares"`
	Price     float64    `json:"price"`
	Fee       float64    `json:"fee"`
	PnL       float64    `json:"pnl"`
	Committed float64    `json:"committed"`

	entryFee float64
}

// Credit is the amount returned to capital: committed capital plus P&L.
func (l Liquidation) Credit() float64 { return l.Committed + l.PnL }

// TradeParams are the inputs to open a trade.
type TradeParams struct {
	ID              int
	Session         string
	MarketID        string
	Question        string
	Direction       Side
	Price           float64
	BetSize         float64
	Fill            *Fill // depth-walked fill; nil uses Price
	FeeRate         float64
	StopLoss        float64 // fractional adverse move; 0 disables
	TrailActivation float64 // fractional favorable move that arms breakeven
	TrailDistance   float64 // optional trail below the peak once armed
	Stages          []Stage
	SecsAtEntry     float64
	At              time.Time
}

// Trade is one simulated position from entry to settlement. It is owned by
// the portfolio while open and mutated only through its transition methods.
type Trade struct {
	ID        int    `json:"id"`
	Session   string `json:"session"`
	MarketID  string `json:"market_id"`
	Question  string `json:"question"`
	Direction Side   `json:"direction"`

	EntryPrice  float64   `json:"entry_price"`
	Shares      float64   `json:"shares"`
	BetSize     float64   `json:"bet_size"`
	EntryFee    float64   `json:"entry_fee"`
	FeeRate     float64   `json:"fee_rate"`
	EntryTime   time.Time `json:"entry_time"`
	SecsAtEntry float64   `json:"secs_at_entry"`

	Stages          []StageExit `json:"stages"`
	SharesRemaining float64     `json:"shares_remaining"`

	StopPrice       float64 `json:"stop_price"`
	TrailActivation float64 `json:"trail_activation"`
	TrailDistance   float64 `json:"trail_distance"`
	TrailingActive  bool    `json:"trailing_active"`
	PeakPrice       float64 `json:"peak_price"`

	ExitPrice  float64     `json:"exit_price"`
	ExitFee    float64     `json:"exit_fee"`
	ExitReason ExitReason  `json:"exit_reason"`
	ExitTime   time.Time   `json:"exit_time"`
	Status     TradeStatus `json:"status"`

	// RealizedPnL accumulates the P&L of every tranche sold so far.
	RealizedPnL float64 `json:"pnl"`

	CommittedReleased float64 `json:"committed_released"`
	EntryFeeCharged   float64 `json:"entry_fee_charged"`
}

// NewTrade opens a position. It returns false when price or bet are unusable.
func NewTrade(p TradeParams) (*Trade, bool) {
	if p.BetSize <= 0 {
		return nil, false
	}
	entry, shares := p.Price, 0.0
	if p.Fill != nil && p.Fill.Shares > 0 && p.Fill.AvgPrice > 0 && p.Fill.AvgPrice < 1 {
		entry, shares = p.Fill.AvgPrice, p.Fill.Shares
	}
	if entry <= 0 || entry >= 1 {
		return nil, false
	}
	if shares == 0 {
		shares = p.BetSize / entry
	}

	t := &Trade{
		ID:              p.ID,
		Session:         p.Session,
		MarketID:        p.MarketID,
		Question:        p.Question,
		Direction:       p.Direction,
		EntryPrice:      entry,
		Shares:          shares,
		BetSize:         p.BetSize,
		EntryFee:        Fee(entry, p.BetSize, p.FeeRate),
		FeeRate:         p.FeeRate,
		EntryTime:       p.At,
		SecsAtEntry:     p.SecsAtEntry,
		SharesRemaining: shares,
		TrailActivation: p.TrailActivation,
		TrailDistance:   p.TrailDistance,
		PeakPrice:       entry,
		Status:          StatusOpen,
	}
	if p.StopLoss > 0 && p.StopLoss < 1 {
		t.StopPrice = entry * (1 - p.StopLoss)
	}
	for _, s := range p.Stages {
		t.Stages = append(t.Stages, StageExit{Stage: s})
	}
	return t, true
}

// IsOpen reports whether shares are still held.
func (t *Trade) IsOpen() bool { return t.Status == StatusOpen }

// NextStage returns the index of the next unexecuted stage, or -1.
func (t *Trade) NextStage() int {
	for i, s := range t.Stages {
		if !s.Executed {
			return i
		}
	}
	return -1
}

// StageReached reports whether price meets stage k's target.
func (t *Trade) StageReached(k int, price float64) bool {
	if k < 0 || k >= len(t.Stages) {
		return false
	}
	return price >= t.EntryPrice*(1+t.Stages[k].Gain)
}

// StopHit reports whether price is at or through the stop level.
// Stage progress does not matter.
func (t *Trade) StopHit(price float64) bool {
	return t.IsOpen() && t.StopPrice > 0 && price > 0 && price <= t.StopPrice
}

// StopReason names a stop exit: trailing once armed, plain stop otherwise.
func (t *Trade) StopReason() ExitReason {
	if t.TrailingActive {
		return ReasonTrailingStop
	}
	return ReasonStopLoss
}

// UpdateTrailing records a new sell price and ratchets the stop. Once the
// price has moved TrailActivation above entry the stop is pulled to
// breakeven and, with a TrailDistance, follows the peak. The stop never
// loosens. Returns true when the stop moved.
func (t *Trade) UpdateTrailing(price float64) bool {
	if !t.IsOpen() || price <= 0 {
		return false
	}
	if price > t.PeakPrice {
		t.PeakPrice = price
	}
	if t.TrailActivation <= 0 || t.PeakPrice < t.EntryPrice*(1+t.TrailActivation) {
		return false
	}
	t.TrailingActive = true

	target := t.EntryPrice
	if t.TrailDistance > 0 {
		target = math.Max(target, t.PeakPrice*(1-t.TrailDistance))
	}
	if target > t.StopPrice {
		t.StopPrice = target
		return true
	}
	return false
}

// ExecuteStage sells stage k's fraction of the original shares at price.
// Stages run in order and at most once; anything else is a no-op.
func (t *Trade) ExecuteStage(k int, price float64, at time.Time) (Liquidation, bool) {
	if !t.IsOpen() || price <= 0 || k != t.NextStage() {
		return Liquidation{}, false
	}
	shares := t.Stages[k].Fraction * t.Shares
	if shares <= 0 || shares > t.SharesRemaining+shareEpsilon {
		return Liquidation{}, false
	}

	liq := t.tranche(shares, price, ReasonTakeProfit)
	liq.Stage = k
	t.Stages[k].Executed = true
	t.Stages[k].Shares = liq.Shares
	t.Stages[k].Price = price
	t.Stages[k].Fee = liq.Fee
	t.Stages[k].PnL = liq.PnL
	t.Stages[k].At = at
	t.apply(liq, at)
	return liq, true
}

// CloseMarket liquidates every remaining share at price.
func (t *Trade) CloseMarket(price float64, reason ExitReason, at time.Time) (Liquidation, bool) {
	if !t.IsOpen() || price < 0 || price > 1 {
		return Liquidation{}, false
	}
	liq := t.tranche(t.SharesRemaining, price, reason)
	t.apply(liq, at)
	return liq, true
}

// Resolve settles the remaining shares at 1.0 when the held outcome won and
// 0.0 otherwise.
func (t *Trade) Resolve(won bool, at time.Time) (Liquidation, bool) {
	price := 0.0
	if won {
		price = 1.0
	}
	return t.CloseMarket(price, ReasonExpire, at)
}

// Cancel voids the remaining tranche: its committed capital is returned with
// no fee and no price P&L. Already executed stages keep their P&L.
func (t *Trade) Cancel(at time.Time) (Liquidation, bool) {
	if !t.IsOpen() {
		return Liquidation{}, false
	}
	liq := Liquidation{
		Reason:    ReasonCancelled,
		Stage:     -1,
		Shares:    t.SharesRemaining,
		Committed: t.BetSize - t.CommittedReleased,
	}
	t.SharesRemaining = 0
	t.CommittedReleased = t.BetSize
	t.ExitReason = ReasonCancelled
	t.ExitTime = at
	t.Status = StatusCancelled
	return liq, true
}

// PreviewClose returns what CloseMarket at price would realize, without
// mutating the trade.
func (t *Trade) PreviewClose(price float64) (Liquidation, bool) {
	if !t.IsOpen() || price < 0 {
		return Liquidation{}, false
	}
	return t.tranche(t.SharesRemaining, price, ""), true
}

// CommittedRemaining is the part of the bet still carried by unsold shares.
func (t *Trade) CommittedRemaining() float64 {
	if !t.IsOpen() {
		return 0
	}
	return t.BetSize - t.CommittedReleased
}

// tranche prices the sale of shares. The last tranche takes whatever
// committed capital and entry fee are left so the parts sum exactly.
func (t *Trade) tranche(shares, price float64, reason ExitReason) Liquidation {
	var committed, entryFee float64
	if shares >= t.SharesRemaining-shareEpsilon {
		shares = t.SharesRemaining
		committed = t.BetSize - t.CommittedReleased
		entryFee = t.EntryFee - t.EntryFeeCharged
	} else {
		r := shares / t.Shares
		committed = r * t.BetSize
		entryFee = r * t.EntryFee
	}
	proceeds := shares * price
	exitFee := Fee(price, proceeds, t.FeeRate)
	return Liquidation{
		Reason:    reason,
		Stage:     -1,
		Shares:    shares,
		Price:     price,
		Fee:       exitFee,
		PnL:       proceeds - committed - entryFee - exitFee,
		Committed: committed,
		entryFee:  entryFee,
	}
}

func (t *Trade) apply(liq Liquidation, at time.Time) {
	t.SharesRemaining -= liq.Shares
	t.CommittedReleased += liq.Committed
	t.EntryFeeCharged += liq.entryFee
	t.RealizedPnL += liq.PnL

	if t.SharesRemaining > shareEpsilon {
		return
	}
	t.SharesRemaining = 0
	t.ExitPrice = liq.Price
	t.ExitFee = liq.Fee
	t.ExitReason = liq.Reason
	t.ExitTime = at
	if t.RealizedPnL > 0 {
		t.Status = StatusWin
	} else {
		t.Status = StatusLoss
	}
}
