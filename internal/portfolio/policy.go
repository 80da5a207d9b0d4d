package portfolio

import (
	"fmt"

	"github.com/alejandrodnm/updownbot/internal/domain"
)

// Price sources for the entry-zone check and the fill price.
const (
	PriceAsk  = "ask"
	PriceMark = "mark"
)

// PolicyConfig is the single value every policy is built from. Zero values
// disable the corresponding rule.
type PolicyConfig struct {
	Name string `yaml:"name"`

	// Entry zone (EntryMinPrice, EntryMaxPrice] on the candidate price.
	EntryMinPrice float64 `yaml:"entry_min_price"`
	EntryMaxPrice float64 `yaml:"entry_max_price"`
	// Entry window [EntryMinSecs, EntryMaxSecs] on seconds remaining.
	EntryMinSecs float64 `yaml:"entry_min_secs"`
	EntryMaxSecs float64 `yaml:"entry_max_secs"`
	MaxSpread    float64 `yaml:"max_spread"`
	PriceSource  string  `yaml:"price_source"`

	MinConfidence int  `yaml:"min_confidence"`
	RequireStrong bool `yaml:"require_strong"`

	BetSize     float64 `yaml:"bet_size"`
	BetFraction float64 `yaml:"bet_fraction"`
	MinCapital  float64 `yaml:"min_capital"`
	FeeRate     float64 `yaml:"fee_rate"`

	StopLoss        float64        `yaml:"stop_loss"`
	TrailActivation float64        `yaml:"trail_activation"`
	TrailDistance   float64        `yaml:"trail_distance"`
	Stages          []domain.Stage `yaml:"stages"`
	ReversalCycles  int            `yaml:"reversal_cycles"`
	TimeExitSecs    float64        `yaml:"time_exit_secs"`
}

// Validate rejects configurations that would break the ledger invariants.
func (c PolicyConfig) Validate() error {
	if c.EntryMaxPrice > 0 && c.EntryMinPrice >= c.EntryMaxPrice {
		return fmt.Errorf("portfolio: entry zone (%.2f, %.2f] is empty", c.EntryMinPrice, c.EntryMaxPrice)
	}
	if c.EntryMaxSecs > 0 && c.EntryMinSecs > c.EntryMaxSecs {
		return fmt.Errorf("portfolio: entry window [%.0f, %.0f] is empty", c.EntryMinSecs, c.EntryMaxSecs)
	}
	if c.BetSize <= 0 && c.BetFraction <= 0 {
		return fmt.Errorf("portfolio: bet_size or bet_fraction is required")
	}
	if c.BetFraction < 0 || c.BetFraction > 1 {
		return fmt.Errorf("portfolio: bet_fraction %.2f out of range", c.BetFraction)
	}
	var total float64
	for i, s := range c.Stages {
		if s.Fraction <= 0 || s.Gain <= 0 {
			return fmt.Errorf("portfolio: stage %d needs positive gain and fraction", i)
		}
		if i > 0 && s.Gain <= c.Stages[i-1].Gain {
			return fmt.Errorf("portfolio: stage %d gain must exceed stage %d", i, i-1)
		}
		total += s.Fraction
	}
	if total > 1+1e-9 {
		return fmt.Errorf("portfolio: stage fractions sum to %.2f > 1", total)
	}
	return nil
}

// EntryContext is what a policy sees when deciding whether to open.
type EntryContext struct {
	Signal   domain.Signal
	Prices   domain.Prices
	SecsLeft float64
	Capital  float64
}

// EntryPlan is an accepted entry: side, candidate price and bet.
type EntryPlan struct {
	Direction domain.Side
	Price     float64
	BetSize   float64
}

// ExitContext is what a policy sees when checking the open trade.
type ExitContext struct {
	Signal   domain.Signal
	Prices   domain.Prices
	SecsLeft *float64
}

// Policy is an interchangeable trading strategy.
type Policy interface {
	Name() string
	Config() PolicyConfig
	ConsiderEntry(ctx EntryContext) (EntryPlan, bool)
	CheckExits(t *domain.Trade, ctx ExitContext) (domain.ExitDecision, bool)
}

// cycleSkipper is implemented by policies that count consecutive cycles; it
// is told about cycles in which the open trade could not be evaluated.
type cycleSkipper interface {
	SkipCycle()
}

// NewPolicy builds the policy named by cfg.Name.
func NewPolicy(cfg PolicyConfig) (Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Name {
	case "", UnderdogName:
		cfg.Name = UnderdogName
		return NewUnderdog(cfg), nil
	case MomentumName:
		return NewMomentum(cfg), nil
	}
	return nil, fmt.Errorf("portfolio: unknown policy %q", cfg.Name)
}

// DefaultPolicyConfig returns the defaults of the named policy.
func DefaultPolicyConfig(name string) PolicyConfig {
	if name == MomentumName {
		return DefaultMomentumConfig()
	}
	return DefaultUnderdogConfig()
}

func (c PolicyConfig) inZone(price float64) bool {
	hi := c.EntryMaxPrice
	if hi <= 0 {
		hi = 1
	}
	return price > c.EntryMinPrice && price <= hi && price < 1
}

func (c PolicyConfig) inWindow(secs float64) bool {
	if secs < c.EntryMinSecs {
		return false
	}
	return c.EntryMaxSecs <= 0 || secs <= c.EntryMaxSecs
}

func (c PolicyConfig) spreadOK(q domain.Quote) bool {
	return c.MaxSpread <= 0 || q.Spread() <= c.MaxSpread
}

func (c PolicyConfig) candidatePrice(q domain.Quote) float64 {
	if c.PriceSource == PriceMark {
		return q.Mark
	}
	return q.BuyPrice()
}

func (c PolicyConfig) betSize(capital float64) float64 {
	bet := c.BetSize
	if c.BetFraction > 0 {
		bet = capital * c.BetFraction
		if bet < c.MinCapital {
			bet = c.MinCapital
		}
	}
	return bet
}

// checkPriceExits checks the stop first, then the next profit stage.
func checkPriceExits(t *domain.Trade, ctx ExitContext) (domain.ExitDecision, bool) {
	price := ctx.Prices.For(t.Direction).SellPrice()
	if t.StopHit(price) {
		return domain.ExitDecision{Reason: t.StopReason(), Stage: -1}, true
	}
	if k := t.NextStage(); k >= 0 && t.StageReached(k, price) {
		return domain.ExitDecision{Reason: domain.ReasonTakeProfit, Stage: k}, true
	}
	return domain.ExitDecision{}, false
}

func checkTimeExit(c PolicyConfig, ctx ExitContext) (domain.ExitDecision, bool) {
	if c.TimeExitSecs > 0 && ctx.SecsLeft != nil && *ctx.SecsLeft <= c.TimeExitSecs {
		return domain.ExitDecision{Reason: domain.ReasonTimeExit, Stage: -1}, true
	}
	return domain.ExitDecision{}, false
}
