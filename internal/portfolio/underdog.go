package portfolio

import "github.com/alejandrodnm/updownbot/internal/domain"

// UnderdogName identifies the last-minute reversal policy.
const UnderdogName = "underdog"

// DefaultUnderdogConfig buys the cheapest side priced in (0.05, 0.15]
// during the last minute, with a fixed $1 bet held to resolution.
func DefaultUnderdogConfig() PolicyConfig {
	return PolicyConfig{
		Name:          UnderdogName,
		EntryMinPrice: 0.05,
		EntryMaxPrice: 0.15,
		EntryMinSecs:  5,
		EntryMaxSecs:  60,
		PriceSource:   PriceMark,
		BetSize:       1.0,
		MinCapital:    1.0,
		FeeRate:       domain.DefaultFeeRate,
	}
}

// Underdog ignores the signal direction and bets on whichever outcome the
// market prices as least likely, late in the window.
type Underdog struct {
	cfg PolicyConfig
}

// NewUnderdog creates the policy.
func NewUnderdog(cfg PolicyConfig) *Underdog {
	return &Underdog{cfg: cfg}
}

func (u *Underdog) Name() string         { return UnderdogName }
func (u *Underdog) Config() PolicyConfig { return u.cfg }

// ConsiderEntry picks the cheaper outcome inside the entry zone.
func (u *Underdog) ConsiderEntry(ctx EntryContext) (EntryPlan, bool) {
	if !u.cfg.inWindow(ctx.SecsLeft) {
		return EntryPlan{}, false
	}

	var plan EntryPlan
	found := false
	for _, side := range []domain.Side{domain.SideUp, domain.SideDown} {
		q := ctx.Prices.For(side)
		price := u.cfg.candidatePrice(q)
		if !u.cfg.inZone(price) || !u.cfg.spreadOK(q) {
			continue
		}
		if !found || price < plan.Price {
			plan = EntryPlan{Direction: side, Price: price}
			found = true
		}
	}
	if !found {
		return EntryPlan{}, false
	}
	plan.BetSize = u.cfg.betSize(ctx.Capital)
	return plan, true
}

// CheckExits applies stop, stages and time exit when configured. By default
// none are, and the trade rides to resolution.
func (u *Underdog) CheckExits(t *domain.Trade, ctx ExitContext) (domain.ExitDecision, bool) {
	if d, ok := checkPriceExits(t, ctx); ok {
		return d, true
	}
	return checkTimeExit(u.cfg, ctx)
}
