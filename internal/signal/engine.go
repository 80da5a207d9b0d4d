// Package signal fuses order-book imbalance with spot momentum into a
// labeled, confidence-scored directional signal.
package signal

import (
	"math"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/alejandrodnm/updownbot/internal/ring"
)

const (
	alpha            = 0.35
	instantWeight    = 0.55
	smoothedWeight   = 0.45
	depthBoostWeight = 0.10

	fuseOBIWeight        = 0.35
	fuseMomentumWeight   = 0.30
	fuseDivergenceWeight = 0.35
	mom30Weight          = 0.4
	mom60Weight          = 0.6

	spreadPenaltyStart = 0.08
	spreadPenaltySlope = 5.0
	spreadPenaltyFloor = 0.3

	confirmedDiscount = 0.75
	strongMultiple    = 1.8
	confidenceBase    = 50
	confidenceSlope   = 35
	confirmedBonus    = 8
	confidenceCap     = 97

	historyLen = 20
)

// Config tunes the engine.
type Config struct {
	WindowSize int
	Threshold  float64
	// MomentumMultiplier scales the blended spot return into [-1, 1].
	MomentumMultiplier float64
}

// DefaultConfig returns the defaults for the given asset ("sol", "btc", ...).
func DefaultConfig(asset string) Config {
	return Config{
		WindowSize:         12,
		Threshold:          0.15,
		MomentumMultiplier: DefaultMomentumMultiplier(asset),
	}
}

// DefaultMomentumMultiplier maps an asset to the multiplier that saturates
// the momentum component at the asset's typical 60s move.
func DefaultMomentumMultiplier(asset string) float64 {
	switch asset {
	case "sol", "SOL", "SOLUSDT":
		return 1 / 0.0015
	case "btc", "BTC", "BTCUSDT":
		return 1 / 0.0008
	}
	return 1 / 0.0012
}

// Input is one cycle's worth of engine inputs. Down and Momentum may be nil.
type Input struct {
	CombinedOBI float64
	Up          domain.BookMetrics
	Down        *domain.BookMetrics
	Momentum    *domain.MomentumSnapshot
}

// Engine keeps the rolling imbalance window. Not safe for concurrent use.
type Engine struct {
	cfg    Config
	window *ring.Buffer[float64]
}

// New creates an Engine; zero config fields fall back to defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig("")
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MomentumMultiplier <= 0 {
		cfg.MomentumMultiplier = def.MomentumMultiplier
	}
	return &Engine{cfg: cfg, window: ring.New[float64](cfg.WindowSize)}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Window returns the stored readings, oldest first.
func (e *Engine) Window() []float64 { return e.window.Values() }

// Reset clears the window, e.g. when the market rotates.
func (e *Engine) Reset() { e.window.Reset() }

// Evaluate computes the signal for this cycle and appends the reading to
// the window.
func (e *Engine) Evaluate(in Input) domain.Signal {
	smoothed := Smooth(e.window.Values(), in.CombinedOBI)
	e.window.Push(in.CombinedOBI)

	base := instantWeight*in.CombinedOBI + smoothedWeight*smoothed

	var boost float64
	if in.Down != nil {
		boost = (in.Up.DepthPressure - in.Down.DepthPressure) * depthBoostWeight
	} else {
		boost = in.Up.DepthPressure * depthBoostWeight
	}
	obiComponent := base + boost

	sig := domain.Signal{
		CombinedOBI:   in.CombinedOBI,
		Smoothed:      smoothed,
		DepthBoost:    boost,
		OBIComponent:  obiComponent,
		SpreadPenalty: 1.0,
		Score:         obiComponent,
	}

	if in.Momentum != nil && in.Momentum.Available {
		mom := clamp((mom30Weight*in.Momentum.Mom30s+mom60Weight*in.Momentum.Mom60s)*e.cfg.MomentumMultiplier, -1, 1)
		div := in.Momentum.Divergence.Signed()
		sig.MomentumComponent = mom
		sig.DivergenceComponent = div
		sig.Score = fuseOBIWeight*obiComponent + fuseMomentumWeight*mom + fuseDivergenceWeight*div
		sig.Fused = true
	}

	sig.SpreadPenalty = SpreadPenalty(in.Up.SpreadPct)
	sig.Score *= sig.SpreadPenalty

	obiSign, momSign := sign(sig.OBIComponent), sign(sig.MomentumComponent)
	sig.Confirmed = obiSign != 0 && obiSign == momSign

	sig.EffectiveThreshold = e.cfg.Threshold
	if sig.Confirmed {
		sig.EffectiveThreshold *= confirmedDiscount
	}
	sig.Label, sig.Confidence = classify(sig.Score, sig.EffectiveThreshold, sig.Confirmed)

	sig.History = e.window.Values()
	if len(sig.History) > historyLen {
		sig.History = sig.History[len(sig.History)-historyLen:]
	}
	return sig
}

// Smooth is the exponential average of the window. It seeds with the newest
// stored reading and folds older readings in with weight alpha. An empty
// window yields current.
func Smooth(window []float64, current float64) float64 {
	n := len(window)
	if n == 0 {
		return current
	}
	ema := window[n-1]
	for i := n - 2; i >= 0; i-- {
		ema = alpha*window[i] + (1-alpha)*ema
	}
	return ema
}

// SpreadPenalty returns the multiplier applied to the score for a wide
// primary-side spread.
func SpreadPenalty(spreadPct float64) float64 {
	if spreadPct <= spreadPenaltyStart {
		return 1.0
	}
	return math.Max(spreadPenaltyFloor, 1-(spreadPct-spreadPenaltyStart)*spreadPenaltySlope)
}

func classify(score, threshold float64, confirmed bool) (domain.Label, int) {
	abs := math.Abs(score)
	if abs <= threshold || threshold <= 0 {
		return domain.LabelNeutral, confidenceBase
	}

	conf := int(confidenceBase + (abs/threshold)*confidenceSlope)
	if confirmed {
		conf += confirmedBonus
	}
	if conf > confidenceCap {
		conf = confidenceCap
	}

	strong := abs > threshold*strongMultiple
	switch {
	case score > 0 && strong:
		return domain.LabelStrongUp, conf
	case score > 0:
		return domain.LabelUp, conf
	case strong:
		return domain.LabelStrongDown, conf
	default:
		return domain.LabelDown, conf
	}
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
