package domain

// Label is the directional classification of a Signal.
type Label string

const (
	LabelStrongUp   Label = "STRONG_UP"
	LabelUp         Label = "UP"
	LabelNeutral    Label = "NEUTRAL"
	LabelDown       Label = "DOWN"
	LabelStrongDown Label = "STRONG_DOWN"
)

// Direction returns the side a label favors, or "" for NEUTRAL.
func (l Label) Direction() Side {
	switch l {
	case LabelStrongUp, LabelUp:
		return SideUp
	case LabelStrongDown, LabelDown:
		return SideDown
	}
	return ""
}

// Strong reports whether the label is one of the STRONG_* variants.
func (l Label) Strong() bool {
	return l == LabelStrongUp || l == LabelStrongDown
}

// Signal is the per-cycle output of the signal engine. Immutable once built.
type Signal struct {
	Label               Label     `json:"label"`
	Confidence          int       `json:"confidence"`
	Score               float64   `json:"score"`
	OBIComponent        float64   `json:"obi_component"`
	MomentumComponent   float64   `json:"momentum_component"`
	DivergenceComponent float64   `json:"divergence_component"`
	Confirmed           bool      `json:"confirmed"`
	EffectiveThreshold  float64   `json:"effective_threshold"`
	CombinedOBI         float64   `json:"combined_obi"`
	Smoothed            float64   `json:"smoothed"`
	DepthBoost          float64   `json:"depth_boost"`
	SpreadPenalty       float64   `json:"spread_penalty"`
	Fused               bool      `json:"fused"`
	History             []float64 `json:"history"`
}

// Divergence compares the probability implied by spot momentum with the UP
// token price. Direction is UP, DOWN or NEUTRAL.
type Divergence struct {
	Direction   Label   `json:"direction"`
	Value       float64 `json:"divergence"`
	ImpliedProb float64 `json:"implied_prob"`
	Strength    float64 `json:"strength"`
}

// Signed returns the strength with the sign of the direction.
func (d Divergence) Signed() float64 {
	switch d.Direction {
	case LabelUp, LabelStrongUp:
		return d.Strength
	case LabelDown, LabelStrongDown:
		return -d.Strength
	}
	return 0
}

// MomentumSnapshot is the external price-momentum reading for one cycle.
type MomentumSnapshot struct {
	Available  bool       `json:"available"`
	Symbol     string     `json:"symbol"`
	Price      float64    `json:"price"`
	Mom30s     float64    `json:"mom_30s"`
	Mom60s     float64    `json:"mom_60s"`
	Mom90s     float64    `json:"mom_90s"`
	Divergence Divergence `json:"divergence"`
}
