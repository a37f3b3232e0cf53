package model

// SignalType discriminates the signal union.
type SignalType string

const (
	SignalOpen     SignalType = "open"
	SignalClose    SignalType = "close"
	SignalStopLoss SignalType = "stopLoss"
)

// Action is the per-leg order side.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// SignalLeg carries the side and reference price for one leg.
type SignalLeg struct {
	Action Action  `json:"action"`
	Price  float64 `json:"price"`
}

// Signal is a proposed transition emitted by the strategy. The strategy
// never assumes a signal was acted on: the consumer must answer with an
// explicit accept/reject callback before the strategy changes state.
// Beta is set on open signals only.
type Signal struct {
	Type      SignalType `json:"type"`
	Direction Direction  `json:"direction"`
	LegA      SignalLeg  `json:"leg_a"`
	LegB      SignalLeg  `json:"leg_b"`
	Beta      float64    `json:"beta,omitempty"`
	Reason    string     `json:"reason"`
}
