package pricing

// Plan selects the premium multiplier and the payout cap fraction.
// The cap is tier/10 of the computed loss, so tier 10 covers the full loss.
type Plan uint8

const (
	PlanBasic    Plan = 1  // 10% cap
	PlanStandard Plan = 2  // 20% cap
	PlanPlus     Plan = 5  // 50% cap
	PlanFull     Plan = 10 // 100% cap
)

var validPlans = map[Plan]struct{}{
	PlanBasic:    {},
	PlanStandard: {},
	PlanPlus:     {},
	PlanFull:     {},
}

// Valid reports whether p is a recognized plan tier.
func (p Plan) Valid() bool {
	_, ok := validPlans[p]
	return ok
}

// CapPercent returns the payout cap as a whole percentage of the loss.
func (p Plan) CapPercent() uint64 {
	return uint64(p) * 10
}

// Plans returns the recognized tiers in ascending order.
func Plans() []Plan {
	return []Plan{PlanBasic, PlanStandard, PlanPlus, PlanFull}
}
