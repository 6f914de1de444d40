package allocation

import "math"

// DemandUtility models one coalition member's satisfaction with its share of
// pooled CPU and RAM capacity.
//
//	u_p(x) = w_p * satisfaction(x) - lambda_cpu*x_cpu - lambda_ram*x_ram
type DemandUtility struct {
	// Satisfaction modeling
	TargetUtilization  float64 // desired CPU utilization, e.g. 0.8
	CurrentUtilization float64 // observed utilization at the current allocation
	Weight             float64 // w_p: importance of satisfaction to this member
	Sensitivity        float64 // steepness of the satisfaction sigmoid

	// Shadow prices, updated each primal-dual round
	LambdaCPU float64
	LambdaRAM float64

	// Disagreement point: minimum viable share
	BaselineCPU float64
	BaselineRAM float64

	// Current allocation
	AllocCPU float64
	AllocRAM float64

	// Bounds
	MaxCPU float64
	MaxRAM float64
}

// DefaultSensitivity is the default steepness of the satisfaction sigmoid.
const DefaultSensitivity = 0.1

// Utility returns u_p(x) at the member's current allocation.
func (d *DemandUtility) Utility() float64 {
	resourceCost := d.LambdaCPU*d.AllocCPU + d.LambdaRAM*d.AllocRAM
	return d.Weight*d.Satisfaction() - resourceCost
}

// Satisfaction returns a value in [0,1] via a sigmoid centered on
// TargetUtilization: 1 when CurrentUtilization is well below target, falling
// off as utilization approaches or exceeds it.
func (d *DemandUtility) Satisfaction() float64 {
	if d.TargetUtilization <= 0 {
		return 1.0
	}
	k := d.Sensitivity
	if k <= 0 {
		k = DefaultSensitivity
	}
	exponent := k * (d.CurrentUtilization - d.TargetUtilization)
	return 1.0 / (1.0 + math.Exp(exponent))
}

// MarginalUtilityCPU approximates du/dAllocCPU using the chain rule through
// the satisfaction sigmoid and a simple utilization-vs-allocation model
// (utilization falls as allocation grows, for a fixed baseline demand).
func (d *DemandUtility) MarginalUtilityCPU() float64 {
	if d.AllocCPU <= 0 {
		return d.Weight
	}

	k := d.Sensitivity
	if k <= 0 {
		k = DefaultSensitivity
	}
	s := d.Satisfaction()
	dSatisfactiondUtil := -k * s * (1 - s)

	dUtildAlloc := -d.CurrentUtilization / d.AllocCPU

	return d.Weight*dSatisfactiondUtil*dUtildAlloc - d.LambdaCPU
}

// Surplus returns the allocation above the disagreement point, clamped to
// zero.
func (d *DemandUtility) Surplus() float64 {
	if s := d.AllocCPU - d.BaselineCPU; s > 0 {
		return s
	}
	return 0
}

// SetAllocation updates the current CPU/RAM allocation used by Utility and
// the marginal-utility estimate.
func (d *DemandUtility) SetAllocation(cpu, ram float64) {
	d.AllocCPU = cpu
	d.AllocRAM = ram
}
