package tracking

import "couriertrack/geo"

// Result classifies a courier position against a planned route. Nil fields
// mean "not yet computable" (no position or no usable route), which is a
// distinct state from off-route and must never render as a false positive.
type Result struct {
	OnRoute         *bool    `json:"on_route"`
	DeviationMeters *float64 `json:"deviation_meters"`
}

// Computable reports whether the result carries a classification.
func (r Result) Computable() bool { return r.OnRoute != nil }

// Equal compares two results by value.
func (r Result) Equal(o Result) bool {
	if (r.OnRoute == nil) != (o.OnRoute == nil) {
		return false
	}
	if r.OnRoute != nil && *r.OnRoute != *o.OnRoute {
		return false
	}
	if (r.DeviationMeters == nil) != (o.DeviationMeters == nil) {
		return false
	}
	if r.DeviationMeters != nil && *r.DeviationMeters != *o.DeviationMeters {
		return false
	}
	return true
}

// Evaluator classifies positions as on-route or deviated. The tolerance is
// a policy threshold absorbing GPS noise and road-network mismatch, not a
// physical constant.
type Evaluator struct {
	ToleranceMeters float64
}

func NewEvaluator(toleranceMeters float64) *Evaluator {
	return &Evaluator{ToleranceMeters: toleranceMeters}
}

// Evaluate is pure and performs no I/O. Position acquisition and route
// fetching happen in calling code.
func (e *Evaluator) Evaluate(pos *geo.Point, route []geo.Point) Result {
	if pos == nil {
		return Result{}
	}
	d, ok := geo.MinDistanceToPolyline(*pos, route)
	if !ok {
		return Result{}
	}
	onRoute := d <= e.ToleranceMeters
	return Result{OnRoute: &onRoute, DeviationMeters: &d}
}
