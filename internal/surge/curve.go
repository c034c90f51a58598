package surge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// DefaultCurveSpec maps dispatches in the demand window to a multiplier:
// no surge up to 10, then a ramp reaching 2.5x at 50.
const DefaultCurveSpec = "0:1.0,10:1.0,20:1.25,35:1.75,50:2.5"

// Point is one breakpoint of a Curve.
type Point struct {
	Demand     int64
	Multiplier decimal.Decimal
}

// Curve is a monotonic piecewise-linear mapping from demand to multiplier.
// It is flat before the first and after the last breakpoint.
type Curve struct {
	points []Point
}

// NewCurve validates and builds a curve. Demands must strictly increase and
// multipliers must never decrease.
func NewCurve(points []Point) (Curve, error) {
	if len(points) == 0 {
		return Curve{}, fmt.Errorf("surge curve needs at least one point")
	}
	var errs error
	for i, p := range points {
		if !p.Multiplier.IsPositive() {
			errs = multierr.Append(errs, fmt.Errorf("point %d: multiplier must be positive", i))
		}
		if i == 0 {
			continue
		}
		prev := points[i-1]
		if p.Demand <= prev.Demand {
			errs = multierr.Append(errs, fmt.Errorf("point %d: demand %d must exceed %d", i, p.Demand, prev.Demand))
		}
		if p.Multiplier.LessThan(prev.Multiplier) {
			errs = multierr.Append(errs, fmt.Errorf("point %d: multiplier %s decreases from %s", i, p.Multiplier, prev.Multiplier))
		}
	}
	if errs != nil {
		return Curve{}, errs
	}
	out := make([]Point, len(points))
	copy(out, points)
	return Curve{points: out}, nil
}

// ParseCurve reads "demand:multiplier" pairs separated by commas.
func ParseCurve(raw string) (Curve, error) {
	var points []Point
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rawDemand, rawMult, ok := strings.Cut(part, ":")
		if !ok {
			return Curve{}, fmt.Errorf("curve point %q: expected demand:multiplier", part)
		}
		demand, err := strconv.ParseInt(strings.TrimSpace(rawDemand), 10, 64)
		if err != nil {
			return Curve{}, fmt.Errorf("curve point %q: demand: %w", part, err)
		}
		mult, err := decimal.NewFromString(strings.TrimSpace(rawMult))
		if err != nil {
			return Curve{}, fmt.Errorf("curve point %q: multiplier: %w", part, err)
		}
		points = append(points, Point{Demand: demand, Multiplier: mult})
	}
	return NewCurve(points)
}

// DefaultCurve returns the curve described by DefaultCurveSpec.
func DefaultCurve() Curve {
	c, err := ParseCurve(DefaultCurveSpec)
	if err != nil {
		panic(err)
	}
	return c
}

// Points returns a copy of the breakpoints.
func (c Curve) Points() []Point {
	out := make([]Point, len(c.points))
	copy(out, c.points)
	return out
}

// Multiplier evaluates the curve. Negative demand counts as zero.
func (c Curve) Multiplier(demand int64) decimal.Decimal {
	if len(c.points) == 0 {
		return decimal.NewFromInt(1)
	}
	if demand < 0 {
		demand = 0
	}
	first, last := c.points[0], c.points[len(c.points)-1]
	if demand <= first.Demand {
		return first.Multiplier
	}
	if demand >= last.Demand {
		return last.Multiplier
	}
	for i := 1; i < len(c.points); i++ {
		hi := c.points[i]
		if demand > hi.Demand {
			continue
		}
		lo := c.points[i-1]
		span := decimal.NewFromInt(hi.Demand - lo.Demand)
		offset := decimal.NewFromInt(demand - lo.Demand)
		return lo.Multiplier.Add(hi.Multiplier.Sub(lo.Multiplier).Mul(offset).Div(span))
	}
	return last.Multiplier
}
