package search

import (
	"log/slog"
	"math"
)

// base holds the state and validation shared by every suggester.
type base struct {
	space  *Space
	steps  []Step
	logger *slog.Logger
	mode   string
}

func newBase(space *Space, o options, mode string) base {
	b := base{space: space, logger: o.logger, mode: mode}

	for _, step := range o.steps {
		if !b.IsValidPoint(step.Point) {
			b.logger.Warn("dropping prior step outside of the search space",
				"point", step.Point,
				"observation", step.Observation,
				"space", space.String(),
			)

			continue
		}

		if !finite(step.Observation) {
			b.logger.Warn("dropping prior step with a non-finite observation",
				"point", step.Point,
				"observation", step.Observation,
			)

			continue
		}

		b.steps = append(b.steps, Step{Point: clonePoint(step.Point), Observation: step.Observation})
	}

	return b
}

// Space implements Suggester.
func (b *base) Space() *Space { return b.space }

// IsValidPoint implements Suggester.
func (b *base) IsValidPoint(point Point) bool {
	if len(point) != b.space.Len() {
		return false
	}

	ok, err := b.space.Contains(point)

	return err == nil && ok
}

// PreviousSteps implements Suggester.
func (b *base) PreviousSteps() []Step { return append([]Step(nil), b.steps...) }

// PreviousPoints implements Suggester.
func (b *base) PreviousPoints() []Point {
	points := make([]Point, len(b.steps))
	for i, step := range b.steps {
		points[i] = step.Point
	}

	return points
}

// PreviousUnitPoints implements Suggester.
func (b *base) PreviousUnitPoints() []UnitPoint {
	units := make([]UnitPoint, 0, len(b.steps))

	for _, step := range b.steps {
		u, err := b.space.ToUnit(step.Point)
		if err != nil {
			continue
		}

		units = append(units, u)
	}

	return units
}

// Mode implements Suggester.
func (b *base) Mode() string { return b.mode }

// seen reports whether point was already recorded.
func (b *base) seen(point Point) bool {
	for _, step := range b.steps {
		if samePoint(step.Point, point) {
			return true
		}
	}

	return false
}

// record validates point and observation and appends them to the history.
// It reports whether the step was recorded.
func (b *base) record(point Point, observation float64) bool {
	if !b.IsValidPoint(point) {
		b.logger.Warn("ignoring point outside of the search space",
			"point", point,
			"space", b.space.String(),
		)

		return false
	}

	if !finite(observation) {
		b.logger.Warn("ignoring non-finite observation",
			"point", point,
			"observation", observation,
		)

		return false
	}

	if b.seen(point) {
		b.logger.Warn("point has already been evaluated", "point", point)
	}

	b.steps = append(b.steps, Step{Point: clonePoint(point), Observation: observation})

	return true
}

func clonePoint(p Point) Point {
	out := make(Point, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// suggestMany calls suggest n times.
func suggestMany(n int, suggest func() (Point, error)) ([]Point, error) {
	points := make([]Point, 0, n)

	for i := 0; i < n; i++ {
		p, err := suggest()
		if err != nil {
			return points, err
		}

		points = append(points, p)
	}

	return points, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
