package labbook

import (
	"context"
	"errors"
	"fmt"

	"github.com/thalesfsp/labbook/internal/value"
	"github.com/thalesfsp/labbook/search"
)

// AutomateOptions configures Automate.
//
// Fields:
// - Steps: Number of suggest, call, tell cycles. Zero means the remaining
// size of a sized suggester
// - Overrides: Fixed arguments passed to every call. They must not name a
// dimension of the search space
// - Extract: Turns a result into the value the suggester minimises. Defaults
// to the result itself, which must then be a number
type AutomateOptions struct {
	Steps     int
	Overrides map[string]any
	Extract   func(result any) (float64, error)
}

// recorder is implemented by suggesters able to defer model refits while
// being seeded.
type recorder interface {
	Record(point search.Point, output float64, fit bool) error
}

// Automate drives exp with suggester: it seeds the suggester with the
// matching observations already recorded, then repeatedly asks for a point,
// runs the experiment on it and tells the suggester the outcome. Each
// observation is tagged with the suggester's mode under "search-mode".
//
// Parameters:
// - ctx: Cancelling it stops the loop between cycles
// - exp: The experiment to run
// - suggester: A fresh suggester, without previous steps
// - opts: See AutomateOptions
//
// Returns:
// - []search.Step: The steps run by this call, in order
// - error: Configuration errors are returned before anything runs
//
// Usage example:
//
//	space := search.MustSpace(search.Dim("x", []any{1, 2, 3}))
//
//	grid, err := search.NewGridSuggester(space)
//	if err != nil {
//	    return err
//	}
//
//	steps, err := labbook.Automate(ctx, square, grid, labbook.AutomateOptions{})
func Automate(
	ctx context.Context,
	exp *Experiment,
	suggester search.Suggester,
	opts AutomateOptions,
) ([]search.Step, error) {
	if len(suggester.PreviousSteps()) > 0 {
		return nil, ErrUsedSuggester
	}

	space := suggester.Space()

	for k := range opts.Overrides {
		if space.Has(k) {
			return nil, fmt.Errorf("%w: %q", ErrOverride, k)
		}
	}

	extract := opts.Extract
	if extract == nil {
		extract = defaultExtract
	}

	if err := seed(ctx, exp, suggester, opts.Overrides, extract); err != nil {
		return nil, err
	}

	n := opts.Steps
	if n <= 0 {
		sized, ok := suggester.(search.Sized)
		if !ok {
			return nil, ErrSteps
		}

		n = sized.Remaining()
	}

	steps := make([]search.Step, 0, n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return steps, err
		}

		point, err := suggester.Suggest()
		if errors.Is(err, search.ErrExhausted) {
			exp.logger.Info("search space exhausted", "steps", len(steps))

			break
		}

		if err != nil {
			return steps, err
		}

		args := make(map[string]any, len(point)+len(opts.Overrides))
		for k, v := range opts.Overrides {
			args[k] = v
		}

		for k, v := range point {
			args[k] = v
		}

		result, err := exp.Call(ctx, args, WithMetadata(map[string]any{SearchModeKey: suggester.Mode()}))
		if err != nil {
			return steps, err
		}

		observation, err := extract(result)
		if err != nil {
			return steps, fmt.Errorf("extracting observation of %v: %w", point, err)
		}

		suggester.Tell(point, observation)

		steps = append(steps, search.Step{Point: point, Observation: observation})
	}

	return steps, nil
}

// seed tells suggester about the recorded observations whose config matches
// overrides and lies in its space.
func seed(
	ctx context.Context,
	exp *Experiment,
	suggester search.Suggester,
	overrides map[string]any,
	extract func(any) (float64, error),
) error {
	observations, err := exp.Filter(ctx, overrides)
	if err != nil {
		return err
	}

	space := suggester.Space()

	var prior []search.Step

	for _, obs := range observations {
		point := search.Point{}

		for k, v := range obs.Config {
			if space.Has(k) {
				point[k] = v
			}
		}

		if !suggester.IsValidPoint(point) {
			continue
		}

		observation, err := extract(obs.Result)
		if err != nil {
			exp.logger.Warn("skipping recorded observation", "id", obs.ID, "error", err)

			continue
		}

		prior = append(prior, search.Step{Point: point, Observation: observation})
	}

	r, batched := suggester.(recorder)

	for i, step := range prior {
		if !batched {
			suggester.Tell(step.Point, step.Observation)

			continue
		}

		if err := r.Record(step.Point, step.Observation, i == len(prior)-1); err != nil {
			return fmt.Errorf("seeding suggester: %w", err)
		}
	}

	if len(prior) > 0 {
		exp.logger.Debug("seeded suggester from recorded observations", "steps", len(prior))
	}

	return nil
}

func defaultExtract(result any) (float64, error) {
	f, ok := value.ToFloat(result)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrNotObservable, result)
	}

	return f, nil
}
