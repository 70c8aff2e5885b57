package efc

import "fmt"

// SearchOptions tunes DueTimeSearch.
type SearchOptions struct {
	ResolutionHours float64
	MaxIterations   int
	ShrinkFactor    float64
	Tolerance       float64
}

// DefaultSearch holds the standard search parameters.
var DefaultSearch = SearchOptions{
	ResolutionHours: 800,
	MaxIterations:   100,
	ShrinkFactor:    1.1,
	Tolerance:       0.01,
}

// DueTimeSearch estimates how many hours from f's current
// HoursSinceLastReview the predicted score reaches threshold. Each
// iteration calls the predictor once and moves the probe by the current
// resolution toward the threshold, then divides the resolution by the
// shrink factor. It stops inside the tolerance band or after MaxIterations
// calls, whichever comes first. Returns the hours delta and the number of
// predictor calls made.
func DueTimeSearch(p Predictor, f Features, language string, threshold float64, o SearchOptions) (float64, int, error) {
	if o.ShrinkFactor <= 0 {
		return 0, 0, fmt.Errorf("efc: shrink factor must be positive, got %v", o.ShrinkFactor)
	}
	origin := f.HoursSinceLastReview
	hours := origin
	res := o.ResolutionHours
	calls := 0

	for calls < o.MaxIterations {
		f.HoursSinceLastReview = hours
		scores, err := p.Predict([]Features{f}, language)
		calls++
		if err != nil {
			return 0, calls, err
		}
		if len(scores) != 1 {
			return 0, calls, fmt.Errorf("%w: %d scores for 1 record", ErrPredictorShape, len(scores))
		}

		switch score := scores[0]; {
		case score > threshold+o.Tolerance:
			hours += res
		case score < threshold-o.Tolerance:
			hours -= res
		default:
			return hours - origin, calls, nil
		}
		res /= o.ShrinkFactor
	}
	return hours - origin, calls, nil
}
