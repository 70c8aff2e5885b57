// Package efc scores revisions with a forgetting curve and decides what is
// due for review.
package efc

import (
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrPredictorShape is returned when a predictor's parameters do not match
// the feature vector.
var ErrPredictorShape = errors.New("efc: predictor shape mismatch")

// NumFeatures is the length of the base feature vector.
const NumFeatures = 6

// Features is the input to a predictor for one revision.
type Features struct {
	TotalCards           float64
	PrevCardsPerMinute   float64
	HoursSinceCreation   float64
	HoursSinceLastReview float64
	Repeats              float64
	PrevScore            float64 // percent
}

// Vector returns the base features in model column order followed by a
// one-hot encoding of language over languages.
func (f Features) Vector(languages []string, language string) []float64 {
	v := []float64{
		f.TotalCards,
		f.PrevCardsPerMinute,
		f.HoursSinceCreation,
		f.HoursSinceLastReview,
		f.Repeats,
		f.PrevScore,
	}
	for _, l := range languages {
		if l == language {
			v = append(v, 1)
		} else {
			v = append(v, 0)
		}
	}
	return v
}

// Predictor maps feature records to retention scores in [0, 100]. The
// result has one score per record.
type Predictor interface {
	Predict(records []Features, language string) ([]float64, error)
}

// Decay is the closed-form forgetting curve:
//
//	s     = repeats^2.039 + 0.01*prev_score*(-4.566) - (-12.495)*exp(total*(-0.001))
//	score = 100 * exp(-hours_since_last_review / (24*s))
type Decay struct{}

// Stability returns s for f.
func (Decay) Stability(f Features) float64 {
	return math.Pow(f.Repeats, 2.039) + 0.01*f.PrevScore*(-4.566) - (-12.495)*math.Exp(f.TotalCards*(-0.001))
}

// Predict implements Predictor.
func (d Decay) Predict(records []Features, _ string) ([]float64, error) {
	out := make([]float64, len(records))
	for i, f := range records {
		// A negative s makes the exponent positive; the clamp caps it at 100.
		s := d.Stability(f)
		out[i] = clampScore(100 * math.Exp(-f.HoursSinceLastReview/(24*s)))
	}
	return out, nil
}

// Linear is a regression model read from YAML:
//
//	intercept: 80.5
//	coefficients: [0.01, 0.2, -0.001, -0.05, 2.1, 0.3]
//	languages: [EN, DE]
//	language_coefficients: [1.5, -2.0]
//
// Coefficients follow Features.Vector order.
type Linear struct {
	Intercept            float64   `yaml:"intercept"`
	Coefficients         []float64 `yaml:"coefficients"`
	Languages            []string  `yaml:"languages"`
	LanguageCoefficients []float64 `yaml:"language_coefficients"`
}

// Validate checks the model dimensions.
func (m *Linear) Validate() error {
	if len(m.Coefficients) != NumFeatures {
		return fmt.Errorf("%w: %d coefficients, want %d", ErrPredictorShape, len(m.Coefficients), NumFeatures)
	}
	if len(m.LanguageCoefficients) != len(m.Languages) {
		return fmt.Errorf("%w: %d language coefficients for %d languages",
			ErrPredictorShape, len(m.LanguageCoefficients), len(m.Languages))
	}
	return nil
}

// Predict implements Predictor. Languages the model was not trained on get
// an all-zero one-hot block.
func (m *Linear) Predict(records []Features, language string) ([]float64, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	weights := slices.Concat(m.Coefficients, m.LanguageCoefficients)
	out := make([]float64, len(records))
	for i, f := range records {
		y := m.Intercept
		for j, x := range f.Vector(m.Languages, language) {
			y += weights[j] * x
		}
		out[i] = clampScore(y)
	}
	return out, nil
}

// LoadPredictor returns the model stored at path, or Decay when path is
// empty.
func LoadPredictor(path string) (Predictor, error) {
	if path == "" {
		return Decay{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("efc: read model: %w", err)
	}
	var m Linear
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("efc: parse model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("efc: model %s: %w", path, err)
	}
	return &m, nil
}

func clampScore(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
