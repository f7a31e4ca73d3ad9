package lstm

import (
	"github.com/lankastats/tourcast/pkg/errors"
)

// MinMaxScaler compresses the arrivals series into [0, 1]. It is fit exactly
// once on the full historical series and the same instance is reused for all
// inference: forecasts must be inverse-transformed through the scaler the
// model was trained with.
type MinMaxScaler struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Fitted bool    `json:"fitted"`
}

// NewMinMaxScaler returns an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit records the observed range of the series.
func (s *MinMaxScaler) Fit(values []float64) error {
	if len(values) == 0 {
		return errors.WrapError(errors.ErrEmptySeries, errors.ErrorTypeValidation, errors.CodeInvalidInput, "cannot fit scaler on empty data")
	}
	s.Min, s.Max = values[0], values[0]
	for _, v := range values {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Fitted = true
	return nil
}

// TransformValue scales one value into the fitted range. A degenerate range
// (constant series) maps every in-range value to zero.
func (s *MinMaxScaler) TransformValue(v float64) float64 {
	scale := s.Max - s.Min
	if scale == 0 {
		return 0
	}
	return (v - s.Min) / scale
}

// Transform scales a slice of values.
func (s *MinMaxScaler) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.TransformValue(v)
	}
	return out
}

// InverseValue maps one scaled value back to raw arrival-count units.
func (s *MinMaxScaler) InverseValue(v float64) float64 {
	return v*(s.Max-s.Min) + s.Min
}

// InverseTransform maps scaled values back to raw units.
func (s *MinMaxScaler) InverseTransform(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = s.InverseValue(v)
	}
	return out
}
