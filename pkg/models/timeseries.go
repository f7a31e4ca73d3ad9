package models

import (
	"time"
)

// RawRecord is one ingested row of the arrivals dataset: the arrivals count
// recorded for a single source country in a single calendar month.
type RawRecord struct {
	Date     time.Time `json:"date"`
	Country  string    `json:"country"`
	Arrivals float64   `json:"arrivals"`
}

// Observation is one point of the aggregate monthly series used for
// forecasting: arrivals summed across all source countries. Dates are
// month-start and strictly increasing after aggregation.
type Observation struct {
	Date     time.Time `json:"date"`
	Arrivals float64   `json:"arrivals"`
}

// ForecastRow is one future month of the persisted forecast table. A nil
// model column means that model was unavailable when the forecast was
// generated; the ensemble degrades to the mean of the available columns.
type ForecastRow struct {
	Date             time.Time `json:"date"`
	TreeForecast     *float64  `json:"tree_forecast"`
	LSTMForecast     *float64  `json:"lstm_forecast"`
	EnsembleForecast *float64  `json:"ensemble_forecast"`
}

// EvalMetrics reports model accuracy on the chronological train/test splits.
// Values are always in raw arrival-count units.
type EvalMetrics struct {
	TrainMAE  float64 `json:"train_mae"`
	TrainRMSE float64 `json:"train_rmse"`
	TestMAE   float64 `json:"test_mae"`
	TestRMSE  float64 `json:"test_rmse"`
}

// FeatureImportance is one entry of the tree model's diagnostic ranking.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// MonthStart normalizes t to the first day of its month in UTC.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths returns the month-start n calendar months after t.
func AddMonths(t time.Time, n int) time.Time {
	return MonthStart(t).AddDate(0, n, 0)
}

// Values extracts the arrivals values of a series in order.
func Values(series []Observation) []float64 {
	values := make([]float64, len(series))
	for i, obs := range series {
		values[i] = obs.Arrivals
	}
	return values
}

// Float64Ptr returns a pointer to v. Used for nullable forecast columns.
func Float64Ptr(v float64) *float64 {
	return &v
}
