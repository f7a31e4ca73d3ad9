// Package features turns the aggregate monthly arrivals series into the
// feature matrix consumed by the tree forecaster: calendar fields, cyclical
// encodings, lag values and trailing rolling statistics.
//
// The transform is pure and deterministic. Rolling windows use shift-by-one
// semantics: statistics for period t are computed from periods strictly
// before t, so the current target can never leak into its own features.
package features

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

// Lags are the lag depths applied to the arrivals series.
var Lags = []int{1, 2, 3, 6, 12}

// Windows are the trailing rolling-statistic window lengths.
var Windows = []int{3, 6, 12}

// MaxLag is the deepest history any single feature reaches back.
const MaxLag = 12

// Row is one engineered feature row with a fixed, typed schema. Field order
// mirrors the canonical column order returned by Columns.
type Row struct {
	Date time.Time

	Year    float64
	Month   float64
	Quarter float64

	MonthSin   float64
	MonthCos   float64
	QuarterSin float64
	QuarterCos float64

	Lag1  float64
	Lag2  float64
	Lag3  float64
	Lag6  float64
	Lag12 float64

	RollingMean3  float64
	RollingStd3   float64
	RollingMean6  float64
	RollingStd6   float64
	RollingMean12 float64
	RollingStd12  float64
}

// Columns returns the canonical ordered feature-column names. The tree
// forecaster persists this list at training time and inference must
// reproduce it exactly.
func Columns() []string {
	return []string{
		"year", "month", "quarter",
		"month_sin", "month_cos", "quarter_sin", "quarter_cos",
		"lag_1", "lag_2", "lag_3", "lag_6", "lag_12",
		"rolling_mean_3", "rolling_std_3",
		"rolling_mean_6", "rolling_std_6",
		"rolling_mean_12", "rolling_std_12",
	}
}

// Vector returns the row's feature values in canonical column order.
func (r Row) Vector() []float64 {
	return []float64{
		r.Year, r.Month, r.Quarter,
		r.MonthSin, r.MonthCos, r.QuarterSin, r.QuarterCos,
		r.Lag1, r.Lag2, r.Lag3, r.Lag6, r.Lag12,
		r.RollingMean3, r.RollingStd3,
		r.RollingMean6, r.RollingStd6,
		r.RollingMean12, r.RollingStd12,
	}
}

// BuildTrainingSet engineers feature rows for every observation whose full
// lag and rolling history exists. Rows needing periods before the start of
// the series are dropped, never imputed. Output order matches input date
// order; targets[i] is the arrivals value at rows[i].Date.
func BuildTrainingSet(series []models.Observation) (rows []Row, targets []float64) {
	values := models.Values(series)

	for i := MaxLag; i < len(series); i++ {
		rows = append(rows, buildRow(series[i].Date, values[:i]))
		targets = append(targets, series[i].Arrivals)
	}
	return rows, targets
}

// BuildNext engineers the inference-time feature row for the period
// immediately following the given history. The history may already contain
// previously forecast values appended during a recursive rollout. Lags must
// be fully resolvable; rolling statistics use the trailing values that
// exist, which keeps early rollout steps well defined.
func BuildNext(history []models.Observation, date time.Time) (Row, error) {
	if len(history) < MaxLag {
		return Row{}, errors.NewInsufficientDataError(
			fmt.Sprintf("need at least %d observations to build features, have %d", MaxLag, len(history)))
	}
	return buildRow(date, models.Values(history)), nil
}

// buildRow assembles one row for the period at date, where prior holds every
// arrivals value strictly before that period, in order. Callers guarantee
// len(prior) >= MaxLag on the lag path; rolling statistics tolerate shorter
// tails by shrinking the window.
func buildRow(date time.Time, prior []float64) Row {
	month := float64(date.Month())
	quarter := float64((int(date.Month())-1)/3 + 1)

	row := Row{
		Date:       date,
		Year:       float64(date.Year()),
		Month:      month,
		Quarter:    quarter,
		MonthSin:   math.Sin(2 * math.Pi * month / 12),
		MonthCos:   math.Cos(2 * math.Pi * month / 12),
		QuarterSin: math.Sin(2 * math.Pi * quarter / 4),
		QuarterCos: math.Cos(2 * math.Pi * quarter / 4),
	}

	n := len(prior)
	row.Lag1 = prior[n-1]
	row.Lag2 = prior[n-2]
	row.Lag3 = prior[n-3]
	row.Lag6 = prior[n-6]
	row.Lag12 = prior[n-12]

	row.RollingMean3, row.RollingStd3 = trailingStats(prior, 3)
	row.RollingMean6, row.RollingStd6 = trailingStats(prior, 6)
	row.RollingMean12, row.RollingStd12 = trailingStats(prior, 12)

	return row
}

// trailingStats returns the mean and sample standard deviation of the last
// window values of prior. A short tail shrinks the window; fewer than two
// values yields a zero deviation.
func trailingStats(prior []float64, window int) (mean, std float64) {
	if len(prior) == 0 {
		return 0, 0
	}
	if window > len(prior) {
		window = len(prior)
	}
	tail := prior[len(prior)-window:]

	mean = stat.Mean(tail, nil)
	if len(tail) > 1 {
		std = stat.StdDev(tail, nil)
	}
	return mean, std
}
