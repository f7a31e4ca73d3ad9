package gbt

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankastats/tourcast/internal/features"
	apperrors "github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func seasonalSeries(n int) []models.Observation {
	series := make([]models.Observation, n)
	start := time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		series[i] = models.Observation{
			Date:     start.AddDate(0, i, 0),
			Arrivals: 5000 + 1000*math.Sin(2*math.Pi*float64(i)/12),
		}
	}
	return series
}

func constantSeries(n int, v float64) []models.Observation {
	series := make([]models.Observation, n)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		series[i] = models.Observation{Date: start.AddDate(0, i, 0), Arrivals: v}
	}
	return series
}

func TestTrainSeasonalSeries(t *testing.T) {
	series := seasonalSeries(60)
	rows, targets := features.BuildTrainingSet(series)

	forecaster := NewForecaster(nil, testLogger())
	model, metrics, err := forecaster.Train(rows, targets)
	require.NoError(t, err)
	require.NotNil(t, model)
	require.NotEmpty(t, model.Trees)

	// A clean seasonal pattern with lag_12 available should be learned far
	// inside 15% of the amplitude.
	assert.Less(t, metrics.TestRMSE, 150.0)
	assert.Less(t, metrics.TrainRMSE, 150.0)
}

func TestTrainConstantSeries(t *testing.T) {
	series := constantSeries(24, 1000)
	rows, targets := features.BuildTrainingSet(series)

	forecaster := NewForecaster(nil, testLogger())
	model, metrics, err := forecaster.Train(rows, targets)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, metrics.TestRMSE, 1e-6)

	next, err := features.BuildNext(series, models.AddMonths(series[len(series)-1].Date, 1))
	require.NoError(t, err)
	pred, err := model.Predict(next.Vector(), model.Columns)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, pred, 1e-6)
}

func TestTrainInsufficientData(t *testing.T) {
	// 12 observations produce zero feature rows: below max(lags)+1.
	series := constantSeries(12, 500)
	rows, targets := features.BuildTrainingSet(series)

	forecaster := NewForecaster(nil, testLogger())
	_, _, err := forecaster.Train(rows, targets)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientData)
}

func TestPredictFeatureMismatch(t *testing.T) {
	series := seasonalSeries(48)
	rows, targets := features.BuildTrainingSet(series)

	forecaster := NewForecaster(nil, testLogger())
	model, _, err := forecaster.Train(rows, targets)
	require.NoError(t, err)

	next, err := features.BuildNext(series, models.AddMonths(series[len(series)-1].Date, 1))
	require.NoError(t, err)

	// Missing one training-time column must block prediction.
	truncated := model.Columns[:len(model.Columns)-1]
	_, err = model.Predict(next.Vector()[:len(truncated)], truncated)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrFeatureMismatch)

	// Reordered columns are equally a contract violation.
	reordered := append([]string{}, model.Columns...)
	reordered[0], reordered[1] = reordered[1], reordered[0]
	_, err = model.Predict(next.Vector(), reordered)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrFeatureMismatch)
}

func TestChronologicalSplitBoundary(t *testing.T) {
	cases := map[int]int{10: 8, 11: 8, 48: 38, 55: 44, 5: 4}
	for n, want := range cases {
		assert.Equal(t, want, splitIndex(n), "n=%d", n)
	}
}

func TestFeatureImportanceRanking(t *testing.T) {
	series := seasonalSeries(60)
	rows, targets := features.BuildTrainingSet(series)

	forecaster := NewForecaster(nil, testLogger())
	model, _, err := forecaster.Train(rows, targets)
	require.NoError(t, err)

	ranking := model.FeatureImportances()
	require.Len(t, ranking, len(features.Columns()))
	for i := 1; i < len(ranking); i++ {
		assert.GreaterOrEqual(t, ranking[i-1].Importance, ranking[i].Importance)
	}
	assert.Greater(t, ranking[0].Importance, 0.0)
}

func TestTrainDeterministic(t *testing.T) {
	series := seasonalSeries(48)
	rows, targets := features.BuildTrainingSet(series)

	forecaster := NewForecaster(nil, testLogger())
	modelA, metricsA, err := forecaster.Train(rows, targets)
	require.NoError(t, err)
	modelB, metricsB, err := forecaster.Train(rows, targets)
	require.NoError(t, err)

	assert.Equal(t, metricsA, metricsB)
	assert.Equal(t, len(modelA.Trees), len(modelB.Trees))
}
