package lstm

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

func monthlySeries(values []float64) []models.Observation {
	series := make([]models.Observation, len(values))
	date := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		series[i] = models.Observation{Date: date, Arrivals: v}
		date = models.AddMonths(date, 1)
	}
	return series
}

func seasonalSeries(n int) []models.Observation {
	values := make([]float64, n)
	for i := range values {
		values[i] = 5000 + 1000*math.Sin(2*math.Pi*float64(i)/12)
	}
	return monthlySeries(values)
}

func testConfig() *Config {
	return &Config{
		Units:        32,
		Lookback:     12,
		Epochs:       400,
		BatchSize:    8,
		LearningRate: 0.005,
		Dropout:      0,
		TrainSplit:   0.8,
		ClipNorm:     5.0,
		Seed:         42,
	}
}

func TestScalerRoundTrip(t *testing.T) {
	values := []float64{4000, 5000, 6000, 5500, 4500}

	scaler := &MinMaxScaler{}
	require.NoError(t, scaler.Fit(values))

	scaled := scaler.Transform(values)
	for _, v := range scaled {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	restored := scaler.InverseTransform(scaled)
	for i, v := range restored {
		assert.InDelta(t, values[i], v, 1e-9)
	}
}

func TestScalerDegenerateRange(t *testing.T) {
	values := []float64{1000, 1000, 1000}

	scaler := &MinMaxScaler{}
	require.NoError(t, scaler.Fit(values))

	scaled := scaler.Transform(values)
	for _, v := range scaled {
		assert.Equal(t, 0.0, v)
	}

	// A degenerate range inverts to the fitted minimum no matter what the
	// network emits.
	assert.Equal(t, 1000.0, scaler.InverseValue(0.37))
}

func TestScalerEmptySeries(t *testing.T) {
	scaler := &MinMaxScaler{}
	err := scaler.Fit(nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptySeries)
}

func TestTrainInsufficientData(t *testing.T) {
	series := seasonalSeries(11)

	forecaster := NewForecaster(testConfig(), nil)
	_, _, _, err := forecaster.Train(context.Background(), series)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestTrainExactLookbackStillInsufficient(t *testing.T) {
	series := seasonalSeries(12)

	forecaster := NewForecaster(testConfig(), nil)
	_, _, _, err := forecaster.Train(context.Background(), series)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestTrainSeasonalSeries(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sequence training in short mode")
	}
	series := seasonalSeries(60)

	forecaster := NewForecaster(testConfig(), nil)
	model, scaler, metrics, err := forecaster.Train(context.Background(), series)
	require.NoError(t, err)
	require.NotNil(t, model)
	require.NotNil(t, scaler)

	// With a 12-month lookback each window spans a full seasonal cycle, so
	// the network has everything it needs to track the sine. 150 is 15% of
	// the seasonal amplitude, same bound as the tree forecaster test.
	assert.Less(t, metrics.TestRMSE, 150.0)
	assert.Less(t, metrics.TrainRMSE, 150.0)
}

func TestTrainConstantSeries(t *testing.T) {
	values := make([]float64, 36)
	for i := range values {
		values[i] = 1000
	}
	series := monthlySeries(values)

	cfg := testConfig()
	cfg.Epochs = 20
	forecaster := NewForecaster(cfg, nil)
	model, scaler, _, err := forecaster.Train(context.Background(), series)
	require.NoError(t, err)

	window := scaler.Transform(values[len(values)-cfg.Lookback:])
	next := scaler.InverseValue(model.PredictNext(window))
	assert.Equal(t, 1000.0, next)
}

func TestTrainDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping sequence training in short mode")
	}
	series := seasonalSeries(48)

	cfg := testConfig()
	cfg.Epochs = 30

	first, firstScaler, _, err := NewForecaster(cfg, nil).Train(context.Background(), series)
	require.NoError(t, err)
	second, secondScaler, _, err := NewForecaster(cfg, nil).Train(context.Background(), series)
	require.NoError(t, err)

	window := firstScaler.Transform(models.Values(series)[len(series)-cfg.Lookback:])
	assert.Equal(t, firstScaler.Min, secondScaler.Min)
	assert.InDelta(t, first.PredictNext(window), second.PredictNext(window), 1e-12)
}

func TestTrainCancelledContext(t *testing.T) {
	series := seasonalSeries(48)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, _, err := NewForecaster(testConfig(), nil).Train(ctx, series)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestModelJSONRoundTrip(t *testing.T) {
	series := seasonalSeries(48)

	cfg := testConfig()
	cfg.Epochs = 10
	model, scaler, _, err := NewForecaster(cfg, nil).Train(context.Background(), series)
	require.NoError(t, err)

	data, err := json.Marshal(model)
	require.NoError(t, err)

	var restored Model
	require.NoError(t, json.Unmarshal(data, &restored))
	assert.Equal(t, model.Units, restored.Units)
	assert.Equal(t, model.Lookback, restored.Lookback)

	window := scaler.Transform(models.Values(series)[len(series)-cfg.Lookback:])
	assert.InDelta(t, model.PredictNext(window), restored.PredictNext(window), 1e-12)
}
