package pipeline

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankastats/tourcast/internal/forecaster/gbt"
	"github.com/lankastats/tourcast/internal/forecaster/lstm"
	"github.com/lankastats/tourcast/internal/store"
	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	artifacts, err := store.NewFileStore(&store.FileStoreConfig{BaseDir: t.TempDir()}, nil)
	require.NoError(t, err)
	forecasts, err := store.NewForecastCSVStore(filepath.Join(t.TempDir(), "forecast.csv"), nil)
	require.NoError(t, err)

	treeCfg := gbt.DefaultConfig()
	treeCfg.Rounds = 20
	seqCfg := lstm.DefaultConfig()
	seqCfg.Units = 16
	seqCfg.Epochs = 10

	return New(treeCfg, seqCfg, artifacts, forecasts, nil)
}

func seasonalRecords(n int) []models.RawRecord {
	records := make([]models.RawRecord, n)
	date := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := range records {
		records[i] = models.RawRecord{
			Date:     date,
			Country:  "India",
			Arrivals: 5000 + 1000*math.Sin(2*math.Pi*float64(i)/12),
		}
		date = models.AddMonths(date, 1)
	}
	return records
}

func TestTrainThenForecast(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full pipeline in short mode")
	}
	p := testPipeline(t)
	ctx := context.Background()
	records := seasonalRecords(60)

	result, err := p.Train(ctx, records)
	require.NoError(t, err)
	require.NotEmpty(t, result.GenerationID)
	require.NotNil(t, result.TreeMetrics)
	require.NotNil(t, result.SeqMetrics)
	assert.NotEmpty(t, result.Importances)

	rows, err := p.Forecast(ctx, records, 12)
	require.NoError(t, err)
	require.Len(t, rows, 12)

	for _, row := range rows {
		require.NotNil(t, row.TreeForecast)
		require.NotNil(t, row.LSTMForecast)
		require.NotNil(t, row.EnsembleForecast)
		assert.InDelta(t, (*row.TreeForecast+*row.LSTMForecast)/2, *row.EnsembleForecast, 1e-9)
	}

	// The persisted table matches what Forecast returned.
	saved, err := p.forecasts.Load(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 12)
	assert.Equal(t, rows[0].Date, saved[0].Date)
}

func TestTrainInsufficientHistory(t *testing.T) {
	p := testPipeline(t)

	_, err := p.Train(context.Background(), seasonalRecords(11))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestForecastWithoutTraining(t *testing.T) {
	p := testPipeline(t)

	_, err := p.Forecast(context.Background(), seasonalRecords(60), 12)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactNotFound)
}

func TestLoadInputsRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping full pipeline in short mode")
	}
	p := testPipeline(t)
	ctx := context.Background()
	records := seasonalRecords(48)

	_, err := p.Train(ctx, records)
	require.NoError(t, err)

	in, err := p.LoadInputs(ctx)
	require.NoError(t, err)
	assert.NotNil(t, in.Tree)
	assert.NotNil(t, in.Seq)
	require.NotNil(t, in.Scaler)
	assert.True(t, in.Scaler.Fitted)
	assert.NotEmpty(t, in.Columns)
}
