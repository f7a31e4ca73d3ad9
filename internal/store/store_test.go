package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(&FileStoreConfig{BaseDir: t.TempDir()}, nil)
	require.NoError(t, err)
	return store
}

func sampleArtifacts() *ArtifactSet {
	return &ArtifactSet{
		FeatureColumns: []string{"year", "month", "lag_1"},
		TreeModel:      []byte(`{"base":1000}`),
		SeqModel:       []byte(`{"units":100}`),
		Scaler:         []byte(`{"min":0,"max":1,"fitted":true}`),
		TreeMetrics:    &models.EvalMetrics{TestRMSE: 42},
	}
}

func TestFileStorePublishAndLoad(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	id, err := store.Publish(ctx, sampleArtifacts())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, loaded.GenerationID)
	assert.Equal(t, []string{"year", "month", "lag_1"}, loaded.FeatureColumns)
	assert.JSONEq(t, `{"base":1000}`, string(loaded.TreeModel))
	assert.Equal(t, 42.0, loaded.TreeMetrics.TestRMSE)
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestFileStoreLoadBeforePublish(t *testing.T) {
	store := newFileStore(t)

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactNotFound)
}

func TestFileStorePublishSwapsCurrent(t *testing.T) {
	store := newFileStore(t)
	ctx := context.Background()

	first, err := store.Publish(ctx, sampleArtifacts())
	require.NoError(t, err)
	second, err := store.Publish(ctx, sampleArtifacts())
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	// The newest publish wins, but the older generation stays loadable.
	current, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, current.GenerationID)

	old, err := store.LoadGeneration(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first, old.GenerationID)
}

func TestFileStoreLoadUnknownGeneration(t *testing.T) {
	store := newFileStore(t)

	_, err := store.LoadGeneration(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactNotFound)
}

func TestFileStoreRequiresBaseDir(t *testing.T) {
	_, err := NewFileStore(&FileStoreConfig{}, nil)
	require.Error(t, err)
}

func forecastRows() []models.ForecastRow {
	date := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []models.ForecastRow{
		{
			Date:             date,
			TreeForecast:     models.Float64Ptr(1100.5),
			LSTMForecast:     models.Float64Ptr(1099.5),
			EnsembleForecast: models.Float64Ptr(1100),
		},
		{
			Date:             models.AddMonths(date, 1),
			TreeForecast:     models.Float64Ptr(1200),
			LSTMForecast:     nil,
			EnsembleForecast: models.Float64Ptr(1200),
		},
	}
}

func TestForecastCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.csv")
	store, err := NewForecastCSVStore(path, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, forecastRows()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	assert.Equal(t, 1100.5, *loaded[0].TreeForecast)
	assert.Equal(t, 1099.5, *loaded[0].LSTMForecast)
	assert.Equal(t, 1100.0, *loaded[0].EnsembleForecast)

	// The nil model column survives the round trip as absent, not zero.
	assert.Nil(t, loaded[1].LSTMForecast)
	assert.Equal(t, 1200.0, *loaded[1].TreeForecast)
}

func TestForecastCSVHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.csv")
	store, err := NewForecastCSVStore(path, nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), forecastRows()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "date,tree_forecast,lstm_forecast,ensemble_forecast")
}

func TestForecastCSVLoadBeforeSave(t *testing.T) {
	store, err := NewForecastCSVStore(filepath.Join(t.TempDir(), "forecast.csv"), nil)
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactNotFound)
}

func TestForecastCSVSaveReplacesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forecast.csv")
	store, err := NewForecastCSVStore(path, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, forecastRows()))
	require.NoError(t, store.Save(ctx, forecastRows()[:1]))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}
