// Package pipeline wires the full training and forecasting runs: load and
// aggregate the dataset, train both forecasters, publish the artifact
// generation, then roll the models forward and persist the forecast
// table.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/internal/dataset"
	"github.com/lankastats/tourcast/internal/features"
	"github.com/lankastats/tourcast/internal/forecast"
	"github.com/lankastats/tourcast/internal/forecaster/gbt"
	"github.com/lankastats/tourcast/internal/forecaster/lstm"
	"github.com/lankastats/tourcast/internal/store"
	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

// Pipeline runs training and forecast generation end to end.
type Pipeline struct {
	treeConfig *gbt.Config
	seqConfig  *lstm.Config
	artifacts  store.ArtifactStore
	forecasts  store.ForecastStore
	logger     *logrus.Logger
}

// New creates a pipeline over the given stores.
func New(treeConfig *gbt.Config, seqConfig *lstm.Config, artifacts store.ArtifactStore, forecasts store.ForecastStore, logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		treeConfig: treeConfig,
		seqConfig:  seqConfig,
		artifacts:  artifacts,
		forecasts:  forecasts,
		logger:     logger,
	}
}

// TrainResult reports what a training run produced.
type TrainResult struct {
	GenerationID string                     `json:"generation_id"`
	TreeMetrics  *models.EvalMetrics        `json:"tree_metrics,omitempty"`
	SeqMetrics   *models.EvalMetrics        `json:"seq_metrics,omitempty"`
	Importances  []models.FeatureImportance `json:"importances,omitempty"`
}

// Train fits both forecasters on the aggregated series and publishes a
// new artifact generation. Insufficient history aborts the run; it is
// never silently truncated.
func (p *Pipeline) Train(ctx context.Context, records []models.RawRecord) (*TrainResult, error) {
	series, err := dataset.AggregateMonthly(records)
	if err != nil {
		return nil, err
	}
	if err := dataset.ValidateSeries(series); err != nil {
		return nil, err
	}

	rows, targets := features.BuildTrainingSet(series)
	treeModel, treeMetrics, err := gbt.NewForecaster(p.treeConfig, p.logger).Train(rows, targets)
	if err != nil {
		return nil, err
	}

	seqForecaster := lstm.NewForecaster(p.seqConfig, p.logger)
	seqModel, scaler, seqMetrics, err := seqForecaster.Train(ctx, series)
	if err != nil {
		return nil, err
	}

	treeBlob, err := json.Marshal(treeModel)
	if err != nil {
		return nil, errors.NewInternalError("failed to serialize tree model")
	}
	seqBlob, err := json.Marshal(seqModel)
	if err != nil {
		return nil, errors.NewInternalError("failed to serialize sequence model")
	}
	scalerBlob, err := json.Marshal(scaler)
	if err != nil {
		return nil, errors.NewInternalError("failed to serialize scaler")
	}

	set := &store.ArtifactSet{
		FeatureColumns: features.Columns(),
		TreeModel:      treeBlob,
		SeqModel:       seqBlob,
		Scaler:         scalerBlob,
		TreeMetrics:    &treeMetrics,
		SeqMetrics:     seqMetrics,
	}
	id, err := p.artifacts.Publish(ctx, set)
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"generation": id,
		"tree_rmse":  treeMetrics.TestRMSE,
		"seq_rmse":   seqMetrics.TestRMSE,
	}).Info("Training run complete")

	return &TrainResult{
		GenerationID: id,
		TreeMetrics:  &treeMetrics,
		SeqMetrics:   seqMetrics,
		Importances:  treeModel.FeatureImportances(),
	}, nil
}

// LoadInputs reloads the current artifact generation into forecast
// inputs. A model blob that fails to load degrades that model to absent
// rather than failing the whole forecast, as long as one model survives.
func (p *Pipeline) LoadInputs(ctx context.Context) (forecast.Inputs, error) {
	set, err := p.artifacts.Load(ctx)
	if err != nil {
		return forecast.Inputs{}, err
	}

	var in forecast.Inputs
	in.Columns = set.FeatureColumns

	if len(set.TreeModel) > 0 {
		var model gbt.Model
		if err := json.Unmarshal(set.TreeModel, &model); err != nil {
			p.logger.WithError(err).Warn("Tree model blob is unreadable, continuing without it")
		} else {
			in.Tree = &model
		}
	}
	if len(set.SeqModel) > 0 && len(set.Scaler) > 0 {
		var model lstm.Model
		var scaler lstm.MinMaxScaler
		if err := json.Unmarshal(set.SeqModel, &model); err != nil {
			p.logger.WithError(err).Warn("Sequence model blob is unreadable, continuing without it")
		} else if err := json.Unmarshal(set.Scaler, &scaler); err != nil {
			p.logger.WithError(err).Warn("Scaler blob is unreadable, continuing without sequence model")
		} else {
			in.Seq = &model
			in.Scaler = &scaler
		}
	}

	if in.Tree == nil && in.Seq == nil {
		return forecast.Inputs{}, errors.NewUpstreamUnavailableError(
			"no usable model in the current artifact generation", nil)
	}
	return in, nil
}

// Forecast loads the current artifacts, rolls them forward and persists
// the forecast table.
func (p *Pipeline) Forecast(ctx context.Context, records []models.RawRecord, monthsAhead int) ([]models.ForecastRow, error) {
	series, err := dataset.AggregateMonthly(records)
	if err != nil {
		return nil, err
	}

	in, err := p.LoadInputs(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := forecast.NewGenerator(p.logger).Generate(ctx, series, in, monthsAhead)
	if err != nil {
		return nil, err
	}

	if p.forecasts != nil {
		if err := p.forecasts.Save(ctx, rows); err != nil {
			return nil, err
		}
	}
	return rows, nil
}
