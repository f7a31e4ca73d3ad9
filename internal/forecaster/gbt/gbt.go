// Package gbt implements the tree side of the forecasting ensemble: a
// gradient-boosted stack of squared-error regression trees trained on the
// engineered feature matrix, with a chronological train/test split and an
// early-stopping rule monitored on the held-out tail.
package gbt

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/internal/features"
	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

// Config contains the fixed hyperparameters for boosted-tree training.
// These are deliberately not tuned per run.
type Config struct {
	MaxDepth            int     `json:"max_depth" yaml:"max_depth"`
	LearningRate        float64 `json:"learning_rate" yaml:"learning_rate"`
	Rounds              int     `json:"rounds" yaml:"rounds"`
	Subsample           float64 `json:"subsample" yaml:"subsample"`
	ColsampleByTree     float64 `json:"colsample_by_tree" yaml:"colsample_by_tree"`
	MinSamplesLeaf      int     `json:"min_samples_leaf" yaml:"min_samples_leaf"`
	EarlyStoppingRounds int     `json:"early_stopping_rounds" yaml:"early_stopping_rounds"`
	Seed                int64   `json:"seed" yaml:"seed"`
}

// DefaultConfig returns the production hyperparameters.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:            6,
		LearningRate:        0.1,
		Rounds:              200,
		Subsample:           0.8,
		ColsampleByTree:     0.8,
		MinSamplesLeaf:      1,
		EarlyStoppingRounds: 20,
		Seed:                42,
	}
}

// Model is a trained boosted-tree ensemble together with the ordered
// feature-column list it was trained with. The column list is part of the
// model's contract: inference must present exactly the same columns in the
// same order.
type Model struct {
	Base         float64            `json:"base"`
	LearningRate float64            `json:"learning_rate"`
	Trees        []*Tree            `json:"trees"`
	Columns      []string           `json:"columns"`
	Gains        map[string]float64 `json:"gains"`
}

// Forecaster trains boosted-tree models on engineered feature rows.
type Forecaster struct {
	logger *logrus.Logger
	config *Config
}

// NewForecaster creates a tree forecaster. A nil config selects the fixed
// production hyperparameters.
func NewForecaster(config *Config, logger *logrus.Logger) *Forecaster {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Forecaster{logger: logger, config: config}
}

// Train fits the ensemble on the feature rows. Rows are split
// chronologically: the first 80% train, the rest are held out, never
// shuffled. Evaluation metrics are reported for both splits.
func (f *Forecaster) Train(rows []features.Row, targets []float64) (*Model, models.EvalMetrics, error) {
	if len(rows) == 0 {
		return nil, models.EvalMetrics{}, errors.NewInsufficientDataError(
			fmt.Sprintf("no trainable rows: series must span at least %d observations", features.MaxLag+1))
	}
	if len(rows) != len(targets) {
		return nil, models.EvalMetrics{}, errors.NewValidationError(errors.CodeInvalidInput,
			fmt.Sprintf("rows/targets length mismatch: %d vs %d", len(rows), len(targets)))
	}

	n := len(rows)
	trainSize := splitIndex(n)
	if trainSize < 1 || trainSize == n {
		return nil, models.EvalMetrics{}, errors.NewInsufficientDataError(
			fmt.Sprintf("cannot form a chronological 80/20 split from %d rows", n))
	}

	x := make([][]float64, n)
	for i, row := range rows {
		x[i] = row.Vector()
	}
	trainX, testX := x[:trainSize], x[trainSize:]
	trainY, testY := targets[:trainSize], targets[trainSize:]

	f.logger.WithFields(logrus.Fields{
		"train_rows": len(trainX),
		"test_rows":  len(testX),
		"rounds":     f.config.Rounds,
		"max_depth":  f.config.MaxDepth,
	}).Info("Training boosted-tree model")

	columns := features.Columns()
	model := &Model{
		Base:         mean(trainY),
		LearningRate: f.config.LearningRate,
		Columns:      columns,
		Gains:        make(map[string]float64),
	}

	rng := rand.New(rand.NewSource(f.config.Seed))
	numFeatures := len(columns)
	featureCount := subsampleSize(numFeatures, f.config.ColsampleByTree)
	rowCount := subsampleSize(len(trainX), f.config.Subsample)

	trainPred := filled(len(trainX), model.Base)
	testPred := filled(len(testX), model.Base)

	gains := make(map[int]float64)
	bestRMSE := math.Inf(1)
	bestRound := 0
	sinceImprove := 0

	for round := 0; round < f.config.Rounds; round++ {
		residuals := make([]float64, len(trainX))
		for i := range trainX {
			residuals[i] = trainY[i] - trainPred[i]
		}

		featureSubset := sampleWithout(rng, numFeatures, featureCount)
		rowSubset := sampleWithout(rng, len(trainX), rowCount)

		builder := newTreeBuilder(trainX, residuals, f.config.MaxDepth, f.config.MinSamplesLeaf, featureSubset)
		tree, treeGains := builder.build(rowSubset)
		model.Trees = append(model.Trees, tree)
		for feat, gain := range treeGains {
			gains[feat] += gain
		}

		for i := range trainX {
			trainPred[i] += f.config.LearningRate * tree.Predict(trainX[i])
		}
		for i := range testX {
			testPred[i] += f.config.LearningRate * tree.Predict(testX[i])
		}

		testRMSE := rmse(testY, testPred)
		if testRMSE < bestRMSE {
			bestRMSE = testRMSE
			bestRound = round + 1
			sinceImprove = 0
		} else {
			sinceImprove++
			if f.config.EarlyStoppingRounds > 0 && sinceImprove >= f.config.EarlyStoppingRounds {
				f.logger.WithFields(logrus.Fields{
					"round":      round + 1,
					"best_round": bestRound,
					"test_rmse":  bestRMSE,
				}).Info("Early stopping triggered")
				break
			}
		}
	}

	// Keep only the rounds up to the best held-out score.
	model.Trees = model.Trees[:bestRound]
	for feat, gain := range gains {
		model.Gains[columns[feat]] = gain
	}

	metrics := models.EvalMetrics{
		TrainMAE:  maeModel(model, trainX, trainY),
		TrainRMSE: rmseModel(model, trainX, trainY),
		TestMAE:   maeModel(model, testX, testY),
		TestRMSE:  rmseModel(model, testX, testY),
	}

	f.logger.WithFields(logrus.Fields{
		"trees":      len(model.Trees),
		"train_mae":  metrics.TrainMAE,
		"train_rmse": metrics.TrainRMSE,
		"test_mae":   metrics.TestMAE,
		"test_rmse":  metrics.TestRMSE,
	}).Info("Boosted-tree training completed")

	return model, metrics, nil
}

// Predict produces one point estimate for a feature vector. The supplied
// column list must match the training-time list exactly; any drift in set or
// order blocks prediction instead of silently reindexing.
func (m *Model) Predict(values []float64, columns []string) (float64, error) {
	if err := m.checkColumns(columns); err != nil {
		return 0, err
	}
	if len(values) != len(m.Columns) {
		return 0, errors.NewFeatureMismatchError(
			fmt.Sprintf("expected %d feature values, got %d", len(m.Columns), len(values)))
	}

	pred := m.Base
	for _, tree := range m.Trees {
		pred += m.LearningRate * tree.Predict(values)
	}
	return pred, nil
}

func (m *Model) checkColumns(columns []string) error {
	if len(columns) != len(m.Columns) {
		return errors.NewFeatureMismatchError(
			fmt.Sprintf("model trained with %d columns, inference supplied %d", len(m.Columns), len(columns)))
	}
	for i, col := range columns {
		if col != m.Columns[i] {
			return errors.NewFeatureMismatchError(
				fmt.Sprintf("column %d is %q, model expects %q", i, col, m.Columns[i]))
		}
	}
	return nil
}

// FeatureImportances returns the per-feature squared-error gain ranking in
// descending order.
func (m *Model) FeatureImportances() []models.FeatureImportance {
	ranking := make([]models.FeatureImportance, 0, len(m.Columns))
	for _, col := range m.Columns {
		ranking = append(ranking, models.FeatureImportance{Feature: col, Importance: m.Gains[col]})
	}
	sort.Slice(ranking, func(i, j int) bool {
		return ranking[i].Importance > ranking[j].Importance
	})
	return ranking
}

// splitIndex is the chronological train/test boundary: floor(0.8*n).
func splitIndex(n int) int {
	return int(math.Floor(0.8 * float64(n)))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func rmse(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	sum := 0.0
	for i := range actual {
		diff := actual[i] - predicted[i]
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(actual)))
}

func maeModel(m *Model, x [][]float64, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for i := range x {
		pred, _ := m.Predict(x[i], m.Columns)
		sum += math.Abs(y[i] - pred)
	}
	return sum / float64(len(x))
}

func rmseModel(m *Model, x [][]float64, y []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for i := range x {
		pred, _ := m.Predict(x[i], m.Columns)
		diff := y[i] - pred
		sum += diff * diff
	}
	return math.Sqrt(sum / float64(len(x)))
}
