// Package lstm trains a stacked long short-term memory network on a
// scaled arrivals series and predicts the next value from a sliding
// window of recent observations.
package lstm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

// Config holds the network architecture and training hyperparameters.
type Config struct {
	Units        int     `json:"units" yaml:"units"`
	Lookback     int     `json:"lookback" yaml:"lookback"`
	Epochs       int     `json:"epochs" yaml:"epochs"`
	BatchSize    int     `json:"batch_size" yaml:"batch_size"`
	LearningRate float64 `json:"learning_rate" yaml:"learning_rate"`
	Dropout      float64 `json:"dropout" yaml:"dropout"`
	TrainSplit   float64 `json:"train_split" yaml:"train_split"`
	ClipNorm     float64 `json:"clip_norm" yaml:"clip_norm"`
	Seed         int64   `json:"seed" yaml:"seed"`
}

// DefaultConfig returns the converged production hyperparameters.
func DefaultConfig() *Config {
	return &Config{
		Units:        100,
		Lookback:     12,
		Epochs:       100,
		BatchSize:    32,
		LearningRate: 0.001,
		Dropout:      0.2,
		TrainSplit:   0.8,
		ClipNorm:     5.0,
		Seed:         42,
	}
}

// Forecaster trains sequence models from monthly arrivals history.
type Forecaster struct {
	logger *logrus.Logger
	config *Config
}

// NewForecaster creates a sequence forecaster. A nil config selects the
// defaults.
func NewForecaster(config *Config, logger *logrus.Logger) *Forecaster {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Forecaster{logger: logger, config: config}
}

// Train fits the network on the scaled series and returns the trained
// model, the scaler fitted on the full raw series, and evaluation metrics
// in raw arrival units.
func (f *Forecaster) Train(ctx context.Context, series []models.Observation) (*Model, *MinMaxScaler, *models.EvalMetrics, error) {
	cfg := f.config
	values := models.Values(series)

	if len(values) <= cfg.Lookback {
		return nil, nil, nil, errors.NewInsufficientDataError(
			fmt.Sprintf("sequence training needs more than %d observations, got %d", cfg.Lookback, len(values)))
	}

	scaler := &MinMaxScaler{}
	if err := scaler.Fit(values); err != nil {
		return nil, nil, nil, err
	}
	scaled := scaler.Transform(values)

	windows, targets := slidingWindows(scaled, cfg.Lookback)
	trainSize := int(math.Floor(cfg.TrainSplit * float64(len(windows))))
	if trainSize < 1 {
		return nil, nil, nil, errors.NewInsufficientDataError(
			fmt.Sprintf("sequence training split produced no training windows from %d observations", len(values)))
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	net := newNetwork(cfg.Lookback, cfg.Units, cfg.Dropout, rng)
	params := net.params()
	opt := newAdamOptimizer(cfg.LearningRate)

	f.logger.WithFields(logrus.Fields{
		"observations":  len(values),
		"train_windows": trainSize,
		"test_windows":  len(windows) - trainSize,
		"units":         cfg.Units,
		"epochs":        cfg.Epochs,
	}).Info("Training sequence forecaster")

	order := make([]int, trainSize)
	for i := range order {
		order[i] = i
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			return nil, nil, nil, ctx.Err()
		default:
		}

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

		epochLoss := 0.0
		for start := 0; start < trainSize; start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > trainSize {
				end = trainSize
			}
			for _, p := range params {
				p.zeroGrad()
			}
			for _, idx := range order[start:end] {
				epochLoss += net.trainStep(windows[idx], targets[idx], rng)
			}
			opt.update(params, 1.0/float64(end-start), cfg.ClipNorm)
		}

		if (epoch+1)%10 == 0 || epoch == cfg.Epochs-1 {
			f.logger.WithFields(logrus.Fields{
				"epoch": epoch + 1,
				"loss":  epochLoss / float64(trainSize),
			}).Debug("Sequence training progress")
		}
	}

	model := &Model{Units: cfg.Units, Lookback: cfg.Lookback, net: net}

	metrics := evaluate(model, scaler, windows, targets, trainSize)
	f.logger.WithFields(logrus.Fields{
		"train_rmse": metrics.TrainRMSE,
		"test_rmse":  metrics.TestRMSE,
	}).Info("Sequence forecaster trained")

	return model, scaler, metrics, nil
}

func slidingWindows(scaled []float64, lookback int) ([][]float64, []float64) {
	count := len(scaled) - lookback
	windows := make([][]float64, count)
	targets := make([]float64, count)
	for i := 0; i < count; i++ {
		windows[i] = scaled[i : i+lookback]
		targets[i] = scaled[i+lookback]
	}
	return windows, targets
}

func evaluate(model *Model, scaler *MinMaxScaler, windows [][]float64, targets []float64, trainSize int) *models.EvalMetrics {
	sumAbs := func(lo, hi int) (mae, rmse float64) {
		if hi <= lo {
			return 0, 0
		}
		var abs, sq float64
		for i := lo; i < hi; i++ {
			pred := scaler.InverseValue(model.PredictNext(windows[i]))
			actual := scaler.InverseValue(targets[i])
			diff := pred - actual
			abs += math.Abs(diff)
			sq += diff * diff
		}
		n := float64(hi - lo)
		return abs / n, math.Sqrt(sq / n)
	}

	metrics := &models.EvalMetrics{}
	metrics.TrainMAE, metrics.TrainRMSE = sumAbs(0, trainSize)
	metrics.TestMAE, metrics.TestRMSE = sumAbs(trainSize, len(windows))
	return metrics
}

// Model is a trained sequence network. It predicts in scaled space; the
// caller owns the inverse transform.
type Model struct {
	Units    int
	Lookback int

	net *network
}

// PredictNext returns the scaled prediction for the value following the
// given scaled window. The window length must equal the lookback.
func (m *Model) PredictNext(window []float64) float64 {
	return m.net.predict(window)
}

type matrixJSON struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"`
}

type modelJSON struct {
	Units    int                   `json:"units"`
	Lookback int                   `json:"lookback"`
	Params   map[string]matrixJSON `json:"params"`
}

// MarshalJSON serializes the architecture and every weight matrix.
func (m *Model) MarshalJSON() ([]byte, error) {
	out := modelJSON{
		Units:    m.Units,
		Lookback: m.Lookback,
		Params:   make(map[string]matrixJSON),
	}
	for _, p := range m.net.params() {
		rows, cols := p.w.Dims()
		data := make([]float64, 0, rows*cols)
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				data = append(data, p.w.At(i, j))
			}
		}
		out.Params[p.name] = matrixJSON{Rows: rows, Cols: cols, Data: data}
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds the network and loads every weight matrix.
func (m *Model) UnmarshalJSON(data []byte) error {
	var in modelJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	m.Units = in.Units
	m.Lookback = in.Lookback
	m.net = newNetwork(in.Lookback, in.Units, 0, rand.New(rand.NewSource(0)))

	for _, p := range m.net.params() {
		mj, ok := in.Params[p.name]
		if !ok {
			return errors.NewValidationError(errors.CodeInvalidInput, fmt.Sprintf("sequence model is missing parameter %q", p.name))
		}
		rows, cols := p.w.Dims()
		if mj.Rows != rows || mj.Cols != cols || len(mj.Data) != rows*cols {
			return errors.NewValidationError(errors.CodeInvalidInput, fmt.Sprintf("sequence model parameter %q has unexpected shape", p.name))
		}
		p.w = mat.NewDense(rows, cols, mj.Data)
	}
	return nil
}
