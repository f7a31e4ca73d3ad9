// Package forecast rolls trained models forward over a monthly horizon,
// feeding each prediction back as input for the next step, and blends the
// per-model paths into an ensemble.
package forecast

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/internal/features"
	"github.com/lankastats/tourcast/internal/forecaster/gbt"
	"github.com/lankastats/tourcast/internal/forecaster/lstm"
	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

// Inputs carries the trained artifacts a forecast run draws on. Either
// model may be nil; at least one must be present.
type Inputs struct {
	Tree    *gbt.Model
	Columns []string
	Seq     *lstm.Model
	Scaler  *lstm.MinMaxScaler
}

// Generator produces multi-step forecasts from trained models.
type Generator struct {
	logger *logrus.Logger
}

// NewGenerator creates a forecast generator.
func NewGenerator(logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Generator{logger: logger}
}

// Generate produces monthsAhead forecast rows starting the month after the
// last observation. Each available model rolls forward recursively on its
// own path; the ensemble column averages whichever model forecasts exist
// for that month.
func (g *Generator) Generate(ctx context.Context, history []models.Observation, in Inputs, monthsAhead int) ([]models.ForecastRow, error) {
	if monthsAhead < 1 {
		return nil, errors.NewValidationError(errors.CodeInvalidInput, fmt.Sprintf("forecast horizon must be positive, got %d", monthsAhead))
	}
	if in.Tree == nil && in.Seq == nil {
		return nil, errors.NewValidationError(errors.CodeInvalidInput, "forecast requires at least one trained model")
	}
	if len(history) == 0 {
		return nil, errors.NewInsufficientDataError("forecast requires observed history")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	rows := make([]models.ForecastRow, monthsAhead)
	lastDate := history[len(history)-1].Date
	for step := 0; step < monthsAhead; step++ {
		rows[step].Date = models.AddMonths(lastDate, step+1)
	}

	if in.Tree != nil {
		if err := g.rollTree(history, in, rows); err != nil {
			return nil, err
		}
	}
	if in.Seq != nil {
		if err := g.rollSequence(history, in, rows); err != nil {
			return nil, err
		}
	}

	for i := range rows {
		rows[i].EnsembleForecast = blend(rows[i].TreeForecast, rows[i].LSTMForecast)
	}

	g.logger.WithFields(logrus.Fields{
		"months_ahead": monthsAhead,
		"from":         rows[0].Date.Format("2006-01"),
		"to":           rows[len(rows)-1].Date.Format("2006-01"),
		"tree":         in.Tree != nil,
		"sequence":     in.Seq != nil,
	}).Info("Forecast generated")

	return rows, nil
}

// rollTree extends the raw series one month at a time, recomputing the
// feature row against history plus prior predictions before each step.
func (g *Generator) rollTree(history []models.Observation, in Inputs, rows []models.ForecastRow) error {
	working := make([]models.Observation, len(history), len(history)+len(rows))
	copy(working, history)

	for i := range rows {
		row, err := features.BuildNext(working, rows[i].Date)
		if err != nil {
			return err
		}
		pred, err := in.Tree.Predict(row.Vector(), in.Columns)
		if err != nil {
			return err
		}
		rows[i].TreeForecast = models.Float64Ptr(pred)
		working = append(working, models.Observation{Date: rows[i].Date, Arrivals: pred})
	}
	return nil
}

// rollSequence slides a scaled window forward, appending each scaled
// prediction before the next step and inverting only for output.
func (g *Generator) rollSequence(history []models.Observation, in Inputs, rows []models.ForecastRow) error {
	if in.Scaler == nil || !in.Scaler.Fitted {
		return errors.NewValidationError(errors.CodeInvalidInput, "sequence forecast requires a fitted scaler")
	}
	lookback := in.Seq.Lookback
	if len(history) < lookback {
		return errors.NewInsufficientDataError(
			fmt.Sprintf("sequence forecast needs at least %d observations, got %d", lookback, len(history)))
	}

	scaled := in.Scaler.Transform(models.Values(history))
	window := make([]float64, lookback)
	copy(window, scaled[len(scaled)-lookback:])

	for i := range rows {
		pred := in.Seq.PredictNext(window)
		rows[i].LSTMForecast = models.Float64Ptr(in.Scaler.InverseValue(pred))
		window = append(window[1:], pred)
	}
	return nil
}

// blend averages the forecasts that are present; with one model it passes
// that model's value through, with none it stays nil.
func blend(tree, seq *float64) *float64 {
	switch {
	case tree != nil && seq != nil:
		return models.Float64Ptr((*tree + *seq) / 2)
	case tree != nil:
		return models.Float64Ptr(*tree)
	case seq != nil:
		return models.Float64Ptr(*seq)
	default:
		return nil
	}
}
