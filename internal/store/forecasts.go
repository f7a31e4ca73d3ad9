package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

var forecastHeader = []string{"date", "tree_forecast", "lstm_forecast", "ensemble_forecast"}

// ForecastCSVStore persists the forecast table as a flat CSV file, the
// format the query layer reads directly.
type ForecastCSVStore struct {
	path   string
	logger *logrus.Logger
}

// NewForecastCSVStore creates a CSV-backed forecast store.
func NewForecastCSVStore(path string, logger *logrus.Logger) (*ForecastCSVStore, error) {
	if path == "" {
		return nil, errors.NewStorageError(errors.CodeInvalidConfig, "forecast store requires a file path")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ForecastCSVStore{path: path, logger: logger}, nil
}

// Save writes the full table, replacing any previous forecast. The write
// goes through a temp file and rename so readers never see a truncated
// table.
func (s *ForecastCSVStore) Save(ctx context.Context, rows []models.ForecastRow) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to create forecast directory")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "forecast-*.csv")
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to stage forecast file")
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(forecastHeader); err != nil {
		tmp.Close()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to write forecast header")
	}
	for _, row := range rows {
		record := []string{
			row.Date.Format("2006-01-02"),
			formatForecast(row.TreeForecast),
			formatForecast(row.LSTMForecast),
			formatForecast(row.EnsembleForecast),
		}
		if err := writer.Write(record); err != nil {
			tmp.Close()
			return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
				"failed to write forecast row")
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to flush forecast file")
	}
	if err := tmp.Close(); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to close staged forecast file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeWriteFailed,
			"failed to publish forecast file")
	}

	s.logger.WithFields(logrus.Fields{
		"path": s.path,
		"rows": len(rows),
	}).Info("Forecast table saved")
	return nil
}

// Load reads the forecast table back. A missing file means no forecast
// has been generated yet.
func (s *ForecastCSVStore) Load(ctx context.Context) ([]models.ForecastRow, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("no forecast has been generated")
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"failed to open forecast file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"failed to read forecast file")
	}
	if len(records) == 0 || !equalHeader(records[0]) {
		return nil, errors.NewStorageError(errors.CodeReadFailed, "forecast file has an unexpected header")
	}

	rows := make([]models.ForecastRow, 0, len(records)-1)
	for _, record := range records[1:] {
		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
				fmt.Sprintf("forecast file has unparseable date %q", record[0]))
		}
		row := models.ForecastRow{Date: date}
		if row.TreeForecast, err = parseForecast(record[1]); err != nil {
			return nil, err
		}
		if row.LSTMForecast, err = parseForecast(record[2]); err != nil {
			return nil, err
		}
		if row.EnsembleForecast, err = parseForecast(record[3]); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatForecast(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseForecast(raw string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("forecast file has unparseable value %q", raw))
	}
	return &v, nil
}

func equalHeader(record []string) bool {
	if len(record) != len(forecastHeader) {
		return false
	}
	for i, name := range forecastHeader {
		if strings.TrimSpace(record[i]) != name {
			return false
		}
	}
	return true
}
