// Package dataset loads and validates the raw arrivals-by-country records
// and aggregates them into the monthly series the forecasters consume.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

var dateLayouts = []string{"2006-01-02", "2006-01", "01/2006", "2006/01/02"}

// Loader reads arrivals records from CSV sources.
type Loader struct {
	logger *logrus.Logger
}

// NewLoader creates a dataset loader.
func NewLoader(logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Loader{logger: logger}
}

// LoadFile reads and validates an arrivals CSV from disk.
func (l *Loader) LoadFile(path string) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("arrivals dataset %s does not exist", path))
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			fmt.Sprintf("failed to open arrivals dataset %s", path))
	}
	defer f.Close()

	records, err := l.Load(f)
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{
		"path":    path,
		"records": len(records),
	}).Info("Arrivals dataset loaded")
	return records, nil
}

// Load reads and validates arrivals records from CSV with a
// date,country,arrivals header. Rows with malformed dates or negative
// arrivals are rejected, not skipped.
func (l *Loader) Load(r io.Reader) ([]models.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
			"failed to read dataset header")
	}
	dateIdx, countryIdx, arrivalsIdx, err := headerIndexes(header)
	if err != nil {
		return nil, err
	}

	var records []models.RawRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapError(err, errors.ErrorTypeStorage, errors.CodeReadFailed,
				"failed to read dataset row")
		}
		line++

		date, err := parseDate(row[dateIdx])
		if err != nil {
			return nil, invalidObservation(line, fmt.Sprintf("unparseable date %q", row[dateIdx]))
		}
		arrivals, err := strconv.ParseFloat(strings.TrimSpace(row[arrivalsIdx]), 64)
		if err != nil {
			return nil, invalidObservation(line, fmt.Sprintf("unparseable arrivals %q", row[arrivalsIdx]))
		}
		if arrivals < 0 {
			return nil, invalidObservation(line, fmt.Sprintf("negative arrivals %v", arrivals))
		}

		records = append(records, models.RawRecord{
			Date:     models.MonthStart(date),
			Country:  strings.TrimSpace(row[countryIdx]),
			Arrivals: arrivals,
		})
	}

	if len(records) == 0 {
		return nil, errors.WrapError(errors.ErrEmptySeries, errors.ErrorTypeValidation,
			errors.CodeInvalidInput, "dataset contains no records")
	}
	return records, nil
}

func headerIndexes(header []string) (dateIdx, countryIdx, arrivalsIdx int, err error) {
	dateIdx, countryIdx, arrivalsIdx = -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "date":
			dateIdx = i
		case "country":
			countryIdx = i
		case "arrivals":
			arrivalsIdx = i
		}
	}
	if dateIdx < 0 || countryIdx < 0 || arrivalsIdx < 0 {
		return 0, 0, 0, errors.NewValidationError(errors.CodeInvalidInput,
			fmt.Sprintf("dataset header must contain date, country and arrivals columns, got %v", header))
	}
	return dateIdx, countryIdx, arrivalsIdx, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no layout matched %q", raw)
}

func invalidObservation(line int, detail string) error {
	return errors.WrapError(errors.ErrInvalidObservation, errors.ErrorTypeValidation,
		errors.CodeInvalidInput, fmt.Sprintf("row %d: %s", line, detail))
}

// AggregateMonthly sums arrivals across countries per calendar month and
// returns the series sorted by date. The result always has unique,
// strictly increasing month-start dates.
func AggregateMonthly(records []models.RawRecord) ([]models.Observation, error) {
	if len(records) == 0 {
		return nil, errors.WrapError(errors.ErrEmptySeries, errors.ErrorTypeValidation,
			errors.CodeInvalidInput, "cannot aggregate an empty record set")
	}

	totals := make(map[time.Time]float64)
	for _, rec := range records {
		totals[models.MonthStart(rec.Date)] += rec.Arrivals
	}

	series := make([]models.Observation, 0, len(totals))
	for date, arrivals := range totals {
		series = append(series, models.Observation{Date: date, Arrivals: arrivals})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	return series, nil
}

// ValidateSeries checks the forecasting preconditions on an aggregated
// series: non-negative arrivals and strictly increasing dates.
func ValidateSeries(series []models.Observation) error {
	if len(series) == 0 {
		return errors.WrapError(errors.ErrEmptySeries, errors.ErrorTypeValidation,
			errors.CodeInvalidInput, "empty observation series")
	}
	for i, obs := range series {
		if obs.Arrivals < 0 {
			return errors.WrapError(errors.ErrInvalidObservation, errors.ErrorTypeValidation,
				errors.CodeInvalidInput, fmt.Sprintf("observation %s has negative arrivals", obs.Date.Format("2006-01")))
		}
		if i > 0 && !series[i-1].Date.Before(obs.Date) {
			return errors.WrapError(errors.ErrNonMonotonicDates, errors.ErrorTypeValidation,
				errors.CodeInvalidInput, fmt.Sprintf("observation %s does not follow %s",
					obs.Date.Format("2006-01"), series[i-1].Date.Format("2006-01")))
		}
	}
	return nil
}

// Countries returns the distinct source countries present in the records,
// sorted alphabetically.
func Countries(records []models.RawRecord) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		seen[rec.Country] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Years returns the distinct calendar years present in the records, sorted
// ascending.
func Years(records []models.RawRecord) []int {
	seen := make(map[int]struct{})
	for _, rec := range records {
		seen[rec.Date.Year()] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}
