package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

const sampleCSV = `date,country,arrivals
2023-01-01,India,34500
2023-01-01,United Kingdom,21000
2023-02-01,India,31000
2023-02-15,United Kingdom,19800
`

func TestLoadSampleCSV(t *testing.T) {
	records, err := NewLoader(nil).Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, "India", records[0].Country)
	assert.Equal(t, 34500.0, records[0].Arrivals)
	assert.Equal(t, time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), records[0].Date)

	// Mid-month dates normalize to month start.
	assert.Equal(t, time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC), records[3].Date)
}

func TestLoadReorderedHeader(t *testing.T) {
	csv := "country,arrivals,date\nIndia,100,2023-03-01\n"
	records, err := NewLoader(nil).Load(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100.0, records[0].Arrivals)
}

func TestLoadRejectsNegativeArrivals(t *testing.T) {
	csv := "date,country,arrivals\n2023-01-01,India,-5\n"
	_, err := NewLoader(nil).Load(strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidObservation)
}

func TestLoadRejectsBadDate(t *testing.T) {
	csv := "date,country,arrivals\nnot-a-date,India,5\n"
	_, err := NewLoader(nil).Load(strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidObservation)
}

func TestLoadRejectsMissingColumns(t *testing.T) {
	csv := "date,arrivals\n2023-01-01,5\n"
	_, err := NewLoader(nil).Load(strings.NewReader(csv))
	require.Error(t, err)

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrorTypeValidation, appErr.Type)
}

func TestLoadEmptyDataset(t *testing.T) {
	csv := "date,country,arrivals\n"
	_, err := NewLoader(nil).Load(strings.NewReader(csv))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptySeries)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := NewLoader(nil).LoadFile("/nonexistent/arrivals.csv")
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactNotFound)
}

func TestAggregateMonthlySumsAcrossCountries(t *testing.T) {
	records, err := NewLoader(nil).Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	series, err := AggregateMonthly(records)
	require.NoError(t, err)
	require.Len(t, series, 2)

	assert.Equal(t, 55500.0, series[0].Arrivals)
	assert.Equal(t, 50800.0, series[1].Arrivals)
	assert.True(t, series[0].Date.Before(series[1].Date))
	require.NoError(t, ValidateSeries(series))
}

func TestAggregateMonthlyOrdersUnsortedInput(t *testing.T) {
	records := []models.RawRecord{
		{Date: time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC), Country: "India", Arrivals: 10},
		{Date: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), Country: "India", Arrivals: 20},
		{Date: time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC), Country: "India", Arrivals: 30},
	}
	series, err := AggregateMonthly(records)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, 20.0, series[0].Arrivals)
	assert.Equal(t, 30.0, series[1].Arrivals)
	assert.Equal(t, 10.0, series[2].Arrivals)
}

func TestValidateSeriesNonMonotonic(t *testing.T) {
	series := []models.Observation{
		{Date: time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC), Arrivals: 1},
		{Date: time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC), Arrivals: 2},
	}
	err := ValidateSeries(series)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNonMonotonicDates)
}

func TestCountriesAndYears(t *testing.T) {
	records, err := NewLoader(nil).Load(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, []string{"India", "United Kingdom"}, Countries(records))
	assert.Equal(t, []int{2023}, Years(records))
}
