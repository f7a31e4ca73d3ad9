package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

func rec(year int, month time.Month, country string, arrivals float64) models.RawRecord {
	return models.RawRecord{
		Date:     time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
		Country:  country,
		Arrivals: arrivals,
	}
}

func sampleRecords() []models.RawRecord {
	return []models.RawRecord{
		rec(2022, time.January, "India", 100),
		rec(2022, time.January, "United Kingdom", 50),
		rec(2022, time.February, "India", 200),
		rec(2023, time.January, "India", 150),
		rec(2023, time.January, "Australia", 60),
		rec(2023, time.February, "India", 240),
	}
}

func TestComputeOverview(t *testing.T) {
	overview, err := ComputeOverview(sampleRecords(), 2)
	require.NoError(t, err)

	assert.Equal(t, 800.0, overview.TotalArrivals)
	assert.Equal(t, 200.0, overview.AvgMonthlyArrivals)

	// All 2023 months fall inside the trailing six-month window.
	assert.Equal(t, 450.0, overview.RecentSixMonths)

	require.Len(t, overview.TopCountries, 2)
	assert.Equal(t, "India", overview.TopCountries[0].Country)
	assert.Equal(t, 690.0, overview.TopCountries[0].Arrivals)

	assert.Equal(t, time.Date(2022, time.January, 1, 0, 0, 0, 0, time.UTC), overview.DateRange.Start)
	assert.Equal(t, time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC), overview.DateRange.End)
}

func TestComputeOverviewEmpty(t *testing.T) {
	_, err := ComputeOverview(nil, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrEmptySeries)
}

func TestMonthlyTrendsAllYears(t *testing.T) {
	trends, err := MonthlyTrends(sampleRecords(), 0)
	require.NoError(t, err)
	require.Len(t, trends, 4)
	assert.Equal(t, 150.0, trends[0].Arrivals)
	assert.Equal(t, 240.0, trends[3].Arrivals)
}

func TestMonthlyTrendsYearFilter(t *testing.T) {
	trends, err := MonthlyTrends(sampleRecords(), 2023)
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, 210.0, trends[0].Arrivals)

	_, err = MonthlyTrends(sampleRecords(), 1999)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactNotFound)
}

func TestCountryTrends(t *testing.T) {
	trends, err := CountryTrends(sampleRecords(), "India")
	require.NoError(t, err)
	require.Len(t, trends, 4)
	assert.Equal(t, 100.0, trends[0].Arrivals)

	_, err = CountryTrends(sampleRecords(), "Atlantis")
	require.Error(t, err)
}

func TestCountrySummariesRanked(t *testing.T) {
	summaries := CountrySummaries(sampleRecords())
	require.Len(t, summaries, 3)
	assert.Equal(t, "India", summaries[0].Country)
	assert.Equal(t, 690.0, summaries[0].Total)
	assert.InDelta(t, 172.5, summaries[0].Average, 1e-9)
}

func TestTopCountriesLimitAndYear(t *testing.T) {
	top := TopCountries(sampleRecords(), 1, 0)
	require.Len(t, top, 1)
	assert.Equal(t, "India", top[0].Country)

	top2022 := TopCountries(sampleRecords(), 10, 2022)
	require.Len(t, top2022, 2)
	assert.Equal(t, 300.0, top2022[0].Arrivals)
}

func TestSeasonalPatterns(t *testing.T) {
	patterns, err := SeasonalPatterns(sampleRecords())
	require.NoError(t, err)
	require.Len(t, patterns, 2)

	jan := patterns[0]
	assert.Equal(t, 1, jan.Month)
	assert.Equal(t, "January", jan.MonthName)
	assert.Equal(t, "Northeast Monsoon", jan.Season)
	// (150 + 210) / 2 across the two observed Januaries.
	assert.Equal(t, 180.0, jan.Arrivals)
}

func TestYearComparison(t *testing.T) {
	comparison := YearComparison(sampleRecords())
	require.Len(t, comparison, 2)

	assert.Equal(t, 2022, comparison[0].Year)
	assert.Equal(t, 350.0, comparison[0].TotalArrivals)
	assert.Equal(t, 175.0, comparison[0].AvgMonthly)

	assert.Equal(t, 2023, comparison[1].Year)
	assert.Equal(t, 450.0, comparison[1].TotalArrivals)
}

func TestRegionalTotals(t *testing.T) {
	regions := RegionalTotals(sampleRecords())
	require.Len(t, regions, 3)

	assert.Equal(t, "Asia", regions[0].Region)
	assert.Equal(t, 690.0, regions[0].Arrivals)
	assert.Equal(t, "Oceania", regions[1].Region)
	assert.Equal(t, "Europe", regions[2].Region)
}

func TestRegionOfUnknownCountry(t *testing.T) {
	assert.Equal(t, "Other", RegionOf("Atlantis"))
	assert.Equal(t, "Europe", RegionOf("Germany"))
	assert.Equal(t, "Middle East", RegionOf("UAE"))
}

func TestSeasonOf(t *testing.T) {
	assert.Equal(t, "Southwest Monsoon", SeasonOf(time.July))
	assert.Equal(t, "Northeast Monsoon", SeasonOf(time.December))
	assert.Equal(t, "Inter Monsoon", SeasonOf(time.April))
}

func TestGrowthRates(t *testing.T) {
	rates := GrowthRates(sampleRecords())
	require.Len(t, rates, 1)

	assert.Equal(t, 2023, rates[0].Year)
	assert.Equal(t, 450.0, rates[0].Arrivals)
	// 350 → 450 year over year.
	assert.InDelta(t, 28.571428, rates[0].YoYGrowth, 1e-4)
}
