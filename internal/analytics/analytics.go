// Package analytics computes the grouped aggregates the dashboard reads:
// overview statistics, trends, country and regional breakdowns, seasonal
// patterns and growth rates. All functions are pure transforms over the
// loaded record set.
package analytics

import (
	"sort"
	"time"

	"github.com/lankastats/tourcast/internal/dataset"
	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

// Overview summarizes the whole dataset for the landing view.
type Overview struct {
	TotalArrivals      float64        `json:"total_arrivals"`
	AvgMonthlyArrivals float64        `json:"avg_monthly_arrivals"`
	RecentSixMonths    float64        `json:"recent_6_months"`
	TopCountries       []CountryTotal `json:"top_countries"`
	DateRange          DateRange      `json:"date_range"`
}

// DateRange bounds the observed data.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CountryTotal is one country's aggregate arrivals.
type CountryTotal struct {
	Country  string  `json:"country"`
	Arrivals float64 `json:"arrivals"`
}

// CountrySummary carries total and mean arrivals for one country.
type CountrySummary struct {
	Country string  `json:"country"`
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
}

// MonthlyPattern is the mean arrivals for one calendar month across years.
type MonthlyPattern struct {
	Month     int     `json:"month"`
	MonthName string  `json:"month_name"`
	Season    string  `json:"season"`
	Arrivals  float64 `json:"arrivals"`
}

// YearSummary compares one calendar year against the others.
type YearSummary struct {
	Year          int     `json:"year"`
	TotalArrivals float64 `json:"total_arrivals"`
	AvgMonthly    float64 `json:"avg_monthly"`
}

// RegionTotal is one region's aggregate arrivals.
type RegionTotal struct {
	Region   string  `json:"region"`
	Arrivals float64 `json:"arrivals"`
}

// GrowthRate is one year's total with its year-over-year change.
type GrowthRate struct {
	Year      int     `json:"year"`
	Arrivals  float64 `json:"arrivals"`
	YoYGrowth float64 `json:"yoy_growth"`
}

// ComputeOverview builds the landing-view summary. The recent window
// covers the six months up to and including the latest observed month.
func ComputeOverview(records []models.RawRecord, topN int) (*Overview, error) {
	if len(records) == 0 {
		return nil, errors.WrapError(errors.ErrEmptySeries, errors.ErrorTypeValidation,
			errors.CodeInvalidInput, "overview requires records")
	}

	series, err := dataset.AggregateMonthly(records)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, obs := range series {
		total += obs.Arrivals
	}

	last := series[len(series)-1].Date
	cutoff := models.AddMonths(last, -6)
	var recent float64
	for _, obs := range series {
		if obs.Date.After(cutoff) {
			recent += obs.Arrivals
		}
	}

	return &Overview{
		TotalArrivals:      total,
		AvgMonthlyArrivals: total / float64(len(series)),
		RecentSixMonths:    recent,
		TopCountries:       TopCountries(records, topN, 0),
		DateRange:          DateRange{Start: series[0].Date, End: last},
	}, nil
}

// MonthlyTrends returns the aggregate series, optionally restricted to
// one calendar year. Year 0 means all years.
func MonthlyTrends(records []models.RawRecord, year int) ([]models.Observation, error) {
	filtered := filterYear(records, year)
	if len(filtered) == 0 {
		return nil, errors.NewNotFoundError("no records for the requested year")
	}
	return dataset.AggregateMonthly(filtered)
}

// CountryTrends returns one country's monthly series.
func CountryTrends(records []models.RawRecord, country string) ([]models.Observation, error) {
	var filtered []models.RawRecord
	for _, rec := range records {
		if rec.Country == country {
			filtered = append(filtered, rec)
		}
	}
	if len(filtered) == 0 {
		return nil, errors.NewNotFoundError("no records for country " + country)
	}
	return dataset.AggregateMonthly(filtered)
}

// CountrySummaries ranks every country by total arrivals with its
// per-record mean.
func CountrySummaries(records []models.RawRecord) []CountrySummary {
	totals := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range records {
		totals[rec.Country] += rec.Arrivals
		counts[rec.Country]++
	}

	out := make([]CountrySummary, 0, len(totals))
	for country, total := range totals {
		out = append(out, CountrySummary{
			Country: country,
			Total:   total,
			Average: total / float64(counts[country]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// TopCountries returns the limit highest-volume countries, optionally
// restricted to one year.
func TopCountries(records []models.RawRecord, limit, year int) []CountryTotal {
	totals := make(map[string]float64)
	for _, rec := range filterYear(records, year) {
		totals[rec.Country] += rec.Arrivals
	}

	out := make([]CountryTotal, 0, len(totals))
	for country, total := range totals {
		out = append(out, CountryTotal{Country: country, Arrivals: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Arrivals != out[j].Arrivals {
			return out[i].Arrivals > out[j].Arrivals
		}
		return out[i].Country < out[j].Country
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SeasonalPatterns averages the monthly totals per calendar month across
// all observed years and tags each month with its monsoon season.
func SeasonalPatterns(records []models.RawRecord) ([]MonthlyPattern, error) {
	series, err := dataset.AggregateMonthly(records)
	if err != nil {
		return nil, err
	}

	sums := make(map[time.Month]float64)
	counts := make(map[time.Month]int)
	for _, obs := range series {
		sums[obs.Date.Month()] += obs.Arrivals
		counts[obs.Date.Month()]++
	}

	var out []MonthlyPattern
	for m := time.January; m <= time.December; m++ {
		if counts[m] == 0 {
			continue
		}
		out = append(out, MonthlyPattern{
			Month:     int(m),
			MonthName: m.String(),
			Season:    SeasonOf(m),
			Arrivals:  sums[m] / float64(counts[m]),
		})
	}
	return out, nil
}

// YearComparison summarizes every observed year side by side.
func YearComparison(records []models.RawRecord) []YearSummary {
	type yearAgg struct {
		total  float64
		months map[time.Month]float64
	}
	byYear := make(map[int]*yearAgg)
	for _, rec := range records {
		agg := byYear[rec.Date.Year()]
		if agg == nil {
			agg = &yearAgg{months: make(map[time.Month]float64)}
			byYear[rec.Date.Year()] = agg
		}
		agg.total += rec.Arrivals
		agg.months[rec.Date.Month()] += rec.Arrivals
	}

	out := make([]YearSummary, 0, len(byYear))
	for year, agg := range byYear {
		out = append(out, YearSummary{
			Year:          year,
			TotalArrivals: agg.total,
			AvgMonthly:    agg.total / float64(len(agg.months)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// RegionalTotals sums arrivals per region, highest first.
func RegionalTotals(records []models.RawRecord) []RegionTotal {
	totals := make(map[string]float64)
	for _, rec := range records {
		totals[RegionOf(rec.Country)] += rec.Arrivals
	}

	out := make([]RegionTotal, 0, len(totals))
	for region, total := range totals {
		out = append(out, RegionTotal{Region: region, Arrivals: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Arrivals != out[j].Arrivals {
			return out[i].Arrivals > out[j].Arrivals
		}
		return out[i].Region < out[j].Region
	})
	return out
}

// GrowthRates computes year-over-year growth of annual totals. The first
// observed year has no baseline and is omitted.
func GrowthRates(records []models.RawRecord) []GrowthRate {
	totals := make(map[int]float64)
	for _, rec := range records {
		totals[rec.Date.Year()] += rec.Arrivals
	}

	years := make([]int, 0, len(totals))
	for year := range totals {
		years = append(years, year)
	}
	sort.Ints(years)

	var out []GrowthRate
	for i := 1; i < len(years); i++ {
		prev := totals[years[i-1]]
		curr := totals[years[i]]
		var growth float64
		if prev != 0 {
			growth = (curr - prev) / prev * 100
		}
		out = append(out, GrowthRate{Year: years[i], Arrivals: curr, YoYGrowth: growth})
	}
	return out
}

func filterYear(records []models.RawRecord, year int) []models.RawRecord {
	if year == 0 {
		return records
	}
	var out []models.RawRecord
	for _, rec := range records {
		if rec.Date.Year() == year {
			out = append(out, rec)
		}
	}
	return out
}
