package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lankastats/tourcast/internal/external"
	"github.com/lankastats/tourcast/internal/store"
	"github.com/lankastats/tourcast/pkg/models"
)

func rec(year int, month time.Month, country string, arrivals float64) models.RawRecord {
	return models.RawRecord{
		Date:     time.Date(year, month, 1, 0, 0, 0, 0, time.UTC),
		Country:  country,
		Arrivals: arrivals,
	}
}

func testRouter(t *testing.T, withForecast bool) http.Handler {
	t.Helper()
	records := []models.RawRecord{
		rec(2022, time.January, "India", 100),
		rec(2022, time.February, "India", 200),
		rec(2023, time.January, "India", 150),
		rec(2023, time.January, "Germany", 80),
	}

	forecasts, err := store.NewForecastCSVStore(filepath.Join(t.TempDir(), "forecast.csv"), nil)
	require.NoError(t, err)
	if withForecast {
		require.NoError(t, forecasts.Save(context.Background(), []models.ForecastRow{{
			Date:             time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			TreeForecast:     models.Float64Ptr(120),
			LSTMForecast:     models.Float64Ptr(130),
			EnsembleForecast: models.Float64Ptr(125),
		}}))
	}

	return NewRouter(NewHandlers(records, forecasts, nil, nil), nil)
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	rr := get(t, testRouter(t, false), "/api/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "healthy")
}

func TestOverview(t *testing.T) {
	rr := get(t, testRouter(t, false), "/api/overview")
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		TotalArrivals float64 `json:"total_arrivals"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, 530.0, payload.TotalArrivals)
}

func TestMonthlyTrendsYearFilter(t *testing.T) {
	router := testRouter(t, false)

	rr := get(t, router, "/api/monthly-trends?year=2022")
	require.Equal(t, http.StatusOK, rr.Code)

	var trends []models.Observation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &trends))
	assert.Len(t, trends, 2)

	rr = get(t, router, "/api/monthly-trends?year=abc")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = get(t, router, "/api/monthly-trends?year=1999")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCountryAnalysis(t *testing.T) {
	router := testRouter(t, false)

	rr := get(t, router, "/api/country-analysis?country=India")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "trends")

	rr = get(t, router, "/api/country-analysis")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "India")
	assert.Contains(t, rr.Body.String(), "Germany")

	rr = get(t, router, "/api/country-analysis?country=Atlantis")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestForecastEndpoint(t *testing.T) {
	rr := get(t, testRouter(t, true), "/api/forecast")
	require.Equal(t, http.StatusOK, rr.Code)

	var rows []models.ForecastRow
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, 125.0, *rows[0].EnsembleForecast)
}

func TestForecastNotGenerated(t *testing.T) {
	rr := get(t, testRouter(t, false), "/api/forecast")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "ARTIFACT_NOT_FOUND")
}

func TestTopCountriesLimit(t *testing.T) {
	rr := get(t, testRouter(t, false), "/api/top-countries?limit=1")
	require.Equal(t, http.StatusOK, rr.Code)

	var top []struct {
		Country string `json:"country"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &top))
	require.Len(t, top, 1)
	assert.Equal(t, "India", top[0].Country)
}

func TestSeasonalAnalysis(t *testing.T) {
	rr := get(t, testRouter(t, false), "/api/seasonal-analysis")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "monthly_patterns")
	assert.Contains(t, rr.Body.String(), "Northeast Monsoon")
}

func TestAvailableYearsAndCountries(t *testing.T) {
	router := testRouter(t, false)

	rr := get(t, router, "/api/available-years")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "2022")
	assert.Contains(t, rr.Body.String(), "2023")

	rr = get(t, router, "/api/available-countries")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Germany")
}

func TestGrowthRatesAndRegions(t *testing.T) {
	router := testRouter(t, false)

	rr := get(t, router, "/api/growth-rates")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = get(t, router, "/api/regional-analysis")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Asia")
	assert.Contains(t, rr.Body.String(), "Europe")
}

func TestLiveEndpointsWithoutClient(t *testing.T) {
	router := testRouter(t, false)

	rr := get(t, router, "/api/live/weather")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = get(t, router, "/api/live/snapshot")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestLiveSnapshot(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/weather":
			fmt.Fprint(w, `{"main": {"temp": 31.0, "humidity": 65}, "weather": [], "wind": {"speed": 2.5}}`)
		case "/forecast":
			fmt.Fprint(w, `{"list": []}`)
		default:
			// Exchange rates and advisory share this server in the test.
			fmt.Fprint(w, `{"base": "USD", "date": "2026-08-29", "rates": {"LKR": 305.2},
				"data": {"LK": {"advisory": {"score": 2.8, "message": "ok"}}}}`)
		}
	}))
	defer upstream.Close()

	cfg := external.DefaultConfig()
	cfg.WeatherBaseURL = upstream.URL
	cfg.ExchangeRateURL = upstream.URL + "/rates"
	cfg.AdvisoryURL = upstream.URL + "/advisory"
	live := external.NewClient(cfg, nil, nil)

	forecasts, err := store.NewForecastCSVStore(filepath.Join(t.TempDir(), "forecast.csv"), nil)
	require.NoError(t, err)
	router := NewRouter(NewHandlers(nil, forecasts, live, nil), nil)

	rr := get(t, router, "/api/live/snapshot?city=Galle")
	require.Equal(t, http.StatusOK, rr.Code)

	var payload struct {
		City     string          `json:"city"`
		Weather  json.RawMessage `json:"weather"`
		Rates    json.RawMessage `json:"exchange_rates"`
		Advisory json.RawMessage `json:"advisory"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, "Galle", payload.City)
	assert.Contains(t, string(payload.Weather), "31")
	assert.Contains(t, string(payload.Rates), "LKR")
	assert.Contains(t, string(payload.Advisory), "2.8")

	rr = get(t, router, "/api/live/snapshot?city=Atlantis")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflights(t *testing.T) {
	router := testRouter(t, false)
	req := httptest.NewRequest(http.MethodOptions, "/api/overview", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
