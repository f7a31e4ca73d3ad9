package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/lankastats/tourcast/internal/analytics"
	"github.com/lankastats/tourcast/internal/dataset"
	"github.com/lankastats/tourcast/internal/external"
	"github.com/lankastats/tourcast/internal/store"
	"github.com/lankastats/tourcast/pkg/errors"
	"github.com/lankastats/tourcast/pkg/models"
)

// Handlers serves the dashboard API over the loaded dataset, the
// persisted forecast table and the live external sources. The external
// client may be nil, in which case the live endpoints report unavailable.
type Handlers struct {
	records   []models.RawRecord
	forecasts store.ForecastStore
	live      *external.Client
	logger    *logrus.Logger
}

// NewHandlers assembles the handler set.
func NewHandlers(records []models.RawRecord, forecasts store.ForecastStore, live *external.Client, logger *logrus.Logger) *Handlers {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handlers{records: records, forecasts: forecasts, live: live, logger: logger}
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "API is running",
	})
}

// Overview serves the landing-view summary.
func (h *Handlers) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := analytics.ComputeOverview(h.records, 10)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, overview)
}

// MonthlyTrends serves the aggregate series, optionally for one year.
func (h *Handlers) MonthlyTrends(w http.ResponseWriter, r *http.Request) {
	year, err := intQuery(r, "year", 0)
	if err != nil {
		h.respondError(w, err)
		return
	}
	trends, err := analytics.MonthlyTrends(h.records, year)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, trends)
}

// CountryAnalysis serves either one country's series or the ranked
// summary of all countries.
func (h *Handlers) CountryAnalysis(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		h.respond(w, http.StatusOK, analytics.CountrySummaries(h.records))
		return
	}

	trends, err := analytics.CountryTrends(h.records, country)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"country": country,
		"trends":  trends,
	})
}

// SeasonalAnalysis serves the per-month averages with monsoon seasons.
func (h *Handlers) SeasonalAnalysis(w http.ResponseWriter, r *http.Request) {
	patterns, err := analytics.SeasonalPatterns(h.records)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]interface{}{
		"monthly_patterns": patterns,
	})
}

// TopCountries serves the highest-volume source countries.
func (h *Handlers) TopCountries(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 15)
	if err != nil {
		h.respondError(w, err)
		return
	}
	year, err := intQuery(r, "year", 0)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, analytics.TopCountries(h.records, limit, year))
}

// Forecast serves the persisted forecast table.
func (h *Handlers) Forecast(w http.ResponseWriter, r *http.Request) {
	rows, err := h.forecasts.Load(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respond(w, http.StatusOK, rows)
}

// YearComparison serves the side-by-side year summary.
func (h *Handlers) YearComparison(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, analytics.YearComparison(h.records))
}

// RegionalAnalysis serves arrivals grouped by source region.
func (h *Handlers) RegionalAnalysis(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, analytics.RegionalTotals(h.records))
}

// GrowthRates serves year-over-year growth of annual totals.
func (h *Handlers) GrowthRates(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, analytics.GrowthRates(h.records))
}

// AvailableYears lists the years present in the dataset.
func (h *Handlers) AvailableYears(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]interface{}{
		"years": dataset.Years(h.records),
	})
}

// AvailableCountries lists the source countries present in the dataset.
func (h *Handlers) AvailableCountries(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, map[string]interface{}{
		"countries": dataset.Countries(h.records),
	})
}

// LiveWeather serves current conditions for one city.
func (h *Handlers) LiveWeather(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		h.respondError(w, errors.NewUpstreamUnavailableError("live data sources are not configured", nil))
		return
	}

	name := r.URL.Query().Get("city")
	if name == "" {
		name = "Colombo"
	}
	city, ok := external.CityByName(name)
	if !ok {
		h.respondError(w, errors.NewNotFoundError("unknown city "+name))
		return
	}

	result := h.live.CurrentWeather(r.Context(), city)
	if !result.Available {
		h.respondError(w, result.Err)
		return
	}
	h.respond(w, http.StatusOK, result.Value)
}

// LiveExchangeRates serves current USD exchange rates.
func (h *Handlers) LiveExchangeRates(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		h.respondError(w, errors.NewUpstreamUnavailableError("live data sources are not configured", nil))
		return
	}
	result := h.live.Rates(r.Context())
	if !result.Available {
		h.respondError(w, result.Err)
		return
	}
	h.respond(w, http.StatusOK, result.Value)
}

// LiveSnapshot serves every live source for one city in a single payload.
// Each panel degrades independently: an unavailable source renders null
// while the rest still carry data.
func (h *Handlers) LiveSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		h.respondError(w, errors.NewUpstreamUnavailableError("live data sources are not configured", nil))
		return
	}

	name := r.URL.Query().Get("city")
	if name == "" {
		name = "Colombo"
	}
	city, ok := external.CityByName(name)
	if !ok {
		h.respondError(w, errors.NewNotFoundError("unknown city "+name))
		return
	}

	snap := h.live.Snapshot(r.Context(), city)
	h.respond(w, http.StatusOK, map[string]interface{}{
		"city":           city.Name,
		"weather":        liveValue(snap.Weather),
		"outlook":        liveValue(snap.Outlook),
		"exchange_rates": liveValue(snap.Rates),
		"advisory":       liveValue(snap.Advisory),
	})
}

// LiveAdvisory serves the travel advisory for Sri Lanka.
func (h *Handlers) LiveAdvisory(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		h.respondError(w, errors.NewUpstreamUnavailableError("live data sources are not configured", nil))
		return
	}
	result := h.live.TravelAdvisory(r.Context(), "LK")
	if !result.Available {
		h.respondError(w, result.Err)
		return
	}
	h.respond(w, http.StatusOK, result.Value)
}

func (h *Handlers) respond(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}

// respondError maps application errors onto their HTTP status and a JSON
// error envelope.
func (h *Handlers) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	payload := map[string]string{"error": "internal error"}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		if appErr.HTTPStatus != 0 {
			status = appErr.HTTPStatus
		}
		payload = map[string]string{
			"error": appErr.Message,
			"code":  appErr.Code,
		}
	}

	if status >= 500 {
		h.logger.WithError(err).Error("Request failed")
	}
	h.respond(w, status, payload)
}

// liveValue flattens a live-source result to its value, or nil when the
// source is unavailable.
func liveValue[T any](res external.Result[T]) interface{} {
	if !res.Available {
		return nil
	}
	return res.Value
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewValidationError(errors.CodeInvalidInput, "query parameter "+key+" must be an integer")
	}
	return v, nil
}
