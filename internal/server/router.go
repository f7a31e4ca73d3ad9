package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter builds the API route table with logging and metrics
// middleware applied to every request.
func NewRouter(h *Handlers, logger *logrus.Logger) *mux.Router {
	if logger == nil {
		logger = logrus.New()
	}
	router := mux.NewRouter()
	router.Use(LoggingMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(CORSMiddleware)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet, http.MethodOptions)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/overview", h.Overview).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/monthly-trends", h.MonthlyTrends).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/country-analysis", h.CountryAnalysis).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/seasonal-analysis", h.SeasonalAnalysis).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/top-countries", h.TopCountries).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/forecast", h.Forecast).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/year-comparison", h.YearComparison).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/regional-analysis", h.RegionalAnalysis).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/growth-rates", h.GrowthRates).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/available-years", h.AvailableYears).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/available-countries", h.AvailableCountries).Methods(http.MethodGet, http.MethodOptions)

	live := api.PathPrefix("/live").Subrouter()
	live.HandleFunc("/weather", h.LiveWeather).Methods(http.MethodGet, http.MethodOptions)
	live.HandleFunc("/exchange-rates", h.LiveExchangeRates).Methods(http.MethodGet, http.MethodOptions)
	live.HandleFunc("/advisory", h.LiveAdvisory).Methods(http.MethodGet, http.MethodOptions)
	live.HandleFunc("/snapshot", h.LiveSnapshot).Methods(http.MethodGet, http.MethodOptions)

	return router
}
