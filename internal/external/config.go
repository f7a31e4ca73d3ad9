package external

import "time"

// Config holds endpoints, credentials and cache policy for the external
// tourism data sources. Keys left empty disable the matching source.
type Config struct {
	WeatherAPIKey  string `json:"weather_api_key" yaml:"weather_api_key"`
	WeatherBaseURL string `json:"weather_base_url" yaml:"weather_base_url"`

	RapidAPIKey  string `json:"rapidapi_key" yaml:"rapidapi_key"`
	HotelBaseURL string `json:"hotel_base_url" yaml:"hotel_base_url"`

	FlightAPIKey  string `json:"flight_api_key" yaml:"flight_api_key"`
	FlightBaseURL string `json:"flight_base_url" yaml:"flight_base_url"`

	ExchangeRateURL string `json:"exchange_rate_url" yaml:"exchange_rate_url"`
	AdvisoryURL     string `json:"advisory_url" yaml:"advisory_url"`

	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`

	WeatherTTL  time.Duration `json:"weather_ttl" yaml:"weather_ttl"`
	HotelTTL    time.Duration `json:"hotel_ttl" yaml:"hotel_ttl"`
	FlightTTL   time.Duration `json:"flight_ttl" yaml:"flight_ttl"`
	ExchangeTTL time.Duration `json:"exchange_ttl" yaml:"exchange_ttl"`
	AdvisoryTTL time.Duration `json:"advisory_ttl" yaml:"advisory_ttl"`
}

// DefaultConfig returns the production endpoints and cache policy.
func DefaultConfig() *Config {
	return &Config{
		WeatherBaseURL:  "https://api.openweathermap.org/data/2.5",
		HotelBaseURL:    "https://booking-com.p.rapidapi.com/v1",
		FlightBaseURL:   "http://api.aviationstack.com/v1",
		ExchangeRateURL: "https://api.exchangerate-api.com/v4/latest/USD",
		AdvisoryURL:     "https://www.travel-advisory.info/api",
		RequestTimeout:  15 * time.Second,
		WeatherTTL:      time.Hour,
		HotelTTL:        30 * time.Minute,
		FlightTTL:       time.Hour,
		ExchangeTTL:     time.Hour,
		AdvisoryTTL:     24 * time.Hour,
	}
}

// City is a weather/hotel search location.
type City struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Cities lists the major Sri Lankan locations the dashboard covers.
var Cities = []City{
	{Name: "Colombo", Lat: 6.9271, Lon: 79.8612},
	{Name: "Kandy", Lat: 7.2906, Lon: 80.6337},
	{Name: "Galle", Lat: 6.0535, Lon: 80.2210},
	{Name: "Jaffna", Lat: 9.6615, Lon: 80.0255},
	{Name: "Nuwara Eliya", Lat: 6.9497, Lon: 80.7891},
	{Name: "Anuradhapura", Lat: 8.3114, Lon: 80.4037},
	{Name: "Trincomalee", Lat: 8.5874, Lon: 81.2152},
}

// CityByName finds a known city, case-sensitively.
func CityByName(name string) (City, bool) {
	for _, c := range Cities {
		if c.Name == name {
			return c, true
		}
	}
	return City{}, false
}
