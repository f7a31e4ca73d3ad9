package external

import "context"

// relevantCurrencies are the major tourism source-market currencies.
var relevantCurrencies = []string{"LKR", "EUR", "GBP", "INR", "AUD", "CNY", "JPY"}

// ExchangeRates holds USD-based rates for the relevant currencies.
type ExchangeRates struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

// Advisory is the travel safety advisory for a country.
type Advisory struct {
	Score   float64  `json:"score"`
	Message string   `json:"message"`
	Sources []string `json:"sources"`
	Updated string   `json:"updated"`
}

type exchangeResponse struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

type advisoryResponse struct {
	Data map[string]struct {
		Advisory struct {
			Score   float64  `json:"score"`
			Message string   `json:"message"`
			Sources []string `json:"sources"`
			Updated string   `json:"updated"`
		} `json:"advisory"`
	} `json:"data"`
}

// Rates fetches current USD exchange rates for the relevant currencies.
func (c *Client) Rates(ctx context.Context) Result[ExchangeRates] {
	return fetchCached(ctx, c, "exchange:usd", c.config.ExchangeTTL, func() (ExchangeRates, error) {
		var resp exchangeResponse
		if err := c.getJSON(ctx, c.config.ExchangeRateURL, nil, nil, &resp); err != nil {
			return ExchangeRates{}, err
		}

		rates := make(map[string]float64, len(relevantCurrencies))
		for _, currency := range relevantCurrencies {
			rates[currency] = resp.Rates[currency]
		}
		return ExchangeRates{Base: resp.Base, Date: resp.Date, Rates: rates}, nil
	})
}

// TravelAdvisory fetches the advisory for a country, default LK.
func (c *Client) TravelAdvisory(ctx context.Context, countryCode string) Result[Advisory] {
	if countryCode == "" {
		countryCode = "LK"
	}
	return fetchCached(ctx, c, "advisory:"+countryCode, c.config.AdvisoryTTL, func() (Advisory, error) {
		var resp advisoryResponse
		if err := c.getJSON(ctx, c.config.AdvisoryURL, nil, nil, &resp); err != nil {
			return Advisory{}, err
		}

		entry := resp.Data[countryCode]
		return Advisory{
			Score:   entry.Advisory.Score,
			Message: entry.Advisory.Message,
			Sources: entry.Advisory.Sources,
			Updated: entry.Advisory.Updated,
		}, nil
	})
}

// CitySnapshot aggregates every live source for one city. Each field
// degrades independently, matching the dashboard's per-panel rendering.
type CitySnapshot struct {
	Weather  Result[Weather]           `json:"-"`
	Outlook  Result[[]WeatherForecast] `json:"-"`
	Rates    Result[ExchangeRates]     `json:"-"`
	Advisory Result[Advisory]          `json:"-"`
}

// Snapshot fetches all live context for one city.
func (c *Client) Snapshot(ctx context.Context, city City) CitySnapshot {
	return CitySnapshot{
		Weather:  c.CurrentWeather(ctx, city),
		Outlook:  c.WeatherOutlook(ctx, city, 5),
		Rates:    c.Rates(ctx),
		Advisory: c.TravelAdvisory(ctx, "LK"),
	}
}
