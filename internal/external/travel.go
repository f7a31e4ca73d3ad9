package external

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// Hotel is one hotel search hit.
type Hotel struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Address     string  `json:"address"`
	URL         string  `json:"url"`
}

// FlightArrival is one scheduled arrival at a local airport.
type FlightArrival struct {
	FlightNumber string `json:"flight_number"`
	Airline      string `json:"airline"`
	Origin       string `json:"origin"`
	Scheduled    string `json:"scheduled"`
	Status       string `json:"status"`
}

type hotelSearchResponse struct {
	Result []struct {
		HotelName     string  `json:"hotel_name"`
		MinTotalPrice float64 `json:"min_total_price"`
		ReviewScore   float64 `json:"review_score"`
		ReviewNr      int     `json:"review_nr"`
		Address       string  `json:"address"`
		URL           string  `json:"url"`
	} `json:"result"`
}

type flightsResponse struct {
	Data []struct {
		FlightStatus string `json:"flight_status"`
		Flight       struct {
			IATA string `json:"iata"`
		} `json:"flight"`
		Airline struct {
			Name string `json:"name"`
		} `json:"airline"`
		Departure struct {
			Airport string `json:"airport"`
		} `json:"departure"`
		Arrival struct {
			Scheduled string `json:"scheduled"`
		} `json:"arrival"`
	} `json:"data"`
}

// SearchHotels queries hotel availability for a city and date range.
// Only the top results come back; the dashboard shows at most ten.
func (c *Client) SearchHotels(ctx context.Context, city, checkin, checkout string, adults int) Result[[]Hotel] {
	key := fmt.Sprintf("hotels:%s:%s:%s:%d", city, checkin, checkout, adults)
	return fetchCached(ctx, c, key, c.config.HotelTTL, func() ([]Hotel, error) {
		params := url.Values{}
		params.Set("query", city+", Sri Lanka")
		params.Set("checkin_date", checkin)
		params.Set("checkout_date", checkout)
		params.Set("adults_number", strconv.Itoa(adults))
		params.Set("locale", "en-us")
		params.Set("currency", "USD")
		params.Set("units", "metric")

		headers := map[string]string{
			"X-RapidAPI-Key":  c.config.RapidAPIKey,
			"X-RapidAPI-Host": "booking-com.p.rapidapi.com",
		}

		var resp hotelSearchResponse
		if err := c.getJSON(ctx, c.config.HotelBaseURL+"/hotels/search", params, headers, &resp); err != nil {
			return nil, err
		}

		limit := len(resp.Result)
		if limit > 10 {
			limit = 10
		}
		out := make([]Hotel, 0, limit)
		for _, h := range resp.Result[:limit] {
			out = append(out, Hotel{
				Name:        h.HotelName,
				Price:       h.MinTotalPrice,
				Rating:      h.ReviewScore,
				ReviewCount: h.ReviewNr,
				Address:     h.Address,
				URL:         h.URL,
			})
		}
		return out, nil
	})
}

// FlightArrivals lists scheduled arrivals at an airport, default CMB.
func (c *Client) FlightArrivals(ctx context.Context, airportCode string) Result[[]FlightArrival] {
	if airportCode == "" {
		airportCode = "CMB"
	}
	key := "flights:arrivals:" + airportCode
	return fetchCached(ctx, c, key, c.config.FlightTTL, func() ([]FlightArrival, error) {
		params := url.Values{}
		params.Set("access_key", c.config.FlightAPIKey)
		params.Set("arr_iata", airportCode)
		params.Set("limit", "20")

		var resp flightsResponse
		if err := c.getJSON(ctx, c.config.FlightBaseURL+"/flights", params, nil, &resp); err != nil {
			return nil, err
		}

		out := make([]FlightArrival, 0, len(resp.Data))
		for _, f := range resp.Data {
			out = append(out, FlightArrival{
				FlightNumber: f.Flight.IATA,
				Airline:      f.Airline.Name,
				Origin:       f.Departure.Airport,
				Scheduled:    f.Arrival.Scheduled,
				Status:       f.FlightStatus,
			})
		}
		return out, nil
	})
}
