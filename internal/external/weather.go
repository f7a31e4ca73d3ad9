package external

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Weather is the current conditions for one city.
type Weather struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	WindSpeed   float64 `json:"wind_speed"`
}

// WeatherForecast is one 3-hour forecast slot.
type WeatherForecast struct {
	Time            time.Time `json:"time"`
	Temperature     float64   `json:"temperature"`
	Description     string    `json:"description"`
	Humidity        int       `json:"humidity"`
	RainProbability float64   `json:"rain_probability"`
}

type openWeatherResponse struct {
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type openWeatherForecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// CurrentWeather fetches current conditions for a known city.
func (c *Client) CurrentWeather(ctx context.Context, city City) Result[Weather] {
	key := "weather:current:" + city.Name
	return fetchCached(ctx, c, key, c.config.WeatherTTL, func() (Weather, error) {
		params := url.Values{}
		params.Set("lat", strconv.FormatFloat(city.Lat, 'f', 4, 64))
		params.Set("lon", strconv.FormatFloat(city.Lon, 'f', 4, 64))
		params.Set("appid", c.config.WeatherAPIKey)
		params.Set("units", "metric")

		var resp openWeatherResponse
		if err := c.getJSON(ctx, c.config.WeatherBaseURL+"/weather", params, nil, &resp); err != nil {
			return Weather{}, err
		}

		w := Weather{
			City:        city.Name,
			Temperature: resp.Main.Temp,
			FeelsLike:   resp.Main.FeelsLike,
			Humidity:    resp.Main.Humidity,
			WindSpeed:   resp.Wind.Speed,
		}
		if len(resp.Weather) > 0 {
			w.Description = resp.Weather[0].Description
			w.Icon = resp.Weather[0].Icon
		}
		return w, nil
	})
}

// WeatherOutlook fetches the multi-day forecast in 3-hour slots.
func (c *Client) WeatherOutlook(ctx context.Context, city City, days int) Result[[]WeatherForecast] {
	key := fmt.Sprintf("weather:forecast:%s:%d", city.Name, days)
	return fetchCached(ctx, c, key, c.config.WeatherTTL, func() ([]WeatherForecast, error) {
		params := url.Values{}
		params.Set("lat", strconv.FormatFloat(city.Lat, 'f', 4, 64))
		params.Set("lon", strconv.FormatFloat(city.Lon, 'f', 4, 64))
		params.Set("appid", c.config.WeatherAPIKey)
		params.Set("units", "metric")
		params.Set("cnt", strconv.Itoa(days*8))

		var resp openWeatherForecastResponse
		if err := c.getJSON(ctx, c.config.WeatherBaseURL+"/forecast", params, nil, &resp); err != nil {
			return nil, err
		}

		out := make([]WeatherForecast, 0, len(resp.List))
		for _, item := range resp.List {
			f := WeatherForecast{
				Time:            time.Unix(item.Dt, 0).UTC(),
				Temperature:     item.Main.Temp,
				Humidity:        item.Main.Humidity,
				RainProbability: item.Pop * 100,
			}
			if len(item.Weather) > 0 {
				f.Description = item.Weather[0].Description
			}
			out = append(out, f)
		}
		return out, nil
	})
}
