package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.openweathermap.org/data/3.0/onecall"

// OpenWeather fetches from the OpenWeather One Call API. One HTTP request
// per Fetch, no retries, bounded by the client timeout and the caller's
// context.
type OpenWeather struct {
	apiKey     string
	lat, lon   float64
	city       string
	units      string
	baseURL    string
	hourly     int
	daily      int
	httpClient *http.Client
}

func NewOpenWeather(apiKey string, lat, lon float64, city, units string, hourly, daily int, timeout time.Duration) *OpenWeather {
	return &OpenWeather{
		apiKey:  apiKey,
		lat:     lat,
		lon:     lon,
		city:    city,
		units:   units,
		baseURL: defaultBaseURL,
		hourly:  hourly,
		daily:   daily,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// owResponse mirrors the One Call fields we consume.
type owResponse struct {
	Current struct {
		Dt        int64   `json:"dt"`
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		WindSpeed float64 `json:"wind_speed"`
		Sunrise   int64   `json:"sunrise"`
		Sunset    int64   `json:"sunset"`
		Weather   []struct {
			Main string `json:"main"`
			Icon string `json:"icon"`
		} `json:"weather"`
	} `json:"current"`
	Hourly []struct {
		Dt      int64   `json:"dt"`
		Temp    float64 `json:"temp"`
		Pop     float64 `json:"pop"`
		Weather []struct {
			Icon string `json:"icon"`
		} `json:"weather"`
	} `json:"hourly"`
	Daily []struct {
		Dt   int64 `json:"dt"`
		Temp struct {
			Min float64 `json:"min"`
			Max float64 `json:"max"`
		} `json:"temp"`
		Weather []struct {
			Icon string `json:"icon"`
		} `json:"weather"`
	} `json:"daily"`
}

type owError struct {
	Cod     any    `json:"cod"`
	Message string `json:"message"`
}

func (w *OpenWeather) Fetch(ctx context.Context) (*Data, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", w.lat))
	q.Set("lon", fmt.Sprintf("%f", w.lon))
	q.Set("units", w.units)
	q.Set("exclude", "minutely,alerts")
	q.Set("appid", w.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Kind: FailTransientNetwork, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"lat":   w.lat,
		"lon":   w.lon,
		"units": w.units,
	}).Debug("fetching weather")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		// Covers DNS failures, refused connections, and timeouts.
		return nil, &FetchError{Kind: FailTransientNetwork, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logrus.Errorf("failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		var apiErr owError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		err := pkgerrors.Errorf("openweather returned %d: %s", resp.StatusCode, apiErr.Message)
		return nil, &FetchError{Kind: kindForStatus(resp.StatusCode), Err: err}
	}

	var raw owResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &FetchError{Kind: FailMalformed, Err: pkgerrors.Wrap(err, "failed to decode response")}
	}
	if len(raw.Current.Weather) == 0 {
		return nil, &FetchError{Kind: FailMalformed, Err: pkgerrors.New("response has no current weather block")}
	}

	return w.convert(&raw), nil
}

func kindForStatus(status int) FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return FailAuth
	case status == http.StatusTooManyRequests:
		return FailRateLimited
	case status >= 500:
		return FailTransientNetwork
	default:
		return FailMalformed
	}
}

func (w *OpenWeather) convert(raw *owResponse) *Data {
	d := &Data{
		City:       w.city,
		ObservedAt: time.Unix(raw.Current.Dt, 0),
		Current: Current{
			Temp:      raw.Current.Temp,
			FeelsLike: raw.Current.FeelsLike,
			Condition: raw.Current.Weather[0].Main,
			Icon:      raw.Current.Weather[0].Icon,
			Humidity:  raw.Current.Humidity,
			WindSpeed: raw.Current.WindSpeed,
			Sunrise:   time.Unix(raw.Current.Sunrise, 0),
			Sunset:    time.Unix(raw.Current.Sunset, 0),
		},
	}

	for i, h := range raw.Hourly {
		if i >= w.hourly {
			break
		}
		hour := Hour{
			At:           time.Unix(h.Dt, 0),
			Temp:         h.Temp,
			PrecipChance: h.Pop,
		}
		if len(h.Weather) > 0 {
			hour.Icon = h.Weather[0].Icon
		}
		d.Hourly = append(d.Hourly, hour)
	}

	for i, dy := range raw.Daily {
		if i >= w.daily {
			break
		}
		day := Day{
			At:   time.Unix(dy.Dt, 0),
			High: dy.Temp.Max,
			Low:  dy.Temp.Min,
		}
		if len(dy.Weather) > 0 {
			day.Icon = dy.Weather[0].Icon
		}
		d.Daily = append(d.Daily, day)
	}

	return d
}
