// Package weather fetches current conditions and forecasts from Open-Meteo
// and resolves coordinates to place names through BigDataCloud.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Default upstream endpoints.
const (
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	DefaultGeocodeURL  = "https://api.bigdatacloud.net/data/reverse-geocode-client"
)

const (
	defaultTimeout = 12 * time.Second
	geocodeTimeout = 5 * time.Second
)

// UpstreamError reports a failed call to an external API. Status is the HTTP
// status the caller should answer with.
type UpstreamError struct {
	Status  int
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather: %s: %v", e.Message, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Opts configures a Client. Zero values select the public endpoints.
type Opts struct {
	HTTPClient  *http.Client
	UserAgent   string
	Timeout     time.Duration
	ForecastURL string
	GeocodeURL  string
}

// Client calls the weather and geocoding APIs.
type Client struct {
	http        *http.Client
	userAgent   string
	timeout     time.Duration
	forecastURL string
	geocodeURL  string
}

// New creates a Client.
func New(opts Opts) *Client {
	c := &Client{
		http:        opts.HTTPClient,
		userAgent:   opts.UserAgent,
		timeout:     opts.Timeout,
		forecastURL: opts.ForecastURL,
		geocodeURL:  opts.GeocodeURL,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.forecastURL == "" {
		c.forecastURL = DefaultForecastURL
	}
	if c.geocodeURL == "" {
		c.geocodeURL = DefaultGeocodeURL
	}
	return c
}

// Current is the present weather at a location.
type Current struct {
	Temp          *float64 `json:"temp"`
	Windspeed     *float64 `json:"windspeed"`
	Winddirection *float64 `json:"winddirection"`
	Weathercode   *float64 `json:"weathercode"`
	IsDay         *float64 `json:"is_day"`
	Time          *string  `json:"time"`
}

// Hour is one hourly forecast slot.
type Hour struct {
	Time string   `json:"time"`
	Temp *float64 `json:"temp"`
	Pop  *float64 `json:"pop"`
	Code *float64 `json:"code"`
}

// Day is one daily forecast slot.
type Day struct {
	Date string   `json:"date"`
	TMin *float64 `json:"tmin"`
	TMax *float64 `json:"tmax"`
	Pop  *float64 `json:"pop"`
	Code *float64 `json:"code"`
}

// Forecast holds the hourly and daily forecasts for a location.
type Forecast struct {
	Hourly []Hour `json:"hourly"`
	Daily  []Day  `json:"daily"`
}

// Place is a reverse-geocoded location. Fields are nil when unknown.
type Place struct {
	City        *string `json:"city"`
	State       *string `json:"state"`
	Country     *string `json:"country"`
	CountryCode *string `json:"country_code"`
	Label       string  `json:"label"`
}

func coords(lat, lon float64) url.Values {
	v := url.Values{}
	v.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	v.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	return v
}

// Current returns the current weather at lat, lon.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Current, error) {
	params := coords(lat, lon)
	params.Set("current_weather", "true")
	params.Set("windspeed_unit", "kmh")
	params.Set("timezone", "auto")

	var body struct {
		CurrentWeather struct {
			Temperature   *float64 `json:"temperature"`
			Windspeed     *float64 `json:"windspeed"`
			Winddirection *float64 `json:"winddirection"`
			Weathercode   *float64 `json:"weathercode"`
			IsDay         *float64 `json:"is_day"`
			Time          *string  `json:"time"`
		} `json:"current_weather"`
	}
	if err := c.getJSON(ctx, c.forecastURL, params, c.timeout, &body); err != nil {
		return nil, err
	}
	cw := body.CurrentWeather
	return &Current{
		Temp:          cw.Temperature,
		Windspeed:     cw.Windspeed,
		Winddirection: cw.Winddirection,
		Weathercode:   cw.Weathercode,
		IsDay:         cw.IsDay,
		Time:          cw.Time,
	}, nil
}

// Forecast returns the hourly and daily forecast at lat, lon.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	params := coords(lat, lon)
	params.Set("hourly", "temperature_2m,precipitation_probability,weathercode")
	params.Set("daily", "weathercode,temperature_2m_max,temperature_2m_min,precipitation_probability_max")
	params.Set("windspeed_unit", "kmh")
	params.Set("timezone", "auto")

	var body struct {
		Hourly struct {
			Time        []string   `json:"time"`
			Temperature []*float64 `json:"temperature_2m"`
			Pop         []*float64 `json:"precipitation_probability"`
			Code        []*float64 `json:"weathercode"`
		} `json:"hourly"`
		Daily struct {
			Time    []string   `json:"time"`
			Code    []*float64 `json:"weathercode"`
			TempMax []*float64 `json:"temperature_2m_max"`
			TempMin []*float64 `json:"temperature_2m_min"`
			PopMax  []*float64 `json:"precipitation_probability_max"`
		} `json:"daily"`
	}
	if err := c.getJSON(ctx, c.forecastURL, params, c.timeout, &body); err != nil {
		return nil, err
	}

	f := &Forecast{
		Hourly: make([]Hour, len(body.Hourly.Time)),
		Daily:  make([]Day, len(body.Daily.Time)),
	}
	for i, ts := range body.Hourly.Time {
		f.Hourly[i] = Hour{
			Time: ts,
			Temp: at(body.Hourly.Temperature, i),
			Pop:  at(body.Hourly.Pop, i),
			Code: at(body.Hourly.Code, i),
		}
	}
	for i, d := range body.Daily.Time {
		f.Daily[i] = Day{
			Date: d,
			TMin: at(body.Daily.TempMin, i),
			TMax: at(body.Daily.TempMax, i),
			Pop:  at(body.Daily.PopMax, i),
			Code: at(body.Daily.Code, i),
		}
	}
	return f, nil
}

// at returns xs[i], or nil when the series is shorter than the time axis.
func at(xs []*float64, i int) *float64 {
	if i < len(xs) {
		return xs[i]
	}
	return nil
}

// ReverseGeocode names the place at lat, lon. It never fails: on any
// upstream problem the label falls back to the rounded coordinates.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) Place {
	params := coords(lat, lon)
	params.Set("localityLanguage", "fr")

	var body struct {
		City                 string `json:"city"`
		Locality             string `json:"locality"`
		PrincipalSubdivision string `json:"principalSubdivision"`
		CountryName          string `json:"countryName"`
		CountryCode          string `json:"countryCode"`
	}
	if err := c.getJSON(ctx, c.geocodeURL, params, geocodeTimeout, &body); err != nil {
		return Place{Label: fmt.Sprintf("%.2f, %.2f", lat, lon)}
	}

	city := firstNonEmpty(body.City, body.Locality, body.PrincipalSubdivision)
	code := strings.ToUpper(body.CountryCode)
	var parts []string
	for _, p := range []string{city, body.CountryName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return Place{
		City:        optional(city),
		State:       optional(body.PrincipalSubdivision),
		Country:     optional(body.CountryName),
		CountryCode: &code,
		Label:       strings.Join(parts, ", "),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, timeout time.Duration, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return &UpstreamError{Status: http.StatusInternalServerError, Message: "Failed to fetch external data", Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{
			Status:  http.StatusBadGateway,
			Message: "External API returned an error",
			Err:     fmt.Errorf("%s: status %d", endpoint, resp.StatusCode),
		}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &UpstreamError{Status: http.StatusInternalServerError, Message: "Failed to fetch external data", Err: err}
	}
	return nil
}

// classify maps a transport error to the status reported to clients.
func classify(err error) *UpstreamError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &UpstreamError{Status: http.StatusGatewayTimeout, Message: "External API timeout - please try again later", Err: err}
	}
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return &UpstreamError{Status: http.StatusServiceUnavailable, Message: "External API unreachable - service may be down", Err: err}
	}
	return &UpstreamError{Status: http.StatusInternalServerError, Message: "Failed to fetch external data", Err: err}
}
