package weather_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Client is a client for the OpenWeatherMap API. Lookups are best-effort
// context: every failure degrades to a nil result instead of an error,
// because a missing city or temperature is an expected outcome.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

type weatherResponse struct {
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
}

type geocodeEntry struct {
	Name string `json:"name"`
}

// NewClient creates a new weather client.
func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// TemperatureByCoords returns the current temperature in °C for the given
// coordinates, or nil when it cannot be resolved.
func (c *Client) TemperatureByCoords(ctx context.Context, lat, lon float64) *float64 {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")

	var result weatherResponse
	if err := c.getJSON(ctx, "/data/2.5/weather", query, &result); err != nil {
		c.logger.Warn("Temperature lookup failed", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return nil
	}

	temp := result.Main.Temp
	return &temp
}

// CityByCoords reverse-geocodes the coordinates to a city name, or nil when
// it cannot be resolved.
func (c *Client) CityByCoords(ctx context.Context, lat, lon float64) *string {
	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%f", lat))
	query.Set("lon", fmt.Sprintf("%f", lon))
	query.Set("limit", "1")
	query.Set("appid", c.apiKey)

	var result []geocodeEntry
	if err := c.getJSON(ctx, "/geo/1.0/reverse", query, &result); err != nil {
		c.logger.Warn("City lookup failed", zap.Float64("lat", lat), zap.Float64("lon", lon), zap.Error(err))
		return nil
	}

	if len(result) == 0 || result[0].Name == "" {
		return nil
	}
	return &result[0].Name
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
