// Package stcp pulls live arrival estimates for a stop from the STCP
// realtime API and normalizes them into domain estimates. The feed's opaque
// trip identifiers are decomposed per record; records that cannot be decoded
// are dropped individually.
package stcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func New(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.With("component", "stcp_client"),
	}
}

type stopRealtimeResponse struct {
	StopID      string       `json:"stop_id"`
	LastUpdated string       `json:"last_updated"`
	Arrivals    []apiArrival `json:"arrivals"`
}

type apiArrival struct {
	TripID               string   `json:"trip_id"`
	EstimatedArrivalTime string   `json:"estimated_arrival_time"`
	ArrivalMinutes       *float64 `json:"arrival_minutes"`
	DelayMinutes         *float64 `json:"delay_minutes"`
	Status               string   `json:"status"`
	VehicleID            string   `json:"vehicle_id"`
	TripHeadsign         string   `json:"trip_headsign"`
}

// FetchStopRealtime pulls the live arrival board for one stop. A feed-level
// failure returns an error; individual undecodable records are logged and
// skipped.
func (c *Client) FetchStopRealtime(ctx context.Context, stopID string) ([]domain.RealtimeEstimate, error) {
	reqURL := fmt.Sprintf("%s/stops/%s/realtime", c.baseURL, stopID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var apiResp stopRealtimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return c.toEstimates(apiResp, stopID), nil
}

func (c *Client) toEstimates(resp stopRealtimeResponse, stopID string) []domain.RealtimeEstimate {
	lastUpdated := parseFeedTimestamp(resp.LastUpdated)

	estimates := make([]domain.RealtimeEstimate, 0, len(resp.Arrivals))
	for _, a := range resp.Arrivals {
		est, err := parseArrival(a, stopID, lastUpdated)
		if err != nil {
			c.logger.Warn("skipping realtime arrival", "stop_id", stopID, "trip_id", a.TripID, "error", err)
			continue
		}
		estimates = append(estimates, est)
	}
	return estimates
}

func parseFeedTimestamp(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}
