// Package fiware pulls live bus positions from the FIWARE context broker of
// the Porto urban platform and normalizes the entity payloads into vehicle
// positions. Malformed entities are skipped per record; a fetch failure
// aborts the whole poll cycle.
package fiware

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/carlosgalves/porto-transport-api/internal/domain"
)

type Client struct {
	baseURL    string
	limit      int
	httpClient *http.Client
	logger     *slog.Logger
}

func New(baseURL string, limit int, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		limit:   limit,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.With("component", "fiware_client"),
	}
}

// FetchVehicles pulls the current bus fleet snapshot from the broker.
func (c *Client) FetchVehicles(ctx context.Context) ([]domain.VehiclePosition, error) {
	params := url.Values{}
	params.Set("q", "vehicleType==bus")
	params.Set("limit", strconv.Itoa(c.limit))

	reqURL := fmt.Sprintf("%s/entities?%s", c.baseURL, params.Encode())

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

	var entities []vehicleEntity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		return nil, fmt.Errorf("decoding entities: %w", err)
	}

	now := time.Now().UTC()
	positions := make([]domain.VehiclePosition, 0, len(entities))
	for _, e := range entities {
		p, err := ParseVehicle(e, now)
		if err != nil {
			c.logger.Warn("skipping vehicle entity", "entity_id", e.ID, "error", err)
			continue
		}
		positions = append(positions, p)
	}
	return positions, nil
}
