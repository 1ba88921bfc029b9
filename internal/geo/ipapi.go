// Package geo resolves client IPs to a country and city.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/user/shortlinks/internal/models"
)

// IPAPIClient queries an ip-api.com compatible endpoint:
// GET {endpoint}/{ip}?fields=status,country,city
type IPAPIClient struct {
	endpoint string
	http     *http.Client
}

// NewIPAPIClient creates a client for endpoint (e.g. http://ip-api.com/json).
// Callers bound each lookup with the context deadline.
func NewIPAPIClient(endpoint string, client *http.Client) *IPAPIClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &IPAPIClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     client,
	}
}

type ipAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
	City    string `json:"city"`
}

// Lookup returns the location of ip, or nil when the service does not
// know it.
func (c *IPAPIClient) Lookup(ctx context.Context, ip string) (*models.GeoLocation, error) {
	target := fmt.Sprintf("%s/%s?fields=status,message,country,city", c.endpoint, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build geo request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo request failed: status %d", resp.StatusCode)
	}

	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode geo response: %w", err)
	}
	if body.Status != "" && body.Status != "success" {
		return nil, nil
	}
	if body.Country == "" && body.City == "" {
		return nil, nil
	}

	return &models.GeoLocation{Country: body.Country, City: body.City}, nil
}

// Noop never knows a location.
type Noop struct{}

func (Noop) Lookup(context.Context, string) (*models.GeoLocation, error) { return nil, nil }
