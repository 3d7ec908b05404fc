package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"

	"github.com/donatale/donatale"
)

const (
	defaultTimeout = 30 * time.Second
	itemsCacheKey  = "items"
	itemsCacheTTL  = 30 * time.Second
)

// APIError is a non-2xx answer of the reservation endpoint.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Status)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Status, e.Message)
}

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
	baseURL   string
}

// New builds a client for the service reachable at baseURL, e.g. https://dono.example.org.
func New(baseURL string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(itemsCacheTTL, time.Minute),
		userAgent: "donatale-client",
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// Reserve posts a reservation. A non-2xx answer is returned as *APIError.
func (c *Client) Reserve(ctx context.Context, request donatale.ReservationRequest) (donatale.ReservationResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return donatale.ReservationResponse{}, errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/donate", bytes.NewReader(body))
	if err != nil {
		return donatale.ReservationResponse{}, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return donatale.ReservationResponse{}, errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	var response donatale.ReservationResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&response)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return donatale.ReservationResponse{}, &APIError{Status: resp.StatusCode, Message: response.Message}
	}
	if decodeErr != nil {
		return donatale.ReservationResponse{}, errors.Wrap(decodeErr, "failed to decode response")
	}

	return response, nil
}

// ListItems returns the public listing, cached for a short while.
func (c *Client) ListItems(ctx context.Context) ([]donatale.DonationItemView, error) {
	if cached, found := c.cache.Get(itemsCacheKey); found {
		return cached.([]donatale.DonationItemView), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/items", nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode}
	}

	var response donatale.ItemListResponse
	err = json.NewDecoder(resp.Body).Decode(&response)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode response")
	}

	c.cache.Set(itemsCacheKey, response.Items, cache.DefaultExpiration)
	return response.Items, nil
}

// InvalidateItems drops the cached listing so the next ListItems refetches it.
func (c *Client) InvalidateItems() {
	c.cache.Delete(itemsCacheKey)
}
