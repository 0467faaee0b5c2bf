package upsert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// upsertPath is the fixed function path under the configured base URL.
const upsertPath = "/functions/v1/upsert_subscriber"

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// Config holds the three deployment secrets the forwarder needs.
type Config struct {
	BaseURL      string
	AdminSecret  string
	ServiceToken string
}

// Missing returns the name of the first unset configuration variable,
// or "" when the config is complete.
func (c Config) Missing() string {
	switch {
	case c.BaseURL == "":
		return "UPSERT_BASE_URL"
	case c.AdminSecret == "":
		return "ADMIN_SECRET"
	case c.ServiceToken == "":
		return "SERVICE_TOKEN"
	}
	return ""
}

// Result carries the upstream response for verbatim relaying.
type Result struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Client forwards subscription payloads to the external upsert
// function. It performs exactly one upstream exchange per call: an
// upsert must never be retried, so the circuit breaker counts only
// transport failures and every received response, whatever its status,
// is passed back verbatim.
type Client struct {
	client  *http.Client
	cfg     Config
	circuit *gobreaker.CircuitBreaker
}

// NewClient creates a forwarder using the shared HTTP client.
func NewClient(client *http.Client, cfg Config) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upsert",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		client:  client,
		cfg:     cfg,
		circuit: cb,
	}
}

// Missing exposes the config completeness check for handlers.
func (c *Client) Missing() string {
	return c.cfg.Missing()
}

// Forward POSTs the payload to the upsert function with the service
// credential as both bearer token and API key, plus the admin secret
// header, and returns the upstream status, body, and content type.
func (c *Client) Forward(ctx context.Context, payload []byte) (*Result, error) {
	if c.client == nil {
		return nil, errNoHTTPClient
	}
	if m := c.cfg.Missing(); m != "" {
		return nil, fmt.Errorf("missing configuration: %s", m)
	}

	u := strings.TrimRight(c.cfg.BaseURL, "/") + upsertPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.ServiceToken)
	req.Header.Set("apikey", c.cfg.ServiceToken)
	req.Header.Set("x-admin-secret", c.cfg.AdminSecret)

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, execErr := c.client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}

		return &Result{
			StatusCode:  resp.StatusCode,
			Body:        body,
			ContentType: resp.Header.Get("Content-Type"),
		}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	res, ok := result.(*Result)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return res, nil
}
