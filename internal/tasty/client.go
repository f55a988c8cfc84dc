// Package tasty is a Tastytrade-style market-data gateway: REST session,
// option-chain and snapshot lookups plus a DXLink-flavored websocket feed.
// It satisfies gex.Provider.
package tasty

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/gexscope/internal/gex"
)

// Config holds credentials and endpoints for the gateway.
type Config struct {
	BaseURL       string
	ClientSecret  string
	RefreshToken  string
	Timeout       time.Duration
	RatePerSecond int
}

// Client is an authenticated gateway session.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	streamerURL string
	token       string
	limiter     *rate.Limiter
	logger      *zap.Logger
}

type sessionResponse struct {
	Data struct {
		SessionToken string `json:"session-token"`
		StreamerURL  string `json:"dxlink-url"`
	} `json:"data"`
}

// Open authenticates and returns a session-bound client.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}

	c := &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    100,
				MaxConnsPerHost: 10,
				IdleConnTimeout: 90 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RatePerSecond*2),
		logger:  logger,
	}

	body, err := json.Marshal(map[string]string{
		"client-secret": cfg.ClientSecret,
		"refresh-token": cfg.RefreshToken,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("session create status %d: %s", resp.StatusCode, string(raw))
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}

	c.token = sr.Data.SessionToken
	c.streamerURL = sr.Data.StreamerURL
	return c, nil
}

// Connector wraps Open as a gex.ConnectFunc, with the credentials check
// happening before any network call.
func Connector(cfg Config, logger *zap.Logger) gex.ConnectFunc {
	return func(ctx context.Context) (gex.Provider, error) {
		if cfg.ClientSecret == "" || cfg.RefreshToken == "" {
			return nil, gex.ErrMissingCredentials
		}
		return Open(ctx, cfg, logger)
	}
}

// get performs an authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

var _ gex.Provider = (*Client)(nil)
