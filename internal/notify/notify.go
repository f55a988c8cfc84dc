// Package notify pushes scan reports to an ntfy topic.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/gexscope/internal/config"
	"github.com/dgnsrekt/gexscope/internal/scan"
)

// Notifier is the interface for sending scan notifications.
type Notifier interface {
	SendScanReport(ctx context.Context, summary scan.Summary, date string) error
	SendScanFailure(ctx context.Context, date string, err error) error
}

// Client implements the ntfy notification client.
type Client struct {
	httpClient *http.Client
	config     *config.NotifyConfig
	logger     *zap.Logger
}

func NewClient(cfg *config.NotifyConfig, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
		logger:     logger,
	}
}

// SendScanReport sends a summary of one completed universe scan.
func (c *Client) SendScanReport(ctx context.Context, summary scan.Summary, date string) error {
	title := fmt.Sprintf("GEX Scan Complete: %s", date)
	tags := c.config.Tags
	if summary.Failed > 0 {
		tags += ",warning"
	}
	return c.send(ctx, title, FormatScanMessage(summary), tags, c.config.Priority)
}

// SendScanFailure reports a scan that never produced a summary.
func (c *Client) SendScanFailure(ctx context.Context, date string, err error) error {
	title := fmt.Sprintf("GEX Scan Failed: %s", date)
	return c.send(ctx, title, fmt.Sprintf("Error: %v", err), c.config.Tags+",x", "high")
}

func (c *Client) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification failed",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// NoopNotifier is used when notifications are disabled.
type NoopNotifier struct{}

func (NoopNotifier) SendScanReport(context.Context, scan.Summary, string) error { return nil }
func (NoopNotifier) SendScanFailure(context.Context, string, error) error       { return nil }

// New creates the appropriate notifier based on config.
func New(cfg *config.NotifyConfig, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return NoopNotifier{}
	}
	return NewClient(cfg, logger)
}
