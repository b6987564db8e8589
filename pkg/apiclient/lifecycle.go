package apiclient

import (
	"context"

	"github.com/marmos91/dittocore/pkg/api/handlers"
	"github.com/marmos91/dittocore/pkg/lifecycle"
)

// HealthResponse is the envelope returned by the health probes.
type HealthResponse = handlers.Response

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return getResource[HealthResponse](ctx, c, "/health")
}

// Ready calls GET /health/ready. A stopping server answers with an
// *APIError whose IsUnavailable is true. The probe is never retried.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(withoutRetry(ctx), "/health/ready", nil)
}

// Status returns the server's lifecycle status.
func (c *Client) Status(ctx context.Context) (*lifecycle.Status, error) {
	return getResource[lifecycle.Status](ctx, c, "/api/v1/status")
}

// Shutdown requests a terminal stop. Requires an admin token.
func (c *Client) Shutdown(ctx context.Context) (*handlers.StopResponse, error) {
	return postAction[handlers.StopResponse](ctx, c, "/api/v1/shutdown")
}

// Reload requests a restart in place. Requires an admin token.
func (c *Client) Reload(ctx context.Context) (*handlers.StopResponse, error) {
	return postAction[handlers.StopResponse](ctx, c, "/api/v1/reload")
}

// LogLevel returns the server's current log level.
func (c *Client) LogLevel(ctx context.Context) (string, error) {
	l, err := getResource[handlers.LogLevel](ctx, c, "/api/v1/log-level")
	if err != nil {
		return "", err
	}
	return l.Level, nil
}

// SetLogLevel changes the server's log level and returns the new value.
// Requires an admin token.
func (c *Client) SetLogLevel(ctx context.Context, level string) (string, error) {
	var l handlers.LogLevel
	if err := c.put(ctx, "/api/v1/log-level", handlers.LogLevel{Level: level}, &l); err != nil {
		return "", err
	}
	return l.Level, nil
}
