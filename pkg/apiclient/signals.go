package apiclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marmos91/dittocore/pkg/api/handlers"
)

// SignalEvent is one event of the server's signal stream. Event is
// "hello", "signal" or "lagged".
type SignalEvent struct {
	Event string `json:"event"`
	handlers.SignalEvent
}

// WatchSignals streams lifecycle events to fn until the server closes the
// stream, ctx ends, or fn returns an error. The server closes the stream
// once it is stopping, so a clean io.EOF is reported as nil.
func (c *Client) WatchSignals(ctx context.Context, fn func(SignalEvent) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/signals", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	// The stream is long-lived, so bypass the client timeout and retries.
	stream := &http.Client{Transport: c.httpClient.HTTPClient.Transport}
	resp, err := stream.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return parseError(resp.StatusCode, body)
	}

	return readEvents(resp.Body, fn)
}

func readEvents(r io.Reader, fn func(SignalEvent) error) error {
	sc := bufio.NewScanner(r)
	var ev SignalEvent
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "event: "):
			ev.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.SignalEvent); err != nil {
				return fmt.Errorf("failed to decode event: %w", err)
			}
		case line == "":
			if ev.Event != "" {
				if err := fn(ev); err != nil {
					return err
				}
			}
			ev = SignalEvent{}
		}
	}
	return sc.Err()
}
