package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/wolfman30/muvance-crm/internal/events"
)

// FeedPath is where the router mounts the hub.
const FeedPath = "/ws/leads"

// FeedURL turns an API base URL into the websocket feed URL.
func FeedURL(apiBase string) (string, error) {
	u, err := url.Parse(strings.TrimRight(apiBase, "/"))
	if err != nil {
		return "", fmt.Errorf("realtime: parse base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("realtime: unsupported scheme %q", u.Scheme)
	}
	u.Path += FeedPath
	return u.String(), nil
}

// Watch connects to the feed and calls fn for each lead event until ctx is
// cancelled, the server hangs up, or fn returns an error. Cancellation is
// not reported as an error.
func Watch(ctx context.Context, feedURL, token string, fn func(events.LeadEvent) error) error {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, feedURL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("realtime: dial %s: %s: %w", feedURL, resp.Status, err)
		}
		return fmt.Errorf("realtime: dial %s: %w", feedURL, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var evt events.LeadEvent
		if err := conn.ReadJSON(&evt); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("realtime: feed closed: %w", err)
			}
			return fmt.Errorf("realtime: read: %w", err)
		}
		if evt.Type == FramePong || evt.LeadID == "" {
			continue
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}
