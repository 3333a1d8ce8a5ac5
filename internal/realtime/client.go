// Package realtime implements the client side of the conversational-AI
// gateway WebSocket protocol: dialing, session commands, and event parsing.
// Only the fields the relay consumes are modeled; the full contract is
// versioned externally.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// handshakeTimeout bounds the initial gateway connection. It is the only
// timeout on the relay's sockets.
const handshakeTimeout = 10 * time.Second

const subprotocol = "openai-realtime-v1"

// DialConfig carries the gateway endpoint and credentials.
type DialConfig struct {
	URL    string
	APIKey string
	Model  string
}

// IsAzureHost reports whether the endpoint speaks the Azure variant of the
// protocol, which uses a different auth header and session payload shape.
func IsAzureHost(url string) bool {
	return strings.Contains(url, "azure.com")
}

// Dial opens the gateway WebSocket. The https/http scheme is rewritten to
// wss/ws; auth headers and subprotocol depend on the host flavor.
func Dial(ctx context.Context, cfg DialConfig) (*websocket.Conn, error) {
	url := cfg.URL
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}

	if cfg.Model != "" && !strings.Contains(url, "model=") {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "model=" + cfg.Model
	}

	header := http.Header{}
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	if IsAzureHost(url) {
		header.Set("api-key", cfg.APIKey)
	} else {
		header.Set("Authorization", "Bearer "+cfg.APIKey)
		header.Set("OpenAI-Beta", "realtime=v1")
		dialer.Subprotocols = []string{subprotocol}
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial gateway: %w (status %s)", err, resp.Status)
		}
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	return conn, nil
}
