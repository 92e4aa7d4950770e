package out

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	queryout "ragstream/internal/modules/query/port/out"
	apperrors "ragstream/internal/platform/errors"
)

const closeGrace = time.Second

type queryMessage struct {
	Query string `json:"query"`
}

type WebSocketDialer struct {
	url          string
	dialer       websocket.Dialer
	writeTimeout time.Duration
}

func NewWebSocketDialer(url string, handshakeTimeout, writeTimeout time.Duration) queryout.Dialer {
	return &WebSocketDialer{
		url: url,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		writeTimeout: writeTimeout,
	}
}

func (d *WebSocketDialer) Dial(ctx context.Context) (queryout.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.url, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", d.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", d.url, err)
	}
	return &webSocketConn{conn: conn, writeTimeout: d.writeTimeout}, nil
}

type webSocketConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closeOnce    sync.Once
	closeErr     error
}

func (c *webSocketConn) Send(ctx context.Context, query string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(queryMessage{Query: query}); err != nil {
		return fmt.Errorf("send query: %w", err)
	}
	return nil
}

// Receive returns the next text or binary message. Control frames are
// handled by the library; pings are answered automatically.
func (c *webSocketConn) Receive() (string, error) {
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			// 1006 is synthesized locally when the connection drops without a
			// close frame; only a received frame counts as a peer close.
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
				return "", fmt.Errorf("%w: code %d %s", apperrors.ErrPeerClosed, closeErr.Code, closeErr.Text)
			}
			return "", fmt.Errorf("read stream: %w", err)
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return string(data), nil
		}
	}
}

// Close sends a normal closure frame on a best-effort basis and drops the
// connection.
func (c *webSocketConn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
