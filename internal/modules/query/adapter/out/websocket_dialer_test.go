package out_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	queryout "ragstream/internal/modules/query/adapter/out"
	apperrors "ragstream/internal/platform/errors"
)

// streamServer accepts one query and replies with the scripted frames,
// then optionally closes with a normal closure frame.
func streamServer(t *testing.T, frames []string, closeAfter bool, received chan<- string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var msg struct {
			Query string `json:"query"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		received <- msg.Query
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if closeAfter {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		}
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream"
}

func TestWebSocketConnRoundTrip(t *testing.T) {
	t.Parallel()
	received := make(chan string, 1)
	url := streamServer(t, []string{"The ", "cat ", "<<END>>"}, false, received)

	dialer := queryout.NewWebSocketDialer(url, 5*time.Second, 5*time.Second)
	conn, err := dialer.Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send(context.Background(), "where?"))
	assert.Equal(t, "where?", <-received)

	var got []string
	for i := 0; i < 3; i++ {
		msg, err := conn.Receive()
		require.NoError(t, err)
		got = append(got, msg)
	}
	assert.Equal(t, []string{"The ", "cat ", "<<END>>"}, got)
	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close(), "close must be idempotent")
}

func TestWebSocketConnPeerCloseIsClassified(t *testing.T) {
	t.Parallel()
	received := make(chan string, 1)
	url := streamServer(t, []string{"Par"}, true, received)

	conn, err := queryout.NewWebSocketDialer(url, 5*time.Second, 5*time.Second).Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Send(context.Background(), "x"))

	msg, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, "Par", msg)

	_, err = conn.Receive()
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrPeerClosed), "expected peer close, got %v", err)
}

func TestWebSocketConnDroppedConnectionIsTransportError(t *testing.T) {
	t.Parallel()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if _, _, err := conn.ReadMessage(); err != nil {
			_ = conn.Close()
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, []byte("Par"))
		// drop the TCP connection without a close frame
		_ = conn.UnderlyingConn().Close()
	}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/stream"

	conn, err := queryout.NewWebSocketDialer(url, 5*time.Second, 5*time.Second).Dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Send(context.Background(), "x"))

	msg, err := conn.Receive()
	require.NoError(t, err)
	assert.Equal(t, "Par", msg)

	_, err = conn.Receive()
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrPeerClosed), "dropped connection must not be a peer close: %v", err)
}

func TestWebSocketDialFailureAndCloseUnblocksReceive(t *testing.T) {
	t.Parallel()
	_, err := queryout.NewWebSocketDialer("ws://127.0.0.1:1/ws/stream", time.Second, time.Second).Dial(context.Background())
	assert.Error(t, err)

	received := make(chan string, 1)
	url := streamServer(t, nil, false, received)
	conn, err := queryout.NewWebSocketDialer(url, 5*time.Second, 5*time.Second).Dial(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Send(context.Background(), "x"))
	<-received

	errs := make(chan error, 1)
	go func() {
		_, err := conn.Receive()
		errs <- err
	}()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, conn.Close())
	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatalf("close did not unblock receive")
	}
}
