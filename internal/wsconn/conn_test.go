package wsconn

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPair upgrades one connection and returns the server-side Conn and the client.
func testPair(t *testing.T, conf Config) (*Conn, *ws.Conn) {
	t.Helper()

	upgrader := ws.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	serverConn := make(chan *Conn, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverConn <- New(conn, conf)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case c := <-serverConn:
		t.Cleanup(func() { c.Close() })
		return c, client
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upgrade")
		return nil, nil
	}
}

func TestConn_WriteMessageSendsTextFrame(t *testing.T) {
	c, client := testPair(t, Config{})

	require.NoError(t, c.WriteMessage([]byte(`{"type":"entry"}`)))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ws.TextMessage, mt)
	assert.Equal(t, `{"type":"entry"}`, string(data))
}

func TestConn_ReadMessageReturnsClientFrames(t *testing.T) {
	c, client := testPair(t, Config{})

	require.NoError(t, client.WriteMessage(ws.TextMessage, []byte(`{"command":"follow","logs":["/a"]}`)))

	data, err := c.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"command":"follow","logs":["/a"]}`, string(data))
}

func TestConn_NormalCloseIsEOF(t *testing.T) {
	c, client := testPair(t, Config{})

	require.NoError(t, client.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, "bye")))

	_, err := c.ReadMessage()
	assert.ErrorIs(t, err, io.EOF)
}

func TestConn_PingsOnClockTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	_, client := testPair(t, Config{PingInterval: time.Minute, Clock: clock})

	pings := make(chan struct{}, 4)
	client.SetPingHandler(func(string) error {
		pings <- struct{}{}
		return nil
	})
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Minute)

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a ping after the interval elapsed")
	}
}

func TestConn_CloseIsIdempotent(t *testing.T) {
	c, client := testPair(t, Config{})

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := client.ReadMessage()
	assert.True(t, ws.IsCloseError(err, ws.CloseGoingAway), "client should see going-away close, got %v", err)
}
