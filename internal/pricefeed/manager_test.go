package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"solsniper/internal/config"
)

func TestDispatchPriceUpdate(t *testing.T) {
	m := NewManager(config.FeedConfig{})
	var got []string
	m.subs["mintA"] = []PriceHandler{func(asset string, price decimal.Decimal) {
		got = append(got, asset+"@"+price.String())
	}}

	m.dispatch([]byte(`{"type":"price_update","asset":"mintA","price":"1.25"}`))
	m.dispatch([]byte(`{"type":"price_update","asset":"other","price":"9"}`))
	m.dispatch([]byte(`{"type":"heartbeat"}`))

	assert.Equal(t, []string{"mintA@1.25"}, got)
	p, ok := m.CurrentPrice("mintA")
	require.True(t, ok)
	assert.True(t, p.Equal(decimal.NewFromFloat(1.25)))
	_, ok = m.CurrentPrice("never-seen")
	assert.False(t, ok)
}

func TestDispatchIgnoresMalformed(t *testing.T) {
	m := NewManager(config.FeedConfig{})
	called := false
	m.subs["mintA"] = []PriceHandler{func(string, decimal.Decimal) { called = true }}

	m.dispatch([]byte(`{"type":"price_update","asset":"mintA","price":"not-a-number"}`))
	m.dispatch([]byte(`{"type":"price_update","price":"1"}`))
	m.dispatch([]byte(`garbage`))

	assert.False(t, called)
	_, ok := m.CurrentPrice("mintA")
	assert.False(t, ok)
}

func TestVolatilityFromTicks(t *testing.T) {
	m := NewManager(config.FeedConfig{})
	assert.Zero(t, m.Volatility("mintA"), "no data means no estimate")

	for _, p := range []string{"1.0", "1.1", "0.9", "1.2", "0.8"} {
		m.dispatch([]byte(`{"type":"price_update","asset":"mintA","price":"` + p + `"}`))
	}
	assert.Greater(t, m.Volatility("mintA"), 0.0)

	for i := 0; i < 10; i++ {
		m.dispatch([]byte(`{"type":"price_update","asset":"flat","price":"1.0"}`))
	}
	assert.Zero(t, m.Volatility("flat"), "constant prices have zero volatility")
}

// feedServer is a scriptable websocket endpoint for session tests.
type feedServer struct {
	t        *testing.T
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
	subs  [][]string // subscriptions per connection, in arrival order
}

func newFeedServer(t *testing.T) (*feedServer, *httptest.Server) {
	fs := &feedServer{t: t}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := fs.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fs.mu.Lock()
		fs.conns = append(fs.conns, conn)
		fs.subs = append(fs.subs, nil)
		idx := len(fs.conns) - 1
		fs.mu.Unlock()
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg := gjson.ParseBytes(raw)
			if msg.Get("op").String() == "subscribe" {
				fs.mu.Lock()
				fs.subs[idx] = append(fs.subs[idx], msg.Get("asset").String())
				fs.mu.Unlock()
			}
		}
	}))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *feedServer) connCount() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.conns)
}

func (fs *feedServer) subsOn(idx int) []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if idx >= len(fs.subs) {
		return nil
	}
	return append([]string(nil), fs.subs[idx]...)
}

func (fs *feedServer) send(idx int, payload string) error {
	fs.mu.Lock()
	conn := fs.conns[idx]
	fs.mu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

func (fs *feedServer) drop(idx int) {
	fs.mu.Lock()
	conn := fs.conns[idx]
	fs.mu.Unlock()
	conn.Close()
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestManagerSessionAndReconnect(t *testing.T) {
	fs, srv := newFeedServer(t)
	m := NewManager(config.FeedConfig{
		URL:              wsURL(srv),
		PingSeconds:      30,
		ReconnectSeconds: 1,
		MaxReconnects:    5,
	})
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()
	assert.Equal(t, StateConnected, m.State())
	assert.True(t, m.Healthy())

	var ticks atomic.Int32
	require.NoError(t, m.Subscribe("mintA", func(_ string, price decimal.Decimal) {
		ticks.Add(1)
	}))
	require.Eventually(t, func() bool {
		return len(fs.subsOn(0)) == 1
	}, 2*time.Second, 10*time.Millisecond, "subscribe frame must reach the server")

	require.NoError(t, fs.send(0, `{"type":"price_update","asset":"mintA","price":"2.0"}`))
	require.Eventually(t, func() bool { return ticks.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// kill the session; the manager must redial and replay the subscription
	fs.drop(0)
	require.Eventually(t, func() bool {
		return fs.connCount() == 2 && len(fs.subsOn(1)) == 1
	}, 5*time.Second, 20*time.Millisecond, "reconnect must resubscribe")
	assert.Equal(t, []string{"mintA"}, fs.subsOn(1))

	// one tick on the new session produces exactly one callback
	require.NoError(t, fs.send(1, `{"type":"price_update","asset":"mintA","price":"2.5"}`))
	require.Eventually(t, func() bool { return ticks.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), ticks.Load(), "handlers must not be duplicated across reconnects")
	assert.Equal(t, StateConnected, m.State())
}
