// Package pricefeed maintains one websocket session against the market
// data provider and fans price ticks out to subscribers. The session is
// self-healing: a broken read signals the reconnector, which redials and
// replays every subscription.
package pricefeed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"solsniper/internal/config"
	"solsniper/internal/logger"
	"solsniper/internal/pkg/circuit"
)

type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	}
	return "UNKNOWN"
}

// PriceHandler receives every tick for a subscribed asset.
type PriceHandler func(asset string, price decimal.Decimal)

type Manager struct {
	cfg     config.FeedConfig
	breaker *circuit.CircuitBreaker
	hist    *history

	mu   sync.RWMutex
	subs map[string][]PriceHandler
	last map[string]decimal.Decimal

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	state      atomic.Int32
	reconnectC chan struct{}
	reconnects int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(cfg config.FeedConfig) *Manager {
	return &Manager{
		cfg:        cfg,
		breaker:    circuit.NewCircuitBreaker("pricefeed", 5, 30*time.Second),
		hist:       newHistory(),
		subs:       map[string][]PriceHandler{},
		last:       map[string]decimal.Decimal{},
		reconnectC: make(chan struct{}, 1),
	}
}

// Start dials the feed and spawns the read, ping and reconnect loops.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)
	if err := m.connect(); err != nil {
		return err
	}
	m.wg.Add(1)
	go m.reconnector()
	return nil
}

// Stop tears the session down and waits for the loops to exit.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.closeConn()
	m.wg.Wait()
}

func (m *Manager) State() ConnState { return ConnState(m.state.Load()) }

// Healthy reports whether the feed can currently be trusted.
func (m *Manager) Healthy() bool {
	return m.State() == StateConnected && m.breaker.Current() != circuit.StateOpen
}

// Subscribe registers a handler and asks the provider for the asset's
// ticks. Handlers survive reconnects without re-registration.
func (m *Manager) Subscribe(asset string, h PriceHandler) error {
	m.mu.Lock()
	m.subs[asset] = append(m.subs[asset], h)
	m.mu.Unlock()
	if m.State() != StateConnected {
		return nil // replayed on reconnect
	}
	return m.sendSubscribe(asset)
}

// Unsubscribe drops all handlers for the asset.
func (m *Manager) Unsubscribe(asset string) {
	m.mu.Lock()
	delete(m.subs, asset)
	m.mu.Unlock()
	if m.State() == StateConnected {
		m.writeJSON(map[string]any{"op": "unsubscribe", "asset": asset})
	}
}

// CurrentPrice returns the last observed price. ok is false while no tick
// has arrived for the asset.
func (m *Manager) CurrentPrice(asset string) (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.last[asset]
	return p, ok
}

// Volatility returns the stddev of recent returns for the asset.
func (m *Manager) Volatility(asset string) float64 {
	return m.hist.volatility(asset)
}

func (m *Manager) connect() error {
	m.state.Store(int32(StateConnecting))
	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(m.ctx, m.cfg.URL, nil)
	if err != nil {
		m.state.Store(int32(StateDisconnected))
		m.breaker.RecordFailure()
		return fmt.Errorf("dial %s: %w", m.cfg.URL, err)
	}
	m.connMu.Lock()
	m.conn = conn
	m.connMu.Unlock()
	m.state.Store(int32(StateConnected))
	m.breaker.RecordSuccess()
	m.reconnects = 0

	if err := m.resubscribeAll(); err != nil {
		logger.Warnf("[FEED] resubscribe after connect: %v", err)
	}

	m.wg.Add(2)
	go m.readLoop(conn)
	go m.pingLoop(conn)
	logger.Infof("[FEED] connected url=%s", m.cfg.URL)
	return nil
}

// resubscribeAll replays every known subscription, paced so the provider
// does not rate-limit a burst after reconnect.
func (m *Manager) resubscribeAll() error {
	m.mu.RLock()
	assets := make([]string, 0, len(m.subs))
	for asset := range m.subs {
		assets = append(assets, asset)
	}
	m.mu.RUnlock()
	pace := time.Duration(m.cfg.SubscribeInterval) * time.Millisecond
	for i, asset := range assets {
		if i > 0 && pace > 0 {
			time.Sleep(pace)
		}
		if err := m.sendSubscribe(asset); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) sendSubscribe(asset string) error {
	return m.writeJSON(map[string]any{"op": "subscribe", "asset": asset})
}

func (m *Manager) writeJSON(v any) error {
	m.connMu.Lock()
	conn := m.conn
	m.connMu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(v)
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	defer m.wg.Done()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if m.ctx.Err() != nil {
				return
			}
			logger.Warnf("[FEED] read failed: %v", err)
			m.breaker.RecordFailure()
			m.state.Store(int32(StateDisconnected))
			m.signalReconnect()
			return
		}
		m.dispatch(raw)
	}
}

// dispatch routes one frame. Unknown types are ignored so provider-side
// additions never break the loop.
func (m *Manager) dispatch(raw []byte) {
	msg := gjson.ParseBytes(raw)
	switch msg.Get("type").String() {
	case "price_update":
		asset := msg.Get("asset").String()
		price, err := decimal.NewFromString(msg.Get("price").String())
		if err != nil || asset == "" {
			logger.Debugf("[FEED] malformed tick: %s", raw)
			return
		}
		m.mu.Lock()
		m.last[asset] = price
		handlers := append([]PriceHandler(nil), m.subs[asset]...)
		m.mu.Unlock()
		m.hist.push(asset, price)
		for _, h := range handlers {
			h(asset, price)
		}
	case "heartbeat", "pong":
		// session liveness only
	}
}

func (m *Manager) pingLoop(conn *websocket.Conn) {
	defer m.wg.Done()
	interval := time.Duration(m.cfg.PingSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.connMu.Lock()
			current := m.conn
			m.connMu.Unlock()
			if current != conn {
				return // superseded by a reconnect
			}
			m.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			m.writeMu.Unlock()
			if err != nil {
				logger.Warnf("[FEED] ping failed: %v", err)
				m.signalReconnect()
				return
			}
		}
	}
}

func (m *Manager) signalReconnect() {
	select {
	case m.reconnectC <- struct{}{}:
	default:
	}
}

// reconnector redials on signal with a fixed delay, giving up after the
// configured attempt budget.
func (m *Manager) reconnector() {
	defer m.wg.Done()
	delay := time.Duration(m.cfg.ReconnectSeconds) * time.Second
	if delay <= 0 {
		delay = 5 * time.Second
	}
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectC:
		}
		m.closeConn()
		for {
			m.reconnects++
			if m.cfg.MaxReconnects > 0 && m.reconnects > m.cfg.MaxReconnects {
				logger.Errorf("[FEED] gave up after %d reconnect attempts", m.cfg.MaxReconnects)
				m.state.Store(int32(StateDisconnected))
				return
			}
			select {
			case <-m.ctx.Done():
				return
			case <-time.After(delay):
			}
			logger.Infof("[FEED] reconnecting attempt=%d", m.reconnects)
			if err := m.connect(); err != nil {
				logger.Warnf("[FEED] reconnect failed: %v", err)
				continue
			}
			break
		}
	}
}

func (m *Manager) closeConn() {
	m.connMu.Lock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
	m.connMu.Unlock()
}
