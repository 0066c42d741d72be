package push

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/farmhub/internal/notification/domain"
)

// pushServer 测试用的推送端：记录连接并按需下发原始载荷
type pushServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns []*websocket.Conn
	dials int
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := ps.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.mu.Lock()
		ps.conns = append(ps.conns, conn)
		ps.dials++
		ps.mu.Unlock()
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) url() string {
	return "ws" + strings.TrimPrefix(ps.srv.URL, "http")
}

func (ps *pushServer) send(t *testing.T, payload string) {
	t.Helper()
	ps.mu.Lock()
	defer ps.mu.Unlock()
	require.NotEmpty(t, ps.conns)
	conn := ps.conns[len(ps.conns)-1]
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func (ps *pushServer) dropAll() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for _, conn := range ps.conns {
		conn.Close()
	}
	ps.conns = nil
}

func (ps *pushServer) dialCount() int {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.dials
}

type eventSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *eventSink) handle(evt domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *eventSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *eventSink) last() domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

func TestChannelDeliversParsedEvents(t *testing.T) {
	server := newPushServer(t)
	sink := &eventSink{}

	c := NewChannel(Config{URL: server.url(), ReconnectDelay: 10 * time.Millisecond}, sink.handle, nil)
	c.Connect()
	defer c.Close()

	require.Eventually(t, func() bool { return c.State() == StateOpen }, time.Second, 5*time.Millisecond)

	server.send(t, `{"type":"product_upload","message":"New product added: Kale","timestamp":1756750000000}`)
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.EventProductUploaded, sink.last().Kind)
	assert.Equal(t, "New product added: Kale", sink.last().Message)
}

func TestChannelDropsMalformedPayloads(t *testing.T) {
	server := newPushServer(t)
	sink := &eventSink{}

	c := NewChannel(Config{URL: server.url(), ReconnectDelay: 10 * time.Millisecond}, sink.handle, nil)
	c.Connect()
	defer c.Close()

	require.Eventually(t, func() bool { return c.State() == StateOpen }, time.Second, 5*time.Millisecond)

	server.send(t, `not json at all`)
	server.send(t, `{"type":"unknown_kind","message":"m","timestamp":1756750000000}`)
	server.send(t, `{"type":"order_placed","message":"New order placed for Kale","timestamp":1756750000000}`)

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.EventOrderPlaced, sink.last().Kind)
}

func TestChannelReconnectsAfterDisconnect(t *testing.T) {
	server := newPushServer(t)
	sink := &eventSink{}

	c := NewChannel(Config{URL: server.url(), ReconnectDelay: 10 * time.Millisecond}, sink.handle, nil)
	c.Connect()
	defer c.Close()

	require.Eventually(t, func() bool { return c.State() == StateOpen }, time.Second, 5*time.Millisecond)
	server.dropAll()

	// 断开后自动重连，事件继续投递
	require.Eventually(t, func() bool { return server.dialCount() >= 2 && c.State() == StateOpen }, 2*time.Second, 5*time.Millisecond)
	server.send(t, `{"type":"product_upload","message":"still alive","timestamp":1756750000000}`)
	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestChannelCloseStopsReconnect(t *testing.T) {
	server := newPushServer(t)
	sink := &eventSink{}

	c := NewChannel(Config{URL: server.url(), ReconnectDelay: 10 * time.Millisecond}, sink.handle, nil)
	c.Connect()

	require.Eventually(t, func() bool { return c.State() == StateOpen }, time.Second, 5*time.Millisecond)
	c.Close()
	assert.Equal(t, StateClosed, c.State())

	dials := server.dialCount()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, dials, server.dialCount())
	assert.Zero(t, sink.count())

	// 幂等
	c.Close()
	assert.Equal(t, StateClosed, c.State())
}
