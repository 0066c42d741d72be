// Package push 基于 WebSocket 实现推送通道：解码入站信封、断线后有界重连
package push

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wyfcoding/farmhub/internal/notification/domain"
	"github.com/wyfcoding/farmhub/pkg/logger"
	"github.com/wyfcoding/farmhub/pkg/metrics"
	"github.com/wyfcoding/farmhub/pkg/utils"
)

// State 通道状态
type State string

const (
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

// Config 推送通道配置
type Config struct {
	// WebSocket 地址
	URL string
	// 重连初始延迟
	ReconnectDelay time.Duration
	// 重连延迟上限
	ReconnectMaxDelay time.Duration
}

// Channel WebSocket 推送通道。
// 每次意外断开只安排一次重连（延迟指数增长、封顶），不会形成重试风暴；
// 畸形载荷在本层静默丢弃，永远不会到达通知聚合器；
// 连接层面的错误只记日志，不向调用方抛出——持有方不会阻塞在通道健康上。
type Channel struct {
	cfg     Config
	handler func(domain.Event)
	dialer  *websocket.Dialer
	metrics *metrics.Metrics

	mu     sync.Mutex
	conn   *websocket.Conn
	state  State
	delay  time.Duration
	timer  *time.Timer
	closed bool
}

// NewChannel 创建推送通道；handler 收到的都是已解析且类型可识别的事件
func NewChannel(cfg Config, handler func(domain.Event), m *metrics.Metrics) *Channel {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.ReconnectMaxDelay < cfg.ReconnectDelay {
		cfg.ReconnectMaxDelay = cfg.ReconnectDelay
	}
	return &Channel{
		cfg:     cfg,
		handler: handler,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		metrics: m,
		state:   StateConnecting,
		delay:   cfg.ReconnectDelay,
	}
}

// Connect 启动通道生命周期。拨号失败不返回错误，而是按退避安排重连。
func (c *Channel) Connect() {
	go c.dial()
}

// State 返回当前通道状态
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close 关闭通道；幂等，关闭后不再触发任何回调或重连
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.state = StateClosed
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// dial 建立连接并进入读循环
func (c *Channel) dial() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	url := c.cfg.URL
	c.mu.Unlock()

	conn, _, err := c.dialer.Dial(url, nil)
	if err != nil {
		logger.Warn(context.Background(), "push channel dial failed", "url", url, "error", err)
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateOpen
	// 连接成功后退避归位
	c.delay = c.cfg.ReconnectDelay
	c.mu.Unlock()

	logger.Info(context.Background(), "push channel connected", "url", url)
	c.readLoop(conn)
}

// readLoop 顺序消费入站消息，连接断开后安排一次重连
func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()

			if closed {
				return
			}
			logger.Warn(context.Background(), "push channel disconnected", "error", err)
			c.scheduleReconnect()
			return
		}

		if c.metrics != nil {
			c.metrics.PushMessagesTotal.Inc()
		}

		evt, ok := domain.ParseEnvelope(raw)
		if !ok {
			// 畸形或不识别的载荷在本层止步
			if c.metrics != nil {
				c.metrics.PushDroppedTotal.Inc()
			}
			logger.Debug(context.Background(), "push payload dropped", "size", len(raw))
			continue
		}

		c.handler(evt)
	}
}

// scheduleReconnect 为一次断开安排且仅安排一次重连
func (c *Channel) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.timer != nil {
		return
	}
	c.state = StateReconnecting
	delay := c.delay
	c.delay = utils.NextBackoff(c.delay, c.cfg.ReconnectMaxDelay)

	if c.metrics != nil {
		c.metrics.PushReconnectsTotal.Inc()
	}
	logger.Info(context.Background(), "push channel reconnect scheduled", "delay", delay)

	c.timer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		c.timer = nil
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		c.dial()
	})
}
