// Package application 实现通知聚合：把推送通道与目录变更两路事件合并为单一有序日志
package application

import (
	"context"
	"sync"
	"time"

	"github.com/wyfcoding/farmhub/internal/notification/domain"
	"github.com/wyfcoding/farmhub/pkg/logger"
	"github.com/wyfcoding/farmhub/pkg/metrics"
)

// DefaultToastTTL toast 默认自动消失时间
const DefaultToastTTL = 5 * time.Second

// Aggregator 通知聚合器。
// 两路事件源（推送通道、目录存储的变更事件）合流到同一个按接收顺序追加的日志；
// 两路之间除接收顺序外不提供任何跨源排序保证——两条独立通道没有共享序号，
// 这是继承自系统形态的已知限制，这里只记录接收顺序，不做墙钟合并。
// toast 槽位只保留最新一条事件：新事件到达会重置（而不是排队）未到期的 toast。
type Aggregator struct {
	mu sync.Mutex
	// 插入有序的通知日志；本层不做淘汰
	log []domain.Event
	// 当前 toast；nil 表示无
	toast *domain.Event
	// toast 代号，用于丢弃过期定时器的清除动作
	toastGen uint64
	timer    *time.Timer

	ttl       time.Duration
	metrics   *metrics.Metrics
	listeners []func(domain.Event)
}

// Option Aggregator 可选配置
type Option func(*Aggregator)

// WithToastTTL 覆盖 toast 自动消失时间
func WithToastTTL(ttl time.Duration) Option {
	return func(a *Aggregator) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithMetrics 注入指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// NewAggregator 创建通知聚合器
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{ttl: DefaultToastTTL}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// OnEvent 注册事件监听（用于 UI 刷新），返回值不支持注销，监听方随聚合器一起销毁
func (a *Aggregator) OnEvent(fn func(domain.Event)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Publish 追加一条事件：写入日志并抢占 toast 槽位（重置计时，不堆叠）
func (a *Aggregator) Publish(evt domain.Event) {
	a.mu.Lock()

	a.log = append(a.log, evt)
	a.toast = &evt
	a.toastGen++
	gen := a.toastGen

	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.ttl, func() {
		a.clearToast(gen)
	})

	listeners := make([]func(domain.Event), len(a.listeners))
	copy(listeners, a.listeners)
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.NotificationsTotal.Inc()
	}
	logger.Debug(context.Background(), "notification appended",
		"kind", string(evt.Kind),
		"message", evt.Message,
	)

	for _, fn := range listeners {
		fn(evt)
	}
}

// clearToast 到期清除 toast；代号不匹配说明已被新事件抢占，直接放弃
func (a *Aggregator) clearToast(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.toastGen {
		return
	}
	a.toast = nil
}

// Toast 返回当前 toast（已过期或被清除时返回 nil）
func (a *Aggregator) Toast() *domain.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.toast == nil {
		return nil
	}
	evt := *a.toast
	return &evt
}

// Log 返回通知日志的副本（插入序）
func (a *Aggregator) Log() []domain.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.Event, len(a.log))
	copy(out, a.log)
	return out
}

// Close 停止内部计时器
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.toast = nil
	a.toastGen++
}
