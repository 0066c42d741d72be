// Package metrics 提供 Prometheus helper，包含本系统常用的 counter/gauge/histogram
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数（按方法、路径、状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 快照推送计数（按集合）
	FeedSnapshotsTotal *prometheus.CounterVec
	// 当前物化文档数（按集合）
	FeedDocuments *prometheus.GaugeVec

	// 推送通道收到的消息数
	PushMessagesTotal prometheus.Counter
	// 推送通道丢弃的畸形消息数
	PushDroppedTotal prometheus.Counter
	// 推送通道重连次数
	PushReconnectsTotal prometheus.Counter

	// 通知日志条目数
	NotificationsTotal prometheus.Counter

	// 订单提交计数
	OrdersPlacedTotal prometheus.Counter
	// 订单提交失败计数
	OrderFailuresTotal prometheus.Counter
	// 商品上架计数
	UploadsTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		FeedSnapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "feed_snapshots_total",
			Help:      "Change feed snapshots delivered",
		}, []string{"collection"}),
		FeedDocuments: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "feed_documents",
			Help:      "Documents in the current materialized set",
		}, []string{"collection"}),
		PushMessagesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "push_messages_total",
			Help:      "Push channel messages received",
		}),
		PushDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "push_dropped_total",
			Help:      "Malformed push payloads dropped",
		}),
		PushReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "push_reconnects_total",
			Help:      "Push channel reconnect attempts",
		}),
		NotificationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "notifications_total",
			Help:      "Notification log entries appended",
		}),
		OrdersPlacedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "orders_placed_total",
			Help:      "Orders submitted successfully",
		}),
		OrderFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "order_failures_total",
			Help:      "Order submissions that failed",
		}),
		UploadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "farmhub",
			Subsystem: serviceName,
			Name:      "uploads_total",
			Help:      "Products uploaded",
		}),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.FeedSnapshotsTotal,
		m.FeedDocuments,
		m.PushMessagesTotal,
		m.PushDroppedTotal,
		m.PushReconnectsTotal,
		m.NotificationsTotal,
		m.OrdersPlacedTotal,
		m.OrderFailuresTotal,
		m.UploadsTotal,
	)

	return m
}

// Handler 返回 Prometheus 抓取端点
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
