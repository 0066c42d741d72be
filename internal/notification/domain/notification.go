// Package domain 包含通知的领域模型：事件类型、事件与推送信封解析
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind 通知事件类型
type EventKind string

const (
	// EventProductUploaded 新商品上架
	EventProductUploaded EventKind = "product_upload"
	// EventOrderPlaced 订单创建
	EventOrderPlaced EventKind = "order_placed"
)

// Event 通知事件。
// Timestamp 始终取事件自带的时间戳，聚合器不会重新盖章。
type Event struct {
	// 事件类型
	Kind EventKind `json:"type"`
	// 给用户看的消息文本
	Message string `json:"message"`
	// 事件自带时间戳
	Timestamp time.Time `json:"timestamp"`
	// 去重键（同一来源内的消息标识）
	DedupKey string `json:"dedupKey,omitempty"`
}

// Display 渲染后的展示文本（消息 + 本地化时间）
func (e Event) Display() string {
	return fmt.Sprintf("%s - %s", e.Message, e.Timestamp.Local().Format("2006-01-02 15:04:05"))
}

// envelope 推送通道入站信封的原始形态
type envelope struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// ParseEnvelope 解析推送通道的入站载荷。
// 非 JSON、缺少 type/message/timestamp、或 type 不被识别的载荷都会被拒绝，
// 由调用方静默丢弃，绝不向上层传播。
func ParseEnvelope(raw []byte) (Event, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, false
	}
	if env.Type == "" || env.Message == "" || len(env.Timestamp) == 0 {
		return Event{}, false
	}

	kind := EventKind(env.Type)
	switch kind {
	case EventProductUploaded, EventOrderPlaced:
	default:
		return Event{}, false
	}

	ts, ok := parseEnvelopeTimestamp(env.Timestamp)
	if !ok {
		return Event{}, false
	}

	return Event{
		Kind:      kind,
		Message:   env.Message,
		Timestamp: ts,
		DedupKey:  fmt.Sprintf("%s:%d:%s", env.Type, ts.UnixMilli(), env.Message),
	}, true
}

// parseEnvelopeTimestamp 接受 ISO 字符串或 epoch 毫秒两种时间戳表示
func parseEnvelopeTimestamp(raw json.RawMessage) (time.Time, bool) {
	var millis float64
	if err := json.Unmarshal(raw, &millis); err == nil {
		if millis <= 0 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(millis)).UTC(), true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
