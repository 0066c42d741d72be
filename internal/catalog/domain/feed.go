package domain

import (
	"context"
	"time"
)

// Document 订阅源下发的原始文档
type Document map[string]any

// SnapshotFunc 快照回调：每次收到的是集合的完整物化结果，而不是增量
type SnapshotFunc func(docs []Document)

// UnsubscribeFunc 释放订阅；幂等，释放后不再触发任何回调
type UnsubscribeFunc func()

// ChangeFeed 变更订阅源契约。
// 订阅建立后立即以当前完整集合回调一次（若可用），此后每次增删改都再次
// 回调完整集合；同一订阅内回调按传输层下发顺序串行交付。
// 建立失败必须返回错误，而不能静默吞掉。
type ChangeFeed interface {
	Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (UnsubscribeFunc, error)
}

// NormalizeProduct 将文档物化为商品。
// 仅当文档完全不是对象时才会被上游过滤；字段缺失时取零值，价格总是经过规整。
func NormalizeProduct(doc Document) Product {
	p := Product{
		ID:          stringField(doc, "id"),
		Name:        stringField(doc, "name"),
		Description: stringField(doc, "description"),
		Price:       CoercePrice(doc["price"]),
		Location:    stringField(doc, "location"),
		Category:    stringField(doc, "category"),
		Filename:    stringField(doc, "filename"),
		OwnerID:     stringField(doc, "userId"),
		WhatsApp:    stringField(doc, "whatsapp"),
	}
	p.CreatedAt = ParseTimestamp(doc["createdAt"])
	return p
}

// stringField 取字符串字段，类型不符时返回空串
func stringField(doc Document, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

// ParseTimestamp 解析 ISO 字符串或毫秒时间戳；失败返回零值时间
func ParseTimestamp(v any) time.Time {
	switch x := v.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(layout, x); err == nil {
				return t
			}
		}
	case float64:
		if x > 0 {
			return time.UnixMilli(int64(x)).UTC()
		}
	case int64:
		if x > 0 {
			return time.UnixMilli(x).UTC()
		}
	}
	return time.Time{}
}
