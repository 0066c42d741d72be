// Package messaging 将市场领域事件投递到 Kafka
package messaging

import (
	"context"
	"time"

	"github.com/wyfcoding/farmhub/internal/farmsim/domain"
	"github.com/wyfcoding/farmhub/pkg/mq"
)

// KafkaEventPublisher 基于 Kafka 的事件发布实现
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
	topic    string
}

// NewKafkaEventPublisher 创建事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

type productUploadedEvent struct {
	EventType string    `json:"event_type"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
}

type orderPlacedEvent struct {
	EventType   string    `json:"event_type"`
	OrderID     string    `json:"order_id"`
	ProductID   string    `json:"product_id"`
	BuyerID     string    `json:"buyer_id"`
	FarmerID    string    `json:"farmer_id"`
	Quantity    int       `json:"quantity"`
	TotalAmount float64   `json:"total_amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// PublishProductUploaded 发布商品上架事件
func (p *KafkaEventPublisher) PublishProductUploaded(ctx context.Context, rec *domain.ProductRecord) error {
	evt := productUploadedEvent{
		EventType: "product_uploaded",
		ProductID: rec.ID,
		Name:      rec.Name,
		Category:  rec.Category,
		Price:     rec.Price,
		OwnerID:   rec.OwnerID,
		Timestamp: time.Now().UTC(),
	}
	return p.producer.SendMessage(ctx, p.topic, rec.ID, evt)
}

// PublishOrderPlaced 发布订单创建事件
func (p *KafkaEventPublisher) PublishOrderPlaced(ctx context.Context, rec *domain.OrderRecord) error {
	evt := orderPlacedEvent{
		EventType:   "order_placed",
		OrderID:     rec.ID,
		ProductID:   rec.ProductID,
		BuyerID:     rec.BuyerID,
		FarmerID:    rec.FarmerID,
		Quantity:    rec.Quantity,
		TotalAmount: rec.TotalAmount,
		Timestamp:   time.Now().UTC(),
	}
	return p.producer.SendMessage(ctx, p.topic, rec.ID, evt)
}

// NoopEventPublisher 空实现，未配置 Kafka 时使用
type NoopEventPublisher struct{}

// PublishProductUploaded 空操作
func (NoopEventPublisher) PublishProductUploaded(context.Context, *domain.ProductRecord) error {
	return nil
}

// PublishOrderPlaced 空操作
func (NoopEventPublisher) PublishOrderPlaced(context.Context, *domain.OrderRecord) error {
	return nil
}
