// Package domain 定义权威市场端的实体与仓储契约
package domain

import (
	"context"
	"time"
)

// ProductRecord 权威端持久化的商品记录
type ProductRecord struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Location    string
	Category    string
	Filename    string
	OwnerID     string
	WhatsApp    string
	CreatedAt   time.Time
}

// OrderRecord 权威端持久化的订单记录
type OrderRecord struct {
	ID            string
	ProductID     string
	BuyerID       string
	FarmerID      string
	Quantity      int
	ProductPrice  float64
	DeliveryFee   float64
	TotalAmount   float64
	PaymentMethod string
	Status        string
	CreatedAt     time.Time
}

// ProductRepository 商品仓储契约
type ProductRepository interface {
	Save(ctx context.Context, p *ProductRecord) error
	FindByID(ctx context.Context, id string) (*ProductRecord, error)
	List(ctx context.Context) ([]*ProductRecord, error)
}

// OrderRepository 订单仓储契约
type OrderRepository interface {
	Save(ctx context.Context, o *OrderRecord) error
	List(ctx context.Context) ([]*OrderRecord, error)
}

// EventPublisher 领域事件出口（可选，未配置时为空实现）
type EventPublisher interface {
	PublishProductUploaded(ctx context.Context, p *ProductRecord) error
	PublishOrderPlaced(ctx context.Context, o *OrderRecord) error
}
