// Package mysql 基于 GORM 的市场仓储实现
package mysql

import (
	"time"

	"github.com/wyfcoding/farmhub/internal/farmsim/domain"
)

// ProductModel 商品表模型
type ProductModel struct {
	ID          string    `gorm:"primaryKey;size:64"`
	Name        string    `gorm:"size:255;not null;index"`
	Description string    `gorm:"type:text"`
	Price       float64   `gorm:"type:decimal(20,2);not null"`
	Location    string    `gorm:"size:255"`
	Category    string    `gorm:"size:64;index"`
	Filename    string    `gorm:"size:255"`
	OwnerID     string    `gorm:"size:64;index"`
	WhatsApp    string    `gorm:"size:32"`
	CreatedAt   time.Time `gorm:"index"`
}

// TableName 指定表名
func (ProductModel) TableName() string {
	return "products"
}

// OrderModel 订单表模型
type OrderModel struct {
	ID            string    `gorm:"primaryKey;size:64"`
	ProductID     string    `gorm:"size:64;index;not null"`
	BuyerID       string    `gorm:"size:64;index;not null"`
	FarmerID      string    `gorm:"size:64;index"`
	Quantity      int       `gorm:"not null"`
	ProductPrice  float64   `gorm:"type:decimal(20,2);not null"`
	DeliveryFee   float64   `gorm:"type:decimal(20,2);not null"`
	TotalAmount   float64   `gorm:"type:decimal(20,2);not null"`
	PaymentMethod string    `gorm:"size:32;not null"`
	Status        string    `gorm:"size:32;not null;index"`
	CreatedAt     time.Time `gorm:"index"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}

func toProductModel(p *domain.ProductRecord) *ProductModel {
	return &ProductModel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Location:    p.Location,
		Category:    p.Category,
		Filename:    p.Filename,
		OwnerID:     p.OwnerID,
		WhatsApp:    p.WhatsApp,
		CreatedAt:   p.CreatedAt,
	}
}

func toProductRecord(m *ProductModel) *domain.ProductRecord {
	return &domain.ProductRecord{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       m.Price,
		Location:    m.Location,
		Category:    m.Category,
		Filename:    m.Filename,
		OwnerID:     m.OwnerID,
		WhatsApp:    m.WhatsApp,
		CreatedAt:   m.CreatedAt,
	}
}

func toOrderModel(o *domain.OrderRecord) *OrderModel {
	return &OrderModel{
		ID:            o.ID,
		ProductID:     o.ProductID,
		BuyerID:       o.BuyerID,
		FarmerID:      o.FarmerID,
		Quantity:      o.Quantity,
		ProductPrice:  o.ProductPrice,
		DeliveryFee:   o.DeliveryFee,
		TotalAmount:   o.TotalAmount,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	}
}

func toOrderRecord(m *OrderModel) *domain.OrderRecord {
	return &domain.OrderRecord{
		ID:            m.ID,
		ProductID:     m.ProductID,
		BuyerID:       m.BuyerID,
		FarmerID:      m.FarmerID,
		Quantity:      m.Quantity,
		ProductPrice:  m.ProductPrice,
		DeliveryFee:   m.DeliveryFee,
		TotalAmount:   m.TotalAmount,
		PaymentMethod: m.PaymentMethod,
		Status:        m.Status,
		CreatedAt:     m.CreatedAt,
	}
}
