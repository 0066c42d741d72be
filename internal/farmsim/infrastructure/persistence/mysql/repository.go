package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/wyfcoding/farmhub/internal/farmsim/domain"
)

// ProductRepository 商品仓储的 MySQL 实现
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Save 保存商品
func (r *ProductRepository) Save(ctx context.Context, p *domain.ProductRecord) error {
	if err := r.db.WithContext(ctx).Save(toProductModel(p)).Error; err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

// FindByID 按 ID 查询商品，不存在时返回 nil
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.ProductRecord, error) {
	var m ProductModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find product: %w", err)
	}
	return toProductRecord(&m), nil
}

// List 列出全部商品，按创建时间倒序
func (r *ProductRepository) List(ctx context.Context) ([]*domain.ProductRecord, error) {
	var ms []ProductModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]*domain.ProductRecord, 0, len(ms))
	for i := range ms {
		out = append(out, toProductRecord(&ms[i]))
	}
	return out, nil
}

// OrderRepository 订单仓储的 MySQL 实现
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Save 保存订单
func (r *OrderRepository) Save(ctx context.Context, o *domain.OrderRecord) error {
	if err := r.db.WithContext(ctx).Save(toOrderModel(o)).Error; err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// List 列出全部订单，按创建时间倒序
func (r *OrderRepository) List(ctx context.Context) ([]*domain.OrderRecord, error) {
	var ms []OrderModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]*domain.OrderRecord, 0, len(ms))
	for i := range ms {
		out = append(out, toOrderRecord(&ms[i]))
	}
	return out, nil
}

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ProductModel{}, &OrderModel{})
}
