// Package application 编排权威市场端的写路径：落库、回灌订阅源、广播与发事件
package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	catalogdomain "github.com/wyfcoding/farmhub/internal/catalog/domain"
	orderdomain "github.com/wyfcoding/farmhub/internal/order/domain"
	"github.com/wyfcoding/farmhub/internal/farmsim/domain"
	"github.com/wyfcoding/farmhub/pkg/logger"
	"github.com/wyfcoding/farmhub/pkg/utils"
)

// ErrValidation 请求字段校验失败
var ErrValidation = errors.New("validation failed")

// FeedWriter 订阅源写端契约
type FeedWriter interface {
	SetDocument(ctx context.Context, collection, id string, doc any) error
}

// Broadcaster 实时广播出口
type Broadcaster interface {
	Broadcast(ctx context.Context, eventType, message string)
}

// MarketService 市场写路径编排服务
type MarketService struct {
	products  domain.ProductRepository
	orders    domain.OrderRepository
	feed      FeedWriter
	broadcast Broadcaster
	events    domain.EventPublisher
	orderIDs  *utils.SnowflakeID
}

// NewMarketService 创建市场服务
func NewMarketService(
	products domain.ProductRepository,
	orders domain.OrderRepository,
	feed FeedWriter,
	broadcast Broadcaster,
	events domain.EventPublisher,
) *MarketService {
	if events == nil {
		events = noopPublisher{}
	}
	return &MarketService{
		products:  products,
		orders:    orders,
		feed:      feed,
		broadcast: broadcast,
		events:    events,
		orderIDs:  utils.NewSnowflakeID(1),
	}
}

type noopPublisher struct{}

func (noopPublisher) PublishProductUploaded(context.Context, *domain.ProductRecord) error { return nil }
func (noopPublisher) PublishOrderPlaced(context.Context, *domain.OrderRecord) error      { return nil }

// UploadProductInput 商品上架请求
type UploadProductInput struct {
	Name        string
	Description string
	Price       string
	Location    string
	Category    string
	WhatsApp    string
	OwnerID     string
	Filename    string
}

// UploadProduct 上架商品：落库、回灌商品集合、广播并发事件
func (s *MarketService) UploadProduct(ctx context.Context, in UploadProductInput) (*domain.ProductRecord, error) {
	if in.Name == "" || in.Description == "" || in.Price == "" || in.Location == "" {
		return nil, fmt.Errorf("%w: name, description, price and location are required", ErrValidation)
	}
	price, err := strconv.ParseFloat(in.Price, 64)
	if err != nil || price < 0 {
		return nil, fmt.Errorf("%w: price must be a non-negative number", ErrValidation)
	}

	rec := &domain.ProductRecord{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Price:       price,
		Location:    in.Location,
		Category:    in.Category,
		Filename:    in.Filename,
		OwnerID:     in.OwnerID,
		WhatsApp:    in.WhatsApp,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.products.Save(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.feed.SetDocument(ctx, "products", rec.ID, productDocument(rec)); err != nil {
		logger.Error(ctx, "feed write failed after product save", "product_id", rec.ID, "error", err)
		return nil, err
	}

	s.broadcast.Broadcast(ctx, "product_upload", fmt.Sprintf("New product added: %s", rec.Name))
	if err := s.events.PublishProductUploaded(ctx, rec); err != nil {
		// 事件流是旁路，失败只记日志不回滚
		logger.Warn(ctx, "publish product event failed", "product_id", rec.ID, "error", err)
	}

	logger.Info(ctx, "product uploaded", "product_id", rec.ID, "name", rec.Name, "owner_id", rec.OwnerID)
	return rec, nil
}

// PlaceOrderInput 下单请求
type PlaceOrderInput struct {
	ProductID     string
	BuyerID       string
	FarmerID      string
	Quantity      int
	ProductPrice  float64
	DeliveryFee   float64
	TotalAmount   float64
	PaymentMethod string
}

// PlaceOrder 创建订单：校验、落库、回灌订单集合、广播并发事件
func (s *MarketService) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*domain.OrderRecord, error) {
	if in.ProductID == "" || in.BuyerID == "" {
		return nil, fmt.Errorf("%w: productId and buyerId are required", ErrValidation)
	}
	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: product %s not found", ErrValidation, in.ProductID)
	}

	qty := catalogdomain.CoerceQuantity(in.Quantity)
	pricing := orderdomain.ComputePricing(product.Price, qty)

	rec := &domain.OrderRecord{
		ID:            strconv.FormatInt(s.orderIDs.Generate(), 10),
		ProductID:     in.ProductID,
		BuyerID:       in.BuyerID,
		FarmerID:      product.OwnerID,
		Quantity:      qty,
		ProductPrice:  pricing.ProductPrice.InexactFloat64(),
		DeliveryFee:   pricing.DeliveryFee.InexactFloat64(),
		TotalAmount:   pricing.Total.InexactFloat64(),
		PaymentMethod: string(orderdomain.PaymentMethodCOD),
		Status:        string(orderdomain.OrderStatusPending),
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.orders.Save(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.feed.SetDocument(ctx, "orders", rec.ID, orderDocument(rec)); err != nil {
		logger.Error(ctx, "feed write failed after order save", "order_id", rec.ID, "error", err)
		return nil, err
	}

	s.broadcast.Broadcast(ctx, "order_placed", fmt.Sprintf("New order placed for %s", product.Name))
	if err := s.events.PublishOrderPlaced(ctx, rec); err != nil {
		logger.Warn(ctx, "publish order event failed", "order_id", rec.ID, "error", err)
	}

	logger.Info(ctx, "order placed", "order_id", rec.ID, "product_id", rec.ProductID, "buyer_id", rec.BuyerID)
	return rec, nil
}

// productDocument 商品的订阅源文档形态（字段名与客户端物化约定一致）
func productDocument(p *domain.ProductRecord) map[string]any {
	return map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"location":    p.Location,
		"category":    p.Category,
		"filename":    p.Filename,
		"userId":      p.OwnerID,
		"whatsapp":    p.WhatsApp,
		"createdAt":   p.CreatedAt.Format(time.RFC3339Nano),
	}
}

// orderDocument 订单的订阅源文档形态
func orderDocument(o *domain.OrderRecord) map[string]any {
	return map[string]any{
		"id":            o.ID,
		"productId":     o.ProductID,
		"buyerId":       o.BuyerID,
		"farmerId":      o.FarmerID,
		"quantity":      o.Quantity,
		"productPrice":  o.ProductPrice,
		"deliveryFee":   o.DeliveryFee,
		"totalAmount":   o.TotalAmount,
		"paymentMethod": o.PaymentMethod,
		"status":        o.Status,
		"createdAt":     o.CreatedAt.Format(time.RFC3339Nano),
	}
}
