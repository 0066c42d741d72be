// Package domain 包含订单的领域模型：货到付款订单、状态机与金额计算
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	catalogdomain "github.com/wyfcoding/farmhub/internal/catalog/domain"
)

// OrderStatus 订单状态。
// 状态迁移 Pending → {Fulfilled | Cancelled} 完全由权威订阅源驱动，
// 客户端从不在本地改写订单状态。
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusFulfilled OrderStatus = "Fulfilled"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// PaymentMethod 支付方式
type PaymentMethod string

// PaymentMethodCOD 货到付款，目前唯一支持的支付方式
const PaymentMethodCOD PaymentMethod = "COD"

// DeliveryFee 固定配送费
var DeliveryFee = decimal.NewFromInt(20)

// Order 订单实体（客户端视角的只读物化结果）
type Order struct {
	// 订单 ID
	ID string `json:"id"`
	// 商品 ID
	ProductID string `json:"productId"`
	// 买家 ID
	BuyerID string `json:"buyerId"`
	// 卖家 ID（商品上架者）
	SellerID string `json:"farmerId"`
	// 数量（>=1）
	Quantity int `json:"quantity"`
	// 下单时的单价快照
	UnitPrice float64 `json:"unitPrice"`
	// 商品小计
	ProductPrice float64 `json:"productPrice"`
	// 配送费
	DeliveryFee float64 `json:"deliveryFee"`
	// 总金额 = 数量×单价 + 配送费
	TotalAmount float64 `json:"totalAmount"`
	// 支付方式
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	// 状态
	Status OrderStatus `json:"status"`
	// 创建时间
	CreatedAt time.Time `json:"createdAt"`
}

// IsPending 判断订单是否处于待处理状态
func (o Order) IsPending() bool {
	return o.Status == OrderStatusPending
}

// Pricing 一次下单的金额拆分
type Pricing struct {
	// 商品小计 = 单价 × 数量
	ProductPrice decimal.Decimal
	// 配送费
	DeliveryFee decimal.Decimal
	// 总金额
	Total decimal.Decimal
}

// ComputePricing 按单价与数量计算订单金额。
// 单价来自已规整的商品价格，数量先做 >=1 规整；全程使用 decimal 避免浮点误差。
func ComputePricing(unitPrice float64, quantity int) Pricing {
	qty := decimal.NewFromInt(int64(catalogdomain.CoerceQuantity(quantity)))
	productPrice := decimal.NewFromFloat(catalogdomain.CoercePrice(unitPrice)).Mul(qty)
	return Pricing{
		ProductPrice: productPrice,
		DeliveryFee:  DeliveryFee,
		Total:        productPrice.Add(DeliveryFee),
	}
}

// Command 提交给订单命令端点的载荷，字段与 POST /api/orders 协议一致
type Command struct {
	ProductID     string  `json:"productId"`
	BuyerID       string  `json:"buyerId"`
	FarmerID      string  `json:"farmerId"`
	PaymentMethod string  `json:"paymentMethod"`
	TotalAmount   float64 `json:"totalAmount"`
	ProductPrice  float64 `json:"productPrice"`
	DeliveryFee   float64 `json:"deliveryFee"`
	Quantity      int     `json:"quantity"`
}

// NormalizeOrder 将订阅源文档物化为订单
func NormalizeOrder(doc catalogdomain.Document) Order {
	o := Order{
		ID:            docString(doc, "id"),
		ProductID:     docString(doc, "productId"),
		BuyerID:       docString(doc, "buyerId"),
		SellerID:      docString(doc, "farmerId"),
		Quantity:      docInt(doc, "quantity"),
		UnitPrice:     catalogdomain.CoercePrice(doc["unitPrice"]),
		ProductPrice:  catalogdomain.CoercePrice(doc["productPrice"]),
		DeliveryFee:   catalogdomain.CoercePrice(doc["deliveryFee"]),
		TotalAmount:   catalogdomain.CoercePrice(doc["totalAmount"]),
		PaymentMethod: PaymentMethod(docString(doc, "paymentMethod")),
		Status:        OrderStatus(docString(doc, "status")),
	}
	if o.Quantity < 1 {
		o.Quantity = 1
	}
	o.CreatedAt = catalogdomain.ParseTimestamp(doc["createdAt"])
	return o
}

func docString(doc catalogdomain.Document, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

func docInt(doc catalogdomain.Document, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
