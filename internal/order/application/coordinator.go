// Package application 实现下单协调：金额计算、幂等闸门、命令提交与结果提示
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	authdomain "github.com/wyfcoding/farmhub/internal/auth/domain"
	catalogdomain "github.com/wyfcoding/farmhub/internal/catalog/domain"
	notificationdomain "github.com/wyfcoding/farmhub/internal/notification/domain"
	"github.com/wyfcoding/farmhub/internal/order/domain"
	"github.com/wyfcoding/farmhub/pkg/logger"
	"github.com/wyfcoding/farmhub/pkg/metrics"
)

var (
	// ErrNotSignedIn 未登录，不允许下单
	ErrNotSignedIn = errors.New("sign in required to place an order")
	// ErrOrderPending 当前买家对该商品已有待处理订单
	ErrOrderPending = errors.New("a pending order already exists for this product")
)

// PendingOrderView 协调器对目录存储的只读视角
type PendingOrderView interface {
	HasPendingOrder(productID string) bool
}

// CommandClient 订单命令端点客户端契约
type CommandClient interface {
	PlaceOrder(ctx context.Context, cmd domain.Command) (orderID string, err error)
}

// Notifier 下单结果的通知出口
type Notifier interface {
	Publish(evt notificationdomain.Event)
}

// Coordinator 下单协调器。
// 只向命令端点提交命令并等待权威订阅源反映结果，从不直接改写
// 目录存储的规范订单集合——乐观状态与权威状态由此不会分叉。
// 重复下单的拦截是协作式的（Pending 订单存在即禁用下单入口）；
// 真正的 exactly-once 属于订单命令端点，不在本层职责内。
type Coordinator struct {
	view     PendingOrderView
	client   CommandClient
	identity authdomain.Provider
	notifier Notifier
	metrics  *metrics.Metrics
	// 命令提交的硬超时，超过即按失败提示用户；不做自动重试
	timeout time.Duration
}

// NewCoordinator 创建下单协调器
func NewCoordinator(view PendingOrderView, client CommandClient, identity authdomain.Provider, notifier Notifier, m *metrics.Metrics, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Coordinator{
		view:     view,
		client:   client,
		identity: identity,
		notifier: notifier,
		metrics:  m,
		timeout:  timeout,
	}
}

// CanOrder 下单入口是否可用（已有 Pending 订单时禁用）
func (c *Coordinator) CanOrder(productID string) bool {
	return !c.view.HasPendingOrder(productID)
}

// PlaceOrder 执行下单流程。
// 前置校验（身份、数量、幂等闸门）都在任何网络调用之前完成；
// 失败不自动重试，重试是用户再次触发 PlaceOrder 的显式动作。
func (c *Coordinator) PlaceOrder(ctx context.Context, product catalogdomain.Product, quantity int) (string, error) {
	buyer := c.identity.Current()
	if buyer == nil {
		return "", ErrNotSignedIn
	}

	if c.view.HasPendingOrder(product.ID) {
		return "", ErrOrderPending
	}

	qty := catalogdomain.CoerceQuantity(quantity)
	pricing := domain.ComputePricing(product.Price, qty)

	cmd := domain.Command{
		ProductID:     product.ID,
		BuyerID:       buyer.UID,
		FarmerID:      product.OwnerID,
		PaymentMethod: string(domain.PaymentMethodCOD),
		TotalAmount:   pricing.Total.InexactFloat64(),
		ProductPrice:  pricing.ProductPrice.InexactFloat64(),
		DeliveryFee:   pricing.DeliveryFee.InexactFloat64(),
		Quantity:      qty,
	}

	cmdCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	orderID, err := c.client.PlaceOrder(cmdCtx, cmd)
	if err != nil {
		if c.metrics != nil {
			c.metrics.OrderFailuresTotal.Inc()
		}
		logger.Warn(ctx, "order placement failed",
			"product_id", product.ID,
			"buyer_id", buyer.UID,
			"error", err,
		)
		c.notify(fmt.Sprintf("Failed to place order: %v", err))
		return "", fmt.Errorf("place order: %w", err)
	}

	if c.metrics != nil {
		c.metrics.OrdersPlacedTotal.Inc()
	}
	logger.Info(ctx, "order placed",
		"order_id", orderID,
		"product_id", product.ID,
		"buyer_id", buyer.UID,
		"quantity", qty,
		"total", pricing.Total.String(),
	)

	// 新的 Pending 订单交由权威订阅源回灌目录存储
	c.notify(fmt.Sprintf("Order placed successfully! Order ID: %s", orderID))
	return orderID, nil
}

// notify 向通知聚合器投递一条下单结果提示
func (c *Coordinator) notify(message string) {
	if c.notifier == nil {
		return
	}
	c.notifier.Publish(notificationdomain.Event{
		Kind:      notificationdomain.EventOrderPlaced,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
