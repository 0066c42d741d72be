// Package command 订单命令端点的 HTTP 客户端
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wyfcoding/farmhub/internal/order/domain"
	"github.com/wyfcoding/farmhub/pkg/logger"
)

// Client 通过 REST 命令端点提交订单
type Client struct {
	http *resty.Client
}

// NewClient 创建订单命令客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{http: hc}
}

type placeOrderResponse struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error"`
}

// PlaceOrder 提交下单命令，成功返回服务端分配的订单 ID
func (c *Client) PlaceOrder(ctx context.Context, cmd domain.Command) (string, error) {
	defer logger.LogDuration(ctx, "order command submitted", "productId", cmd.ProductID)()

	var out placeOrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(cmd).
		SetResult(&out).
		SetError(&out).
		Post("/api/orders")
	if err != nil {
		return "", fmt.Errorf("post order command: %w", err)
	}
	if resp.IsError() {
		if out.Error != "" {
			return "", fmt.Errorf("order command rejected: %s (status %d)", out.Error, resp.StatusCode())
		}
		return "", fmt.Errorf("order command rejected: status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if out.OrderID == "" {
		return "", fmt.Errorf("order command response missing orderId")
	}
	return out.OrderID, nil
}
