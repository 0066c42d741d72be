// Package upload 实现商品上架命令端点的 HTTP 客户端（multipart 表单）
package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wyfcoding/farmhub/internal/catalog/application"
)

// Client POST /api/upload-product 的 resty 实现
type Client struct {
	http *resty.Client
}

// NewClient 创建上架客户端；timeout 是命令提交的硬上限
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout),
	}
}

// uploadResponse 服务端创建成功的商品载荷
type uploadResponse struct {
	ProductID string `json:"productId"`
	Filename  string `json:"filename"`
}

// UploadProduct 提交 multipart 上架命令。
// 非 2xx 响应携带服务端给出的原因文本，原样交给上层提示用户。
func (c *Client) UploadProduct(ctx context.Context, form application.ComposeForm, userID string) (*application.UploadResult, error) {
	var created uploadResponse

	req := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"name":        form.Name,
			"description": form.Description,
			"price":       form.Price,
			"location":    form.Location,
			"category":    form.Category,
			"whatsapp":    form.WhatsApp,
			"userId":      userID,
		}).
		SetResult(&created)

	if form.MediaPath != "" {
		req.SetFile("mediaFile", form.MediaPath)
	}

	resp, err := req.Post("/api/upload-product")
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("upload rejected: %d - %s", resp.StatusCode(), resp.String())
	}

	return &application.UploadResult{
		ProductID: created.ProductID,
		Filename:  created.Filename,
	}, nil
}
