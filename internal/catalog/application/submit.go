package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wyfcoding/farmhub/pkg/logger"
	"github.com/wyfcoding/farmhub/pkg/metrics"
)

var (
	// ErrMissingFields 必填字段缺失
	ErrMissingFields = errors.New("name, description, price and location are required")
	// ErrUploadInFlight 已有一次上架在途
	ErrUploadInFlight = errors.New("a product upload is already in flight")
	// ErrNotSignedIn 未登录
	ErrNotSignedIn = errors.New("sign in required to upload a product")
)

// ComposeForm 上架表单状态。
// 价格保持原始字符串形态提交，由服务端落库，与价格规整解耦。
type ComposeForm struct {
	Name        string
	Description string
	Price       string
	Location    string
	Category    string
	WhatsApp    string
	// 本地媒体文件路径，可为空
	MediaPath string
}

// Validate 校验必填字段
func (f ComposeForm) Validate() error {
	if f.Name == "" || f.Description == "" || f.Price == "" || f.Location == "" {
		return ErrMissingFields
	}
	return nil
}

// UploadResult 上架成功后服务端返回的商品载荷
type UploadResult struct {
	ProductID string
	Filename  string
}

// UploadClient 商品上架命令端点客户端契约
type UploadClient interface {
	UploadProduct(ctx context.Context, form ComposeForm, userID string) (*UploadResult, error)
}

// identitySource 提交时读取当前用户
type identitySource interface {
	CurrentUID() string
}

// Composer 上架协调器。
// 同一时刻只允许一次在途提交（单个 in-flight 标志，不排队）；
// 成功后清空表单，失败保留表单让用户免重输重试。
type Composer struct {
	client   UploadClient
	identity identitySource
	metrics  *metrics.Metrics

	mu       sync.Mutex
	form     ComposeForm
	inFlight bool
}

// NewComposer 创建上架协调器
func NewComposer(client UploadClient, identity identitySource, m *metrics.Metrics) *Composer {
	return &Composer{client: client, identity: identity, metrics: m}
}

// SetForm 整体替换表单状态
func (c *Composer) SetForm(form ComposeForm) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.form = form
}

// Form 返回当前表单状态
func (c *Composer) Form() ComposeForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// InFlight 是否有提交在途
func (c *Composer) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Submit 提交上架。
// 校验在任何网络调用之前完成；校验失败立即返回且绝不自动重试。
func (c *Composer) Submit(ctx context.Context) (*UploadResult, error) {
	userID := c.identity.CurrentUID()
	if userID == "" {
		return nil, ErrNotSignedIn
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrUploadInFlight
	}
	form := c.form
	if err := form.Validate(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	result, err := c.client.UploadProduct(ctx, form, userID)
	if err != nil {
		// 表单原样保留，用户可以直接重试
		logger.Warn(ctx, "product upload failed", "name", form.Name, "error", err)
		return nil, fmt.Errorf("upload product: %w", err)
	}

	c.mu.Lock()
	c.form = ComposeForm{}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.UploadsTotal.Inc()
	}
	logger.Info(ctx, "product uploaded", "product_id", result.ProductID, "name", form.Name)
	return result, nil
}
