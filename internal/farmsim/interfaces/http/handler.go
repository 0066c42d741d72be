// Package http 暴露权威市场端的 REST 接口
package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wyfcoding/farmhub/internal/farmsim/application"
	"github.com/wyfcoding/farmhub/pkg/logger"
	"github.com/wyfcoding/farmhub/pkg/metrics"
)

// Handler 市场接口处理器
type Handler struct {
	service   *application.MarketService
	uploadDir string
}

// NewHandler 创建接口处理器
func NewHandler(service *application.MarketService, uploadDir string) *Handler {
	return &Handler{service: service, uploadDir: uploadDir}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine, wsHandler http.HandlerFunc, m *metrics.Metrics) {
	r.Use(RequestID(), AccessLog(), Recovery(), Observe(m))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}
	r.GET("/ws", gin.WrapF(wsHandler))
	r.Static("/uploads", h.uploadDir)

	api := r.Group("/api")
	{
		api.POST("/orders", h.placeOrder)
		api.POST("/upload-product", h.uploadProduct)
	}
}

type placeOrderRequest struct {
	ProductID     string  `json:"productId" binding:"required"`
	BuyerID       string  `json:"buyerId" binding:"required"`
	FarmerID      string  `json:"farmerId"`
	PaymentMethod string  `json:"paymentMethod"`
	TotalAmount   float64 `json:"totalAmount"`
	ProductPrice  float64 `json:"productPrice"`
	DeliveryFee   float64 `json:"deliveryFee"`
	Quantity      int     `json:"quantity"`
}

// placeOrder POST /api/orders
func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order payload: " + err.Error()})
		return
	}

	rec, err := h.service.PlaceOrder(c.Request.Context(), application.PlaceOrderInput{
		ProductID:     req.ProductID,
		BuyerID:       req.BuyerID,
		FarmerID:      req.FarmerID,
		Quantity:      req.Quantity,
		ProductPrice:  req.ProductPrice,
		DeliveryFee:   req.DeliveryFee,
		TotalAmount:   req.TotalAmount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		if errors.Is(err, application.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "place order failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to place order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"orderId": rec.ID})
}

// uploadProduct POST /api/upload-product（multipart 表单）
func (h *Handler) uploadProduct(c *gin.Context) {
	in := application.UploadProductInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Location:    c.PostForm("location"),
		Category:    c.PostForm("category"),
		WhatsApp:    c.PostForm("whatsapp"),
		OwnerID:     c.PostForm("userId"),
	}

	if file, err := c.FormFile("mediaFile"); err == nil && file != nil {
		filename := fmt.Sprintf("%d-%s%s",
			time.Now().UnixMilli(),
			uuid.NewString()[:8],
			strings.ToLower(filepath.Ext(file.Filename)),
		)
		if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, filename)); err != nil {
			logger.Error(c.Request.Context(), "save upload failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store media file"})
			return
		}
		in.Filename = filename
	}

	rec, err := h.service.UploadProduct(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, application.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Error(c.Request.Context(), "upload product failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"productId": rec.ID,
		"filename":  rec.Filename,
	})
}
