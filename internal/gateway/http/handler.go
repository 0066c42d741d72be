// Package http 暴露客户端引擎的本地控制面：目录视图投影、下单、
// 商品上架、收藏/数量与通知查询。它只是引擎状态的读写入口，
// 不持有任何独立事实来源。
package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	authapp "github.com/wyfcoding/farmhub/internal/auth/application"
	authdomain "github.com/wyfcoding/farmhub/internal/auth/domain"
	catalogapp "github.com/wyfcoding/farmhub/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/farmhub/internal/catalog/domain"
	farmhttp "github.com/wyfcoding/farmhub/internal/farmsim/interfaces/http"
	notifapp "github.com/wyfcoding/farmhub/internal/notification/application"
	orderapp "github.com/wyfcoding/farmhub/internal/order/application"
	"github.com/wyfcoding/farmhub/pkg/metrics"
)

// 视图请求未指定上界时的默认价格上限
const defaultPriceMax = 1000

// 商品标记为新品的时间窗口
const newProductWindow = 7 * 24 * time.Hour

// Handler 引擎控制面处理器
type Handler struct {
	store       *catalogapp.Store
	composer    *catalogapp.Composer
	coordinator *orderapp.Coordinator
	notifier    *notifapp.Aggregator
	session     *authapp.SessionManager
	mediaBase   string

	mu         sync.Mutex
	favorites  catalogdomain.Favorites
	quantities catalogdomain.Quantities
}

// NewHandler 创建控制面处理器
func NewHandler(
	store *catalogapp.Store,
	composer *catalogapp.Composer,
	coordinator *orderapp.Coordinator,
	notifier *notifapp.Aggregator,
	session *authapp.SessionManager,
	mediaBase string,
) *Handler {
	return &Handler{
		store:       store,
		composer:    composer,
		coordinator: coordinator,
		notifier:    notifier,
		session:     session,
		mediaBase:   mediaBase,
		favorites:   catalogdomain.Favorites{},
		quantities:  catalogdomain.Quantities{},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine, m *metrics.Metrics) {
	r.Use(farmhttp.RequestID(), farmhttp.AccessLog(), farmhttp.Recovery(), farmhttp.Observe(m))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/view", h.view)
	r.GET("/notifications", h.notifications)

	r.POST("/session", h.signIn)
	r.DELETE("/session", h.signOut)

	r.POST("/orders", h.placeOrder)
	r.POST("/products", h.uploadProduct)

	r.POST("/favorites/:productId", h.toggleFavorite)
	r.PUT("/quantities/:productId", h.setQuantity)
}

type productView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	Location     string  `json:"location"`
	Category     string  `json:"category"`
	MediaURL     string  `json:"mediaUrl,omitempty"`
	OwnerID      string  `json:"userId"`
	WhatsApp     string  `json:"whatsapp,omitempty"`
	CreatedAt    string  `json:"createdAt,omitempty"`
	IsNew        bool    `json:"isNew"`
	Favorite     bool    `json:"favorite"`
	Quantity     int     `json:"quantity"`
	OrderPending bool    `json:"orderPending"`
}

// view GET /view 对当前目录做纯投影
func (h *Handler) view(c *gin.Context) {
	req := catalogdomain.ViewRequest{
		Search:   c.Query("search"),
		PriceMin: queryFloat(c, "priceMin", 0),
		PriceMax: queryFloat(c, "priceMax", defaultPriceMax),
		Sort:     catalogdomain.SortKey(c.DefaultQuery("sort", string(catalogdomain.SortNewest))),
	}
	if raw := c.Query("categories"); raw != "" {
		req.Categories = strings.Split(raw, ",")
	}

	products := h.store.Products()
	projected := catalogdomain.Project(products, req)

	h.mu.Lock()
	now := time.Now()
	views := make([]productView, 0, len(projected))
	for _, p := range projected {
		views = append(views, productView{
			ID:           p.ID,
			Name:         p.Name,
			Description:  p.Description,
			Price:        p.Price,
			Location:     p.Location,
			Category:     p.EffectiveCategory(),
			MediaURL:     catalogdomain.MediaURL(h.mediaBase, p.Filename),
			OwnerID:      p.OwnerID,
			WhatsApp:     p.WhatsApp,
			CreatedAt:    formatTime(p.CreatedAt),
			IsNew:        p.IsNew(now, newProductWindow),
			Favorite:     h.favorites.Has(p.ID),
			Quantity:     h.quantities.Get(p.ID),
			OrderPending: h.store.HasPendingOrder(p.ID),
		})
	}
	h.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"products":   views,
		"total":      len(products),
		"categories": catalogdomain.Categories(products),
	})
}

// notifications GET /notifications 返回当前 toast 与历史日志
func (h *Handler) notifications(c *gin.Context) {
	var toast gin.H
	if t := h.notifier.Toast(); t != nil {
		toast = gin.H{"type": t.Kind, "message": t.Message, "timestamp": t.Timestamp}
	}
	log := h.notifier.Log()
	entries := make([]gin.H, 0, len(log))
	for _, e := range log {
		entries = append(entries, gin.H{"type": e.Kind, "message": e.Message, "timestamp": e.Timestamp})
	}
	c.JSON(http.StatusOK, gin.H{"toast": toast, "log": entries})
}

type signInRequest struct {
	UID         string `json:"uid" binding:"required"`
	DisplayName string `json:"displayName"`
}

// signIn POST /session 切换当前身份
func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid is required"})
		return
	}
	h.session.SetIdentity(&authdomain.Identity{UID: req.UID, DisplayName: req.DisplayName})
	c.JSON(http.StatusOK, gin.H{"uid": req.UID})
}

// signOut DELETE /session 登出
func (h *Handler) signOut(c *gin.Context) {
	h.session.SignOut()
	c.Status(http.StatusNoContent)
}

type placeOrderRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

// placeOrder POST /orders 通过协调器下单
func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "productId is required"})
		return
	}

	var product *catalogdomain.Product
	for _, p := range h.store.Products() {
		if p.ID == req.ProductID {
			cp := p
			product = &cp
			break
		}
	}
	if product == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}

	orderID, err := h.coordinator.PlaceOrder(c.Request.Context(), *product, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, orderapp.ErrNotSignedIn):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.Is(err, orderapp.ErrOrderPending):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"orderId": orderID})
}

type uploadProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Location    string `json:"location"`
	Category    string `json:"category"`
	WhatsApp    string `json:"whatsapp"`
	MediaPath   string `json:"mediaPath"`
}

// uploadProduct POST /products 通过上架协调器提交商品
func (h *Handler) uploadProduct(c *gin.Context) {
	var req uploadProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	h.composer.SetForm(catalogapp.ComposeForm{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Location:    req.Location,
		Category:    req.Category,
		WhatsApp:    req.WhatsApp,
		MediaPath:   req.MediaPath,
	})

	result, err := h.composer.Submit(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, catalogapp.ErrNotSignedIn):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		case errors.Is(err, catalogapp.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, catalogapp.ErrUploadInFlight):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"productId": result.ProductID, "filename": result.Filename})
}

// toggleFavorite POST /favorites/:productId 切换收藏
func (h *Handler) toggleFavorite(c *gin.Context) {
	id := c.Param("productId")
	h.mu.Lock()
	on := h.favorites.Toggle(id)
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"productId": id, "favorite": on})
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// setQuantity PUT /quantities/:productId 设置下单数量
func (h *Handler) setQuantity(c *gin.Context) {
	id := c.Param("productId")
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity is required"})
		return
	}
	qty := catalogdomain.CoerceQuantity(req.Quantity)
	h.mu.Lock()
	h.quantities.Set(id, qty)
	h.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"productId": id, "quantity": qty})
}

func queryFloat(c *gin.Context, key string, def float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
