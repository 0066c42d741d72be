package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/farmhub/internal/farmsim/application"
	"github.com/wyfcoding/farmhub/internal/farmsim/domain"
)

type stubProductRepo struct {
	mu       sync.Mutex
	products map[string]*domain.ProductRecord
}

func (r *stubProductRepo) Save(_ context.Context, p *domain.ProductRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.products == nil {
		r.products = make(map[string]*domain.ProductRecord)
	}
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id string) (*domain.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *stubProductRepo) List(_ context.Context) ([]*domain.ProductRecord, error) {
	return nil, nil
}

type stubOrderRepo struct {
	mu     sync.Mutex
	orders []*domain.OrderRecord
}

func (r *stubOrderRepo) Save(_ context.Context, o *domain.OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders = append(r.orders, &cp)
	return nil
}

func (r *stubOrderRepo) List(_ context.Context) ([]*domain.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.OrderRecord(nil), r.orders...), nil
}

type stubFeedWriter struct{}

func (stubFeedWriter) SetDocument(context.Context, string, string, any) error { return nil }

type stubBroadcaster struct{}

func (stubBroadcaster) Broadcast(context.Context, string, string) {}

func newTestRouter(t *testing.T) (*gin.Engine, *stubProductRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	products := &stubProductRepo{}
	service := application.NewMarketService(products, &stubOrderRepo{}, stubFeedWriter{}, stubBroadcaster{}, nil)
	handler := NewHandler(service, t.TempDir())

	engine := gin.New()
	handler.RegisterRoutes(engine, func(http.ResponseWriter, *http.Request) {}, nil)
	return engine, products
}

func seedProduct(t *testing.T, repo *stubProductRepo) string {
	t.Helper()
	rec := &domain.ProductRecord{ID: "p1", Name: "Tomatoes", Price: 50, OwnerID: "farmer-1"}
	require.NoError(t, repo.Save(context.Background(), rec))
	return rec.ID
}

func TestPlaceOrderEndpoint(t *testing.T) {
	engine, products := newTestRouter(t)
	productID := seedProduct(t, products)

	body, _ := json.Marshal(map[string]any{
		"productId": productID,
		"buyerId":   "buyer-1",
		"quantity":  2,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["orderId"])
}

func TestPlaceOrderEndpointRejectsMissingFields(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"buyerId":"buyer-1"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlaceOrderEndpointRejectsUnknownProduct(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(`{"productId":"ghost","buyerId":"buyer-1"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadProductEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "Kale")
	_ = mw.WriteField("description", "Fresh kale")
	_ = mw.WriteField("price", "10")
	_ = mw.WriteField("location", "Eldoret")
	_ = mw.WriteField("category", "vegetables")
	_ = mw.WriteField("userId", "farmer-2")
	fw, err := mw.CreateFormFile("mediaFile", "kale.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("fake image bytes"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-product", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["productId"])
	assert.True(t, strings.HasSuffix(resp["filename"], ".jpg"))
}

func TestUploadProductEndpointValidation(t *testing.T) {
	engine, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("name", "Kale")
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload-product", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	engine, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
