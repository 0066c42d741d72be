package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/farmhub/internal/farmsim/domain"
)

type memProductRepo struct {
	mu       sync.Mutex
	products map[string]*domain.ProductRecord
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[string]*domain.ProductRecord)}
}

func (r *memProductRepo) Save(_ context.Context, p *domain.ProductRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *memProductRepo) FindByID(_ context.Context, id string) (*domain.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) List(_ context.Context) ([]*domain.ProductRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ProductRecord, 0, len(r.products))
	for _, p := range r.products {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders []*domain.OrderRecord
}

func (r *memOrderRepo) Save(_ context.Context, o *domain.OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.orders = append(r.orders, &cp)
	return nil
}

func (r *memOrderRepo) List(_ context.Context) ([]*domain.OrderRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.OrderRecord(nil), r.orders...), nil
}

type memFeedWriter struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func newMemFeedWriter() *memFeedWriter {
	return &memFeedWriter{docs: make(map[string]map[string]any)}
}

func (w *memFeedWriter) SetDocument(_ context.Context, collection, id string, doc any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.docs[collection] == nil {
		w.docs[collection] = make(map[string]any)
	}
	w.docs[collection][id] = doc
	return nil
}

type memBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *memBroadcaster) Broadcast(_ context.Context, eventType, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, eventType+": "+message)
}

type testHarness struct {
	service   *MarketService
	products  *memProductRepo
	orders    *memOrderRepo
	feed      *memFeedWriter
	broadcast *memBroadcaster
}

func newTestHarness() *testHarness {
	h := &testHarness{
		products:  newMemProductRepo(),
		orders:    &memOrderRepo{},
		feed:      newMemFeedWriter(),
		broadcast: &memBroadcaster{},
	}
	h.service = NewMarketService(h.products, h.orders, h.feed, h.broadcast, nil)
	return h
}

func validUpload() UploadProductInput {
	return UploadProductInput{
		Name:        "Tomatoes",
		Description: "Fresh from the farm",
		Price:       "15.5",
		Location:    "Nakuru",
		Category:    "vegetables",
		OwnerID:     "farmer-1",
		Filename:    "tomatoes.jpg",
	}
}

func TestUploadProductPersistsAndFansOut(t *testing.T) {
	h := newTestHarness()

	rec, err := h.service.UploadProduct(context.Background(), validUpload())
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, 15.5, rec.Price)

	stored, err := h.products.FindByID(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	doc, ok := h.feed.docs["products"][rec.ID].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Tomatoes", doc["name"])
	assert.Equal(t, "farmer-1", doc["userId"])

	require.Len(t, h.broadcast.events, 1)
	assert.Equal(t, "product_upload: New product added: Tomatoes", h.broadcast.events[0])
}

func TestUploadProductWithoutCategory(t *testing.T) {
	h := newTestHarness()

	in := validUpload()
	in.Category = ""
	rec, err := h.service.UploadProduct(context.Background(), in)
	require.NoError(t, err)

	// 分类留空由展示层回落到 uncategorized，服务端原样保存
	doc, ok := h.feed.docs["products"][rec.ID].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "", doc["category"])
	require.Len(t, h.broadcast.events, 1)
}

func TestUploadProductValidation(t *testing.T) {
	h := newTestHarness()

	tests := []struct {
		name   string
		mutate func(*UploadProductInput)
	}{
		{"missing name", func(in *UploadProductInput) { in.Name = "" }},
		{"missing description", func(in *UploadProductInput) { in.Description = "" }},
		{"missing price", func(in *UploadProductInput) { in.Price = "" }},
		{"missing location", func(in *UploadProductInput) { in.Location = "" }},
		{"non-numeric price", func(in *UploadProductInput) { in.Price = "cheap" }},
		{"negative price", func(in *UploadProductInput) { in.Price = "-5" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validUpload()
			tt.mutate(&in)
			_, err := h.service.UploadProduct(context.Background(), in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
	assert.Empty(t, h.broadcast.events)
}

func TestPlaceOrderComputesAuthoritativePricing(t *testing.T) {
	h := newTestHarness()
	product, err := h.service.UploadProduct(context.Background(), validUpload())
	require.NoError(t, err)

	// 客户端传来的金额被忽略，以服务端价格为准
	rec, err := h.service.PlaceOrder(context.Background(), PlaceOrderInput{
		ProductID:   product.ID,
		BuyerID:     "buyer-1",
		Quantity:    2,
		TotalAmount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, 31.0, rec.ProductPrice)
	assert.Equal(t, 20.0, rec.DeliveryFee)
	assert.Equal(t, 51.0, rec.TotalAmount)
	assert.Equal(t, "Pending", rec.Status)
	assert.Equal(t, "COD", rec.PaymentMethod)
	assert.Equal(t, "farmer-1", rec.FarmerID)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)

	doc, ok := h.feed.docs["orders"][rec.ID].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "buyer-1", doc["buyerId"])
	assert.Equal(t, "Pending", doc["status"])

	require.Len(t, h.broadcast.events, 2)
	assert.Equal(t, "order_placed: New order placed for Tomatoes", h.broadcast.events[1])
}

func TestPlaceOrderValidation(t *testing.T) {
	h := newTestHarness()

	_, err := h.service.PlaceOrder(context.Background(), PlaceOrderInput{BuyerID: "buyer-1"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.service.PlaceOrder(context.Background(), PlaceOrderInput{ProductID: "p1"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.service.PlaceOrder(context.Background(), PlaceOrderInput{ProductID: "missing", BuyerID: "buyer-1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPlaceOrderCoercesQuantity(t *testing.T) {
	h := newTestHarness()
	product, err := h.service.UploadProduct(context.Background(), validUpload())
	require.NoError(t, err)

	rec, err := h.service.PlaceOrder(context.Background(), PlaceOrderInput{
		ProductID: product.ID,
		BuyerID:   "buyer-1",
		Quantity:  0,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Quantity)
	assert.Equal(t, 35.5, rec.TotalAmount)
}
