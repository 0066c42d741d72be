// Package application 实现商品目录的应用服务：订阅源驱动的物化存储与上架协调
package application

import (
	"context"
	"fmt"
	"sync"

	catalogdomain "github.com/wyfcoding/farmhub/internal/catalog/domain"
	orderdomain "github.com/wyfcoding/farmhub/internal/order/domain"
	"github.com/wyfcoding/farmhub/pkg/logger"
	"github.com/wyfcoding/farmhub/pkg/metrics"
)

const (
	// ProductsCollection 商品集合名
	ProductsCollection = "products"
	// OrdersCollection 订单集合名
	OrdersCollection = "orders"
)

// Store 商品目录存储。
// 本会话中商品与订单两个规范集合的唯一持有者：所有变更都走
// 订阅源驱动的「整集合替换」路径，订单协调器对它只读。
// 订单集合按当前买家圈定且只保留 Pending 状态；身份变化会整体替换
// （而不是合并）旧的订单过滤范围。
type Store struct {
	feed    catalogdomain.ChangeFeed
	metrics *metrics.Metrics

	mu       sync.Mutex
	products []catalogdomain.Product
	orders   []orderdomain.Order
	// 当前买家 ID；为空表示未登录，订单集合为空
	buyerID string
	// 已知商品 ID，用于识别快照间新增的商品
	knownProducts map[string]struct{}
	// 首个商品快照不产生新增事件
	primed bool

	unsubProducts catalogdomain.UnsubscribeFunc
	unsubOrders   catalogdomain.UnsubscribeFunc

	onChange       []func()
	onProductAdded []func(catalogdomain.Product)

	closed bool
}

// NewStore 创建目录存储
func NewStore(feed catalogdomain.ChangeFeed, m *metrics.Metrics) *Store {
	return &Store{
		feed:          feed,
		metrics:       m,
		knownProducts: make(map[string]struct{}),
	}
}

// Start 建立商品与订单两路订阅。任一路建立失败都视为错误返回。
func (s *Store) Start(ctx context.Context) error {
	unsubProducts, err := s.feed.Subscribe(ctx, ProductsCollection, s.applyProducts)
	if err != nil {
		return fmt.Errorf("subscribe products feed: %w", err)
	}

	s.mu.Lock()
	s.unsubProducts = unsubProducts
	s.mu.Unlock()

	if err := s.subscribeOrders(ctx); err != nil {
		unsubProducts()
		return err
	}
	return nil
}

// SetBuyer 设置当前买家并重新圈定订单订阅。
// 旧订阅先释放再建立新订阅，保证过滤范围被替换而不是叠加。
func (s *Store) SetBuyer(ctx context.Context, buyerID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.buyerID = buyerID
	// 身份切换后旧范围的订单立即失效
	s.orders = nil
	unsub := s.unsubOrders
	s.unsubOrders = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.notifyChange()
	return s.subscribeOrders(ctx)
}

// subscribeOrders 建立订单订阅
func (s *Store) subscribeOrders(ctx context.Context) error {
	unsub, err := s.feed.Subscribe(ctx, OrdersCollection, s.applyOrders)
	if err != nil {
		return fmt.Errorf("subscribe orders feed: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsub()
		return nil
	}
	s.unsubOrders = unsub
	s.mu.Unlock()
	return nil
}

// applyProducts 用一次完整快照替换商品集合。
// 文档格式问题从不向外传播：能物化多少算多少，坏文档静默跳过，
// 下一次快照到来时集合会自愈。
func (s *Store) applyProducts(docs []catalogdomain.Document) {
	products := make([]catalogdomain.Product, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		products = append(products, catalogdomain.NormalizeProduct(doc))
	}

	var added []catalogdomain.Product

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.primed {
		for _, p := range products {
			if _, ok := s.knownProducts[p.ID]; !ok && p.ID != "" {
				added = append(added, p)
			}
		}
	}
	s.knownProducts = make(map[string]struct{}, len(products))
	for _, p := range products {
		if p.ID != "" {
			s.knownProducts[p.ID] = struct{}{}
		}
	}
	s.products = products
	s.primed = true
	addedListeners := make([]func(catalogdomain.Product), len(s.onProductAdded))
	copy(addedListeners, s.onProductAdded)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.FeedSnapshotsTotal.WithLabelValues(ProductsCollection).Inc()
		s.metrics.FeedDocuments.WithLabelValues(ProductsCollection).Set(float64(len(products)))
	}
	logger.Debug(context.Background(), "products snapshot applied", "count", len(products))

	for _, p := range added {
		for _, fn := range addedListeners {
			fn(p)
		}
	}
	s.notifyChange()
}

// applyOrders 用一次完整快照替换订单集合（按买家 + Pending 过滤）
func (s *Store) applyOrders(docs []catalogdomain.Document) {
	s.mu.Lock()
	buyerID := s.buyerID
	s.mu.Unlock()

	orders := make([]orderdomain.Order, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			continue
		}
		o := orderdomain.NormalizeOrder(doc)
		if buyerID == "" || o.BuyerID != buyerID || !o.IsPending() {
			continue
		}
		orders = append(orders, o)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.orders = orders
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.FeedSnapshotsTotal.WithLabelValues(OrdersCollection).Inc()
		s.metrics.FeedDocuments.WithLabelValues(OrdersCollection).Set(float64(len(orders)))
	}
	logger.Debug(context.Background(), "orders snapshot applied", "count", len(orders), "buyer", buyerID)

	s.notifyChange()
}

// Products 返回当前商品集合的副本
func (s *Store) Products() []catalogdomain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalogdomain.Product, len(s.products))
	copy(out, s.products)
	return out
}

// PendingOrders 返回当前买家待处理订单集合的副本
func (s *Store) PendingOrders() []orderdomain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orderdomain.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// HasPendingOrder 判断当前买家是否已有该商品的待处理订单（下单按钮的禁用依据）
func (s *Store) HasPendingOrder(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ProductID == productID {
			return true
		}
	}
	return false
}

// OnChange 注册集合变更监听（UI 重投影的触发点）
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// OnProductAdded 注册新商品监听（通知聚合的扩展点）
func (s *Store) OnProductAdded(fn func(catalogdomain.Product)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onProductAdded = append(s.onProductAdded, fn)
}

// notifyChange 广播一次集合变更
func (s *Store) notifyChange() {
	s.mu.Lock()
	listeners := make([]func(), len(s.onChange))
	copy(listeners, s.onChange)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Close 释放全部订阅；释放后任何迟到的快照回调都会被忽略
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubProducts := s.unsubProducts
	unsubOrders := s.unsubOrders
	s.unsubProducts = nil
	s.unsubOrders = nil
	s.mu.Unlock()

	if unsubProducts != nil {
		unsubProducts()
	}
	if unsubOrders != nil {
		unsubOrders()
	}
}
