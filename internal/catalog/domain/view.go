package domain

import (
	"sort"
	"strings"
)

// SortKey 排序方式
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortOldest    SortKey = "oldest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
)

// ViewRequest 视图请求：搜索词、价格区间、分类选择与排序方式。
// 它是一个不可变的投影参数，不持有任何独立事实来源。
type ViewRequest struct {
	// 名称子串（不区分大小写）
	Search string
	// 价格区间下界（含）
	PriceMin float64
	// 价格区间上界（含）
	PriceMax float64
	// 选中的分类集合；为空表示不过滤
	Categories []string
	// 排序方式
	Sort SortKey
}

// Project 对商品列表做纯函数投影：文本过滤 → 价格区间过滤 → 分类过滤 → 稳定排序。
// 输入列表不会被修改。
func Project(products []Product, req ViewRequest) []Product {
	out := make([]Product, 0, len(products))
	search := strings.ToLower(req.Search)

	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if p.Price < req.PriceMin || p.Price > req.PriceMax {
			continue
		}
		if len(req.Categories) > 0 && !containsString(req.Categories, p.EffectiveCategory()) {
			continue
		}
		out = append(out, p)
	}

	sortProducts(out, req.Sort)
	return out
}

// sortProducts 按排序键做稳定排序；未知排序键保持原有顺序。
// 无法解析的创建时间按最小时间处理：newest 下排在最后，oldest 下排在最前。
func sortProducts(products []Product, key SortKey) {
	switch key {
	case SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price < products[j].Price
		})
	case SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price > products[j].Price
		})
	case SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		})
	case SortOldest:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].CreatedAt.Before(products[j].CreatedAt)
		})
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Favorites 收藏集合，仅存在于客户端本地，不参与同步
type Favorites map[string]struct{}

// Toggle 切换收藏状态，返回切换后是否处于收藏
func (f Favorites) Toggle(productID string) bool {
	if _, ok := f[productID]; ok {
		delete(f, productID)
		return false
	}
	f[productID] = struct{}{}
	return true
}

// Has 判断是否已收藏
func (f Favorites) Has(productID string) bool {
	_, ok := f[productID]
	return ok
}

// Quantities 每个商品的期望下单数量；读取时规整为 >=1，默认 1
type Quantities map[string]int

// Get 返回商品的有效下单数量
func (q Quantities) Get(productID string) int {
	n, ok := q[productID]
	if !ok {
		return 1
	}
	return CoerceQuantity(n)
}

// Set 设置商品的下单数量（规整后存储）
func (q Quantities) Set(productID string, n int) {
	q[productID] = CoerceQuantity(n)
}
