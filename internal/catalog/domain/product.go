// Package domain 包含商品目录的领域模型：商品、价格规整、文档物化与视图投影
package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// UncategorizedCategory 未填写分类时的兜底分类
const UncategorizedCategory = "uncategorized"

// Product 商品实体
// 价格在物化时统一规整为非负有限浮点数，无论来源表示是什么
type Product struct {
	// 商品 ID
	ID string `json:"id"`
	// 商品名称
	Name string `json:"name"`
	// 描述
	Description string `json:"description"`
	// 价格（已规整）
	Price float64 `json:"price"`
	// 所在地
	Location string `json:"location"`
	// 分类，可为空
	Category string `json:"category,omitempty"`
	// 媒体文件名，可为空
	Filename string `json:"filename,omitempty"`
	// 卖家（上架者）ID
	OwnerID string `json:"userId"`
	// 联系方式
	WhatsApp string `json:"whatsapp,omitempty"`
	// 创建时间；无法解析的时间戳保持零值
	CreatedAt time.Time `json:"createdAt"`
}

// EffectiveCategory 返回商品的有效分类，空分类回落到 uncategorized
func (p Product) EffectiveCategory() string {
	if p.Category == "" {
		return UncategorizedCategory
	}
	return p.Category
}

// IsNew 判断商品是否在给定窗口内上架（用于 NEW 角标）
func (p Product) IsNew(now time.Time, window time.Duration) bool {
	if p.CreatedAt.IsZero() {
		return false
	}
	return p.CreatedAt.After(now.Add(-window))
}

// CoercePrice 对任意来源的价格做全函数规整：
// 字符串解析为浮点数，数值类型直接转换，其余（null、布尔、对象等）按失败处理；
// 解析失败、非有限值与负数一律归 0，保证物化后的价格总是非负有限数。
func CoercePrice(v any) float64 {
	var f float64
	switch x := v.(type) {
	case string:
		parsed, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if x {
			f = 1
		}
	default:
		return 0
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

// CoerceQuantity 规整下单数量：非法或小于 1 的输入回落到 1
func CoerceQuantity(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// Categories 收集商品集合中出现过的有效分类（去重，顺序不保证）
func Categories(products []Product) []string {
	seen := make(map[string]struct{}, len(products))
	out := make([]string, 0, len(products))
	for _, p := range products {
		c := p.EffectiveCategory()
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// MediaURL 将媒体文件名解析为完整地址；无文件名时返回空串（不是错误）
func MediaURL(baseURL, filename string) string {
	if filename == "" {
		return ""
	}
	return baseURL + "/uploads/" + filename
}
