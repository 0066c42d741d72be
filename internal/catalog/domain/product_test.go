package domain

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoercePrice(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  float64
	}{
		{"numeric string", "12.5", 12.5},
		{"integer string", "40", 40},
		{"garbage string", "abc", 0},
		{"empty string", "", 0},
		{"float64", 99.99, 99.99},
		{"float32", float32(2.5), 2.5},
		{"int", 7, 7},
		{"int64", int64(7), 7},
		{"json number", json.Number("15.25"), 15.25},
		{"nil", nil, 0},
		{"bool true", true, 1},
		{"bool false", false, 0},
		{"object", map[string]any{"amount": 5}, 0},
		{"negative", -3.5, 0},
		{"negative string", "-10", 0},
		{"nan", math.NaN(), 0},
		{"positive inf", math.Inf(1), 0},
		{"negative inf", math.Inf(-1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoercePrice(tt.input)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
			assert.GreaterOrEqual(t, got, 0.0)
		})
	}
}

func TestCoerceQuantity(t *testing.T) {
	assert.Equal(t, 1, CoerceQuantity(0))
	assert.Equal(t, 1, CoerceQuantity(-5))
	assert.Equal(t, 1, CoerceQuantity(1))
	assert.Equal(t, 12, CoerceQuantity(12))
}

func TestEffectiveCategory(t *testing.T) {
	assert.Equal(t, "vegetables", Product{Category: "vegetables"}.EffectiveCategory())
	assert.Equal(t, UncategorizedCategory, Product{}.EffectiveCategory())
}

func TestIsNew(t *testing.T) {
	now := time.Now()
	fresh := Product{CreatedAt: now.Add(-1 * time.Hour)}
	stale := Product{CreatedAt: now.Add(-48 * time.Hour)}
	unknown := Product{}

	assert.True(t, fresh.IsNew(now, 24*time.Hour))
	assert.False(t, stale.IsNew(now, 24*time.Hour))
	assert.False(t, unknown.IsNew(now, 24*time.Hour))
}

func TestCategories(t *testing.T) {
	products := []Product{
		{Category: "fruits"},
		{Category: "vegetables"},
		{Category: "fruits"},
		{},
	}
	got := Categories(products)
	assert.ElementsMatch(t, []string{"fruits", "vegetables", UncategorizedCategory}, got)
}

func TestMediaURL(t *testing.T) {
	assert.Equal(t, "http://localhost:5000/uploads/a.jpg", MediaURL("http://localhost:5000", "a.jpg"))
	assert.Equal(t, "", MediaURL("http://localhost:5000", ""))
}

func TestNormalizeProduct(t *testing.T) {
	doc := Document{
		"id":          "p1",
		"name":        "Tomatoes",
		"description": "Fresh",
		"price":       "15.5",
		"location":    "Nairobi",
		"category":    "vegetables",
		"filename":    "tomatoes.jpg",
		"userId":      "farmer-1",
		"whatsapp":    "+254700000000",
		"createdAt":   "2026-08-01T10:00:00Z",
	}
	p := NormalizeProduct(doc)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Tomatoes", p.Name)
	assert.Equal(t, 15.5, p.Price)
	assert.Equal(t, "farmer-1", p.OwnerID)
	assert.Equal(t, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC), p.CreatedAt.UTC())
}

func TestNormalizeProductMissingFields(t *testing.T) {
	p := NormalizeProduct(Document{"id": "p2", "price": map[string]any{}})
	assert.Equal(t, "p2", p.ID)
	assert.Equal(t, "", p.Name)
	assert.Equal(t, 0.0, p.Price)
	assert.True(t, p.CreatedAt.IsZero())
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t,
		time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		ParseTimestamp("2026-08-01T10:00:00Z").UTC(),
	)
	assert.Equal(t,
		time.UnixMilli(1756750000000).UTC(),
		ParseTimestamp(float64(1756750000000)).UTC(),
	)
	assert.True(t, ParseTimestamp("not-a-date").IsZero())
	assert.True(t, ParseTimestamp(nil).IsZero())
}
