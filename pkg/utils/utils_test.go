package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffDoublesAndCaps(t *testing.T) {
	max := 8 * time.Second
	d := time.Second
	d = NextBackoff(d, max)
	assert.Equal(t, 2*time.Second, d)
	d = NextBackoff(d, max)
	assert.Equal(t, 4*time.Second, d)
	d = NextBackoff(d, max)
	assert.Equal(t, 8*time.Second, d)
	// 封顶后不再增长
	d = NextBackoff(d, max)
	assert.Equal(t, 8*time.Second, d)
}

func TestSnowflakeIDIsMonotonic(t *testing.T) {
	gen := NewSnowflakeID(1)
	prev := gen.Generate()
	for i := 0; i < 1000; i++ {
		next := gen.Generate()
		assert.Greater(t, next, prev)
		prev = next
	}
}

func TestJSONRoundHelpers(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	s := ToJSON(payload{Name: "farmhub"})
	assert.Equal(t, `{"name":"farmhub"}`, s)

	var p payload
	assert.NoError(t, FromJSON(s, &p))
	assert.Equal(t, "farmhub", p.Name)
}
