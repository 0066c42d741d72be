package feed

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/farmhub/internal/catalog/domain"
	"github.com/wyfcoding/farmhub/pkg/cache"
)

// 需要本地 Redis 时通过 FARMHUB_TEST_REDIS=host:port 启用
func testRedis(t *testing.T) *cache.RedisCache {
	t.Helper()
	addr := os.Getenv("FARMHUB_TEST_REDIS")
	if addr == "" {
		t.Skip("FARMHUB_TEST_REDIS not set")
	}
	host, portStr, ok := strings.Cut(addr, ":")
	require.True(t, ok, "FARMHUB_TEST_REDIS must be host:port")
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c, err := cache.New(cache.Config{Host: host, Port: port, MaxPoolSize: 4, ReadTimeout: 3, WriteTimeout: 3})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRedisChangeFeedRoundTrip(t *testing.T) {
	c := testRedis(t)
	ctx := context.Background()
	ns := fmt.Sprintf("farmhub-test-%d", time.Now().UnixNano())
	f := NewRedisChangeFeed(c, ns)
	t.Cleanup(func() {
		_ = c.Delete(ctx, ns+":collection:products")
	})

	var mu sync.Mutex
	var snapshots [][]domain.Document
	unsub, err := f.Subscribe(ctx, "products", func(docs []domain.Document) {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, docs)
	})
	require.NoError(t, err)
	defer unsub()

	// 订阅建立时先交付一次初始快照（空集合）
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snapshots) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.SetDocument(ctx, "products", "p1", map[string]any{"id": "p1", "name": "Tomatoes", "price": "15"}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		last := snapshots[len(snapshots)-1]
		return len(last) == 1 && last[0]["id"] == "p1"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, f.DeleteDocument(ctx, "products", "p1"))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snapshots[len(snapshots)-1]) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRedisChangeFeedUnsubscribeStopsDelivery(t *testing.T) {
	c := testRedis(t)
	ctx := context.Background()
	ns := fmt.Sprintf("farmhub-test-%d", time.Now().UnixNano())
	f := NewRedisChangeFeed(c, ns)
	t.Cleanup(func() {
		_ = c.Delete(ctx, ns+":collection:products")
	})

	var mu sync.Mutex
	count := 0
	unsub, err := f.Subscribe(ctx, "products", func([]domain.Document) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	}, 2*time.Second, 10*time.Millisecond)

	unsub()
	// 幂等
	unsub()

	mu.Lock()
	before := count
	mu.Unlock()

	require.NoError(t, f.SetDocument(ctx, "products", "p1", map[string]any{"id": "p1"}))
	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	after := count
	mu.Unlock()
	assert.Equal(t, before, after)
}

func TestRedisChangeFeedRejectsNilCallback(t *testing.T) {
	f := NewRedisChangeFeed(nil, "ns")
	_, err := f.Subscribe(context.Background(), "products", nil)
	assert.Error(t, err)
}
