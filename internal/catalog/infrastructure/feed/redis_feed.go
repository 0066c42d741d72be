// Package feed 基于 Redis 的变更订阅源实现。
// 集合以哈希存储（field=文档 ID，value=JSON 文档），任何写入都会向对应
// 频道发布一条失效通知；订阅方收到通知后重新拉取整个哈希并以完整快照
// 回调，快照之间不做增量对比。
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wyfcoding/farmhub/internal/catalog/domain"
	"github.com/wyfcoding/farmhub/pkg/cache"
	"github.com/wyfcoding/farmhub/pkg/logger"
)

// RedisChangeFeed 实现 domain.ChangeFeed
type RedisChangeFeed struct {
	cache     *cache.RedisCache
	namespace string
}

// NewRedisChangeFeed 创建 Redis 变更订阅源
func NewRedisChangeFeed(c *cache.RedisCache, namespace string) *RedisChangeFeed {
	if namespace == "" {
		namespace = "farmhub"
	}
	return &RedisChangeFeed{cache: c, namespace: namespace}
}

func (f *RedisChangeFeed) collectionKey(collection string) string {
	return fmt.Sprintf("%s:collection:%s", f.namespace, collection)
}

func (f *RedisChangeFeed) channelKey(collection string) string {
	return fmt.Sprintf("%s:feed:%s", f.namespace, collection)
}

// Subscribe 建立订阅。
// 先同步拉取一次完整快照并交付，再进入通知循环；通知循环与快照交付跑在
// 同一个 goroutine 上，保证回调串行且有序。取消订阅后不再触发任何回调。
func (f *RedisChangeFeed) Subscribe(ctx context.Context, collection string, fn domain.SnapshotFunc) (domain.UnsubscribeFunc, error) {
	if fn == nil {
		return nil, fmt.Errorf("subscribe %s: nil snapshot callback", collection)
	}

	pubsub := f.cache.Subscribe(ctx, f.channelKey(collection))
	// 确认订阅真正建立，失败要显式报给调用方
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", collection, err)
	}

	var revoked atomic.Bool
	deliver := func(loopCtx context.Context) {
		docs, err := f.snapshot(loopCtx, collection)
		if err != nil {
			logger.Error(loopCtx, "feed snapshot failed", "collection", collection, "error", err)
			return
		}
		if revoked.Load() {
			return
		}
		fn(docs)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		deliver(loopCtx)
		ch := pubsub.Channel()
		for {
			select {
			case <-loopCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				deliver(loopCtx)
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			revoked.Store(true)
			cancel()
			_ = pubsub.Close()
			<-done
		})
	}
	return unsubscribe, nil
}

// snapshot 拉取集合当前的全部文档，非 JSON 对象的字段被丢弃并记日志
func (f *RedisChangeFeed) snapshot(ctx context.Context, collection string) ([]domain.Document, error) {
	defer logger.LogDuration(ctx, "feed snapshot loaded", "collection", collection)()

	raw, err := f.cache.HGetAll(ctx, f.collectionKey(collection))
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(raw))
	for id, payload := range raw {
		var doc domain.Document
		if err := json.Unmarshal([]byte(payload), &doc); err != nil {
			logger.Warn(ctx, "feed document is not a JSON object, skipping",
				"collection", collection, "id", id, "error", err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// SetDocument 写入或覆盖一个文档并广播失效通知（供权威端使用）
func (f *RedisChangeFeed) SetDocument(ctx context.Context, collection, id string, doc any) error {
	if err := f.cache.HSetJSON(ctx, f.collectionKey(collection), id, doc); err != nil {
		return fmt.Errorf("set document %s/%s: %w", collection, id, err)
	}
	return f.notify(ctx, collection, id)
}

// DeleteDocument 删除一个文档并广播失效通知
func (f *RedisChangeFeed) DeleteDocument(ctx context.Context, collection, id string) error {
	if err := f.cache.HDel(ctx, f.collectionKey(collection), id); err != nil {
		return fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	return f.notify(ctx, collection, id)
}

func (f *RedisChangeFeed) notify(ctx context.Context, collection, id string) error {
	if err := f.cache.Publish(ctx, f.channelKey(collection), id); err != nil {
		return fmt.Errorf("notify %s: %w", collection, err)
	}
	return nil
}
