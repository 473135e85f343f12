package cache

import (
	"context"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"thumbforge-server/modules/common/config"
	"thumbforge-server/modules/common/redis"
)

// Store - 바이트 캐시 (Redis 또는 인메모리)
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*redis.Store)(nil)
)

// Memory - go-cache 기반 프로세스 내 캐시
type Memory struct {
	items *gocache.Cache
}

// NewMemory - 인메모리 캐시 생성
func NewMemory(defaultTTL time.Duration) *Memory {
	return &Memory{items: gocache.New(defaultTTL, 2*defaultTTL)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	data, ok := v.([]byte)
	return data, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.items.Set(key, value, ttl)
	return nil
}

// New - 설정에 따라 Redis 또는 인메모리 캐시 선택
// Redis 연결 실패 시 인메모리로 대체
func New(cfg *config.Config, prefix string) Store {
	if cfg.RedisEnabled() {
		client, err := redis.Connect(cfg)
		if err == nil {
			log.Printf("✅ [Cache] Using Redis cache (prefix: %s)", prefix)
			return redis.NewStore(client, prefix)
		}
		log.Printf("⚠️  [Cache] Redis unavailable, falling back to in-memory cache: %v", err)
	}
	log.Printf("✅ [Cache] Using in-memory cache (prefix: %s)", prefix)
	return NewMemory(cfg.MetadataCacheTTL)
}
