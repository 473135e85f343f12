package content

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"thumbforge-server/modules/common/cache"
)

// CachedFetcher - 메타데이터 조회 결과를 캐시하는 MetadataFetcher
type CachedFetcher struct {
	next  MetadataFetcher
	store cache.Store
	ttl   time.Duration
}

var _ MetadataFetcher = (*CachedFetcher)(nil)

// NewCachedFetcher - next 앞에 캐시 추가
func NewCachedFetcher(next MetadataFetcher, store cache.Store, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{next: next, store: store, ttl: ttl}
}

// FetchMetadata - 캐시 히트 시 원격 호출 생략, 캐시 오류는 무시
func (c *CachedFetcher) FetchMetadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	if data, found, err := c.store.Get(ctx, videoID); err != nil {
		log.Printf("⚠️  [Content] Metadata cache read failed for %s: %v", videoID, err)
	} else if found {
		var meta VideoMetadata
		if err := json.Unmarshal(data, &meta); err == nil {
			log.Printf("📦 [Content] Metadata cache hit: %s", videoID)
			return &meta, nil
		}
	}

	meta, err := c.next.FetchMetadata(ctx, videoID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(meta); err == nil {
		if err := c.store.Set(ctx, videoID, data, c.ttl); err != nil {
			log.Printf("⚠️  [Content] Metadata cache write failed for %s: %v", videoID, err)
		}
	}
	return meta, nil
}
