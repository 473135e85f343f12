package content

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"thumbforge-server/modules/common/apperr"
)

// VideoMetadata - YouTube 영상 기본 정보
type VideoMetadata struct {
	VideoID     string   `json:"video_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Channel     string   `json:"channel"`
}

// MetadataFetcher - 영상 메타데이터 조회
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, videoID string) (*VideoMetadata, error)
}

// YouTubeFetcher - YouTube Data API v3 기반 메타데이터 조회
type YouTubeFetcher struct {
	service *youtube.Service
}

var _ MetadataFetcher = (*YouTubeFetcher)(nil)

// NewYouTubeFetcher - API 키로 YouTube 서비스 생성
func NewYouTubeFetcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeFetcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YOUTUBE_API_KEY is required")
	}

	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	log.Println("✅ [YouTube] Service initialized")
	return &YouTubeFetcher{service: svc}, nil
}

// FetchMetadata - videos.list 1회 호출
func (f *YouTubeFetcher) FetchMetadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	resp, err := f.service.Videos.List([]string{"snippet"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, apperr.NotFound("content", "video not found: %s", videoID)
		}
		return nil, fmt.Errorf("youtube videos.list failed: %w", err)
	}

	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, apperr.NotFound("content", "video not found: %s", videoID)
	}

	snippet := resp.Items[0].Snippet
	return &VideoMetadata{
		VideoID:     videoID,
		Title:       snippet.Title,
		Description: snippet.Description,
		Tags:        snippet.Tags,
		Channel:     snippet.ChannelTitle,
	}, nil
}
