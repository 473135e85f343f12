package content

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/utils"
)

// 다운스트림 모델 컨텍스트 제한
const (
	MaxDescriptionRunes = 1000
	MaxTranscriptRunes  = 5000
	MaxTags             = 20
	MaxPromptRunes      = 2000
)

// Resolver - ContentContext 생성 (재시도 없음)
type Resolver struct {
	metadata    MetadataFetcher
	transcripts TranscriptFetcher
}

// NewResolver - metadata가 nil이면 url 요청은 CONFIGURATION_ERROR
func NewResolver(metadata MetadataFetcher, transcripts TranscriptFetcher) *Resolver {
	return &Resolver{metadata: metadata, transcripts: transcripts}
}

// Resolve - sourceKind에 따라 로케이터 또는 프롬프트를 정규화
func (r *Resolver) Resolve(ctx context.Context, kind model.SourceKind, input string) (model.ContentContext, error) {
	switch kind {
	case model.SourcePrompt:
		return FromPrompt(input)
	case model.SourceURL:
		return r.resolveURL(ctx, input)
	default:
		return model.ContentContext{}, apperr.Validation("unknown source kind %q", kind)
	}
}

// Validate - 네트워크 호출 없이 입력 형식만 검사
func Validate(kind model.SourceKind, input string) error {
	switch kind {
	case model.SourcePrompt:
		_, err := FromPrompt(input)
		return err
	case model.SourceURL:
		_, err := ExtractVideoID(input)
		return err
	}
	return apperr.Validation("unknown source kind %q", kind)
}

// FromPrompt - 프롬프트를 제목/설명으로 사용
func FromPrompt(prompt string) (model.ContentContext, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return model.ContentContext{}, apperr.Validation("prompt is required")
	}
	if len([]rune(trimmed)) > MaxPromptRunes {
		return model.ContentContext{}, apperr.Validation("prompt too long (max %d characters)", MaxPromptRunes)
	}
	return model.ContentContext{
		Title:       trimmed,
		Description: trimmed,
		Tags:        []string{},
		SourceKind:  model.SourcePrompt,
	}, nil
}

func (r *Resolver) resolveURL(ctx context.Context, locator string) (model.ContentContext, error) {
	videoID, err := ExtractVideoID(locator)
	if err != nil {
		return model.ContentContext{}, err
	}
	if r.metadata == nil {
		return model.ContentContext{}, apperr.Configuration("content", "video metadata lookup is not configured (YOUTUBE_API_KEY)")
	}

	log.Printf("🎬 [Content] Resolving video %s", videoID)

	var (
		meta       *VideoMetadata
		transcript string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := r.metadata.FetchMetadata(gctx, videoID)
		if err != nil {
			return err
		}
		meta = m
		return nil
	})
	if r.transcripts != nil {
		g.Go(func() error {
			t, err := r.transcripts.FetchTranscript(gctx, videoID)
			if err != nil {
				// 자막 없음은 에러가 아님
				log.Printf("⚠️  [Content] Transcript unavailable for %s: %v", videoID, err)
				return nil
			}
			transcript = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if apperr.CodeOf(err) != apperr.CodeInternal {
			return model.ContentContext{}, err
		}
		return model.ContentContext{}, fmt.Errorf("metadata lookup for %s failed: %w", videoID, err)
	}

	tags := meta.Tags
	if len(tags) > MaxTags {
		tags = tags[:MaxTags]
	}

	cc := model.ContentContext{
		Title:             meta.Title,
		Description:       utils.TruncateRunes(meta.Description, MaxDescriptionRunes),
		Tags:              append(make([]string, 0, len(tags)), tags...),
		TranscriptExcerpt: utils.TruncateRunes(transcript, MaxTranscriptRunes),
		SourceKind:        model.SourceURL,
		VideoID:           videoID,
		Channel:           meta.Channel,
	}

	log.Printf("✅ [Content] Resolved \"%s\" (tags: %d, transcript: %d chars)",
		utils.TruncateForLog(cc.Title, 50), len(cc.Tags), len([]rune(cc.TranscriptExcerpt)))
	return cc, nil
}
