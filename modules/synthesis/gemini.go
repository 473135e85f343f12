package synthesis

import (
	"context"
	"errors"
	"log"

	"google.golang.org/genai"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/gemini"
	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/utils"
)

// GeminiBackend - Gemini 이미지 생성 백엔드
type GeminiBackend struct {
	pool  *gemini.Pool
	model string
}

// NewGeminiBackend - 생성은 재시도하지 않으므로 첫 번째 키만 사용
func NewGeminiBackend(pool *gemini.Pool, model string) *GeminiBackend {
	return &GeminiBackend{pool: pool, model: model}
}

// Generate - 변형 1장당 1회 호출. 프롬프트 다음에 얼굴 사진과 라벨을 순서대로 첨부
func (b *GeminiBackend) Generate(ctx context.Context, req Request) ([]model.GeneratedImage, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	for _, face := range req.Faces {
		parts = append(parts,
			genai.NewPartFromBytes(face.Data, face.MIMEType),
			genai.NewPartFromText(face.Label),
		)
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ImageConfig: &genai.ImageConfig{
			AspectRatio: req.AspectRatio,
		},
		Temperature: gemini.FloatPtr(0.9),
	}

	quantity := req.NumVariations
	if quantity < 1 {
		quantity = 1
	}

	log.Printf("🎨 [Synthesis] Gemini %s - ratio: %s, faces: %d, variations: %d, prompt: %s",
		b.model, req.AspectRatio, len(req.Faces), quantity, utils.TruncateForLog(req.Prompt, 80))

	images := make([]model.GeneratedImage, 0, quantity)
	for i := 0; i < quantity; i++ {
		img, err := b.generateOne(ctx, contents, config)
		if err != nil {
			return nil, err
		}
		img.Index = i
		images = append(images, img)
		log.Printf("✅ [Synthesis] Gemini image %d/%d generated", i+1, quantity)
	}
	return images, nil
}

// generateOne - 응답의 첫 번째 이미지만 사용
func (b *GeminiBackend) generateOne(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (model.GeneratedImage, error) {
	resp, err := b.pool.GenerateContentOnce(ctx, b.model, contents, config)
	if err != nil {
		log.Printf("❌ [Synthesis] Gemini API error: %v", err)
		return model.GeneratedImage{}, classifyError(ctx, err)
	}

	found := gemini.ResponseImages(resp)
	if len(found) == 0 {
		if reason := gemini.BlockReason(resp); reason != "" {
			return model.GeneratedImage{}, apperr.UpstreamGeneration(apperr.ReasonPolicy, nil, "image generation blocked by content policy (%s)", reason)
		}
		return model.GeneratedImage{}, apperr.UpstreamGeneration(apperr.ReasonUnknown, nil, "no image generated")
	}

	mime := found[0].MIMEType
	if mime == "" {
		mime = utils.DetectMIMEType(found[0].Data)
	}
	return model.GeneratedImage{Data: found[0].Data, MIMEType: mime}, nil
}

// classifyError - 업스트림 에러를 쿼터/타임아웃/정책/기타로 분류
func classifyError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.UpstreamGeneration(apperr.ReasonTimeout, err, "image generation timed out")
	case gemini.IsRateLimit(err):
		return apperr.UpstreamGeneration(apperr.ReasonQuota, err, "image generation quota exceeded")
	case gemini.IsPolicyRejection(err):
		return apperr.UpstreamGeneration(apperr.ReasonPolicy, err, "image generation rejected by content policy")
	}
	return apperr.UpstreamGeneration(apperr.ReasonUnknown, err, "image generation failed")
}
