package reference

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/genai"

	"thumbforge-server/modules/common/gemini"
)

// GeminiAnalyzer - Gemini 멀티모달 분석기
type GeminiAnalyzer struct {
	pool  *gemini.Pool
	model string
}

// NewGeminiAnalyzer - Gemini 분석기 생성
func NewGeminiAnalyzer(pool *gemini.Pool, model string) *GeminiAnalyzer {
	return &GeminiAnalyzer{pool: pool, model: model}
}

// AnalyzeJSON - 이미지 + 지시문 전송 후 JSON 응답 텍스트 반환
func (a *GeminiAnalyzer) AnalyzeJSON(ctx context.Context, req AnalysisRequest) (string, error) {
	parts := make([]*genai.Part, 0, len(req.Images)*2+1)
	for _, img := range req.Images {
		if img.Label != "" {
			parts = append(parts, genai.NewPartFromText(img.Label))
		}
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	parts = append(parts, genai.NewPartFromText(req.Prompt))

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(req.Instruction)}},
		ResponseMIMEType:  "application/json",
		Temperature:       gemini.FloatPtr(0.2),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	log.Printf("🔍 [Analyzer] Gemini %s: %d image(s)", a.model, len(req.Images))
	resp, err := a.pool.GenerateContentWithRetry(ctx, a.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", err
	}
	if reason := gemini.BlockReason(resp); reason != "" {
		return "", fmt.Errorf("analysis blocked: %s", reason)
	}

	text := gemini.ResponseText(resp)
	if text == "" {
		return "", fmt.Errorf("empty analysis response")
	}
	return text, nil
}
