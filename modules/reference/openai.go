package reference

import (
	"context"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"

	"thumbforge-server/modules/common/utils"
)

// OpenAIAnalyzer - OpenAI 호환 비전 모델 분석기
type OpenAIAnalyzer struct {
	client *openai.Client
	model  string
}

// NewOpenAIAnalyzer - baseURL이 비어 있으면 기본 엔드포인트 사용
func NewOpenAIAnalyzer(apiKey, baseURL, model string) *OpenAIAnalyzer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIAnalyzer{client: openai.NewClientWithConfig(cfg), model: model}
}

// AnalyzeJSON - 이미지는 data URI로 첨부, JSON 오브젝트 응답 강제
func (a *OpenAIAnalyzer) AnalyzeJSON(ctx context.Context, req AnalysisRequest) (string, error) {
	parts := make([]openai.ChatMessagePart, 0, len(req.Images)*2+1)
	for _, img := range req.Images {
		if img.Label != "" {
			parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: img.Label})
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    utils.EncodeDataURI(img.Data, img.MIMEType),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: req.Prompt})

	chatReq := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.Instruction},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Temperature:    0.2,
		MaxTokens:      req.MaxTokens,
	}

	log.Printf("🔍 [Analyzer] OpenAI %s: %d image(s)", a.model, len(req.Images))
	resp, err := a.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty analysis response")
	}
	return resp.Choices[0].Message.Content, nil
}
