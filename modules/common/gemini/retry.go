package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Pool - API 키별 Genai 클라이언트 묶음 (생성 후 읽기 전용)
type Pool struct {
	clients      []*genai.Client
	maxRetries   int
	retryBackoff time.Duration
}

// Option - Pool 설정
type Option func(*Pool, *genai.ClientConfig)

// WithBaseURL - API 엔드포인트 변경 (프록시/테스트용)
func WithBaseURL(baseURL string) Option {
	return func(_ *Pool, cc *genai.ClientConfig) {
		cc.HTTPOptions.BaseURL = baseURL
	}
}

// WithRetry - 키당 재시도 횟수와 대기 시간
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(p *Pool, _ *genai.ClientConfig) {
		p.maxRetries = maxRetries
		p.retryBackoff = backoff
	}
}

// NewPool - 키 리스트로 클라이언트 풀 생성
func NewPool(ctx context.Context, apiKeys []string, opts ...Option) (*Pool, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("no API keys provided")
	}

	pool := &Pool{maxRetries: 3, retryBackoff: 2 * time.Second}
	for i, apiKey := range apiKeys {
		cc := &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		}
		for _, opt := range opts {
			opt(pool, cc)
		}
		client, err := genai.NewClient(ctx, cc)
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client for key #%d: %w", i+1, err)
		}
		pool.clients = append(pool.clients, client)
	}
	if pool.maxRetries < 1 {
		pool.maxRetries = 1
	}

	log.Printf("✅ [Gemini] Client pool initialized with %d key(s)", len(pool.clients))
	return pool, nil
}

// Primary - 첫 번째 키의 클라이언트
func (p *Pool) Primary() *genai.Client {
	return p.clients[0]
}

// GenerateContentWithRetry - 429 에러 시 여러 API 키로 재시도
// 각 키당 최대 maxRetries번, 429가 아닌 에러는 즉시 반환
func (p *Pool) GenerateContentWithRetry(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for keyIndex, client := range p.clients {
		for attempt := 1; attempt <= p.maxRetries; attempt++ {
			if attempt > 1 {
				log.Printf("   🔄 [Gemini Retry] Attempt %d/%d for key #%d", attempt, p.maxRetries, keyIndex+1)
			}

			result, err := client.Models.GenerateContent(ctx, model, contents, config)
			if err == nil {
				return result, nil
			}
			lastErr = err

			if !IsRateLimit(err) {
				log.Printf("❌ [Gemini Retry] Key #%d failed with non-429 error: %v", keyIndex+1, err)
				return nil, err
			}

			log.Printf("⚠️  [Gemini Retry] Key #%d hit rate limit (429) on attempt %d/%d", keyIndex+1, attempt, p.maxRetries)
			if attempt < p.maxRetries {
				if err := sleepCtx(ctx, p.retryBackoff); err != nil {
					return nil, err
				}
			}
		}
		log.Printf("⚠️  [Gemini Retry] Key #%d exhausted all %d attempts, trying next key...", keyIndex+1, p.maxRetries)
	}

	return nil, fmt.Errorf("all %d API keys exhausted, last error: %w", len(p.clients), lastErr)
}

// GenerateContentOnce - 재시도 없이 첫 번째 키로 한 번만 호출
func (p *Pool) GenerateContentOnce(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	return p.Primary().Models.GenerateContent(ctx, model, contents, config)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusCode - genai APIError에서 HTTP 상태 추출 (없으면 0)
func StatusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code
	}
	return 0
}

// IsRateLimit - 429 Rate Limit / 쿼터 초과 에러인지 확인
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if StatusCode(err) == http.StatusTooManyRequests {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "resource_exhausted")
}

// IsPolicyRejection - 안전 정책 거부인지 확인
func IsPolicyRejection(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "safety") ||
		strings.Contains(errStr, "blocked") ||
		strings.Contains(errStr, "policy")
}

// ResponseText - 응답 텍스트 파트 결합
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
		// 첫 후보만 사용
		break
	}
	return sb.String()
}

// InlineImage - 응답에서 추출된 이미지
type InlineImage struct {
	Data     []byte
	MIMEType string
}

// ResponseImages - 모든 후보의 인라인 이미지 추출 (후보 순서 유지)
func ResponseImages(resp *genai.GenerateContentResponse) []InlineImage {
	if resp == nil {
		return nil
	}
	var images []InlineImage
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				images = append(images, InlineImage{
					Data:     part.InlineData.Data,
					MIMEType: part.InlineData.MIMEType,
				})
			}
		}
	}
	return images
}

// BlockReason - 프롬프트 차단 또는 후보 종료 사유가 안전 정책이면 사유 반환
func BlockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return string(resp.PromptFeedback.BlockReason)
	}
	for _, candidate := range resp.Candidates {
		switch candidate.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent,
			genai.FinishReasonBlocklist, genai.FinishReasonSPII,
			genai.FinishReasonImageSafety:
			return string(candidate.FinishReason)
		}
	}
	return ""
}

// FloatPtr - float32 포인터 헬퍼
func FloatPtr(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
