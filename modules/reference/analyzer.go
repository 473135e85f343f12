package reference

import "context"

// ImageInput - 분석 요청에 첨부되는 이미지 한 장
type ImageInput struct {
	Data     []byte
	MIMEType string
	Label    string // 이미지 바로 앞에 붙는 텍스트 (예: "PERSON 1 (PRIMARY)")
}

// AnalysisRequest - 비전 모델 JSON 분석 요청
type AnalysisRequest struct {
	Instruction string
	Images      []ImageInput
	Prompt      string
	MaxTokens   int
}

// VisionAnalyzer - 이미지와 지시문을 받아 JSON 텍스트를 돌려주는 비전 모델
type VisionAnalyzer interface {
	AnalyzeJSON(ctx context.Context, req AnalysisRequest) (string, error)
}
