package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/fallback"
	"thumbforge-server/modules/common/model"
)

const (
	// MaxFacePhotos - 요청당 얼굴 사진 상한
	MaxFacePhotos = 3
	faceStage     = "faces"
	faceMaxTokens = 1500
)

// FaceClassifier - 얼굴 사진별 역할 부여 및 외형 설명
type FaceClassifier struct {
	analyzer VisionAnalyzer
	timeout  time.Duration
}

// NewFaceClassifier - timeout이 0이면 호출자 컨텍스트만 따름
func NewFaceClassifier(analyzer VisionAnalyzer, timeout time.Duration) *FaceClassifier {
	return &FaceClassifier{analyzer: analyzer, timeout: timeout}
}

type faceAnalysis struct {
	Faces []struct {
		Index       interface{} `json:"index"`
		Role        string      `json:"role"`
		Description string      `json:"description"`
	} `json:"faces"`
	CombinedDescription string `json:"combined_description"`
}

// FaceLabel - 분석/생성 요청에서 얼굴 사진 앞에 붙는 라벨
func FaceLabel(index int) string {
	role := model.RoleForIndex(index)
	if role == model.RolePrimary {
		return fmt.Sprintf("PERSON %d (PRIMARY - main character)", index+1)
	}
	return fmt.Sprintf("PERSON %d (SECONDARY - supporting)", index+1)
}

// Classify - 얼굴 사진 N장에 대해 정확히 N개의 디스크립터 반환 (모든 사진을 한 번에 분석)
func (c *FaceClassifier) Classify(ctx context.Context, faces []model.FacePhoto) ([]model.FaceDescriptor, error) {
	if len(faces) == 0 {
		return []model.FaceDescriptor{}, nil
	}
	if len(faces) > MaxFacePhotos {
		return nil, apperr.Validation("at most %d face photos allowed, got %d", MaxFacePhotos, len(faces))
	}
	if c.analyzer == nil {
		return nil, apperr.Configuration(faceStage, "no analysis backend configured")
	}

	req := AnalysisRequest{
		Instruction: faceInstruction,
		Prompt:      fmt.Sprintf("There are exactly %d people. %s", len(faces), faceRequest),
		MaxTokens:   faceMaxTokens,
	}
	for i, face := range faces {
		if len(face.Bytes) == 0 {
			return nil, apperr.Validation("face photo %d is empty", i+1)
		}
		req.Images = append(req.Images, ImageInput{Data: face.Bytes, MIMEType: face.MIMEType, Label: FaceLabel(i)})
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log.Printf("👤 [Faces] Analyzing %d face photo(s) in one request", len(faces))
	raw, err := c.analyzer.AnalyzeJSON(ctx, req)
	if err != nil {
		return nil, apperr.Analysis(faceStage, err, "face analysis failed")
	}

	descriptors, err := ParseFaces(raw, len(faces))
	if err != nil {
		return nil, err
	}
	log.Printf("✅ [Faces] %d descriptor(s) ready", len(descriptors))
	return descriptors, nil
}

// ParseFaces - 응답이 사진 수와 정확히 일치해야 성공
// 모든 항목에 index가 없으면 응답 순서를 업로드 순서로 간주
func ParseFaces(raw string, expected int) ([]model.FaceDescriptor, error) {
	body, ok := fallback.ExtractJSONObject(raw)
	if !ok {
		return nil, apperr.Analysis(faceStage, nil, "face analysis returned no JSON object")
	}
	var a faceAnalysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return nil, apperr.Analysis(faceStage, err, "face analysis JSON malformed")
	}
	if len(a.Faces) != expected {
		return nil, apperr.Analysis(faceStage, nil, "face analysis returned %d description(s) for %d photo(s)", len(a.Faces), expected)
	}

	indexed := 0
	for _, f := range a.Faces {
		if fallback.SafeInt(f.Index, 0) > 0 {
			indexed++
		}
	}
	if indexed != 0 && indexed != expected {
		return nil, apperr.Analysis(faceStage, nil, "face analysis indexes incomplete")
	}

	out := make([]model.FaceDescriptor, expected)
	seen := make([]bool, expected)
	for pos, f := range a.Faces {
		idx := pos
		if indexed > 0 {
			idx = fallback.SafeInt(f.Index, 0) - 1
		}
		if idx < 0 || idx >= expected {
			return nil, apperr.Analysis(faceStage, nil, "face analysis index %d out of range", idx+1)
		}
		if seen[idx] {
			return nil, apperr.Analysis(faceStage, nil, "face analysis index %d duplicated", idx+1)
		}
		desc := strings.TrimSpace(f.Description)
		if desc == "" {
			return nil, apperr.Analysis(faceStage, nil, "face analysis description %d empty", idx+1)
		}
		seen[idx] = true
		out[idx] = model.FaceDescriptor{
			Index:          idx,
			Role:           model.RoleForIndex(idx),
			AppearanceText: desc,
		}
	}
	return out, nil
}
