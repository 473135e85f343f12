package model

import "strings"

// SourceKind - 콘텐츠 소스 종류
type SourceKind string

const (
	SourceURL    SourceKind = "url"
	SourcePrompt SourceKind = "prompt"
)

// ContentContext - 영상/프롬프트에서 정규화된 콘텐츠 정보 (요청당 1회 생성, 이후 불변)
type ContentContext struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	Tags              []string   `json:"tags"`
	TranscriptExcerpt string     `json:"transcript_excerpt"`
	SourceKind        SourceKind `json:"source_kind"`
	VideoID           string     `json:"video_id,omitempty"`
	Channel           string     `json:"channel,omitempty"`
}

// ReferenceImage - 스타일 참조 이미지 (StyleFormatExtractor 밖으로 나가지 않음)
type ReferenceImage struct {
	Bytes           []byte
	MIMEType        string
	UserDescription string
}

// Release - 참조 이미지 바이트 제거
func (r *ReferenceImage) Release() {
	clear(r.Bytes)
	r.Bytes = nil
}

// FacePhoto - 업로드된 얼굴 사진 (요청 동안 유지, 생성 단계로 전달)
type FacePhoto struct {
	Bytes       []byte
	MIMEType    string
	DisplayName string
}

// PoseSlot - 참조 포맷에서 발견된 인물 위치
type PoseSlot struct {
	Index          int    `json:"index"`
	Position       string `json:"position"`
	Pose           string `json:"pose"`
	ExpressionType string `json:"expression_type"`
	Framing        string `json:"framing"`
}

// FormatDescriptor - 참조 이미지의 레이아웃/색/조명 텍스트 요약
type FormatDescriptor struct {
	Composition   string     `json:"composition"`
	PoseSlots     []PoseSlot `json:"pose_slots"`
	ColorPalette  string     `json:"color_palette"`
	LightingStyle string     `json:"lighting_style"`
	StyleSummary  string     `json:"style_summary"`
	Mood          string     `json:"mood,omitempty"`
	TextStyle     string     `json:"text_style,omitempty"`
}

// NeutralFormat - 스타일 제약 없는 빈 디스크립터
func NeutralFormat() FormatDescriptor {
	return FormatDescriptor{}
}

// IsNeutral - 스타일 정보가 전혀 없는지
func (f FormatDescriptor) IsNeutral() bool {
	return f.Composition == "" && len(f.PoseSlots) == 0 && f.ColorPalette == "" &&
		f.LightingStyle == "" && f.StyleSummary == "" && f.Mood == "" && f.TextStyle == ""
}

// Role - 얼굴 역할
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// RoleForIndex - 업로드 순서로 역할 결정 (0 → primary)
func RoleForIndex(index int) Role {
	if index == 0 {
		return RolePrimary
	}
	return RoleSecondary
}

// Label - 프롬프트용 대문자 라벨
func (r Role) Label() string {
	return strings.ToUpper(string(r))
}

// FaceDescriptor - 얼굴 사진의 역할과 외형 설명
type FaceDescriptor struct {
	Index          int    `json:"index"`
	Role           Role   `json:"role"`
	AppearanceText string `json:"appearance_text"`
}

// ComposedPrompt - 최종 생성 지시문
type ComposedPrompt struct {
	Text                string           `json:"text"`
	FaceDescriptorsUsed []FaceDescriptor `json:"face_descriptors_used"`
	ThumbnailCaption    string           `json:"thumbnail_caption,omitempty"`
}

// GeneratedImage - 생성된 이미지와 배치 내 위치
type GeneratedImage struct {
	Data     []byte
	MIMEType string
	Index    int
}

// OverlayConfig - 캡션 오버레이 설정
type OverlayConfig struct {
	CaptionText string `json:"caption_text"`
	Position    string `json:"position"`
	FontPreset  string `json:"font_preset"`
	ColorPreset string `json:"color_preset"`
	FontSize    int    `json:"font_size,omitempty"`
}

// GenerationResult - 파이프라인 최종 결과
type GenerationResult struct {
	RequestID  string
	Images     []GeneratedImage
	PromptUsed string
	Caption    string
	ElapsedMs  int64
}

// Stage - 오케스트레이터 상태
type Stage string

const (
	StageIdle                  Stage = "idle"
	StageContextResolved       Stage = "context_resolved"
	StageStyleAndFacesAnalyzed Stage = "style_and_faces_analyzed"
	StagePromptComposed        Stage = "prompt_composed"
	StageImagesSynthesized     Stage = "images_synthesized"
	StageOverlaysApplied       Stage = "overlays_applied"
	StageCompleted             Stage = "completed"
	StageFailed                Stage = "failed"
)

// IsTerminal - 종료 상태 여부
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed
}
