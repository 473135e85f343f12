package reference

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/fallback"
	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/textguard"
)

const (
	// MaxReferenceImages - 요청당 참조 이미지 상한
	MaxReferenceImages = 5
	styleStage         = "style"
	styleMaxTokens     = 2048
)

var placeholderPattern = regexp.MustCompile(`\[(PRIMARY_PERSON|SECONDARY_PERSON(?:_(\d+))?)\]`)

// StyleExtractor - 참조 이미지를 텍스트 포맷 디스크립터로 변환
type StyleExtractor struct {
	analyzer VisionAnalyzer
	timeout  time.Duration
}

// NewStyleExtractor - timeout이 0이면 호출자 컨텍스트만 따름
func NewStyleExtractor(analyzer VisionAnalyzer, timeout time.Duration) *StyleExtractor {
	return &StyleExtractor{analyzer: analyzer, timeout: timeout}
}

type poseEntry struct {
	Position       string `json:"position"`
	Pose           string `json:"pose"`
	ExpressionType string `json:"expression_type"`
	EyeDirection   string `json:"eye_direction"`
}

type styleAnalysis struct {
	Composition *struct {
		LayoutType      string           `json:"layout_type"`
		PersonCount     interface{}      `json:"person_count"`
		PersonPositions fallback.Strings `json:"person_positions"`
		PersonSize      string           `json:"person_size"`
		BackgroundZones fallback.Strings `json:"background_zones"`
	} `json:"composition"`
	PoseFormat *struct {
		PrimaryPerson   *poseEntry  `json:"primary_person"`
		SecondaryPeople []poseEntry `json:"secondary_people"`
	} `json:"pose_format"`
	TextElements []struct {
		Position  string `json:"position"`
		FontStyle string `json:"font_style"`
		FontSize  string `json:"font_size"`
		Color     string `json:"color"`
		Effects   string `json:"effects"`
	} `json:"text_elements"`
	GraphicElements []struct {
		Type     string `json:"type"`
		Position string `json:"position"`
		Size     string `json:"size"`
	} `json:"graphic_elements"`
	Colors *struct {
		Primary    string           `json:"primary"`
		Secondary  string           `json:"secondary"`
		Accent     string           `json:"accent"`
		Background fallback.Strings `json:"background"`
		TextColors fallback.Strings `json:"text_colors"`
	} `json:"colors"`
	LightingStyle string `json:"lighting_style"`
	Mood          string `json:"mood"`
	FormatPrompt  string `json:"format_prompt"`
}

// Extract - 참조 이미지 0장이면 중립 디스크립터, 분석기 호출은 최대 1회
func (e *StyleExtractor) Extract(ctx context.Context, refs []model.ReferenceImage) (model.FormatDescriptor, error) {
	if len(refs) == 0 {
		return model.NeutralFormat(), nil
	}
	if len(refs) > MaxReferenceImages {
		return model.FormatDescriptor{}, apperr.Validation("at most %d reference images allowed, got %d", MaxReferenceImages, len(refs))
	}
	if e.analyzer == nil {
		return model.FormatDescriptor{}, apperr.Configuration(styleStage, "no analysis backend configured")
	}

	req := AnalysisRequest{
		Instruction: styleInstruction,
		Prompt:      styleRequest,
		MaxTokens:   styleMaxTokens,
	}
	for i, ref := range refs {
		if len(ref.Bytes) == 0 {
			return model.FormatDescriptor{}, apperr.Validation("reference image %d is empty", i+1)
		}
		label := fmt.Sprintf("THUMBNAIL %d", i+1)
		if note := strings.TrimSpace(ref.UserDescription); note != "" {
			label += " (note: " + note + ")"
		}
		req.Images = append(req.Images, ImageInput{Data: ref.Bytes, MIMEType: ref.MIMEType, Label: label})
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log.Printf("🎨 [Style] Analyzing %d reference image(s)", len(refs))
	raw, err := e.analyzer.AnalyzeJSON(ctx, req)
	if err != nil {
		return model.FormatDescriptor{}, apperr.Analysis(styleStage, err, "style analysis failed")
	}

	desc, err := ParseStyle(raw)
	if err != nil {
		return model.FormatDescriptor{}, err
	}
	log.Printf("✅ [Style] Extracted format: %d pose slot(s)", len(desc.PoseSlots))
	return desc, nil
}

// ParseStyle - 분석 JSON을 디스크립터로 변환 (신원 정보 제거)
func ParseStyle(raw string) (model.FormatDescriptor, error) {
	body, ok := fallback.ExtractJSONObject(raw)
	if !ok {
		return model.FormatDescriptor{}, apperr.Analysis(styleStage, nil, "style analysis returned no JSON object")
	}
	var a styleAnalysis
	if err := json.Unmarshal([]byte(body), &a); err != nil {
		return model.FormatDescriptor{}, apperr.Analysis(styleStage, err, "style analysis JSON malformed")
	}
	if a.Composition == nil {
		return model.FormatDescriptor{}, apperr.Analysis(styleStage, nil, "style analysis missing composition")
	}
	if strings.TrimSpace(a.Composition.LayoutType) == "" {
		return model.FormatDescriptor{}, apperr.Analysis(styleStage, nil, "style analysis missing composition.layout_type")
	}

	desc := model.FormatDescriptor{
		Composition:   textguard.Clean(a.compositionText()),
		PoseSlots:     a.poseSlots(),
		ColorPalette:  textguard.Clean(a.paletteText()),
		LightingStyle: textguard.Clean(a.LightingStyle),
		StyleSummary:  textguard.Clean(replacePlaceholders(a.FormatPrompt)),
		Mood:          textguard.Clean(a.Mood),
		TextStyle:     textguard.Clean(a.textStyleText()),
	}
	if desc.IsNeutral() {
		return model.FormatDescriptor{}, apperr.Analysis(styleStage, nil, "style analysis produced no usable fields")
	}
	return desc, nil
}

func (a *styleAnalysis) compositionText() string {
	var parts []string
	if c := a.Composition; c != nil {
		if c.LayoutType != "" {
			parts = append(parts, c.LayoutType+" layout")
		}
		if n := fallback.SafeInt(c.PersonCount, 0); n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, plural(n, "person", "people")))
		}
		if pos := c.PersonPositions.Join(", "); pos != "" {
			parts = append(parts, "positions "+pos)
		}
		if c.PersonSize != "" {
			parts = append(parts, "person size "+c.PersonSize)
		}
		if bg := c.BackgroundZones.Join(", "); bg != "" {
			parts = append(parts, "background "+bg)
		}
	}
	for _, g := range a.GraphicElements {
		if g.Type == "" {
			continue
		}
		s := g.Type
		if g.Position != "" {
			s += " at " + g.Position
		}
		if g.Size != "" {
			s += " (" + g.Size + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "; ")
}

func (a *styleAnalysis) poseSlots() []model.PoseSlot {
	var slots []model.PoseSlot
	framing := ""
	if a.Composition != nil {
		framing = a.Composition.PersonSize
	}

	if a.PoseFormat != nil {
		if p := a.PoseFormat.PrimaryPerson; p != nil {
			f := framing
			if p.EyeDirection != "" {
				if f != "" {
					f += ", "
				}
				f += "eyes " + p.EyeDirection
			}
			slots = append(slots, newSlot(len(slots), *p, f))
		}
		for _, s := range a.PoseFormat.SecondaryPeople {
			slots = append(slots, newSlot(len(slots), s, ""))
		}
	}

	// 포즈 정보 없이 위치만 있는 인물
	if a.Composition != nil {
		positions := a.Composition.PersonPositions
		for len(slots) < len(positions) {
			slots = append(slots, model.PoseSlot{Index: len(slots), Position: textguard.Clean(positions[len(slots)])})
		}
	}
	return slots
}

func newSlot(index int, p poseEntry, framing string) model.PoseSlot {
	return model.PoseSlot{
		Index:          index,
		Position:       textguard.Clean(p.Position),
		Pose:           textguard.Clean(p.Pose),
		ExpressionType: textguard.Clean(p.ExpressionType),
		Framing:        textguard.Clean(framing),
	}
}

func (a *styleAnalysis) paletteText() string {
	c := a.Colors
	if c == nil {
		return ""
	}
	var parts []string
	add := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, label+" "+v)
		}
	}
	add("primary", c.Primary)
	add("secondary", c.Secondary)
	add("accent", c.Accent)
	add("background", c.Background.Join(" / "))
	add("text", c.TextColors.Join(" / "))
	return strings.Join(parts, ", ")
}

func (a *styleAnalysis) textStyleText() string {
	var parts []string
	for _, t := range a.TextElements {
		fields := []string{}
		for _, v := range []string{t.FontSize, t.FontStyle, t.Color} {
			if v = strings.TrimSpace(v); v != "" {
				fields = append(fields, v)
			}
		}
		s := strings.Join(fields, " ") + " text"
		if t.Position != "" {
			s += " at " + t.Position
		}
		if t.Effects != "" {
			s += " with " + t.Effects
		}
		parts = append(parts, strings.TrimSpace(s))
	}
	return strings.Join(parts, "; ")
}

func replacePlaceholders(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := placeholderPattern.FindStringSubmatch(m)
		if sub[1] == "PRIMARY_PERSON" {
			return "the primary person"
		}
		if sub[2] != "" {
			return "secondary person " + sub[2]
		}
		return "the secondary person"
	})
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
