package prompt

import (
	"fmt"
	"strings"

	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/textguard"
	"thumbforge-server/modules/common/utils"
)

const (
	maxDescriptionRunes = 500
	maxTags             = 10
	maxTranscriptRunes  = 2000
)

// QualityTokens - 프롬프트에 없으면 덧붙이는 품질 토큰
var QualityTokens = []string{
	"4k resolution",
	"sharp focus",
	"professional photography",
	"vibrant colors",
}

// Input - 프롬프트 조합 입력
type Input struct {
	Content  model.ContentContext
	Format   model.FormatDescriptor
	Faces    []model.FaceDescriptor
	Template *Template

	WantCaption     bool
	ExplicitCaption string
	Overlay         bool
	OverlayPosition string
}

// Compose - 콘텐츠, 포맷, 얼굴 정보를 하나의 생성 지시문으로 결합 (I/O 없음)
func Compose(in Input) model.ComposedPrompt {
	var caption string
	if in.WantCaption || strings.TrimSpace(in.ExplicitCaption) != "" {
		caption = DeriveCaption(in.ExplicitCaption, in.Content.Title)
	}

	sections := []string{
		baseInstruction(in.Template),
		contentSection(in.Content),
		formatSection(in.Format),
		peopleSection(in.Faces, in.Format.PoseSlots),
		textSection(caption, in.Overlay, in.OverlayPosition, in.Format.TextStyle),
	}

	var sb strings.Builder
	for _, s := range sections {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(s)
	}
	text := textguard.RewriteImageReferences(EnhanceWithQualityTokens(sb.String()))

	used := make([]model.FaceDescriptor, len(in.Faces))
	copy(used, in.Faces)
	return model.ComposedPrompt{
		Text:                text,
		FaceDescriptorsUsed: used,
		ThumbnailCaption:    caption,
	}
}

// EnhanceWithQualityTokens - 이미 포함된 토큰은 건너뜀
func EnhanceWithQualityTokens(text string) string {
	lower := strings.ToLower(text)
	var missing []string
	for _, token := range QualityTokens {
		if !strings.Contains(lower, token) {
			missing = append(missing, token)
		}
	}
	if len(missing) == 0 {
		return text
	}
	return text + "\n\nQUALITY: " + strings.Join(missing, ", ")
}

func baseInstruction(t *Template) string {
	if t != nil {
		if s := t.Instruction(); s != "" {
			return s
		}
	}
	return genericInstruction
}

func contentSection(c model.ContentContext) string {
	var sb strings.Builder
	if c.SourceKind == model.SourcePrompt {
		sb.WriteString("THUMBNAIL TOPIC:\n")
		sb.WriteString(c.Title)
		return sb.String()
	}

	sb.WriteString("VIDEO CONTENT:\n")
	fmt.Fprintf(&sb, "Title: %s\n", c.Title)
	if c.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", utils.TruncateRunes(c.Description, maxDescriptionRunes))
	}
	if len(c.Tags) > 0 {
		tags := c.Tags
		if len(tags) > maxTags {
			tags = tags[:maxTags]
		}
		fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(tags, ", "))
	}
	if c.TranscriptExcerpt != "" {
		fmt.Fprintf(&sb, "Transcript excerpt: %s\n", utils.TruncateRunes(c.TranscriptExcerpt, maxTranscriptRunes))
	}
	return sb.String()
}

func formatSection(f model.FormatDescriptor) string {
	if f.IsNeutral() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("FORMAT TO MATCH (recreate this layout, palette and lighting with the people listed below):\n")
	line := func(label, v string) {
		if v = strings.TrimSpace(v); v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, v)
		}
	}
	line("Composition", f.Composition)
	line("Color palette", f.ColorPalette)
	line("Lighting", f.LightingStyle)
	line("Mood", f.Mood)
	line("Text styling", f.TextStyle)
	line("Overall look", f.StyleSummary)
	return sb.String()
}

func peopleSection(faces []model.FaceDescriptor, slots []model.PoseSlot) string {
	if len(faces) == 0 {
		if len(slots) == 0 {
			return ""
		}
		return "PEOPLE:\nAny people shown must be generic figures that do not resemble real individuals."
	}

	var sb strings.Builder
	sb.WriteString("PEOPLE (identity comes from the attached face photos):\n")
	for i, face := range faces {
		fmt.Fprintf(&sb, "PERSON %d (%s, face photo %d): %s", i+1, face.Role.Label(), i+1, strings.TrimSpace(face.AppearanceText))
		if i < len(slots) {
			sb.WriteString(" " + slotClause(face.Role, slots[i]))
		} else if face.Role == model.RolePrimary {
			sb.WriteString(" Place this person as the dominant focal subject.")
		} else {
			sb.WriteString(" Place this person beside the primary person.")
		}
		sb.WriteString("\n")
	}

	n := len(faces)
	if n == 1 {
		sb.WriteString("Use ONLY this person.")
	} else {
		fmt.Fprintf(&sb, "Use ONLY these %d people.", n)
	}
	sb.WriteString(" Never introduce anyone implied by the format description. Each listed person appears exactly once.")
	if extra := len(slots) - n; extra > 0 {
		fmt.Fprintf(&sb, " The format has %d more character %s; leave %s empty.",
			extra, plural(extra, "position", "positions"), plural(extra, "it", "them"))
	}
	return sb.String()
}

func slotClause(role model.Role, slot model.PoseSlot) string {
	var parts []string
	if role == model.RolePrimary {
		parts = append(parts, "dominant position")
	}
	if slot.Position != "" {
		parts = append(parts, "position "+slot.Position)
	}
	if slot.Pose != "" {
		parts = append(parts, "pose "+slot.Pose)
	}
	if slot.ExpressionType != "" {
		parts = append(parts, slot.ExpressionType+" expression")
	}
	if slot.Framing != "" {
		parts = append(parts, "framing "+slot.Framing)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Fills character slot %d.", slot.Index+1)
	}
	return fmt.Sprintf("Fills character slot %d: %s.", slot.Index+1, strings.Join(parts, "; "))
}

func textSection(caption string, overlay bool, position, textStyle string) string {
	if overlay {
		return fmt.Sprintf("TEXT AREA:\nDo not render any text, letters or logos. Keep the %s of the frame clean and uncluttered for a headline added later.",
			textFreeArea(position))
	}
	if caption == "" {
		return ""
	}
	s := fmt.Sprintf("TEXT:\nRender the headline '%s' in large bold letters with high contrast, away from faces.", caption)
	if textStyle != "" {
		s += " Style it as: " + textStyle + "."
	}
	return s
}

func textFreeArea(position string) string {
	switch {
	case strings.HasPrefix(position, "top"):
		return "top third"
	case position == "center":
		return "central band"
	default:
		return "bottom third"
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
