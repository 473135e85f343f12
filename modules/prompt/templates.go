package prompt

import (
	"sort"
	"strings"
)

// Template - 썸네일 스타일 템플릿
type Template struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Description    string `json:"description,omitempty"`
	SystemPrefix   string `json:"-"`
	QualityRules   string `json:"-"`
	ForbiddenRules string `json:"-"`
}

// Instruction - 템플릿 지시문 전체
func (t *Template) Instruction() string {
	var parts []string
	for _, s := range []string{t.SystemPrefix, t.QualityRules, t.ForbiddenRules} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

const genericInstruction = `[YOUTUBE THUMBNAIL ART DIRECTOR]
You design high-engagement YouTube thumbnails that win the click in a crowded feed.

KEY ELEMENTS:
- One clear focal point readable at small sizes
- Strong emotion on every face: surprise, excitement, curiosity or tension
- Bold saturated colors with high contrast between subject and background
- Dramatic lighting with rim light separating subjects from the background
- A relevant, slightly blurred background that adds context without clutter`

var builtinTemplates = map[string]*Template{
	"mrbeast": {
		ID:          "mrbeast",
		Name:        "Viral/MrBeast Style",
		Category:    "entertainment",
		Description: "High-energy, viral-style thumbnails with extreme expressions and bold colors",
		SystemPrefix: `[VIRAL ENTERTAINMENT THUMBNAIL]
You create maximum-energy thumbnails for challenge and stunt videos.

KEY ELEMENTS:
- Extreme facial expressions: mouth wide open, eyes wide, hands on head
- Oversaturated primary colors, bright cyan sky or solid color backgrounds
- Huge objects, money stacks or extreme scale contrast to show stakes
- Subjects large in frame, cut out with a thick glow or outline`,
		QualityRules: `
QUALITY REQUIREMENTS:
- Crisp subject edges with strong rim light
- Punchy contrast that survives a tiny mobile preview`,
		ForbiddenRules: `
AVOID:
- Muted or pastel palettes
- Small subjects lost in busy scenes`,
	},
	"educational": {
		ID:          "educational",
		Name:        "Educational/Explainer",
		Category:    "education",
		Description: "Professional, authoritative thumbnails for educational content",
		SystemPrefix: `[EDUCATIONAL EXPLAINER THUMBNAIL]
You create clear, authoritative thumbnails for tutorials and explainers.

KEY ELEMENTS:
- Presenter with a confident, curious or "aha" expression
- One simple diagram, object or symbol that represents the topic
- Clean background with a single accent color
- Generous empty space for a short headline`,
		QualityRules: `
QUALITY REQUIREMENTS:
- Soft studio lighting, professional and trustworthy
- Legible composition with at most three elements`,
		ForbiddenRules: `
AVOID:
- Clickbait shock expressions
- Cluttered collages of many small images`,
	},
	"tech": {
		ID:          "tech",
		Name:        "Tech/Product Review",
		Category:    "technology",
		Description: "Sleek, modern thumbnails for tech and product content",
		SystemPrefix: `[TECH REVIEW THUMBNAIL]
You create sleek thumbnails for product reviews and tech news.

KEY ELEMENTS:
- The product as a hero object, large and sharply lit
- Presenter holding or reacting to the product
- Dark gradient or neon-accented background
- Glossy reflections and cool blue or purple accent lights`,
		QualityRules: `
QUALITY REQUIREMENTS:
- Product details sharp with accurate materials
- Modern minimal composition`,
		ForbiddenRules: `
AVOID:
- Warped or melted product shapes
- Busy desk clutter`,
	},
	"controversy": {
		ID:          "controversy",
		Name:        "Drama/Controversy",
		Category:    "entertainment",
		Description: "Tension-filled, dramatic thumbnails for controversial content",
		SystemPrefix: `[DRAMA THUMBNAIL]
You create tension-filled thumbnails for commentary and drama videos.

KEY ELEMENTS:
- Serious, skeptical or confrontational expressions
- Split composition showing two sides in opposition
- Red and black palette with harsh side lighting
- Warning symbols, arrows or circled details that tease a reveal`,
		QualityRules: `
QUALITY REQUIREMENTS:
- High contrast low-key lighting
- Clear separation between the two sides`,
		ForbiddenRules: `
AVOID:
- Cheerful pastel colors
- Calm neutral expressions`,
	},
	"minimalist": {
		ID:          "minimalist",
		Name:        "Clean/Minimalist",
		Category:    "lifestyle",
		Description: "Clean, aesthetic thumbnails for lifestyle content",
		SystemPrefix: `[MINIMALIST LIFESTYLE THUMBNAIL]
You create calm, aesthetic thumbnails for lifestyle and vlog content.

KEY ELEMENTS:
- Natural soft daylight and muted earthy tones
- Lots of negative space with one subject
- Relaxed genuine expressions
- Simple textures: linen, wood, plants`,
		QualityRules: `
QUALITY REQUIREMENTS:
- Film-like soft color grading
- Balanced composition following the rule of thirds`,
		ForbiddenRules: `
AVOID:
- Neon colors and heavy outlines
- Exaggerated shocked faces`,
	},
}

// BuiltinTemplate - 내장 템플릿 조회
func BuiltinTemplate(id string) (*Template, bool) {
	t, ok := builtinTemplates[strings.ToLower(strings.TrimSpace(id))]
	return t, ok
}

// BuiltinTemplates - 내장 템플릿 목록 (ID 순)
func BuiltinTemplates() []*Template {
	out := make([]*Template, 0, len(builtinTemplates))
	for _, t := range builtinTemplates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
