package overlay

import (
	"image/color"
	"sort"
	"strings"
	"sync"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/gofont/gosmallcaps"
	"golang.org/x/image/font/opentype"
)

const (
	DefaultFont     = "impact"
	DefaultColor    = "white_shadow"
	DefaultPosition = "bottom_center"
)

// ColorPreset - 채움/외곽선/그림자 색
type ColorPreset struct {
	Fill   color.RGBA
	Stroke color.RGBA
	Shadow color.RGBA
}

type anchor struct {
	X, Y float64
}

var (
	black = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	white = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}

	colorPresets = map[string]ColorPreset{
		"white_shadow":  {Fill: white, Stroke: black, Shadow: black},
		"yellow_pop":    {Fill: color.RGBA{0xFF, 0xFF, 0x00, 0xFF}, Stroke: black, Shadow: black},
		"red_alert":     {Fill: color.RGBA{0xFF, 0x00, 0x00, 0xFF}, Stroke: white, Shadow: black},
		"blue_trust":    {Fill: color.RGBA{0x00, 0xBF, 0xFF, 0xFF}, Stroke: black, Shadow: black},
		"green_success": {Fill: color.RGBA{0x00, 0xFF, 0x00, 0xFF}, Stroke: black, Shadow: black},
	}

	positionPresets = map[string]anchor{
		"top_left":      {0.05, 0.1},
		"top_center":    {0.5, 0.1},
		"top_right":     {0.95, 0.1},
		"center":        {0.5, 0.5},
		"bottom_left":   {0.05, 0.85},
		"bottom_center": {0.5, 0.85},
		"bottom_right":  {0.95, 0.85},
	}

	fontSources = map[string][]byte{
		"impact":   gobold.TTF,
		"modern":   gomedium.TTF,
		"dramatic": gosmallcaps.TTF,
		"clean":    goregular.TTF,
	}

	fontsOnce sync.Once
	fonts     map[string]*opentype.Font
	fontsErr  error
)

// Style - 프리셋 이름을 실제 값으로 해석한 결과
type Style struct {
	FontName  string
	ColorName string
	Position  string
	Colors    ColorPreset
	anchor    anchor
}

// ResolveStyle - 모르는 프리셋은 기본값으로 대체
func ResolveStyle(fontPreset, colorPreset, position string) Style {
	s := Style{
		FontName:  strings.ToLower(strings.TrimSpace(fontPreset)),
		ColorName: strings.ToLower(strings.TrimSpace(colorPreset)),
		Position:  strings.ToLower(strings.TrimSpace(position)),
	}
	if _, ok := fontSources[s.FontName]; !ok {
		s.FontName = DefaultFont
	}
	colors, ok := colorPresets[s.ColorName]
	if !ok {
		s.ColorName = DefaultColor
		colors = colorPresets[DefaultColor]
	}
	s.Colors = colors
	a, ok := positionPresets[s.Position]
	if !ok {
		s.Position = DefaultPosition
		a = positionPresets[DefaultPosition]
	}
	s.anchor = a
	return s
}

// Presets - 사용 가능한 프리셋 이름 목록
func Presets() map[string][]string {
	out := map[string][]string{}
	for name := range fontSources {
		out["fonts"] = append(out["fonts"], name)
	}
	for name := range colorPresets {
		out["colors"] = append(out["colors"], name)
	}
	for name := range positionPresets {
		out["positions"] = append(out["positions"], name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

func loadFont(name string) (*opentype.Font, error) {
	fontsOnce.Do(func() {
		fonts = make(map[string]*opentype.Font, len(fontSources))
		for n, src := range fontSources {
			f, err := opentype.Parse(src)
			if err != nil {
				fontsErr = err
				return
			}
			fonts[n] = f
		}
	})
	if fontsErr != nil {
		return nil, fontsErr
	}
	return fonts[name], nil
}
