package overlay

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/utils"
)

const (
	gradientOpacity     = 0.5
	gradientHeightRatio = 0.35
	shadowOffset        = 4
	shadowAlpha         = 128
	strokeWidth         = 5
	maxWidthRatio       = 0.9
	edgeMargin          = 10
	minFontSize         = 24
)

// Compositor - 생성 이미지에 캡션 오버레이
type Compositor struct {
	format  string
	quality float32
}

// NewCompositor - format은 png 또는 webp
func NewCompositor(format string, quality float32) *Compositor {
	if format == "" {
		format = "png"
	}
	return &Compositor{format: format, quality: quality}
}

// Apply - 이미지별 병렬 처리, 디코딩 실패 이미지는 그대로 반환
func (c *Compositor) Apply(ctx context.Context, images []model.GeneratedImage, cfg model.OverlayConfig) ([]model.GeneratedImage, error) {
	if strings.TrimSpace(cfg.CaptionText) == "" {
		return images, nil
	}

	out := make([]model.GeneratedImage, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i, img := range images {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, mime, err := c.Render(img.Data, cfg)
			if err != nil {
				log.Printf("⚠️ [Overlay] Image %d left unchanged: %v", img.Index, err)
				out[i] = img
				return nil
			}
			out[i] = model.GeneratedImage{Data: data, MIMEType: mime, Index: img.Index}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Printf("✅ [Overlay] Caption applied to %d image(s)", len(out))
	return out, nil
}

// Render - 단일 이미지에 그라데이션 + 캡션 렌더링 (크기 유지)
func (c *Compositor) Render(data []byte, cfg model.OverlayConfig) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, bounds.Min, draw.Src)

	style := ResolveStyle(cfg.FontPreset, cfg.ColorPreset, cfg.Position)
	drawGradient(canvas, strings.HasPrefix(style.Position, "top"))
	if err := drawCaption(canvas, strings.ToUpper(strings.TrimSpace(cfg.CaptionText)), style, cfg.FontSize); err != nil {
		return nil, "", err
	}

	return utils.EncodeImage(canvas, c.format, c.quality)
}

// AutoFontSize - 높이의 12%, 긴 텍스트는 축소, 최소 24px
func AutoFontSize(height int, text string) int {
	size := int(float64(height) * 0.12)
	n := utf8.RuneCountInString(text)
	if n > 20 {
		size = int(float64(size) * 0.8)
	}
	if n > 30 {
		size = int(float64(size) * 0.7)
	}
	if size < minFontSize {
		size = minFontSize
	}
	return size
}

func drawGradient(canvas *image.RGBA, top bool) {
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	gh := int(float64(h) * gradientHeightRatio)
	if gh <= 0 {
		return
	}
	for y := 0; y < gh; y++ {
		var row int
		var ratio float64
		if top {
			row = y
			ratio = 1 - float64(y)/float64(gh)
		} else {
			row = h - gh + y
			ratio = float64(y) / float64(gh)
		}
		alpha := uint8(255 * gradientOpacity * ratio)
		shade := image.NewUniform(color.NRGBA{0, 0, 0, alpha})
		draw.Draw(canvas, image.Rect(0, row, w, row+1), shade, image.Point{}, draw.Over)
	}
}

func drawCaption(canvas *image.RGBA, text string, style Style, fontSize int) error {
	if text == "" {
		return nil
	}
	w, h := canvas.Bounds().Dx(), canvas.Bounds().Dy()
	if fontSize <= 0 {
		fontSize = AutoFontSize(h, text)
	}

	f, err := loadFont(style.FontName)
	if err != nil {
		return fmt.Errorf("failed to load font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(fontSize), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	lines := wrapText(face, text, int(float64(w)*maxWidthRatio))
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	ascent := metrics.Ascent.Ceil()

	blockW := 0
	widths := make([]int, len(lines))
	for i, line := range lines {
		widths[i] = font.MeasureString(face, line).Ceil()
		if widths[i] > blockW {
			blockW = widths[i]
		}
	}
	blockH := lineHeight * len(lines)

	x := int(float64(w)*style.anchor.X) - blockW/2
	y := int(float64(h)*style.anchor.Y) - blockH/2
	x = clamp(x, edgeMargin, w-blockW-edgeMargin)
	y = clamp(y, edgeMargin, h-blockH-edgeMargin)

	drawLines := func(dx, dy int, c color.Color) {
		d := &font.Drawer{Dst: canvas, Src: image.NewUniform(c), Face: face}
		for i, line := range lines {
			lx := x + (blockW-widths[i])/2 + dx
			ly := y + ascent + i*lineHeight + dy
			d.Dot = fixed.P(lx, ly)
			d.DrawString(line)
		}
	}

	shadow := style.Colors.Shadow
	drawLines(shadowOffset, shadowOffset, color.NRGBA{shadow.R, shadow.G, shadow.B, shadowAlpha})
	for dx := -strokeWidth; dx <= strokeWidth; dx++ {
		for dy := -strokeWidth; dy <= strokeWidth; dy++ {
			if dx*dx+dy*dy <= strokeWidth*strokeWidth {
				drawLines(dx, dy, style.Colors.Stroke)
			}
		}
	}
	drawLines(0, 0, style.Colors.Fill)
	return nil
}

func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// clamp - 좌측/상단 여백 우선 (텍스트가 더 넓으면 lo)
func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
