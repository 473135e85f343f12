package overlay

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbforge-server/modules/common/model"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestRenderKeepsDimensionsAndDrawsCaption(t *testing.T) {
	gray := color.RGBA{0x80, 0x80, 0x80, 0xFF}
	src := solidPNG(t, 320, 180, gray)

	out, mime, err := NewCompositor("png", 0).Render(src, model.OverlayConfig{CaptionText: "big win", Position: "bottom_center"})
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)

	img := decode(t, out)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 180, img.Bounds().Dy())

	// 상단은 그대로, 하단 그라데이션 영역은 어두워짐
	r, _, _, _ := img.At(160, 5).RGBA()
	assert.Equal(t, uint32(0x8080), r)
	r, _, _, _ = img.At(2, 178).RGBA()
	assert.Less(t, r, uint32(0x8080))

	changed := false
	for y := 100; y < 180 && !changed; y++ {
		for x := 0; x < 320; x++ {
			if c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA); c.R == 0xFF && c.G == 0xFF && c.B == 0xFF {
				changed = true
				break
			}
		}
	}
	assert.True(t, changed, "expected white caption pixels near the bottom")
}

func TestApplyLeavesUndecodableImagesUnchanged(t *testing.T) {
	good := solidPNG(t, 64, 64, color.White)
	images := []model.GeneratedImage{
		{Data: []byte("not an image"), MIMEType: "image/png", Index: 0},
		{Data: good, MIMEType: "image/png", Index: 1},
	}

	out, err := NewCompositor("png", 0).Apply(context.Background(), images, model.OverlayConfig{CaptionText: "hi there"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, []byte("not an image"), out[0].Data)
	assert.Equal(t, 1, out[1].Index)
	assert.NotEqual(t, good, out[1].Data)
	assert.Equal(t, 64, decode(t, out[1].Data).Bounds().Dx())
}

func TestRenderRecognisesWebPInput(t *testing.T) {
	corrupt := append([]byte("RIFF\x10\x00\x00\x00WEBPVP8 "), bytes.Repeat([]byte{0xff}, 8)...)

	_, _, err := NewCompositor("png", 0).Render(corrupt, model.OverlayConfig{CaptionText: "hi"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, image.ErrFormat)
}

func TestApplyWithoutCaptionIsNoop(t *testing.T) {
	images := []model.GeneratedImage{{Data: []byte("x")}}
	out, err := NewCompositor("png", 0).Apply(context.Background(), images, model.OverlayConfig{})
	require.NoError(t, err)
	assert.Equal(t, images, out)
}

func TestResolveStyleFallsBackToDefaults(t *testing.T) {
	s := ResolveStyle("comic-sans", "rainbow", "upside_down")
	assert.Equal(t, DefaultFont, s.FontName)
	assert.Equal(t, DefaultColor, s.ColorName)
	assert.Equal(t, DefaultPosition, s.Position)

	s = ResolveStyle("Dramatic", "RED_ALERT", "top_left")
	assert.Equal(t, "dramatic", s.FontName)
	assert.Equal(t, color.RGBA{0xFF, 0x00, 0x00, 0xFF}, s.Colors.Fill)
	assert.Equal(t, "top_left", s.Position)
}

func TestAutoFontSize(t *testing.T) {
	assert.Equal(t, 129, AutoFontSize(1080, "SHORT"))
	assert.Equal(t, 103, AutoFontSize(1080, "THIS CAPTION IS LONGER"))
	assert.Equal(t, 72, AutoFontSize(1080, "THIS CAPTION IS MUCH MUCH LONGER"))
	assert.Equal(t, 24, AutoFontSize(100, "X"))
}

func TestRenderEveryPresetCombination(t *testing.T) {
	src := solidPNG(t, 200, 120, color.Black)
	c := NewCompositor("png", 0)
	presets := Presets()
	for _, f := range presets["fonts"] {
		for _, pos := range presets["positions"] {
			_, _, err := c.Render(src, model.OverlayConfig{CaptionText: "a much longer caption that wraps", FontPreset: f, Position: pos})
			assert.NoError(t, err, f+"/"+pos)
		}
	}
}
