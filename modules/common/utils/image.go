package utils

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // GIF 디코더 등록
	_ "image/jpeg" // JPEG 디코더 등록
	"image/png"
	"log"
	"net/http"
	"strings"

	_ "github.com/kolesa-team/go-webp/decoder" // WebP 디코더 등록
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

const (
	MimePNG  = "image/png"
	MimeJPEG = "image/jpeg"
	MimeWebP = "image/webp"
)

// DecodeDataURI - "data:image/png;base64,..." 또는 순수 base64 문자열 디코딩
// MIME 타입이 없으면 바이트에서 추정
func DecodeDataURI(raw string) ([]byte, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, "", fmt.Errorf("empty image data")
	}

	mimeType := ""
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		comma := strings.Index(raw, ",")
		if comma < 0 {
			return nil, "", fmt.Errorf("malformed data URI")
		}
		header := raw[len("data:"):comma]
		if !strings.HasSuffix(header, ";base64") {
			return nil, "", fmt.Errorf("data URI is not base64 encoded")
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		payload = raw[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// 패딩 없는 입력 허용
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("invalid base64 image data: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image data")
	}

	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = DetectMIMEType(data)
	}
	return data, mimeType, nil
}

// DetectMIMEType - 매직 바이트로 이미지 MIME 추정 (알 수 없으면 image/jpeg)
func DetectMIMEType(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return MimeWebP
	}
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return MimeJPEG
}

// EncodeDataURI - 이미지 바이트를 data URI로 변환
func EncodeDataURI(data []byte, mimeType string) string {
	if mimeType == "" {
		mimeType = DetectMIMEType(data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// EncodeImage - 출력 포맷(png|webp)으로 인코딩
func EncodeImage(img image.Image, format string, quality float32) ([]byte, string, error) {
	if format == "webp" {
		data, err := encodeWebP(img, quality)
		if err != nil {
			return nil, "", err
		}
		return data, MimeWebP, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), MimePNG, nil
}

// ConvertToWebP - 임의 포맷 바이너리를 WebP로 변환
func ConvertToWebP(data []byte, quality float32) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	webpData, err := encodeWebP(img, quality)
	if err != nil {
		return nil, err
	}

	log.Printf("🔄 Image converted to WebP: %d bytes → %d bytes", len(data), len(webpData))
	return webpData, nil
}

func encodeWebP(img image.Image, quality float32) ([]byte, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, quality)
	if err != nil {
		return nil, fmt.Errorf("failed to create WebP encoder options: %w", err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, options); err != nil {
		return nil, fmt.Errorf("failed to encode WebP: %w", err)
	}
	return buf.Bytes(), nil
}

// TruncateRunes - 룬 단위 자르기 (멀티바이트 안전)
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// TruncateForLog - 로그용 짧은 문자열
func TruncateForLog(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return TruncateRunes(s, max) + "..."
}
