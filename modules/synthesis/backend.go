package synthesis

import (
	"context"

	"thumbforge-server/modules/common/model"
)

// FaceInput - 생성 요청에 첨부되는 얼굴 사진 (바이트 + 라벨)
type FaceInput struct {
	Data     []byte
	MIMEType string
	Label    string
}

// Request - 백엔드 1회 호출 단위
type Request struct {
	Prompt        string
	Faces         []FaceInput
	NumVariations int
	AspectRatio   string
}

// Backend - 이미지 생성 서비스. 호출 1회당 최대 NumVariations장 반환
type Backend interface {
	Generate(ctx context.Context, req Request) ([]model.GeneratedImage, error)
}
