package synthesis

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/metrics"
	"thumbforge-server/modules/common/model"
)

// Options - 호출 정책
type Options struct {
	Fanout        bool
	Timeout       time.Duration
	RatePerMinute int
	AspectRatio   string
	MaxVariations int
}

// Invoker - 합성 프롬프트와 얼굴 사진으로 이미지 생성
type Invoker struct {
	backend Backend
	limiter *rate.Limiter
	opts    Options
}

// NewInvoker - backend가 nil이면 모든 호출이 GenerationUnavailable
func NewInvoker(backend Backend, opts Options) *Invoker {
	if opts.AspectRatio == "" {
		opts.AspectRatio = "16:9"
	}
	if opts.MaxVariations <= 0 {
		opts.MaxVariations = 4
	}
	if opts.RatePerMinute <= 0 {
		opts.RatePerMinute = 30
	}
	limit := rate.Every(time.Minute / time.Duration(opts.RatePerMinute))
	return &Invoker{
		backend: backend,
		limiter: rate.NewLimiter(limit, opts.RatePerMinute),
		opts:    opts,
	}
}

// Available - 생성 백엔드 설정 여부
func (iv *Invoker) Available() bool {
	return iv.backend != nil
}

// Synthesize - 기본은 백엔드에 한 번 위임, fan-out 모드는 변형별 병렬 호출 후 요청 순서대로 병합. 요청 수보다 적으면 실패
func (iv *Invoker) Synthesize(ctx context.Context, prompt model.ComposedPrompt, faces []model.FacePhoto, numVariations int) ([]model.GeneratedImage, error) {
	if iv.backend == nil {
		return nil, apperr.GenerationUnavailable("no image generation backend configured")
	}
	if numVariations < 1 || numVariations > iv.opts.MaxVariations {
		return nil, apperr.Validation("num_variations must be between 1 and %d, got %d", iv.opts.MaxVariations, numVariations)
	}

	req := Request{
		Prompt:        prompt.Text,
		Faces:         FaceInputs(faces, prompt.FaceDescriptorsUsed),
		NumVariations: numVariations,
		AspectRatio:   iv.opts.AspectRatio,
	}

	var (
		images []model.GeneratedImage
		err    error
	)
	if iv.opts.Fanout && numVariations > 1 {
		images, err = iv.fanout(ctx, req)
	} else {
		images, err = iv.call(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if len(images) < numVariations {
		log.Printf("❌ [Synthesis] Requested %d variation(s), backend returned %d", numVariations, len(images))
		return nil, apperr.UpstreamGeneration(apperr.ReasonUnknown, nil, "backend returned %d of %d images", len(images), numVariations)
	}
	images = images[:numVariations]
	for i := range images {
		images[i].Index = i
	}
	metrics.ImagesGenerated(len(images))
	return images, nil
}

func (iv *Invoker) call(ctx context.Context, req Request) ([]model.GeneratedImage, error) {
	if err := iv.limiter.Wait(ctx); err != nil {
		return nil, waitError(ctx, err)
	}

	callCtx := ctx
	if iv.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, iv.opts.Timeout)
		defer cancel()
	}

	images, err := iv.backend.Generate(callCtx, req)
	if err != nil {
		return nil, normalizeError(ctx, err)
	}
	if len(images) == 0 {
		return nil, apperr.UpstreamGeneration(apperr.ReasonUnknown, nil, "no image generated")
	}
	return images, nil
}

func (iv *Invoker) fanout(ctx context.Context, req Request) ([]model.GeneratedImage, error) {
	log.Printf("🔀 [Synthesis] Fan-out: %d independent call(s)", req.NumVariations)

	results := make([]model.GeneratedImage, req.NumVariations)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < req.NumVariations; i++ {
		g.Go(func() error {
			single := req
			single.NumVariations = 1
			images, err := iv.call(gctx, single)
			if err != nil {
				return err
			}
			results[i] = images[0]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// FaceInputs - 얼굴 사진 바이트에 역할/외형 라벨 부착 (업로드 순서 유지)
func FaceInputs(faces []model.FacePhoto, descriptors []model.FaceDescriptor) []FaceInput {
	out := make([]FaceInput, len(faces))
	for i, face := range faces {
		role := model.RoleForIndex(i)
		label := fmt.Sprintf("FACE %d (%s): this is PERSON %d.", i+1, role.Label(), i+1)
		if i < len(descriptors) {
			if appearance := strings.TrimSpace(descriptors[i].AppearanceText); appearance != "" {
				label = fmt.Sprintf("FACE %d (%s): %s. This is PERSON %d.", i+1, role.Label(), strings.TrimRight(appearance, "."), i+1)
			}
		}
		out[i] = FaceInput{Data: face.Bytes, MIMEType: face.MIMEType, Label: label}
	}
	return out
}

func waitError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return apperr.UpstreamGeneration(apperr.ReasonQuota, err, "synthesis rate limit exceeded")
}

// normalizeError - 분류되지 않은 백엔드 에러를 업스트림 에러로 감쌈
func normalizeError(ctx context.Context, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.UpstreamGeneration(apperr.ReasonTimeout, err, "image generation timed out")
	}
	return apperr.UpstreamGeneration(apperr.ReasonUnknown, err, "image generation failed")
}
