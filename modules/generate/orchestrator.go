package generate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/metrics"
	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/common/utils"
	"thumbforge-server/modules/content"
	"thumbforge-server/modules/prompt"
	"thumbforge-server/modules/reference"
)

type ContextResolver interface {
	Resolve(ctx context.Context, kind model.SourceKind, input string) (model.ContentContext, error)
}

type StyleExtractor interface {
	Extract(ctx context.Context, refs []model.ReferenceImage) (model.FormatDescriptor, error)
}

type FaceClassifier interface {
	Classify(ctx context.Context, faces []model.FacePhoto) ([]model.FaceDescriptor, error)
}

type Synthesizer interface {
	Available() bool
	Synthesize(ctx context.Context, p model.ComposedPrompt, faces []model.FacePhoto, numVariations int) ([]model.GeneratedImage, error)
}

type OverlayApplier interface {
	Apply(ctx context.Context, images []model.GeneratedImage, cfg model.OverlayConfig) ([]model.GeneratedImage, error)
}

type TemplateResolver interface {
	Resolve(id string) *prompt.Template
}

// ProgressReporter - 상태 전이 알림 (progress.Hub가 구현)
type ProgressReporter interface {
	Publish(requestID string, stage model.Stage, detail string)
}

// Dependencies - 오케스트레이터 구성 요소
type Dependencies struct {
	Resolver  ContextResolver
	Style     StyleExtractor
	Faces     FaceClassifier
	Synth     Synthesizer
	Overlay   OverlayApplier
	Templates TemplateResolver
	Progress  ProgressReporter

	MaxVariations int
	OutputFormat  string
	WebPQuality   float32
}

// Request - 생성 요청 (핸들러에서 디코딩 완료된 상태)
type Request struct {
	RequestID     string
	SourceKind    model.SourceKind
	Input         string
	TemplateID    string
	Faces         []model.FacePhoto
	References    []model.ReferenceImage
	NumVariations int

	AddTextOverlay bool
	ThumbnailText  string
	Overlay        model.OverlayConfig
}

// Transition - 기록된 상태 전이
type Transition struct {
	Stage  model.Stage
	Detail string
	At     time.Time
}

// run - 요청 단위 상태 (프로세스 전역 상태 없음)
type run struct {
	id       string
	source   model.SourceKind
	started  time.Time
	progress ProgressReporter

	mu      sync.Mutex
	stage   model.Stage
	history []Transition
}

func (r *run) transition(stage model.Stage, detail string) {
	r.mu.Lock()
	r.stage = stage
	r.history = append(r.history, Transition{Stage: stage, Detail: detail, At: time.Now()})
	r.mu.Unlock()

	if r.progress != nil {
		r.progress.Publish(r.id, stage, detail)
	}
}

func (r *run) current() model.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

// Orchestrator - 분석 → 프롬프트 → 생성 → 오버레이 파이프라인
type Orchestrator struct {
	deps Dependencies
}

// NewOrchestrator - 필수 구성 요소가 비어 있으면 요청 시점에 CONFIGURATION_ERROR
func NewOrchestrator(deps Dependencies) *Orchestrator {
	if deps.MaxVariations <= 0 {
		deps.MaxVariations = 4
	}
	if deps.OutputFormat == "" {
		deps.OutputFormat = "png"
	}
	return &Orchestrator{deps: deps}
}

// Run - 요청 1건 실행
// 에러가 나면 이미지 일부도 반환하지 않음
func (o *Orchestrator) Run(ctx context.Context, req Request) (*model.GenerationResult, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	rn := &run{
		id:       req.RequestID,
		source:   req.SourceKind,
		started:  time.Now(),
		progress: o.deps.Progress,
		stage:    model.StageIdle,
	}
	defer releaseReferences(req.References)

	log.Printf("🎨 [Generate] Request %s started (source: %s, faces: %d, refs: %d, n: %d)",
		rn.id, req.SourceKind, len(req.Faces), len(req.References), req.NumVariations)

	result, err := o.execute(ctx, rn, req)
	if err != nil {
		return nil, o.fail(rn, err)
	}

	rn.transition(model.StageCompleted, fmt.Sprintf("%d image(s)", len(result.Images)))
	metrics.ObserveGeneration(string(req.SourceKind), "")
	log.Printf("✅ [Generate] Request %s completed in %dms (%d images)", rn.id, result.ElapsedMs, len(result.Images))
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, rn *run, req Request) (*model.GenerationResult, error) {
	if err := o.validate(req); err != nil {
		return nil, err
	}

	analysisStart := time.Now()
	cc, format, faces, err := o.analyze(ctx, rn, req)
	if err != nil {
		return nil, err
	}
	metrics.ObserveStage("analysis", time.Since(analysisStart))
	rn.transition(model.StageStyleAndFacesAnalyzed, fmt.Sprintf("%d pose slot(s), %d face(s)", len(format.PoseSlots), len(faces)))

	var tmpl *prompt.Template
	if o.deps.Templates != nil {
		tmpl = o.deps.Templates.Resolve(req.TemplateID)
	}
	explicit := strings.TrimSpace(req.ThumbnailText)
	composed := prompt.Compose(prompt.Input{
		Content:         cc,
		Format:          format,
		Faces:           faces,
		Template:        tmpl,
		WantCaption:     req.SourceKind == model.SourceURL || req.AddTextOverlay || explicit != "",
		ExplicitCaption: explicit,
		Overlay:         req.AddTextOverlay,
		OverlayPosition: req.Overlay.Position,
	})
	rn.transition(model.StagePromptComposed, utils.TruncateForLog(composed.Text, 120))

	synthStart := time.Now()
	images, err := o.deps.Synth.Synthesize(ctx, composed, req.Faces, req.NumVariations)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, apperr.UpstreamGeneration(apperr.ReasonUnknown, nil, "no images generated")
	}
	metrics.ObserveStage("synthesis", time.Since(synthStart))
	rn.transition(model.StageImagesSynthesized, fmt.Sprintf("%d image(s)", len(images)))

	if req.AddTextOverlay && composed.ThumbnailCaption != "" && o.deps.Overlay != nil {
		overlayStart := time.Now()
		cfg := req.Overlay
		cfg.CaptionText = composed.ThumbnailCaption
		images, err = o.deps.Overlay.Apply(ctx, images, cfg)
		if err != nil {
			return nil, err
		}
		metrics.ObserveStage("overlay", time.Since(overlayStart))
		rn.transition(model.StageOverlaysApplied, composed.ThumbnailCaption)
	}

	images = o.encodeOutput(images)

	return &model.GenerationResult{
		RequestID:  rn.id,
		Images:     images,
		PromptUsed: composed.Text,
		Caption:    composed.ThumbnailCaption,
		ElapsedMs:  time.Since(rn.started).Milliseconds(),
	}, nil
}

// validate - 외부 호출 전 입력 검사
func (o *Orchestrator) validate(req Request) error {
	if err := content.Validate(req.SourceKind, req.Input); err != nil {
		return err
	}
	if len(req.Faces) > reference.MaxFacePhotos {
		return apperr.Validation("at most %d face photos allowed, got %d", reference.MaxFacePhotos, len(req.Faces))
	}
	if len(req.References) > reference.MaxReferenceImages {
		return apperr.Validation("at most %d reference thumbnails allowed, got %d", reference.MaxReferenceImages, len(req.References))
	}
	for i, f := range req.Faces {
		if len(f.Bytes) == 0 {
			return apperr.Validation("face photo %d is empty", i+1)
		}
	}
	for i, ref := range req.References {
		if len(ref.Bytes) == 0 {
			return apperr.Validation("reference thumbnail %d is empty", i+1)
		}
	}
	if req.NumVariations < 1 || req.NumVariations > o.deps.MaxVariations {
		return apperr.Validation("num_variations must be between 1 and %d, got %d", o.deps.MaxVariations, req.NumVariations)
	}
	if o.deps.Synth == nil || !o.deps.Synth.Available() {
		log.Printf("🛑 [Generate] Image generation backend is not configured")
		return apperr.GenerationUnavailable("no image generation backend configured")
	}
	if o.deps.Resolver == nil {
		return apperr.Configuration("context", "content resolver not configured")
	}
	if len(req.Faces) > 0 && o.deps.Faces == nil {
		return apperr.Configuration("faces", "face classifier not configured")
	}
	return nil
}

// analyze - 콘텐츠/스타일/얼굴 분석을 동시에 실행하고 한 번에 합류
// 스타일 실패는 중립 포맷으로 대체, 나머지 실패는 요청 중단
func (o *Orchestrator) analyze(ctx context.Context, rn *run, req Request) (model.ContentContext, model.FormatDescriptor, []model.FaceDescriptor, error) {
	var (
		cc     model.ContentContext
		format = model.NeutralFormat()
		faces  []model.FaceDescriptor
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		resolved, err := o.deps.Resolver.Resolve(gctx, req.SourceKind, req.Input)
		if err != nil {
			return fmt.Errorf("resolve content: %w", err)
		}
		cc = resolved
		rn.transition(model.StageContextResolved, utils.TruncateForLog(cc.Title, 80))
		return nil
	})

	g.Go(func() error {
		defer releaseReferences(req.References)
		if len(req.References) == 0 || o.deps.Style == nil {
			return nil
		}
		extracted, err := o.deps.Style.Extract(gctx, req.References)
		if err != nil {
			log.Printf("⚠️ [Generate] Style extraction degraded to neutral format (%s): %v", rn.id, err)
			metrics.StyleDegraded()
			return nil
		}
		format = extracted
		return nil
	})

	if len(req.Faces) > 0 {
		g.Go(func() error {
			classified, err := o.deps.Faces.Classify(gctx, req.Faces)
			if err != nil {
				return fmt.Errorf("classify faces: %w", err)
			}
			if len(classified) != len(req.Faces) {
				return apperr.Analysis("faces", nil, "expected %d face descriptors, got %d", len(req.Faces), len(classified))
			}
			faces = classified
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.ContentContext{}, model.FormatDescriptor{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return model.ContentContext{}, model.FormatDescriptor{}, nil, err
	}
	return cc, format, faces, nil
}

// encodeOutput - OUTPUT_FORMAT=webp면 나머지 이미지도 WebP로 변환 (실패 시 원본 유지)
func (o *Orchestrator) encodeOutput(images []model.GeneratedImage) []model.GeneratedImage {
	if o.deps.OutputFormat != "webp" {
		return images
	}
	for i, img := range images {
		if img.MIMEType == utils.MimeWebP {
			continue
		}
		converted, err := utils.ConvertToWebP(img.Data, o.deps.WebPQuality)
		if err != nil {
			log.Printf("⚠️ [Generate] WebP conversion failed for image %d, keeping %s: %v", img.Index, img.MIMEType, err)
			continue
		}
		images[i].Data = converted
		images[i].MIMEType = utils.MimeWebP
	}
	return images
}

func (o *Orchestrator) fail(rn *run, err error) error {
	stage := rn.current()
	code := apperr.CodeOf(err)
	rn.transition(model.StageFailed, string(code))
	metrics.ObserveGeneration(string(rn.source), string(code))

	if code == apperr.CodeConfiguration {
		log.Printf("🛑 [Generate] Request %s failed after %s: %v", rn.id, stage, err)
	} else {
		log.Printf("❌ [Generate] Request %s failed after %s: %v", rn.id, stage, err)
	}
	return fmt.Errorf("generation failed after %s: %w", stage, err)
}

func releaseReferences(refs []model.ReferenceImage) {
	for i := range refs {
		refs[i].Release()
	}
}
