package generate

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thumbforge-server/modules/common/apperr"
	"thumbforge-server/modules/common/model"
	"thumbforge-server/modules/content"
	"thumbforge-server/modules/prompt"
	"thumbforge-server/modules/reference"
	"thumbforge-server/modules/synthesis"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	for y := 0; y < 36; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type fakeResolver struct {
	calls atomic.Int32
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, kind model.SourceKind, input string) (model.ContentContext, error) {
	f.calls.Add(1)
	if f.err != nil {
		return model.ContentContext{}, f.err
	}
	if kind == model.SourcePrompt {
		return content.FromPrompt(input)
	}
	return model.ContentContext{
		Title:       "I Built a Robot That Cooks Dinner",
		Description: "Six months of work",
		Tags:        []string{"robotics", "cooking"},
		SourceKind:  model.SourceURL,
		VideoID:     "dQw4w9WgXcQ",
	}, nil
}

type fakeStyle struct {
	calls  atomic.Int32
	format model.FormatDescriptor
	err    error
}

func (f *fakeStyle) Extract(_ context.Context, refs []model.ReferenceImage) (model.FormatDescriptor, error) {
	f.calls.Add(1)
	if f.err != nil {
		return model.FormatDescriptor{}, f.err
	}
	return f.format, nil
}

type fakeFaces struct {
	calls atomic.Int32
	out   []model.FaceDescriptor
	err   error
}

func (f *fakeFaces) Classify(_ context.Context, faces []model.FacePhoto) ([]model.FaceDescriptor, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	out := make([]model.FaceDescriptor, len(faces))
	for i := range faces {
		out[i] = model.FaceDescriptor{Index: i, Role: model.RoleForIndex(i), AppearanceText: "wearing a hoodie"}
	}
	return out, nil
}

type fakeBackend struct {
	mu       sync.Mutex
	requests []synthesis.Request
	image    []byte
	err      error
}

func (f *fakeBackend) Generate(_ context.Context, req synthesis.Request) ([]model.GeneratedImage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.GeneratedImage, req.NumVariations)
	for i := range out {
		out[i] = model.GeneratedImage{Data: f.image, MIMEType: "image/png"}
	}
	return out, nil
}

type fakeOverlay struct {
	calls atomic.Int32
	cfg   model.OverlayConfig
}

func (f *fakeOverlay) Apply(_ context.Context, images []model.GeneratedImage, cfg model.OverlayConfig) ([]model.GeneratedImage, error) {
	f.calls.Add(1)
	f.cfg = cfg
	return images, nil
}

type recorder struct {
	mu     sync.Mutex
	stages []model.Stage
}

func (r *recorder) Publish(_ string, stage model.Stage, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recorder) all() []model.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Stage(nil), r.stages...)
}

type harness struct {
	resolver *fakeResolver
	style    *fakeStyle
	faces    *fakeFaces
	backend  *fakeBackend
	overlay  *fakeOverlay
	progress *recorder
	orch     *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		resolver: &fakeResolver{},
		style: &fakeStyle{format: model.FormatDescriptor{
			Composition: "split layout",
			PoseSlots:   []model.PoseSlot{{Index: 0, Position: "left third", Pose: "pointing", ExpressionType: "shocked"}},
		}},
		faces:    &fakeFaces{},
		backend:  &fakeBackend{image: testPNG(t)},
		overlay:  &fakeOverlay{},
		progress: &recorder{},
	}
	h.orch = h.build(synthesis.NewInvoker(h.backend, synthesis.Options{MaxVariations: 4}))
	return h
}

func (h *harness) build(synth Synthesizer) *Orchestrator {
	return NewOrchestrator(Dependencies{
		Resolver:      h.resolver,
		Style:         h.style,
		Faces:         h.faces,
		Synth:         synth,
		Overlay:       h.overlay,
		Progress:      h.progress,
		MaxVariations: 4,
	})
}

func face(name string) model.FacePhoto {
	return model.FacePhoto{Bytes: []byte("FACE-" + name), MIMEType: "image/jpeg", DisplayName: name}
}

func TestPromptModeDefaultsProduceRequestedImages(t *testing.T) {
	h := newHarness(t)

	res, err := h.orch.Run(context.Background(), Request{
		SourceKind:    model.SourcePrompt,
		Input:         "a cat astronaut discovering a hidden moon base",
		NumVariations: 4,
	})
	require.NoError(t, err)

	assert.Len(t, res.Images, 4)
	assert.Empty(t, res.Caption)
	assert.NotEmpty(t, res.RequestID)
	assert.Contains(t, res.PromptUsed, "THUMBNAIL TOPIC:")
	assert.Equal(t, int32(0), h.style.calls.Load())
	assert.Equal(t, int32(0), h.faces.calls.Load())
	assert.Equal(t, int32(0), h.overlay.calls.Load())
	for i, img := range res.Images {
		assert.Equal(t, i, img.Index)
	}

	assert.Equal(t, []model.Stage{
		model.StageContextResolved,
		model.StageStyleAndFacesAnalyzed,
		model.StagePromptComposed,
		model.StageImagesSynthesized,
		model.StageCompleted,
	}, h.progress.all())
}

// styleJSON - 인물 슬롯 2개를 가진 분석 응답
const styleJSON = `{
  "composition": {"layout_type": "split", "person_count": 2, "person_positions": ["left third", "right third"], "person_size": "large", "background_zones": "blurred kitchen"},
  "pose_format": {
    "primary_person": {"position": "left third", "pose": "pointing at the robot", "expression_type": "shocked", "eye_direction": "camera"},
    "secondary_people": [{"position": "right third", "pose": "arms crossed", "expression_type": "skeptical", "eye_direction": "primary person"}]
  },
  "colors": {"primary": "yellow", "secondary": "black", "accent": "red"},
  "lighting_style": "hard rim light",
  "mood": "exciting",
  "format_prompt": "bold split thumbnail like the reference image"
}`

const facesJSON = `{"faces": [
  {"index": 1, "role": "primary", "description": "wearing a red hoodie, wide smile"},
  {"index": 2, "role": "secondary", "description": "wearing glasses and a grey t-shirt"}
]}`

type routingAnalyzer struct {
	mu       sync.Mutex
	requests []reference.AnalysisRequest
}

func (a *routingAnalyzer) AnalyzeJSON(_ context.Context, req reference.AnalysisRequest) (string, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	a.mu.Unlock()
	if strings.Contains(req.Prompt, "There are exactly") {
		return facesJSON, nil
	}
	return styleJSON, nil
}

func TestURLModeWithReferenceAndTwoFaces(t *testing.T) {
	h := newHarness(t)
	analyzer := &routingAnalyzer{}
	overlay := &fakeOverlay{}
	orch := NewOrchestrator(Dependencies{
		Resolver:      h.resolver,
		Style:         reference.NewStyleExtractor(analyzer, time.Second),
		Faces:         reference.NewFaceClassifier(analyzer, time.Second),
		Synth:         synthesis.NewInvoker(h.backend, synthesis.Options{MaxVariations: 4}),
		Overlay:       overlay,
		Templates:     staticTemplates{},
		MaxVariations: 4,
	})

	refPixels := []byte("REFERENCE-PIXELS-0123456789")
	refs := []model.ReferenceImage{{Bytes: append([]byte(nil), refPixels...), MIMEType: "image/png"}}
	res, err := orch.Run(context.Background(), Request{
		SourceKind:     model.SourceURL,
		Input:          "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		TemplateID:     "mrbeast",
		Faces:          []model.FacePhoto{face("alex"), face("sam")},
		References:     refs,
		NumVariations:  2,
		AddTextOverlay: true,
		Overlay:        model.OverlayConfig{Position: "top_center"},
	})
	require.NoError(t, err)
	require.Len(t, res.Images, 2)

	assert.Contains(t, res.PromptUsed, "PERSON 1 (PRIMARY")
	assert.Contains(t, res.PromptUsed, "PERSON 2 (SECONDARY")
	assert.Contains(t, res.PromptUsed, "Use ONLY these 2 people")
	assert.Contains(t, res.PromptUsed, "[VIRAL ENTERTAINMENT THUMBNAIL]")
	assert.NotContains(t, strings.ToLower(res.PromptUsed), "reference image")
	assert.Equal(t, "BUILT ROBOT COOKS", res.Caption)
	assert.Equal(t, "BUILT ROBOT COOKS", overlay.cfg.CaptionText)
	assert.Equal(t, "top_center", overlay.cfg.Position)

	require.Len(t, h.backend.requests, 1)
	sent := h.backend.requests[0]
	require.Len(t, sent.Faces, 2)
	assert.Equal(t, []byte("FACE-alex"), sent.Faces[0].Data)
	assert.Equal(t, []byte("FACE-sam"), sent.Faces[1].Data)
	for _, f := range sent.Faces {
		assert.False(t, bytes.Contains(f.Data, refPixels))
	}
	assert.NotContains(t, sent.Prompt, string(refPixels))

	// 참조 이미지 바이트는 요청 종료 후 남지 않음
	assert.Nil(t, refs[0].Bytes)
	assert.Len(t, analyzer.requests, 2)
}

type staticTemplates struct{}

func (staticTemplates) Resolve(id string) *prompt.Template {
	t, _ := prompt.BuiltinTemplate(id)
	return t
}

func TestMalformedLocatorFailsBeforeAnyCall(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Run(context.Background(), Request{
		SourceKind:    model.SourceURL,
		Input:         "not-a-url",
		Faces:         []model.FacePhoto{face("alex")},
		References:    []model.ReferenceImage{{Bytes: []byte("ref")}},
		NumVariations: 4,
	})
	require.Error(t, err)

	code := apperr.CodeOf(err)
	assert.True(t, code == apperr.CodeInvalidSource || code == apperr.CodeValidation, code)
	assert.Equal(t, int32(0), h.resolver.calls.Load())
	assert.Equal(t, int32(0), h.style.calls.Load())
	assert.Equal(t, int32(0), h.faces.calls.Load())
	assert.Empty(t, h.backend.requests)
	assert.Equal(t, []model.Stage{model.StageFailed}, h.progress.all())
}

func TestMissingImageBackendIsConfigurationError(t *testing.T) {
	h := newHarness(t)
	orch := h.build(synthesis.NewInvoker(nil, synthesis.Options{}))

	_, err := orch.Run(context.Background(), Request{
		SourceKind:    model.SourcePrompt,
		Input:         "cats",
		NumVariations: 1,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeConfiguration, apperr.CodeOf(err))
	assert.NotEqual(t, apperr.CodeOf(apperr.UpstreamGeneration(apperr.ReasonTimeout, nil, "slow")), apperr.CodeOf(err))
	assert.Equal(t, int32(0), h.resolver.calls.Load())
}

func TestStyleFailureDegradesToNeutral(t *testing.T) {
	h := newHarness(t)
	h.style.err = apperr.Analysis("style", errors.New("bad json"), "style analysis failed")

	res, err := h.orch.Run(context.Background(), Request{
		SourceKind:    model.SourcePrompt,
		Input:         "cats",
		References:    []model.ReferenceImage{{Bytes: []byte("ref")}},
		NumVariations: 1,
	})
	require.NoError(t, err)
	assert.Len(t, res.Images, 1)
	assert.NotContains(t, res.PromptUsed, "FORMAT TO MATCH")
	assert.Equal(t, int32(1), h.style.calls.Load())
}

func TestFaceFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.faces.err = apperr.Analysis("faces", nil, "face count mismatch")

	res, err := h.orch.Run(context.Background(), Request{
		SourceKind:    model.SourcePrompt,
		Input:         "cats",
		Faces:         []model.FacePhoto{face("alex"), face("sam")},
		NumVariations: 1,
	})
	assert.Nil(t, res)
	assert.Equal(t, apperr.CodeAnalysis, apperr.CodeOf(err))
	assert.Empty(t, h.backend.requests)

	stages := h.progress.all()
	assert.Equal(t, model.StageFailed, stages[len(stages)-1])
}

func TestFaceDescriptorCountMismatchAborts(t *testing.T) {
	h := newHarness(t)
	h.faces.out = []model.FaceDescriptor{{Index: 0, Role: model.RolePrimary}}

	_, err := h.orch.Run(context.Background(), Request{
		SourceKind:    model.SourcePrompt,
		Input:         "cats",
		Faces:         []model.FacePhoto{face("alex"), face("sam")},
		NumVariations: 1,
	})
	assert.Equal(t, apperr.CodeAnalysis, apperr.CodeOf(err))
	assert.Empty(t, h.backend.requests)
}

func TestContextFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.resolver.err = apperr.NotFound("content", "video not found")

	_, err := h.orch.Run(context.Background(), Request{
		SourceKind:    model.SourceURL,
		Input:         "https://youtu.be/dQw4w9WgXcQ",
		NumVariations: 1,
	})
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	assert.Empty(t, h.backend.requests)
}

func TestSynthesisErrorReturnsNoImages(t *testing.T) {
	h := newHarness(t)
	h.backend.err = apperr.UpstreamGeneration(apperr.ReasonQuota, nil, "rate limited")

	res, err := h.orch.Run(context.Background(), Request{
		SourceKind:    model.SourcePrompt,
		Input:         "cats",
		NumVariations: 2,
	})
	assert.Nil(t, res)
	assert.Equal(t, apperr.CodeUpstreamGeneration, apperr.CodeOf(err))
	assert.Equal(t, apperr.ReasonQuota, apperr.ReasonOf(err))
}

func TestValidationLimits(t *testing.T) {
	h := newHarness(t)
	base := Request{SourceKind: model.SourcePrompt, Input: "cats", NumVariations: 1}

	tooManyFaces := base
	tooManyFaces.Faces = []model.FacePhoto{face("a"), face("b"), face("c"), face("d")}
	_, err := h.orch.Run(context.Background(), tooManyFaces)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	tooManyRefs := base
	for i := 0; i < 6; i++ {
		tooManyRefs.References = append(tooManyRefs.References, model.ReferenceImage{Bytes: []byte("r")})
	}
	_, err = h.orch.Run(context.Background(), tooManyRefs)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	badCount := base
	badCount.NumVariations = 9
	_, err = h.orch.Run(context.Background(), badCount)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	emptyPrompt := base
	emptyPrompt.Input = "  "
	_, err = h.orch.Run(context.Background(), emptyPrompt)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	assert.Equal(t, int32(0), h.resolver.calls.Load())
}

func TestExplicitCaptionWithoutOverlay(t *testing.T) {
	h := newHarness(t)

	res, err := h.orch.Run(context.Background(), Request{
		SourceKind:    model.SourcePrompt,
		Input:         "cats",
		ThumbnailText: "cat secrets",
		NumVariations: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "CAT SECRETS", res.Caption)
	assert.Contains(t, res.PromptUsed, "CAT SECRETS")
	assert.Equal(t, int32(0), h.overlay.calls.Load())
}

func TestCancelledContextAborts(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.orch.Run(ctx, Request{
		SourceKind:    model.SourcePrompt,
		Input:         "cats",
		NumVariations: 1,
	})
	assert.Nil(t, res)
	assert.Error(t, err)
	assert.Empty(t, h.backend.requests)
}

func TestWebPConversionFailureKeepsOriginal(t *testing.T) {
	h := newHarness(t)
	h.backend.image = []byte("not an image")
	orch := NewOrchestrator(Dependencies{
		Resolver:      h.resolver,
		Synth:         synthesis.NewInvoker(h.backend, synthesis.Options{MaxVariations: 4}),
		MaxVariations: 4,
		OutputFormat:  "webp",
		WebPQuality:   80,
	})

	res, err := orch.Run(context.Background(), Request{
		SourceKind:    model.SourcePrompt,
		Input:         "cats",
		NumVariations: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.Images[0].MIMEType)
	assert.Equal(t, []byte("not an image"), res.Images[0].Data)
}
