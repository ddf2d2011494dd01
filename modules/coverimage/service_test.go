package coverimage

import (
	"context"
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/go-playground/assert/v2"
	"golang.org/x/time/rate"

	"portada-media-server/modules/classify"
	"portada-media-server/modules/common/config"
	"portada-media-server/modules/common/generr"
	"portada-media-server/modules/common/utils"
	"portada-media-server/modules/media"
	"portada-media-server/modules/submodule/sourcephoto"
)

// scriptedProvider - replays a fixed error sequence; nil means success.
type scriptedProvider struct {
	mu     sync.Mutex
	name   string
	script []error
	calls  int
	levels []string
	image  []byte
}

func (p *scriptedProvider) Name() string { return p.name }

func (p *scriptedProvider) Generate(ctx context.Context, attempt PromptAttempt) (*ProviderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx := p.calls
	p.calls++
	p.levels = append(p.levels, attempt.Level)

	if idx < len(p.script) && p.script[idx] != nil {
		return nil, p.script[idx]
	}
	return &ProviderResult{ImageData: p.image, Provider: p.name, Model: "scripted-v1"}, nil
}

type fakeExtractor struct {
	image []byte
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, req *sourcephoto.ExtractRequest) (*sourcephoto.ExtractResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sourcephoto.ExtractResponse{ImageData: f.image, SourceURL: "https://example.test/photo.jpg", Width: 800, Height: 600}, nil
}

func coverTestImage(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 800, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x*5 + y*11) % 256),
				G: uint8((x * y) % 256),
				B: uint8((x + y*7) % 256),
				A: 255,
			})
		}
	}
	data, err := utils.EncodePNG(img)
	if err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return data
}

func serviceTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		MediaRoot:             t.TempDir(),
		MinImageWidth:         400,
		MinImageHeight:        300,
		MinImageBytes:         10 * 1024,
		PromptMode:            config.PromptModeAugmented,
		DefaultProvider:       "scripted",
		DefaultStyle:          "editorial news photography",
		DefaultLocale:         "es",
		DefaultNegativePrompt: "text, words, letters, logos, watermarks",
		BatchConcurrency:      1,
		ProviderTimeout:       5,
		ProviderRPS:           1000,
	}
	config.SetConfigForTest(cfg)
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config, providers ...Provider) *Service {
	t.Helper()

	store, err := media.NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	registry := &Registry{
		providers: make(map[string]Provider),
		limiters:  make(map[string]*rate.Limiter),
	}
	for _, p := range providers {
		registry.register(p, cfg.ProviderRPS)
	}

	return &Service{
		registry: registry,
		store:    store,
		source:   &fakeExtractor{err: generr.New(generr.CodeNoSource, "no extractor in this test")},
		lock:     NewTenantLock(),
	}
}

func articleRequest() GenerationRequest {
	return GenerationRequest{
		TenantID:  "tenant-test",
		ArticleID: "article-1",
		Title:     "Huracán Ana golpea Holguín dejando inundaciones",
		Body:      "Las autoridades reportan damnificados y llaman a la evacuación.",
		Category:  "Desastres",
	}
}

func TestRunLadderEscalatesOnSafetyBlockOnly(t *testing.T) {
	cfg := serviceTestConfig(t)
	provider := &scriptedProvider{
		name: "scripted",
		script: []error{
			generr.New(generr.CodeSafetyBlock, "blocked"),
			generr.New(generr.CodeSafetyBlock, "blocked again"),
			nil,
		},
		image: coverTestImage(t),
	}
	svc := newTestService(t, cfg, provider)

	plan, err := svc.buildPlan(context.Background(), cfg, articleRequest())
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	assert.Equal(t, len(plan.Attempts), 3)

	result, attempts, err := svc.runLadder(context.Background(), cfg, provider, plan)
	if err != nil {
		t.Fatalf("runLadder: %v", err)
	}

	// [SafetyBlock, SafetyBlock, Success] consumes exactly 3 attempts and the
	// success lands on the generic-fallback rung.
	assert.Equal(t, len(attempts), 3)
	assert.Equal(t, provider.calls, 3)
	assert.Equal(t, provider.levels, []string{LevelContextual, LevelNeutral, LevelGeneric})
	assert.Equal(t, attempts[2].Success, true)
	assert.Equal(t, attempts[2].Level, LevelGeneric)
	assert.Equal(t, result.Provider, "scripted")
}

func TestRunLadderTimeoutDoesNotEscalate(t *testing.T) {
	cfg := serviceTestConfig(t)
	provider := &scriptedProvider{
		name:   "scripted",
		script: []error{generr.New(generr.CodeTimeout, "provider unreachable")},
	}
	svc := newTestService(t, cfg, provider)

	plan, err := svc.buildPlan(context.Background(), cfg, articleRequest())
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}

	_, attempts, err := svc.runLadder(context.Background(), cfg, provider, plan)
	if err == nil {
		t.Fatal("expected the timeout to propagate")
	}

	assert.Equal(t, len(attempts), 1)
	assert.Equal(t, provider.calls, 1)
	assert.Equal(t, generr.CodeOf(err), generr.CodeTimeout)
}

func TestRunLadderSafetyBlockOnLastRungIsTerminal(t *testing.T) {
	cfg := serviceTestConfig(t)
	provider := &scriptedProvider{
		name: "scripted",
		script: []error{
			generr.New(generr.CodeSafetyBlock, "blocked"),
			generr.New(generr.CodeSafetyBlock, "blocked"),
			generr.New(generr.CodeSafetyBlock, "blocked"),
		},
	}
	svc := newTestService(t, cfg, provider)

	plan, err := svc.buildPlan(context.Background(), cfg, articleRequest())
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}

	_, attempts, err := svc.runLadder(context.Background(), cfg, provider, plan)
	if err == nil {
		t.Fatal("expected terminal failure after ladder exhaustion")
	}
	assert.Equal(t, len(attempts), 3)
	assert.Equal(t, generr.CodeOf(err), generr.CodeSafetyBlock)
}

func TestGenerateSuccessProducesAIAsset(t *testing.T) {
	cfg := serviceTestConfig(t)
	provider := &scriptedProvider{name: "scripted", image: coverTestImage(t)}
	svc := newTestService(t, cfg, provider)

	result, err := svc.Generate(context.Background(), articleRequest())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	assert.Equal(t, result.Kind, KindAI)
	assert.Equal(t, result.Provider, "scripted")
	assert.Equal(t, result.Degraded, false)
	if result.Asset == nil || result.Asset.Hash == "" {
		t.Fatal("expected a persisted asset with a content hash")
	}
	assert.Equal(t, result.Plan.Theme.Theme, classify.ThemeDisaster)
}

func TestGenerateDegradesToPlaceholderOnTechnicalError(t *testing.T) {
	cfg := serviceTestConfig(t)
	provider := &scriptedProvider{
		name:   "scripted",
		script: []error{generr.New(generr.CodeTimeout, "provider unreachable")},
	}
	svc := newTestService(t, cfg, provider)

	result, err := svc.Generate(context.Background(), articleRequest())
	if err != nil {
		t.Fatalf("technical failure must degrade, not propagate: %v", err)
	}

	assert.Equal(t, result.Kind, KindPlaceholder)
	assert.Equal(t, result.Degraded, true)
	if result.Asset == nil {
		t.Fatal("placeholder must still be persisted")
	}
	assert.Equal(t, len(result.Attempts), 1)
}

func TestGeneratePropagatesUserFacingError(t *testing.T) {
	cfg := serviceTestConfig(t)
	provider := &scriptedProvider{
		name:   "scripted",
		script: []error{generr.New(generr.CodeConfigMissing, "API key missing")},
	}
	svc := newTestService(t, cfg, provider)

	result, err := svc.Generate(context.Background(), articleRequest())
	if err == nil {
		t.Fatal("user-facing error must reach the caller unmasked")
	}
	assert.Equal(t, generr.CodeOf(err), generr.CodeConfigMissing)
	if result != nil {
		t.Fatal("no placeholder result on user-facing failure")
	}
}

func TestGenerateForceProviderRoutesExclusively(t *testing.T) {
	cfg := serviceTestConfig(t)
	primary := &scriptedProvider{name: "scripted", image: coverTestImage(t)}
	other := &scriptedProvider{name: "other", image: coverTestImage(t)}
	svc := newTestService(t, cfg, primary, other)

	req := articleRequest()
	req.ForceProvider = "other"

	result, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	assert.Equal(t, result.Provider, "other")
	assert.Equal(t, primary.calls, 0)

	// The config-level force wins over the per-request force.
	cfg.ForceProvider = "scripted"
	req.RequestID = ""
	result, err = svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	assert.Equal(t, result.Provider, "scripted")
}

func TestGenerateRawModeSkipsClassification(t *testing.T) {
	cfg := serviceTestConfig(t)
	provider := &scriptedProvider{name: "scripted", image: coverTestImage(t)}
	svc := newTestService(t, cfg, provider)

	result, err := svc.Generate(context.Background(), GenerationRequest{
		ArticleID:    "article-raw",
		CustomPrompt: "abstract blue waves",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	assert.Equal(t, result.Plan.RawMode, true)
	assert.Equal(t, len(result.Attempts), 1)
	assert.Equal(t, result.Attempts[0].Level, LevelCustom)
}

func TestGenerateSourcePhotoPath(t *testing.T) {
	cfg := serviceTestConfig(t)
	provider := &scriptedProvider{name: "scripted"}
	svc := newTestService(t, cfg, provider)
	svc.source = &fakeExtractor{image: coverTestImage(t)}

	req := articleRequest()
	req.ForceProvider = ProviderSourcePhoto
	req.Sources = []SourceRef{{URL: "https://example.test/photo.jpg", Width: 800, Height: 600}}

	result, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	assert.Equal(t, result.Kind, KindProcessed)
	assert.Equal(t, result.Provider, ProviderSourcePhoto)
	assert.Equal(t, provider.calls, 0)
}

func TestGenerateSourcePhotoRejectionPropagates(t *testing.T) {
	cfg := serviceTestConfig(t)
	svc := newTestService(t, cfg, &scriptedProvider{name: "scripted"})
	svc.source = &fakeExtractor{err: generr.New(generr.CodeSourceQuality, "resolution 50x50 below minimum")}

	req := articleRequest()
	req.ForceProvider = ProviderSourcePhoto

	_, err := svc.Generate(context.Background(), req)
	if err == nil {
		t.Fatal("quality rejection must propagate")
	}
	assert.Equal(t, generr.CodeOf(err), generr.CodeSourceQuality)
}

func TestGenerateBatchPartialSuccess(t *testing.T) {
	cfg := serviceTestConfig(t)
	provider := &scriptedProvider{
		name:   "scripted",
		script: []error{nil, generr.New(generr.CodeConfigMissing, "API key missing")},
		image:  coverTestImage(t),
	}
	svc := newTestService(t, cfg, provider)

	first := articleRequest()
	second := articleRequest()
	second.ArticleID = "article-2"

	var events []string
	onEvent := func(articleID, stage, detail string) {
		events = append(events, articleID+":"+stage)
	}

	batch, err := svc.GenerateBatch(context.Background(), "tenant-test", []GenerationRequest{first, second}, onEvent)
	if err != nil {
		t.Fatalf("GenerateBatch: %v", err)
	}

	assert.Equal(t, len(batch.Succeeded), 1)
	assert.Equal(t, len(batch.Failed), 1)
	assert.Equal(t, batch.Failed[0].ArticleID, "article-2")
	assert.Equal(t, batch.Failed[0].Code, string(generr.CodeConfigMissing))

	if len(events) == 0 {
		t.Fatal("expected progress events")
	}

	// Lock is released after the batch: a new batch must be accepted.
	if err := svc.lock.Acquire("tenant-test"); err != nil {
		t.Fatalf("lock not released after batch: %v", err)
	}
}

func TestGenerateBatchRejectedWhileLockHeld(t *testing.T) {
	cfg := serviceTestConfig(t)
	svc := newTestService(t, cfg, &scriptedProvider{name: "scripted", image: coverTestImage(t)})

	if err := svc.lock.Acquire("tenant-test"); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	_, err := svc.GenerateBatch(context.Background(), "tenant-test", []GenerationRequest{articleRequest()}, nil)
	if err == nil {
		t.Fatal("expected concurrency rejection")
	}
	assert.Equal(t, generr.CodeOf(err), generr.CodeConcurrency)
}
