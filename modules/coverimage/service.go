package coverimage

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bpradana/weave"
	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
	"golang.org/x/sync/errgroup"

	"portada-media-server/modules/classify"
	"portada-media-server/modules/common/config"
	"portada-media-server/modules/common/generr"
	"portada-media-server/modules/media"
	"portada-media-server/modules/submodule/sourcephoto"
)

// ProviderSourcePhoto selects local extraction instead of an AI backend.
const ProviderSourcePhoto = "sourcephoto"

// Batch event stages reported through the progress callback.
const (
	StageStarted   = "started"
	StageGenerated = "generated"
	StagePersisted = "persisted"
	StageFailed    = "failed"
)

// EventFunc - per-article progress callback for batch runs.
type EventFunc func(articleID, stage, detail string)

type sourceExtractor interface {
	Extract(ctx context.Context, req *sourcephoto.ExtractRequest) (*sourcephoto.ExtractResponse, error)
}

// Service - the cover generation orchestrator. One instance serves both the
// HTTP handler and the batch worker.
type Service struct {
	registry *Registry
	store    *media.Store
	source   sourceExtractor
	lock     *TenantLock
	supabase *supabase.Client
}

// NewService - wire the orchestrator from the loaded configuration.
func NewService(store *media.Store) *Service {
	cfg := config.GetConfig()

	var supabaseClient *supabase.Client
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
		if err != nil {
			log.Printf("⚠️ [CoverImage] Supabase client unavailable, asset audit disabled: %v", err)
		} else {
			supabaseClient = client
		}
	}

	log.Println("✅ [CoverImage] Service initialized")
	return &Service{
		registry: NewRegistry(cfg),
		store:    store,
		source:   sourcephoto.NewService(),
		lock:     NewTenantLock(),
		supabase: supabaseClient,
	}
}

// Generate - produce one cover for one article.
//
// Technical failures (timeout, malformed response, filesystem) degrade to a
// themed placeholder so the surrounding article flow never hard-fails over an
// image. User-facing failures (quality rejection, no source, missing
// credentials) propagate unmodified; a placeholder would hide a problem only
// the caller can fix.
func (s *Service) Generate(ctx context.Context, req GenerationRequest) (*CoverResult, error) {
	cfg := config.GetConfig()
	start := time.Now()

	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	defer s.store.Cleanup(req.RequestID)

	providerName := effectiveProvider(cfg, req.ForceProvider)

	if providerName == ProviderSourcePhoto {
		return s.generateFromSource(ctx, req, start)
	}

	plan, err := s.buildPlan(ctx, cfg, req)
	if err != nil {
		return nil, err
	}

	provider, err := s.registry.Resolve(cfg, req.ForceProvider)
	if err != nil {
		return nil, err
	}

	result, attempts, err := s.runLadder(ctx, cfg, provider, plan)
	if err != nil {
		if generr.IsUserFacing(err) {
			return nil, err
		}
		log.Printf("⚠️ [CoverImage] Generation failed for %s, degrading to placeholder: %v", req.ArticleID, err)
		return s.generatePlaceholder(req, plan, attempts, start)
	}

	asset, err := s.store.Persist(req.RequestID, result.ImageData)
	if err != nil {
		if generr.IsUserFacing(err) {
			return nil, err
		}
		log.Printf("⚠️ [CoverImage] Persist failed for %s, degrading to placeholder: %v", req.ArticleID, err)
		return s.generatePlaceholder(req, plan, attempts, start)
	}

	cover := &CoverResult{
		RequestID: req.RequestID,
		ArticleID: req.ArticleID,
		Kind:      KindAI,
		Provider:  result.Provider,
		Asset:     asset,
		Attempts:  attempts,
		Plan:      plan,
		Elapsed:   time.Since(start),
		ElapsedMS: time.Since(start).Milliseconds(),
	}
	s.recordAsset(ctx, cover)
	return cover, nil
}

// GenerateBatch - covers for a list of articles under one tenant. The tenant
// lock spans the whole batch; a second batch for the same tenant is rejected
// while this one runs. Failures are per-article, never all-or-nothing.
func (s *Service) GenerateBatch(ctx context.Context, tenantID string, requests []GenerationRequest, onEvent EventFunc) (*BatchResult, error) {
	cfg := config.GetConfig()

	if err := s.lock.Acquire(tenantID); err != nil {
		return nil, err
	}
	defer s.lock.Release(tenantID)

	log.Printf("📦 [CoverImage] Batch started: tenant=%s, articles=%d", tenantID, len(requests))

	batch := &BatchResult{TenantID: tenantID}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.BatchConcurrency)

	for _, req := range requests {
		req := req
		req.TenantID = tenantID
		g.Go(func() error {
			emit(onEvent, req.ArticleID, StageStarted, "")

			result, err := s.Generate(gctx, req)
			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				emit(onEvent, req.ArticleID, StageFailed, err.Error())
				batch.Failed = append(batch.Failed, BatchError{
					ArticleID: req.ArticleID,
					Code:      string(generr.CodeOf(err)),
					Message:   err.Error(),
				})
				// Per-article failure stays per-article.
				return nil
			}

			emit(onEvent, req.ArticleID, StageGenerated, result.Provider)
			emit(onEvent, req.ArticleID, StagePersisted, result.Asset.Hash)
			batch.Succeeded = append(batch.Succeeded, *result)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batch, err
	}

	log.Printf("📦 [CoverImage] Batch finished: tenant=%s, ok=%d, failed=%d",
		tenantID, len(batch.Succeeded), len(batch.Failed))
	return batch, nil
}

// buildPlan - run the three detectors as a parallel task graph and assemble
// the prompt ladder. Raw mode skips classification entirely.
func (s *Service) buildPlan(ctx context.Context, cfg *config.Config, req GenerationRequest) (*PromptPlan, error) {
	if req.CustomPrompt != "" || cfg.PromptMode == config.PromptModeRaw {
		plan := BuildPromptPlan(cfg, req, classify.Result{}, classify.GlobalCountry(), classify.EntityDetection{})
		return &plan, nil
	}

	in := classify.Input{
		Title:    req.Title,
		Summary:  req.Summary,
		Body:     req.Body,
		Tags:     req.Tags,
		Category: req.Category,
	}

	graph := weave.NewGraph()

	themeTask, err := weave.AddTask(graph, "classify-theme", func(ctx context.Context, deps weave.DependencyResolver) (classify.Result, error) {
		return classify.ClassifyTheme(in), nil
	})
	if err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, "", err, "failed to build classification graph")
	}

	countryTask, err := weave.AddTask(graph, "detect-country", func(ctx context.Context, deps weave.DependencyResolver) (classify.CountryDetection, error) {
		if cfg.DisableCountryDetector {
			return classify.GlobalCountry(), nil
		}
		return classify.DetectCountry(in), nil
	})
	if err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, "", err, "failed to build classification graph")
	}

	entityTask, err := weave.AddTask(graph, "detect-entity", func(ctx context.Context, deps weave.DependencyResolver) (classify.EntityDetection, error) {
		if cfg.DisableEntityDetector {
			return classify.EntityDetection{}, nil
		}
		return classify.DetectEntity(in), nil
	})
	if err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, "", err, "failed to build classification graph")
	}

	results, _, err := graph.Start(ctx).Await()
	if err != nil {
		return nil, generr.Wrap(generr.CodeTimeout, "", err, "classification aborted")
	}

	theme, _ := themeTask.Value(results)
	country, _ := countryTask.Value(results)
	entity, _ := entityTask.Value(results)

	// A recognized public figure with no topical signal reads as a press
	// appearance, not a generic abstract cover.
	if entity.IsPerson && theme.Theme == classify.ThemeGeneric {
		theme.Theme = classify.ThemePersonPress
		theme.Reasons = append(theme.Reasons, "person entity promoted generic theme to press appearance")
	}

	log.Printf("🔎 [CoverImage] Classified %s: theme=%s (%.2f), country=%s, person=%v event=%s",
		req.ArticleID, theme.Theme, theme.Confidence, country.Name, entity.IsPerson, entity.EventType)

	plan := BuildPromptPlan(cfg, req, theme, country, entity)
	return &plan, nil
}

// runLadder - walk the prompt plan against one provider. Rungs run strictly
// in order; only a safety block moves to the next rung, and a safety block on
// the final rung is terminal.
func (s *Service) runLadder(ctx context.Context, cfg *config.Config, provider Provider, plan *PromptPlan) (*ProviderResult, []AttemptRecord, error) {
	timeout := time.Duration(cfg.ProviderTimeout) * time.Second

	var attempts []AttemptRecord

	for i, attempt := range plan.Attempts {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := s.registry.Generate(attemptCtx, provider, attempt)
		cancel()

		record := AttemptRecord{Level: attempt.Level, Provider: provider.Name()}
		if err == nil {
			record.Success = true
			attempts = append(attempts, record)
			return result, attempts, nil
		}

		record.Error = err.Error()
		attempts = append(attempts, record)

		if generr.Escalates(err) && i < len(plan.Attempts)-1 {
			log.Printf("🪜 [CoverImage] %s blocked at %s rung, escalating", provider.Name(), attempt.Level)
			continue
		}
		return nil, attempts, err
	}

	return nil, attempts, generr.New(generr.CodeInvalidResponse, "prompt plan has no attempts")
}

// generateFromSource - local extraction path: the article's own photo,
// validated and re-encoded through the same store.
func (s *Service) generateFromSource(ctx context.Context, req GenerationRequest, start time.Time) (*CoverResult, error) {
	candidates := make([]sourcephoto.Candidate, 0, len(req.Sources))
	for _, src := range req.Sources {
		candidates = append(candidates, sourcephoto.Candidate{URL: src.URL, Width: src.Width, Height: src.Height})
	}

	extracted, err := s.source.Extract(ctx, &sourcephoto.ExtractRequest{
		ArticleID:  req.ArticleID,
		Candidates: candidates,
	})
	if err != nil {
		// Extraction failures are user-facing or timeouts; neither is masked.
		return nil, err
	}

	asset, err := s.store.Persist(req.RequestID, extracted.ImageData)
	if err != nil {
		return nil, err
	}

	cover := &CoverResult{
		RequestID: req.RequestID,
		ArticleID: req.ArticleID,
		Kind:      KindProcessed,
		Provider:  ProviderSourcePhoto,
		Asset:     asset,
		Attempts: []AttemptRecord{{
			Level:    LevelContextual,
			Provider: ProviderSourcePhoto,
			Success:  true,
		}},
		Elapsed:   time.Since(start),
		ElapsedMS: time.Since(start).Milliseconds(),
	}
	s.recordAsset(ctx, cover)
	return cover, nil
}

// generatePlaceholder - best-effort local fallback after a technical failure.
func (s *Service) generatePlaceholder(req GenerationRequest, plan *PromptPlan, attempts []AttemptRecord, start time.Time) (*CoverResult, error) {
	theme := classify.ThemeGeneric
	if plan != nil {
		if t := plan.Theme.Theme; t != "" {
			theme = t
		}
	}

	data, err := RenderPlaceholder(theme)
	if err != nil {
		return nil, generr.Wrap(generr.CodeFilesystem, "", err, "placeholder rendering failed")
	}

	asset, err := s.store.Persist(req.RequestID, data)
	if err != nil {
		return nil, err
	}

	cover := &CoverResult{
		RequestID: req.RequestID,
		ArticleID: req.ArticleID,
		Kind:      KindPlaceholder,
		Asset:     asset,
		Attempts:  attempts,
		Plan:      plan,
		Degraded:  true,
		Elapsed:   time.Since(start),
		ElapsedMS: time.Since(start).Milliseconds(),
	}
	s.recordAsset(context.Background(), cover)
	return cover, nil
}

// recordAsset - audit row for a persisted cover. Bookkeeping only: failures
// are logged and never fail the request.
func (s *Service) recordAsset(ctx context.Context, cover *CoverResult) {
	if s.supabase == nil || cover.Asset == nil {
		return
	}

	row := map[string]interface{}{
		"request_id":   cover.RequestID,
		"article_id":   cover.ArticleID,
		"kind":         cover.Kind,
		"provider":     cover.Provider,
		"content_hash": cover.Asset.Hash,
		"webp_path":    cover.Asset.WebPPath,
		"jpeg_path":    cover.Asset.JPEGPath,
		"width":        cover.Asset.Width,
		"height":       cover.Asset.Height,
	}
	if cover.Plan != nil {
		row["theme"] = string(cover.Plan.Theme.Theme)
	}

	if _, _, err := s.supabase.From("portada_cover_assets").Insert(row, false, "", "", "").Execute(); err != nil {
		log.Printf("⚠️ [CoverImage] Failed to record asset audit row: %v", err)
	}
}

// effectiveProvider - config force wins over request force; empty means auto.
func effectiveProvider(cfg *config.Config, requested string) string {
	if cfg.ForceProvider != "" {
		return cfg.ForceProvider
	}
	if requested != "" && requested != ProviderAuto {
		return requested
	}
	return cfg.DefaultProvider
}

func emit(onEvent EventFunc, articleID, stage, detail string) {
	if onEvent != nil {
		onEvent(articleID, stage, detail)
	}
}
