package coverimage

import (
	"context"

	"golang.org/x/time/rate"

	"portada-media-server/modules/common/config"
	"portada-media-server/modules/common/generr"
	"portada-media-server/modules/submodule/dalle"
	fluxschnell "portada-media-server/modules/submodule/flux-schnell"
	"portada-media-server/modules/submodule/nanobanana"
)

// Cover output dimensions (16:9 editorial format).
const (
	coverWidth  = 1200
	coverHeight = 675
)

// Provider names accepted in requests and configuration.
const (
	ProviderNanobanana  = "nanobanana"
	ProviderFluxSchnell = "flux-schnell"
	ProviderDalle       = "dalle"
	ProviderAuto        = "auto"
)

// Provider - uniform view of one AI image backend. Every implementation
// returns taxonomy errors only, so the ladder never branches on which backend
// is active.
type Provider interface {
	Name() string
	Generate(ctx context.Context, attempt PromptAttempt) (*ProviderResult, error)
}

// Registry - provider lookup plus per-provider rate limiting. Limiters live
// here rather than in the adapters so batch and single-shot traffic share one
// budget per backend.
type Registry struct {
	providers map[string]Provider
	limiters  map[string]*rate.Limiter
}

// NewRegistry - wire up the three AI backends with a shared per-provider RPS.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		limiters:  make(map[string]*rate.Limiter),
	}

	r.register(&nanobananaProvider{svc: nanobanana.NewService()}, cfg.ProviderRPS)
	r.register(&fluxSchnellProvider{svc: fluxschnell.NewService()}, cfg.ProviderRPS)
	r.register(&dalleProvider{svc: dalle.NewService()}, cfg.ProviderRPS)

	return r
}

func (r *Registry) register(p Provider, rps float64) {
	r.providers[p.Name()] = p
	r.limiters[p.Name()] = rate.NewLimiter(rate.Limit(rps), 1)
}

// Resolve - pick the provider for a request. The config-level force wins over
// the per-request force; "auto" and empty both mean the configured default.
func (r *Registry) Resolve(cfg *config.Config, requested string) (Provider, error) {
	name := requested
	if cfg.ForceProvider != "" {
		name = cfg.ForceProvider
	}
	if name == "" || name == ProviderAuto {
		name = cfg.DefaultProvider
	}

	p, ok := r.providers[name]
	if !ok {
		return nil, generr.New(generr.CodeConfigMissing, "unknown provider %q", name)
	}
	return p, nil
}

// Generate - rate-limited call through to the named provider.
func (r *Registry) Generate(ctx context.Context, p Provider, attempt PromptAttempt) (*ProviderResult, error) {
	if limiter, ok := r.limiters[p.Name()]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return nil, generr.Wrap(generr.CodeTimeout, p.Name(), err, "rate limiter wait aborted")
		}
	}
	return p.Generate(ctx, attempt)
}

// --- adapter wrappers ---

type nanobananaProvider struct {
	svc *nanobanana.Service
}

func (p *nanobananaProvider) Name() string { return ProviderNanobanana }

func (p *nanobananaProvider) Generate(ctx context.Context, attempt PromptAttempt) (*ProviderResult, error) {
	resp, err := p.svc.Generate(ctx, &nanobanana.GenerateRequest{
		Prompt:   attempt.Prompt,
		Negative: attempt.Negative,
		Width:    coverWidth,
		Height:   coverHeight,
	})
	if err != nil {
		return nil, err
	}
	return &ProviderResult{ImageData: resp.ImageData, Provider: p.Name(), Model: resp.Model}, nil
}

type fluxSchnellProvider struct {
	svc *fluxschnell.Service
}

func (p *fluxSchnellProvider) Name() string { return ProviderFluxSchnell }

func (p *fluxSchnellProvider) Generate(ctx context.Context, attempt PromptAttempt) (*ProviderResult, error) {
	resp, err := p.svc.Generate(ctx, &fluxschnell.GenerateRequest{
		Prompt:         attempt.Prompt,
		NegativePrompt: attempt.Negative,
		Width:          1216, // Runware requires multiples of 64
		Height:         704,
	})
	if err != nil {
		return nil, err
	}
	return &ProviderResult{ImageData: resp.ImageData, Provider: p.Name(), Model: fluxschnell.FluxSchnellModelID}, nil
}

type dalleProvider struct {
	svc *dalle.Service
}

func (p *dalleProvider) Name() string { return ProviderDalle }

func (p *dalleProvider) Generate(ctx context.Context, attempt PromptAttempt) (*ProviderResult, error) {
	prompt := attempt.Prompt
	if attempt.Negative != "" {
		// The Images API has no negative-prompt field.
		prompt += ". Avoid: " + attempt.Negative
	}
	resp, err := p.svc.Generate(ctx, &dalle.GenerateRequest{
		Prompt: prompt,
		Width:  coverWidth,
		Height: coverHeight,
	})
	if err != nil {
		return nil, err
	}
	return &ProviderResult{ImageData: resp.ImageData, Provider: p.Name(), Model: resp.Model}, nil
}
