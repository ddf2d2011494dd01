package coverimage

import (
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"

	"portada-media-server/modules/classify"
	"portada-media-server/modules/common/config"
)

func promptTestConfig() *config.Config {
	return &config.Config{
		PromptMode:            config.PromptModeAugmented,
		DefaultStyle:          "editorial news photography",
		DefaultNegativePrompt: "text, words, letters, logos, watermarks",
	}
}

func TestBuildPromptPlanRawMode(t *testing.T) {
	cfg := promptTestConfig()
	plan := BuildPromptPlan(cfg, GenerationRequest{
		CustomPrompt: "a lighthouse at dawn",
	}, classify.Result{}, classify.GlobalCountry(), classify.EntityDetection{})

	assert.Equal(t, plan.RawMode, true)
	assert.Equal(t, len(plan.Attempts), 1)
	assert.Equal(t, plan.Attempts[0].Level, LevelCustom)
	assert.Equal(t, plan.Attempts[0].Prompt, "a lighthouse at dawn")
}

func TestBuildPromptPlanConfigRawMode(t *testing.T) {
	cfg := promptTestConfig()
	cfg.PromptMode = config.PromptModeRaw

	// Raw mode without a caller prompt still emits a single pass-through
	// attempt, backed by the generic scene.
	plan := BuildPromptPlan(cfg, GenerationRequest{},
		classify.Result{}, classify.GlobalCountry(), classify.EntityDetection{})

	assert.Equal(t, plan.RawMode, true)
	assert.Equal(t, len(plan.Attempts), 1)
	assert.Equal(t, plan.Attempts[0].Level, LevelCustom)
	assert.Equal(t, plan.Attempts[0].Prompt, classify.ContextFor(classify.ThemeGeneric).Scene)
}

func TestBuildPromptPlanLadderLevels(t *testing.T) {
	cfg := promptTestConfig()
	theme := classify.Result{Theme: classify.ThemeDisaster, SceneSubtype: classify.SubtypeHurricane}
	country := classify.CountryDetection{Code: "CU", Name: "Cuba", Tier: classify.TierHigh}

	plan := BuildPromptPlan(cfg, GenerationRequest{}, theme, country, classify.EntityDetection{EventName: "Huracán Ana"})

	assert.Equal(t, len(plan.Attempts), 3)
	assert.Equal(t, plan.Attempts[0].Level, LevelContextual)
	assert.Equal(t, plan.Attempts[1].Level, LevelNeutral)
	assert.Equal(t, plan.Attempts[2].Level, LevelGeneric)

	contextual := plan.Attempts[0].Prompt
	if !strings.Contains(contextual, "Cuba") {
		t.Fatalf("contextual rung must carry the country: %q", contextual)
	}
	if !strings.Contains(contextual, "Huracán Ana") {
		t.Fatalf("contextual rung must carry the event name: %q", contextual)
	}

	// Later rungs exist to survive safety blocks: they must not leak the
	// location, the named event, or the theme itself. A blocked disaster
	// prompt escalating into another disaster prompt would defeat the rung.
	disasterScene := classify.ContextFor(classify.ThemeDisaster).Scene
	hurricaneScene := classify.SceneForSubtype(classify.SubtypeHurricane)
	for _, attempt := range plan.Attempts[1:] {
		if strings.Contains(attempt.Prompt, "Cuba") || strings.Contains(attempt.Prompt, "Huracán Ana") {
			t.Fatalf("%s rung leaks sensitive context: %q", attempt.Level, attempt.Prompt)
		}
		if strings.Contains(attempt.Prompt, disasterScene) || strings.Contains(attempt.Prompt, hurricaneScene) {
			t.Fatalf("%s rung must not reuse the theme scene: %q", attempt.Level, attempt.Prompt)
		}
	}
}

func TestBuildPromptPlanStrictContext(t *testing.T) {
	cfg := promptTestConfig()
	cfg.StrictContextRequired = true

	plan := BuildPromptPlan(cfg, GenerationRequest{},
		classify.Result{Theme: classify.ThemePolitics}, classify.GlobalCountry(), classify.EntityDetection{})

	assert.Equal(t, len(plan.Attempts), 1)
	assert.Equal(t, plan.Attempts[0].Level, LevelContextual)
}

func TestBuildPromptPlanPersonNeverNamed(t *testing.T) {
	cfg := promptTestConfig()
	entity := classify.EntityDetection{IsPerson: true, PrimaryPerson: "Mike Waltz", Mentions: 2}

	plan := BuildPromptPlan(cfg, GenerationRequest{},
		classify.Result{Theme: classify.ThemePersonPress}, classify.GlobalCountry(), entity)

	for _, attempt := range plan.Attempts {
		if strings.Contains(attempt.Prompt, "Mike Waltz") {
			t.Fatalf("prompt must never name a real person: %q", attempt.Prompt)
		}
	}
	if !strings.Contains(plan.Attempts[0].Prompt, "no identifiable faces") {
		t.Fatalf("contextual rung should ask for an anonymous press setting: %q", plan.Attempts[0].Prompt)
	}
}

func TestBuildPromptPlanMinimalModeOmitsStyle(t *testing.T) {
	cfg := promptTestConfig()
	cfg.PromptMode = config.PromptModeMinimal

	plan := BuildPromptPlan(cfg, GenerationRequest{},
		classify.Result{Theme: classify.ThemeEconomy}, classify.GlobalCountry(), classify.EntityDetection{})

	if strings.Contains(plan.Attempts[0].Prompt, cfg.DefaultStyle) {
		t.Fatalf("minimal mode must not append the style string: %q", plan.Attempts[0].Prompt)
	}
}
