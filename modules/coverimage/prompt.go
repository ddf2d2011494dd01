package coverimage

import (
	"fmt"
	"strings"

	"portada-media-server/modules/classify"
	"portada-media-server/modules/common/config"
)

// BuildPromptPlan - assemble the escalation ladder for one request.
//
// Raw mode (a caller-supplied custom prompt) produces exactly one attempt and
// skips classification entirely. Otherwise the ladder runs contextual ->
// neutral -> generic-fallback, where only the first rung carries the
// classified theme, country and entity; both fallback rungs are
// theme-agnostic so a refused contextual prompt never escalates into a
// variation of itself. With strict context
// enabled the fallback rungs are removed and a refused contextual prompt
// simply fails.
func BuildPromptPlan(cfg *config.Config, req GenerationRequest, theme classify.Result, country classify.CountryDetection, entity classify.EntityDetection) PromptPlan {
	if req.CustomPrompt != "" || cfg.PromptMode == config.PromptModeRaw {
		prompt := req.CustomPrompt
		if prompt == "" {
			// Raw mode without caller text still needs something to send.
			prompt = classify.ContextFor(classify.ThemeGeneric).Scene
		}
		return PromptPlan{
			RawMode: true,
			Attempts: []PromptAttempt{{
				Level:    LevelCustom,
				Prompt:   prompt,
				Negative: cfg.DefaultNegativePrompt,
			}},
		}
	}

	plan := PromptPlan{Theme: theme, Country: country, Entity: entity}

	style := req.Style
	if style == "" {
		style = cfg.DefaultStyle
	}

	rule := classify.ContextFor(theme.Theme)

	plan.Attempts = append(plan.Attempts, PromptAttempt{
		Level:    LevelContextual,
		Prompt:   contextualPrompt(cfg, rule, style, theme, country, entity),
		Negative: rule.Negative,
	})

	if !cfg.StrictContextRequired {
		plan.Attempts = append(plan.Attempts,
			PromptAttempt{
				Level:    LevelNeutral,
				Prompt:   neutralPrompt(cfg, style),
				Negative: cfg.DefaultNegativePrompt,
			},
			PromptAttempt{
				Level:    LevelGeneric,
				Prompt:   genericPrompt(cfg, style),
				Negative: cfg.DefaultNegativePrompt,
			},
		)
	}

	return plan
}

// contextualPrompt - the richest rung: scene, subtype refinement, location and
// entity details.
func contextualPrompt(cfg *config.Config, rule classify.ContextRule, style string, theme classify.Result, country classify.CountryDetection, entity classify.EntityDetection) string {
	parts := []string{rule.Scene}

	if refinement := classify.SceneForSubtype(theme.SceneSubtype); refinement != "" {
		parts = append(parts, refinement)
	}

	if !country.IsGlobal() {
		parts = append(parts, fmt.Sprintf("setting inspired by %s, recognizable regional architecture and atmosphere", country.Name))
	} else if cfg.DefaultLocale == "es" {
		parts = append(parts, "Spanish-speaking Latin American setting")
	}

	switch {
	case entity.EventName != "":
		parts = append(parts, fmt.Sprintf("news coverage of %s", entity.EventName))
	case entity.IsPerson:
		// Never render a real person's likeness; depict the press setting
		// around them instead.
		parts = append(parts, "focus on the press event setting, no identifiable faces")
	}

	if cfg.PromptMode == config.PromptModeAugmented {
		parts = append(parts, style)
	}

	return strings.Join(parts, ", ")
}

// neutralPrompt - theme-agnostic middle rung: real-world editorial imagery
// with no topical, geographic or personal detail carried over.
func neutralPrompt(cfg *config.Config, style string) string {
	parts := []string{classify.NeutralScene, "no identifiable people or places"}
	if cfg.PromptMode == config.PromptModeAugmented {
		parts = append(parts, style)
	}
	return strings.Join(parts, ", ")
}

// genericPrompt - theme-agnostic final rung; intentionally bland so it is
// never refused.
func genericPrompt(cfg *config.Config, style string) string {
	generic := classify.ContextFor(classify.ThemeGeneric)
	parts := []string{generic.Scene}
	if cfg.PromptMode == config.PromptModeAugmented {
		parts = append(parts, style)
	}
	return strings.Join(parts, ", ")
}
