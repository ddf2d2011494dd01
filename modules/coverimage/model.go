package coverimage

import (
	"time"

	"portada-media-server/modules/classify"
	"portada-media-server/modules/media"
)

// Prompt ladder levels, in escalation order.
const (
	LevelContextual = "contextual"
	LevelNeutral    = "neutral"
	LevelGeneric    = "generic-fallback"
	LevelCustom     = "custom"
)

// Result kinds for the final cover.
const (
	KindProcessed   = "processed"   // extracted from the article's own media
	KindAI          = "ai"          // provider-generated
	KindPlaceholder = "placeholder" // locally rendered fallback
)

// SourceRef - a candidate source image attached to the article.
type SourceRef struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// GenerationRequest - one cover request, single or batch member.
type GenerationRequest struct {
	RequestID string `json:"request_id,omitempty"` // assigned when empty
	TenantID  string `json:"tenant_id"`
	ArticleID string `json:"article_id"`

	Title    string   `json:"title"`
	Summary  string   `json:"summary,omitempty"`
	Body     string   `json:"body,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty"`

	Sources []SourceRef `json:"sources,omitempty"`

	// CustomPrompt switches the pipeline into raw mode: exactly one attempt
	// with this text, no classification, no ladder.
	CustomPrompt  string `json:"custom_prompt,omitempty"`
	ForceProvider string `json:"force_provider,omitempty"`
	Style         string `json:"style,omitempty"`
}

// PromptAttempt - one rung of the ladder.
type PromptAttempt struct {
	Level    string `json:"level"`
	Prompt   string `json:"prompt"`
	Negative string `json:"negative,omitempty"`
}

// PromptPlan - the full ordered ladder plus the classification that shaped it.
type PromptPlan struct {
	Attempts []PromptAttempt          `json:"attempts"`
	Theme    classify.Result          `json:"theme"`
	Country  classify.CountryDetection `json:"country"`
	Entity   classify.EntityDetection `json:"entity"`
	RawMode  bool                     `json:"raw_mode"`
}

// ProviderResult - what an adapter wrapper hands back to the orchestrator.
type ProviderResult struct {
	ImageData []byte
	Provider  string
	Model     string
}

// AttemptRecord - audit trail entry for one provider call.
type AttemptRecord struct {
	Level    string `json:"level"`
	Provider string `json:"provider"`
	Error    string `json:"error,omitempty"`
	Success  bool   `json:"success"`
}

// CoverResult - the orchestrator's answer for one request.
type CoverResult struct {
	RequestID string               `json:"request_id"`
	ArticleID string               `json:"article_id"`
	Kind      string               `json:"kind"`
	Provider  string               `json:"provider,omitempty"`
	Asset     *media.PersistedAsset `json:"asset"`
	Attempts  []AttemptRecord      `json:"attempts"`
	Plan      *PromptPlan          `json:"plan,omitempty"`
	Degraded  bool                 `json:"degraded"` // placeholder masking a technical failure
	Elapsed   time.Duration        `json:"-"`
	ElapsedMS int64                `json:"elapsed_ms"`
}

// BatchResult - per-article outcomes for a batch run. Failures are recorded
// per item; one bad article never aborts the batch.
type BatchResult struct {
	TenantID  string        `json:"tenant_id"`
	Succeeded []CoverResult `json:"succeeded"`
	Failed    []BatchError  `json:"failed"`
}

// BatchError - one failed batch item with its taxonomy code.
type BatchError struct {
	ArticleID string `json:"article_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
