package nanobanana

import (
	"context"
	"errors"
	"log"
	"strings"

	"google.golang.org/genai"

	"portada-media-server/modules/common/config"
	"portada-media-server/modules/common/generr"
)

const providerName = "nanobanana"

type Service struct {
	genaiClient *genai.Client
	model       string
}

// NewService - build the Gemini-backed adapter. A missing API key is not
// fatal here; Generate reports it as a typed configuration error so the
// orchestrator can fall back.
func NewService() *Service {
	cfg := config.GetConfig()

	if cfg.GeminiAPIKey == "" {
		log.Println("⚠️ [Nanobanana] GEMINI_API_KEY not set, provider disabled")
		return &Service{model: cfg.GeminiModel}
	}

	ctx := context.Background()
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Printf("❌ [Nanobanana] Failed to create Genai client: %v", err)
		return &Service{model: cfg.GeminiModel}
	}

	log.Println("✅ [Nanobanana] Service initialized")
	return &Service{
		genaiClient: genaiClient,
		model:       cfg.GeminiModel,
	}
}

// Generate - single prompt-to-image call. All failures come back as typed
// pipeline errors; the caller never inspects Gemini-specific payloads.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if s.genaiClient == nil {
		return nil, generr.New(generr.CodeConfigMissing, "GEMINI_API_KEY is not configured")
	}

	width := req.Width
	if width <= 0 {
		width = 1200
	}
	height := req.Height
	if height <= 0 {
		height = 675
	}

	model := req.Model
	if model == "" {
		model = s.model
	}

	prompt := req.Prompt
	if req.Negative != "" {
		// Gemini has no negative-prompt field; fold it into the instruction.
		prompt += ". Avoid: " + req.Negative
	}

	log.Printf("🎨 [Nanobanana] Generating image - model: %s, ratio: %s, prompt: %s",
		model, aspectRatio(width, height), truncateString(req.Prompt, 60))

	content := &genai.Content{
		Parts: []*genai.Part{genai.NewPartFromText(prompt)},
	}

	result, err := s.genaiClient.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{
				AspectRatio: aspectRatio(width, height),
			},
			Temperature: floatPtr(0.7),
		},
	)
	if err != nil {
		return nil, classifyAPIError(ctx, err)
	}

	// Check the block reason before looking for image parts: a safety-stopped
	// candidate has no
	// inline data and would otherwise read as an empty response.
	if code := blockReason(result); code != "" {
		log.Printf("🚫 [Nanobanana] Prompt blocked: %s", code)
		return nil, generr.New(generr.CodeSafetyBlock, "gemini blocked the prompt (%s)", code)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Printf("✅ [Nanobanana] Image generated: %d bytes", len(part.InlineData.Data))
				return &GenerateResponse{
					ImageData: part.InlineData.Data,
					Model:     model,
				}, nil
			}
		}
	}

	return nil, generr.New(generr.CodeInvalidResponse, "gemini returned no image parts")
}

// blockReason - extract a safety refusal from the response structure.
func blockReason(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}
	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return string(fb.BlockReason)
	}
	for _, candidate := range result.Candidates {
		switch candidate.FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonImageSafety:
			return string(candidate.FinishReason)
		}
	}
	return ""
}

// classifyAPIError - map transport/API failures into the taxonomy.
func classifyAPIError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return generr.Wrap(generr.CodeTimeout, providerName, err, "gemini call timed out")
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "safety") || strings.Contains(msg, "blocked") || strings.Contains(msg, "prohibited"):
		return generr.Wrap(generr.CodeSafetyBlock, providerName, err, "gemini refused the prompt")
	case strings.Contains(msg, "deadline") || strings.Contains(msg, "timeout"):
		return generr.Wrap(generr.CodeTimeout, providerName, err, "gemini call timed out")
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthenticated") || strings.Contains(msg, "permission"):
		return generr.Wrap(generr.CodeConfigMissing, providerName, err, "gemini credentials rejected")
	}
	return generr.Wrap(generr.CodeInvalidResponse, providerName, err, "gemini API error")
}

func aspectRatio(width, height int) string {
	switch {
	case width > height && float64(width)/float64(height) >= 1.7:
		return "16:9"
	case width > height:
		return "4:3"
	case height > width && float64(height)/float64(width) >= 1.7:
		return "9:16"
	case height > width:
		return "3:4"
	}
	return "1:1"
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func floatPtr(f float64) *float32 {
	f32 := float32(f)
	return &f32
}
