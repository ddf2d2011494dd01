package dalle

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"portada-media-server/modules/common/config"
	"portada-media-server/modules/common/generr"
)

const providerName = "dalle"

type Service struct {
	client  openai.Client
	enabled bool
	model   string
}

// NewService - build the OpenAI-backed adapter. Like the other adapters a
// missing key disables the provider instead of failing startup.
func NewService() *Service {
	cfg := config.GetConfig()

	if cfg.OpenAIAPIKey == "" {
		log.Println("⚠️ [DALLE] OPENAI_API_KEY not set, provider disabled")
		return &Service{model: cfg.OpenAIImageModel}
	}

	log.Println("✅ [DALLE] Service initialized")
	return &Service{
		client:  openai.NewClient(option.WithAPIKey(cfg.OpenAIAPIKey)),
		enabled: true,
		model:   cfg.OpenAIImageModel,
	}
}

// Generate - single prompt-to-image call via the Images API.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	if !s.enabled {
		return nil, generr.New(generr.CodeConfigMissing, "OPENAI_API_KEY is not configured")
	}

	model := req.Model
	if model == "" {
		model = s.model
	}

	log.Printf("🎨 [DALLE] Generating image - model: %s, prompt: %s",
		model, truncateString(req.Prompt, 60))

	resp, err := s.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: req.Prompt,
		Model:  openai.ImageModel(model),
		Size:   sizeFor(req.Width, req.Height),
		N:      openai.Int(1),
	})
	if err != nil {
		return nil, classifyAPIError(ctx, err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, generr.New(generr.CodeInvalidResponse, "openai returned no image data")
	}

	imageData, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, providerName, err, "failed to decode image payload")
	}

	log.Printf("✅ [DALLE] Image generated: %d bytes", len(imageData))
	return &GenerateResponse{
		ImageData: imageData,
		Model:     model,
	}, nil
}

// sizeFor - closest supported landscape/portrait/square size.
func sizeFor(width, height int) openai.ImageGenerateParamsSize {
	switch {
	case width > height:
		return openai.ImageGenerateParamsSize1536x1024
	case height > width:
		return openai.ImageGenerateParamsSize1024x1536
	}
	return openai.ImageGenerateParamsSize1024x1024
}

// classifyAPIError - map OpenAI failures into the taxonomy. Content-policy
// refusals arrive as 400s with a moderation code in the message.
func classifyAPIError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return generr.Wrap(generr.CodeTimeout, providerName, err, "openai call timed out")
	}

	var apiErr *openai.Error
	msg := strings.ToLower(err.Error())

	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return generr.Wrap(generr.CodeConfigMissing, providerName, err, "openai credentials rejected")
		}
	}

	switch {
	case strings.Contains(msg, "content_policy") || strings.Contains(msg, "moderation") || strings.Contains(msg, "safety system"):
		return generr.Wrap(generr.CodeSafetyBlock, providerName, err, "openai refused the prompt")
	case strings.Contains(msg, "deadline") || strings.Contains(msg, "timeout"):
		return generr.Wrap(generr.CodeTimeout, providerName, err, "openai call timed out")
	}
	return generr.Wrap(generr.CodeInvalidResponse, providerName, err, "openai API error")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
