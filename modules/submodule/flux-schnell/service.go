package fluxschnell

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"portada-media-server/modules/common/config"
	"portada-media-server/modules/common/generr"
)

const providerName = "flux-schnell"

type Service struct {
	httpClient *http.Client
}

func NewService() *Service {
	cfg := config.GetConfig()

	if cfg.RunwareAPIKey == "" {
		log.Println("⚠️ [FluxSchnell] RUNWARE_API_KEY not configured, provider disabled")
	} else {
		log.Println("✅ [FluxSchnell] Service initialized")
	}

	return &Service{
		httpClient: &http.Client{Timeout: time.Duration(cfg.ProviderTimeout) * time.Second},
	}
}

// Generate - text-to-image via Runware, image downloaded into raw bytes.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	cfg := config.GetConfig()

	if cfg.RunwareAPIKey == "" {
		return nil, generr.New(generr.CodeConfigMissing, "RUNWARE_API_KEY is not configured")
	}

	width := req.Width
	if width <= 0 {
		width = 1216
	}
	height := req.Height
	if height <= 0 {
		height = 704
	}
	steps := req.Steps
	if steps <= 0 {
		steps = 4
	}
	cfgScale := req.CFGScale
	if cfgScale <= 0 {
		cfgScale = 1.0
	}

	log.Printf("🎨 [FluxSchnell] Generating image - size: %dx%d, steps: %d, prompt: %s",
		width, height, steps, truncateString(req.Prompt, 60))

	runwareReq := RunwareRequest{
		TaskType:       "imageInference",
		TaskUUID:       uuid.New().String(),
		PositivePrompt: req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Model:          FluxSchnellModelID,
		Width:          width,
		Height:         height,
		NumberResults:  1,
		OutputFormat:   "PNG",
		Steps:          steps,
		CFGScale:       cfgScale,
	}

	jsonBody, err := json.Marshal([]RunwareRequest{runwareReq})
	if err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, providerName, err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", cfg.RunwareAPIURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, providerName, err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+cfg.RunwareAPIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, providerName, err, "failed to read response")
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, generr.New(generr.CodeConfigMissing, "runware rejected credentials: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyAPIError(resp.StatusCode, string(bodyBytes))
	}

	var runwareResp RunwareResponse
	if err := json.Unmarshal(bodyBytes, &runwareResp); err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, providerName, err, "failed to parse response")
	}

	if msg := runwareResp.errorMessage(); msg != "" {
		return nil, classifyAPIError(resp.StatusCode, msg)
	}

	if len(runwareResp.Data) == 0 || runwareResp.Data[0].ImageURL == "" {
		return nil, generr.New(generr.CodeInvalidResponse, "runware returned no image URL")
	}

	imageURL := runwareResp.Data[0].ImageURL
	imageData, err := s.downloadImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ [FluxSchnell] Image generated: %d bytes", len(imageData))
	return &GenerateResponse{
		ImageData: imageData,
		ImageURL:  imageURL,
	}, nil
}

// downloadImage - fetch the hosted result into raw bytes.
func (s *Service) downloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", imageURL, nil)
	if err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, providerName, err, "failed to create download request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, generr.New(generr.CodeInvalidResponse, "image download failed: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, generr.Wrap(generr.CodeInvalidResponse, providerName, err, "failed to read image body")
	}
	return data, nil
}

func (r *RunwareResponse) errorMessage() string {
	if r.Error != "" {
		return r.Error
	}
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// classifyAPIError - Runware reports moderation refusals in error text, not
// in a structured field.
func classifyAPIError(status int, body string) error {
	lower := strings.ToLower(body)
	switch {
	case strings.Contains(lower, "nsfw") || strings.Contains(lower, "moderat") || strings.Contains(lower, "blocked") || strings.Contains(lower, "safety"):
		return generr.New(generr.CodeSafetyBlock, "runware refused the prompt: %s", truncateString(body, 200))
	case strings.Contains(lower, "timeout"):
		return generr.New(generr.CodeTimeout, "runware timed out: %s", truncateString(body, 200))
	}
	return generr.New(generr.CodeInvalidResponse, "runware error (status %d): %s", status, truncateString(body, 200))
}

func classifyTransportError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return generr.Wrap(generr.CodeTimeout, providerName, err, "runware call timed out")
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return generr.Wrap(generr.CodeTimeout, providerName, err, "runware call timed out")
	}
	return generr.Wrap(generr.CodeInvalidResponse, providerName, err, "runware transport error")
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
