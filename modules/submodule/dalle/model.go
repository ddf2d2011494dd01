package dalle

// GenerateRequest - one image generation call against the OpenAI Images API.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"` // defaults to the configured model
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// GenerateResponse - raw image bytes from a successful call.
type GenerateResponse struct {
	ImageData []byte `json:"-"`
	Model     string `json:"model"`
}
