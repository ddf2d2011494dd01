package nanobanana

// GenerateRequest - one image generation call against Gemini.
type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Negative string `json:"negative,omitempty"`
	Model    string `json:"model,omitempty"` // defaults to the configured model
	Width    int    `json:"width"`           // default 1200
	Height   int    `json:"height"`          // default 675
}

// GenerateResponse - raw image bytes from a successful call.
type GenerateResponse struct {
	ImageData []byte `json:"-"`
	Model     string `json:"model"`
}
