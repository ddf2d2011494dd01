package fluxschnell

// Flux Schnell model ID on Runware
const FluxSchnellModelID = "runware:100@1"

// GenerateRequest - one text-to-image call against Runware.
type GenerateRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width"`              // default 1216
	Height         int     `json:"height"`             // default 704
	Steps          int     `json:"steps,omitempty"`    // default 4 (Schnell recommendation)
	CFGScale       float64 `json:"cfg_scale,omitempty"` // default 1.0
}

// GenerateResponse - raw image bytes plus the hosted URL Runware returned.
type GenerateResponse struct {
	ImageData []byte `json:"-"`
	ImageURL  string `json:"image_url,omitempty"`
}

// RunwareRequest - Runware API request payload.
type RunwareRequest struct {
	TaskType       string  `json:"taskType"`
	TaskUUID       string  `json:"taskUUID"`
	PositivePrompt string  `json:"positivePrompt"`
	NegativePrompt string  `json:"negativePrompt,omitempty"`
	Model          string  `json:"model"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	NumberResults  int     `json:"numberResults"`
	OutputFormat   string  `json:"outputFormat"`
	Steps          int     `json:"steps,omitempty"`
	CFGScale       float64 `json:"CFGScale,omitempty"`
}

// RunwareResponse - Runware API response payload.
type RunwareResponse struct {
	Data []struct {
		TaskType  string `json:"taskType"`
		TaskUUID  string `json:"taskUUID"`
		ImageURL  string `json:"imageURL"`
		ImageUUID string `json:"imageUUID"`
	} `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
	Error string `json:"error,omitempty"`
}
