package sourcephoto

// Candidate - one source image attached to an article.
type Candidate struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`  // declared size, verified after download
	Height int    `json:"height,omitempty"`
}

// ExtractRequest - pick the best usable source image for an article.
type ExtractRequest struct {
	ArticleID  string      `json:"article_id"`
	Candidates []Candidate `json:"candidates"`
}

// ExtractResponse - the winning source image.
type ExtractResponse struct {
	ImageData []byte `json:"-"`
	SourceURL string `json:"source_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}
