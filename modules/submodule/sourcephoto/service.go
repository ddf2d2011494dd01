package sourcephoto

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"portada-media-server/modules/common/config"
	"portada-media-server/modules/common/generr"
	"portada-media-server/modules/common/utils"
)

const providerName = "sourcephoto"

// maxDownloadBytes caps a single source download; news CDNs occasionally
// serve full-resolution originals.
const maxDownloadBytes = 20 << 20

type Service struct {
	httpClient *http.Client
	cache      *gocache.Cache
	group      singleflight.Group
}

// NewService - source-photo extractor with a short-lived download cache.
// Batch runs frequently reference the same agency photo across articles; the
// cache plus singleflight keeps that to one download.
func NewService() *Service {
	log.Println("✅ [SourcePhoto] Service initialized")
	return &Service{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      gocache.New(10*time.Minute, 5*time.Minute),
	}
}

type downloaded struct {
	data         []byte
	lastModified time.Time
}

// Extract - try the article's source images from largest declared size down
// and return the first one that passes the quality checks. No candidates at
// all is a distinct error from "all candidates rejected": the first needs an
// upload, the second a better upload.
func (s *Service) Extract(ctx context.Context, req *ExtractRequest) (*ExtractResponse, error) {
	if len(req.Candidates) == 0 {
		return nil, generr.New(generr.CodeNoSource, "article %s has no source images", req.ArticleID)
	}

	cfg := config.GetConfig()

	candidates := make([]Candidate, len(req.Candidates))
	copy(candidates, req.Candidates)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Width*candidates[i].Height > candidates[j].Width*candidates[j].Height
	})

	var lastErr error
	for _, cand := range candidates {
		resp, err := s.tryCandidate(ctx, cfg, cand)
		if err != nil {
			if generr.IsTimeout(err) {
				return nil, err
			}
			log.Printf("⚠️ [SourcePhoto] Candidate rejected (%s): %v", truncateString(cand.URL, 60), err)
			lastErr = err
			continue
		}
		log.Printf("✅ [SourcePhoto] Selected %s (%dx%d)", truncateString(cand.URL, 60), resp.Width, resp.Height)
		return resp, nil
	}

	return nil, generr.Wrap(generr.CodeSourceQuality, providerName, lastErr,
		"all %d source candidates rejected", len(candidates))
}

func (s *Service) tryCandidate(ctx context.Context, cfg *config.Config, cand Candidate) (*ExtractResponse, error) {
	dl, err := s.download(ctx, cand.URL)
	if err != nil {
		return nil, err
	}

	if len(dl.data) < cfg.MinImageBytes {
		return nil, generr.New(generr.CodeSourceQuality,
			"source is %d bytes, minimum is %d", len(dl.data), cfg.MinImageBytes)
	}

	width, height, err := utils.DecodeBounds(dl.data)
	if err != nil {
		return nil, generr.Wrap(generr.CodeSourceQuality, providerName, err, "source is not a decodable image")
	}
	if width < cfg.MinImageWidth || height < cfg.MinImageHeight {
		return nil, generr.New(generr.CodeSourceQuality,
			"source resolution %dx%d below minimum %dx%d", width, height, cfg.MinImageWidth, cfg.MinImageHeight)
	}

	if cfg.MaxSourceAge > 0 && !dl.lastModified.IsZero() {
		maxAge := time.Duration(cfg.MaxSourceAge) * 24 * time.Hour
		if age := time.Since(dl.lastModified); age > maxAge {
			return nil, generr.New(generr.CodeSourceQuality,
				"source is %.0f days old, maximum is %d", age.Hours()/24, cfg.MaxSourceAge)
		}
	}

	return &ExtractResponse{
		ImageData: dl.data,
		SourceURL: cand.URL,
		Width:     width,
		Height:    height,
	}, nil
}

// download - cached, deduplicated fetch keyed by URL.
func (s *Service) download(ctx context.Context, url string) (*downloaded, error) {
	if cached, ok := s.cache.Get(url); ok {
		return cached.(*downloaded), nil
	}

	result, err, _ := s.group.Do(url, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, generr.Wrap(generr.CodeSourceQuality, providerName, err, "invalid source URL")
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, generr.Wrap(generr.CodeTimeout, providerName, err, "source download timed out")
			}
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, generr.Wrap(generr.CodeTimeout, providerName, err, "source download timed out")
			}
			return nil, generr.Wrap(generr.CodeSourceQuality, providerName, err, "source download failed")
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, generr.New(generr.CodeSourceQuality, "source download failed: status %d", resp.StatusCode)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
		if err != nil {
			return nil, generr.Wrap(generr.CodeSourceQuality, providerName, err, "failed to read source body")
		}

		dl := &downloaded{data: data}
		if lm := resp.Header.Get("Last-Modified"); lm != "" {
			if t, err := http.ParseTime(lm); err == nil {
				dl.lastModified = t
			}
		}

		s.cache.SetDefault(url, dl)
		return dl, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*downloaded), nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
