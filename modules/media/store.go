// Package media is the crash-safe persistence engine for generated covers.
// Every image goes through a temp staging area, a quality gate, dual-format
// encoding and an atomic rename into its final location; a crash at any point
// leaves either the previous asset or nothing, never a torn file.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"time"

	"portada-media-server/modules/common/config"
	"portada-media-server/modules/common/generr"
	"portada-media-server/modules/common/utils"
)

const (
	webpQuality = 82
	jpegQuality = 90

	tmpDirName    = "tmp"
	coversDirName = "covers"
)

// PersistedAsset - final on-disk result of a successful Persist call. Hash is
// the sha256 of the primary (WebP) bytes, so re-persisting identical pixels
// lands on the same filename.
type PersistedAsset struct {
	WebPPath string `json:"webp_path"`
	JPEGPath string `json:"jpeg_path"`
	Hash     string `json:"hash"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int    `json:"bytes"`
}

// Store - filesystem-backed media store rooted at cfg.MediaRoot.
type Store struct {
	root           string
	minWidth       int
	minHeight      int
	minBytes       int
	cleanupRetries int
}

// NewStore - build a store and make sure the root layout exists.
func NewStore(cfg *config.Config) (*Store, error) {
	s := &Store{
		root:           cfg.MediaRoot,
		minWidth:       cfg.MinImageWidth,
		minHeight:      cfg.MinImageHeight,
		minBytes:       cfg.MinImageBytes,
		cleanupRetries: 3,
	}

	for _, dir := range []string{s.tmpRoot(), s.coversRoot()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, generr.Wrap(generr.CodeFilesystem, "", err, "failed to create media directory %s", dir)
		}
	}

	log.Printf("📁 [Media] Store ready at %s", s.root)
	return s, nil
}

func (s *Store) tmpRoot() string    { return filepath.Join(s.root, tmpDirName) }
func (s *Store) coversRoot() string { return filepath.Join(s.root, coversDirName) }

// stagingDir - per-request scratch directory. Keyed by request id so
// concurrent requests never share temp files.
func (s *Store) stagingDir(requestID string) string {
	return filepath.Join(s.tmpRoot(), requestID)
}

// Stage - write raw candidate bytes into the request's staging area. Staged
// files are inputs only; they are removed by Cleanup regardless of outcome.
func (s *Store) Stage(requestID, name string, data []byte) (string, error) {
	dir := s.stagingDir(requestID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", generr.Wrap(generr.CodeFilesystem, "", err, "failed to create staging dir")
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", generr.Wrap(generr.CodeFilesystem, "", err, "failed to stage %s", name)
	}
	return path, nil
}

// ValidateQuality - the quality gate applied to every image before encoding.
// Rejections are user-facing: the caller must pick a better source, a
// placeholder would hide the real problem.
func (s *Store) ValidateQuality(data []byte) (width, height int, err error) {
	if len(data) < s.minBytes {
		return 0, 0, generr.New(generr.CodeSourceQuality,
			"image too small: %d bytes (minimum %d)", len(data), s.minBytes)
	}

	width, height, derr := utils.DecodeBounds(data)
	if derr != nil {
		return 0, 0, generr.Wrap(generr.CodeSourceQuality, "", derr, "image is not decodable")
	}

	if width < s.minWidth || height < s.minHeight {
		return 0, 0, generr.New(generr.CodeSourceQuality,
			"resolution %dx%d below minimum %dx%d", width, height, s.minWidth, s.minHeight)
	}

	return width, height, nil
}

// Persist - run the full pipeline for one image: quality gate, WebP + JPEG
// encode, temp write, atomic rename. Each request id owns one final
// directory with deterministic per-format names, so regeneration under the
// same id supersedes the previous asset in place.
func (s *Store) Persist(requestID string, data []byte) (*PersistedAsset, error) {
	width, height, err := s.ValidateQuality(data)
	if err != nil {
		return nil, err
	}

	img, _, err := utils.DecodeImage(data)
	if err != nil {
		return nil, generr.Wrap(generr.CodeSourceQuality, "", err, "failed to decode image")
	}

	webpBytes, err := utils.EncodeWebP(img, webpQuality)
	if err != nil {
		return nil, generr.Wrap(generr.CodeFilesystem, "", err, "webp encode failed")
	}
	jpegBytes, err := utils.EncodeJPEG(img, jpegQuality)
	if err != nil {
		return nil, generr.Wrap(generr.CodeFilesystem, "", err, "jpeg encode failed")
	}

	sum := sha256.Sum256(webpBytes)
	hash := hex.EncodeToString(sum[:])

	finalDir := filepath.Join(s.coversRoot(), sanitizeID(requestID))
	if err := os.MkdirAll(finalDir, 0o755); err != nil {
		return nil, generr.Wrap(generr.CodeFilesystem, "", err, "failed to create %s", finalDir)
	}

	asset := &PersistedAsset{
		WebPPath: filepath.Join(finalDir, "cover.webp"),
		JPEGPath: filepath.Join(finalDir, "cover.jpg"),
		Hash:     hash,
		Width:    width,
		Height:   height,
		Bytes:    len(webpBytes),
	}

	if err := s.writeAtomic(requestID, asset.WebPPath, webpBytes); err != nil {
		return nil, err
	}
	if err := s.writeAtomic(requestID, asset.JPEGPath, jpegBytes); err != nil {
		// Primary already landed; leave it in place, the JPEG is secondary.
		return nil, err
	}

	log.Printf("💾 [Media] Persisted %s (%dx%d, %d bytes, hash %s)",
		asset.WebPPath, width, height, asset.Bytes, hash[:12])

	return asset, nil
}

// writeAtomic - write into the request's staging dir, then rename into place.
// Rename on the same filesystem is atomic, so readers never see partial
// content. Staging lives under the media root for that reason.
func (s *Store) writeAtomic(requestID, finalPath string, data []byte) error {
	tmpPath, err := s.Stage(requestID, filepath.Base(finalPath)+".partial", data)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return generr.Wrap(generr.CodeFilesystem, "", err, "failed to move %s into place", finalPath)
	}
	return nil
}

// Cleanup - remove the request's staging directory with a bounded backoff.
// A directory that is already gone counts as success; cleanup is idempotent
// and safe to call from a defer on every code path.
func (s *Store) Cleanup(requestID string) {
	dir := s.stagingDir(requestID)

	var lastErr error
	for attempt := 0; attempt < s.cleanupRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}

		err := os.RemoveAll(dir)
		if err == nil || os.IsNotExist(err) {
			return
		}
		lastErr = err
	}

	// Never fail the request over leftover temp files.
	log.Printf("⚠️ [Media] Failed to clean staging dir %s: %v", dir, lastErr)
}

// sanitizeID - keep request ids filesystem-safe.
func sanitizeID(id string) string {
	if id == "" {
		return "unassigned"
	}
	out := make([]byte, 0, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
