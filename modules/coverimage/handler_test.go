package coverimage

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/mux"

	"portada-media-server/modules/common/generr"
	"portada-media-server/modules/media"
)

type fakeGenerator struct {
	result *CoverResult
	err    error
	gotReq GenerationRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) (*CoverResult, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newHandlerRouter(gen Generator) *mux.Router {
	router := mux.NewRouter()
	NewHandler(gen, nil).RegisterRoutes(router)
	return router
}

func postJSON(t *testing.T, router *mux.Router, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleGenerateSuccess(t *testing.T) {
	gen := &fakeGenerator{
		result: &CoverResult{
			RequestID: "req-1",
			ArticleID: "article-1",
			Kind:      KindAI,
			Provider:  "scripted",
			Asset:     &media.PersistedAsset{Hash: "abc123", WebPPath: "/media/covers/req-1/cover.webp"},
		},
	}
	router := newHandlerRouter(gen)

	rec := postJSON(t, router, "/api/covers/generate", map[string]interface{}{
		"article_id": "article-1",
		"title":      "Huracán Ana golpea Holguín",
	})

	assert.Equal(t, rec.Code, http.StatusOK)

	var resp GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	assert.Equal(t, resp.Success, true)
	assert.Equal(t, resp.Result.Kind, KindAI)
	assert.Equal(t, gen.gotReq.ArticleID, "article-1")
}

func TestHandleGenerateRejectsEmptyRequest(t *testing.T) {
	router := newHandlerRouter(&fakeGenerator{})

	rec := postJSON(t, router, "/api/covers/generate", map[string]interface{}{
		"article_id": "article-1",
	})

	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestHandleGenerateInvalidJSON(t *testing.T) {
	router := newHandlerRouter(&fakeGenerator{})

	req := httptest.NewRequest(http.MethodPost, "/api/covers/generate", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, rec.Code, http.StatusBadRequest)
}

func TestHandleGenerateUserFacingErrorStatus(t *testing.T) {
	gen := &fakeGenerator{err: generr.New(generr.CodeSourceQuality, "resolution 50x50 below minimum 400x300")}
	router := newHandlerRouter(gen)

	rec := postJSON(t, router, "/api/covers/generate", map[string]interface{}{
		"title": "Un titular cualquiera",
	})

	assert.Equal(t, rec.Code, http.StatusUnprocessableEntity)

	var resp GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	assert.Equal(t, resp.Success, false)
	assert.Equal(t, resp.ErrorCode, string(generr.CodeSourceQuality))
}

func TestHandleGenerateConcurrencyConflict(t *testing.T) {
	gen := &fakeGenerator{err: generr.New(generr.CodeConcurrency, "a batch is already running")}
	router := newHandlerRouter(gen)

	rec := postJSON(t, router, "/api/covers/generate", map[string]interface{}{
		"title": "Un titular cualquiera",
	})

	assert.Equal(t, rec.Code, http.StatusConflict)
}

func TestHandleBatchUnavailableWithoutJobStore(t *testing.T) {
	router := newHandlerRouter(&fakeGenerator{})

	rec := postJSON(t, router, "/api/covers/batch", BatchSubmitRequest{
		TenantID: "tenant-a",
		Articles: []map[string]interface{}{{"title": "t"}},
	})

	assert.Equal(t, rec.Code, http.StatusServiceUnavailable)
}
