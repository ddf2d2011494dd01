package coverimage

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"portada-media-server/modules/common/generr"
)

// Generator - what the handler needs from the orchestrator.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*CoverResult, error)
}

type Handler struct {
	generator Generator
	jobs      *JobStore // nil when batch mode is not configured
}

func NewHandler(generator Generator, jobs *JobStore) *Handler {
	return &Handler{
		generator: generator,
		jobs:      jobs,
	}
}

// RegisterRoutes - route registration
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/covers/generate", h.HandleGenerate).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/covers/batch", h.HandleBatch).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/covers/jobs/{id}", h.HandleJobStatus).Methods("GET", "OPTIONS")
	log.Println("✅ Cover routes registered")
}

// GenerateResponse - single generation HTTP envelope.
type GenerateResponse struct {
	Success      bool         `json:"success"`
	Result       *CoverResult `json:"result,omitempty"`
	ErrorCode    string       `json:"error_code,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
}

// BatchSubmitRequest - POST /api/covers/batch payload.
type BatchSubmitRequest struct {
	TenantID string                   `json:"tenant_id"`
	Articles []map[string]interface{} `json:"articles"`
}

// BatchSubmitResponse - 202 payload with the queued job id.
type BatchSubmitResponse struct {
	Success      bool   `json:"success"`
	JobID        string `json:"job_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// HandleGenerate - POST /api/covers/generate
// Synchronous single-cover generation.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	var req GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("❌ [Cover] Invalid request: %v", err)
		writeJSON(w, http.StatusBadRequest, GenerateResponse{
			Success:      false,
			ErrorMessage: "Invalid request format",
		})
		return
	}

	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.CustomPrompt) == "" {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{
			Success:      false,
			ErrorMessage: "title or custom_prompt is required",
		})
		return
	}

	result, err := h.generator.Generate(r.Context(), req)
	if err != nil {
		code := generr.CodeOf(err)
		log.Printf("❌ [Cover] Generation failed for %s: %v", req.ArticleID, err)
		writeJSON(w, statusForCode(code), GenerateResponse{
			Success:      false,
			ErrorCode:    string(code),
			ErrorMessage: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Success: true,
		Result:  result,
	})
}

// HandleBatch - POST /api/covers/batch
// Enqueues a batch job and returns 202 with its id; the worker picks it up.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.jobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, BatchSubmitResponse{
			Success:      false,
			ErrorMessage: "batch mode is not configured",
		})
		return
	}

	var req BatchSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, BatchSubmitResponse{
			Success:      false,
			ErrorMessage: "Invalid request format",
		})
		return
	}

	if req.TenantID == "" || len(req.Articles) == 0 {
		writeJSON(w, http.StatusBadRequest, BatchSubmitResponse{
			Success:      false,
			ErrorMessage: "tenant_id and a non-empty articles list are required",
		})
		return
	}

	jobID, err := h.jobs.Enqueue(r.Context(), req.TenantID, req.Articles)
	if err != nil {
		log.Printf("❌ [Cover] Failed to enqueue batch: %v", err)
		writeJSON(w, http.StatusInternalServerError, BatchSubmitResponse{
			Success:      false,
			ErrorMessage: "failed to enqueue batch job",
		})
		return
	}

	writeJSON(w, http.StatusAccepted, BatchSubmitResponse{
		Success: true,
		JobID:   jobID,
	})
}

// HandleJobStatus - GET /api/covers/jobs/{id}
func (h *Handler) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if h.jobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "batch mode is not configured"})
		return
	}

	jobID := mux.Vars(r)["id"]
	job, err := h.jobs.Fetch(r.Context(), jobID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// statusForCode - HTTP status per taxonomy code. User-facing errors are
// client errors, concurrency rejection maps to conflict.
func statusForCode(code generr.Code) int {
	switch code {
	case generr.CodeSourceQuality, generr.CodeNoSource:
		return http.StatusUnprocessableEntity
	case generr.CodeConfigMissing:
		return http.StatusPreconditionFailed
	case generr.CodeConcurrency:
		return http.StatusConflict
	case generr.CodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
