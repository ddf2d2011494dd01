package coverimage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/supabase-community/supabase-go"

	"portada-media-server/modules/common/config"
	"portada-media-server/modules/common/generr"
)

// BatchQueueKey - redis list the batch worker blocks on.
const BatchQueueKey = "covers:queue"

// Job statuses in portada_cover_jobs.
const (
	StatusPending            = "pending"
	StatusProcessing         = "processing"
	StatusCompleted          = "completed"
	StatusCompletedWithError = "completed_with_errors"
	StatusFailed             = "failed"
)

// JobRecord - one batch job row in portada_cover_jobs.
type JobRecord struct {
	JobID           string                   `json:"job_id"`
	TenantID        string                   `json:"tenant_id"`
	Status          string                   `json:"status"`
	Articles        []map[string]interface{} `json:"articles"`
	TotalArticles   int                      `json:"total_articles"`
	CompletedCovers int                      `json:"completed_covers"`
	FailedCovers    int                      `json:"failed_covers"`
	ErrorMessage    string                   `json:"error_message,omitempty"`
	CreatedAt       string                   `json:"created_at,omitempty"`
}

// JobStore - supabase job records plus the redis queue in front of them.
type JobStore struct {
	rdb      *redis.Client
	supabase *supabase.Client
}

// NewJobStore - build the store; fails when supabase is not configured since
// batch mode is unusable without job records.
func NewJobStore(rdb *redis.Client) (*JobStore, error) {
	cfg := config.GetConfig()

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, generr.New(generr.CodeConfigMissing, "SUPABASE_URL and SUPABASE_SERVICE_KEY are required for batch jobs")
	}

	client, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &JobStore{rdb: rdb, supabase: client}, nil
}

// Enqueue - create the job record and push its id onto the queue.
func (js *JobStore) Enqueue(ctx context.Context, tenantID string, articles []map[string]interface{}) (string, error) {
	jobID := uuid.New().String()

	row := map[string]interface{}{
		"job_id":         jobID,
		"tenant_id":      tenantID,
		"status":         StatusPending,
		"articles":       articles,
		"total_articles": len(articles),
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	}

	if _, _, err := js.supabase.From("portada_cover_jobs").Insert(row, false, "", "", "").Execute(); err != nil {
		return "", fmt.Errorf("failed to create job record: %w", err)
	}

	if err := js.rdb.LPush(ctx, BatchQueueKey, jobID).Err(); err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Printf("📨 [CoverImage] Job %s enqueued: tenant=%s, articles=%d", jobID, tenantID, len(articles))
	return jobID, nil
}

// Fetch - load one job record.
func (js *JobStore) Fetch(ctx context.Context, jobID string) (*JobRecord, error) {
	data, _, err := js.supabase.From("portada_cover_jobs").
		Select("*", "", false).
		Eq("job_id", jobID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch job %s: %w", jobID, err)
	}

	var jobs []JobRecord
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse job %s: %w", jobID, err)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}
	return &jobs[0], nil
}

// UpdateStatus - move the job to a new status.
func (js *JobStore) UpdateStatus(ctx context.Context, jobID, status string) error {
	_, _, err := js.supabase.From("portada_cover_jobs").
		Update(map[string]interface{}{"status": status}, "", "").
		Eq("job_id", jobID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to update job %s status: %w", jobID, err)
	}
	log.Printf("📋 [CoverImage] Job %s status: %s", jobID, status)
	return nil
}

// Complete - write the final counts and status.
func (js *JobStore) Complete(ctx context.Context, jobID string, batch *BatchResult, errMessage string) error {
	status := StatusCompleted
	switch {
	case errMessage != "":
		status = StatusFailed
	case len(batch.Failed) > 0 && len(batch.Succeeded) == 0:
		status = StatusFailed
	case len(batch.Failed) > 0:
		status = StatusCompletedWithError
	}

	update := map[string]interface{}{
		"status":           status,
		"completed_covers": len(batch.Succeeded),
		"failed_covers":    len(batch.Failed),
	}
	if errMessage != "" {
		update["error_message"] = errMessage
	}

	_, _, err := js.supabase.From("portada_cover_jobs").
		Update(update, "", "").
		Eq("job_id", jobID).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to complete job %s: %w", jobID, err)
	}

	log.Printf("🏁 [CoverImage] Job %s finished: status=%s, ok=%d, failed=%d",
		jobID, status, len(batch.Succeeded), len(batch.Failed))
	return nil
}
