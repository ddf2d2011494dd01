package coverimage

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"portada-media-server/modules/common/fallback"
	"portada-media-server/modules/progress"
)

// Worker - redis queue consumer for batch cover jobs.
type Worker struct {
	service *Service
	jobs    *JobStore
	hub     *progress.Hub
	rdb     *redis.Client
}

func NewWorker(service *Service, jobs *JobStore, hub *progress.Hub, rdb *redis.Client) *Worker {
	return &Worker{
		service: service,
		jobs:    jobs,
		hub:     hub,
		rdb:     rdb,
	}
}

// Start - blocking queue loop, run from main as a goroutine.
func (w *Worker) Start() {
	log.Println("🔄 [Worker] Batch worker starting...")
	log.Printf("👀 [Worker] Watching queue: %s", BatchQueueKey)

	ctx := context.Background()

	for {
		result, err := w.rdb.BRPop(ctx, 0, BatchQueueKey).Result()
		if err != nil {
			log.Printf("❌ [Worker] Redis BRPOP error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		// result[0] is the queue name, result[1] the job id.
		jobID := result[1]
		log.Printf("🎯 [Worker] Received job: %s", jobID)

		go w.processJob(ctx, jobID)
	}
}

// processJob - run one batch job end to end and write the outcome back.
func (w *Worker) processJob(ctx context.Context, jobID string) {
	job, err := w.jobs.Fetch(ctx, jobID)
	if err != nil {
		log.Printf("❌ [Worker] Failed to fetch job %s: %v", jobID, err)
		return
	}

	if job.Status != StatusPending {
		log.Printf("⚠️ [Worker] Job %s is %s, skipping", jobID, job.Status)
		return
	}

	if err := w.jobs.UpdateStatus(ctx, jobID, StatusProcessing); err != nil {
		log.Printf("⚠️ [Worker] %v", err)
	}

	requests := make([]GenerationRequest, 0, len(job.Articles))
	for _, article := range job.Articles {
		requests = append(requests, requestFromJobArticle(article))
	}

	onEvent := func(articleID, stage, detail string) {
		w.hub.Publish(progress.Event{
			JobID:     jobID,
			ArticleID: articleID,
			Stage:     stage,
			Detail:    detail,
		})
	}

	batch, err := w.service.GenerateBatch(ctx, job.TenantID, requests, onEvent)
	if err != nil {
		// Lock rejection or a batch-level abort; the job never ran.
		log.Printf("❌ [Worker] Job %s failed: %v", jobID, err)
		if batch == nil {
			batch = &BatchResult{TenantID: job.TenantID}
		}
		if cerr := w.jobs.Complete(ctx, jobID, batch, err.Error()); cerr != nil {
			log.Printf("⚠️ [Worker] %v", cerr)
		}
		return
	}

	if err := w.jobs.Complete(ctx, jobID, batch, ""); err != nil {
		log.Printf("⚠️ [Worker] %v", err)
	}
}

// requestFromJobArticle - tolerant parse of one article entry from the job's
// JSON payload.
func requestFromJobArticle(article map[string]interface{}) GenerationRequest {
	req := GenerationRequest{
		ArticleID:     fallback.SafeString(article["article_id"], ""),
		Title:         fallback.SafeString(article["title"], ""),
		Summary:       fallback.SafeString(article["summary"], ""),
		Body:          fallback.SafeString(article["body"], ""),
		Tags:          fallback.SafeStringSlice(article["tags"]),
		Category:      fallback.SafeString(article["category"], ""),
		CustomPrompt:  fallback.SafeString(article["custom_prompt"], ""),
		ForceProvider: fallback.SafeString(article["force_provider"], ""),
		Style:         fallback.SafeString(article["style"], ""),
	}

	for _, src := range fallback.SafeMapSlice(article["sources"]) {
		url := fallback.SafeString(src["url"], "")
		if url == "" {
			continue
		}
		req.Sources = append(req.Sources, SourceRef{
			URL:    url,
			Width:  fallback.SafeInt(src["width"], 0),
			Height: fallback.SafeInt(src["height"], 0),
		})
	}

	return req
}
