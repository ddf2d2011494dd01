package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"portada-media-server/modules/common/config"
	commonredis "portada-media-server/modules/common/redis"
	"portada-media-server/modules/coverimage"
	"portada-media-server/modules/media"
	"portada-media-server/modules/progress"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	store, err := media.NewStore(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize media store: %v", err)
	}

	hub := progress.NewHub()
	service := coverimage.NewService(store)

	// Batch mode needs both redis and supabase; without them the service
	// still serves synchronous single-cover requests.
	var jobs *coverimage.JobStore
	if rdb := commonredis.Connect(cfg); rdb != nil {
		jobs, err = coverimage.NewJobStore(rdb)
		if err != nil {
			log.Printf("⚠️  Batch mode disabled: %v", err)
			jobs = nil
		} else {
			worker := coverimage.NewWorker(service, jobs, hub, rdb)
			go worker.Start()
		}
	} else {
		log.Println("⚠️  Redis unavailable, batch mode disabled")
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", handleHealth).Methods("GET")
	router.HandleFunc("/ws", hub.HandleWS).Methods("GET")

	handler := coverimage.NewHandler(service, jobs)
	handler.RegisterRoutes(router)

	addr := ":" + cfg.Port
	log.Printf("🚀 portada-media-server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
}

// handleHealth - GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "portada-media-server",
	})
}
