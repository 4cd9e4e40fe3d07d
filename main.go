package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"warroom/accounts"
	"warroom/agents"
	"warroom/auth"
	"warroom/collections"
	"warroom/content"
	"warroom/db"
	"warroom/httputil"
	"warroom/intelligence"
	"warroom/publishing"
	"warroom/ratelimit"
	"warroom/settings"
	"warroom/tracker"
	"warroom/videos"
)

type Config struct {
	DBDialect     string
	DBDSN         string
	Port          string
	JWTSecret     string
	AIBaseURL     string
	AIModel       string
	MinioEndpoint string
	MinioAccess   string
	MinioSecret   string
	MinioBucket   string
	MinioSSL      bool
	SyncSchedule  string
}

func loadConfig() Config {
	return Config{
		DBDialect:     getEnv("DB_DIALECT", "sqlite"),
		DBDSN:         getEnv("DB_DSN", "/data/warroom.db"),
		Port:          getEnv("PORT", "8080"),
		JWTSecret:     getEnv("JWT_SECRET", "supersecretkey"),
		AIBaseURL:     getEnv("AI_BASE_URL", ""),
		AIModel:       getEnv("AI_MODEL", ""),
		MinioEndpoint: getEnv("MINIO_ENDPOINT", ""),
		MinioAccess:   getEnv("MINIO_ACCESS_KEY", "warroom"),
		MinioSecret:   getEnv("MINIO_SECRET_KEY", "changeme123"),
		MinioBucket:   getEnv("MINIO_BUCKET", "thumbnails"),
		MinioSSL:      getEnv("MINIO_USE_SSL", "false") == "true",
		SyncSchedule:  getEnv("SYNC_SCHEDULE", "@every 6h"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()

	database, err := db.Open(db.Dialect(cfg.DBDialect), cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	// MinIO is optional; without it thumbnails stay on the platform CDNs.
	var minioClient *minio.Client
	bucket := ""
	if cfg.MinioEndpoint != "" {
		minioClient, err = minio.New(cfg.MinioEndpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinioAccess, cfg.MinioSecret, ""),
			Secure: cfg.MinioSSL,
		})
		if err != nil {
			log.Fatalf("failed to connect to minio: %v", err)
		}
		ctx := context.Background()
		exists, err := minioClient.BucketExists(ctx, cfg.MinioBucket)
		if err != nil {
			log.Fatalf("failed to check bucket: %v", err)
		}
		if !exists {
			if err := minioClient.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
				log.Fatalf("failed to create bucket: %v", err)
			}
			log.Printf("created bucket: %s", cfg.MinioBucket)
		}
		bucket = cfg.MinioBucket
	}

	settingsStore := &settings.Store{DB: database}
	syncer := &tracker.Syncer{DB: database, Settings: settingsStore, Store: minioClient, Bucket: bucket}

	authH := &auth.Handler{DB: database, JWTSecret: cfg.JWTSecret}
	settingsH := &settings.Handler{Store: settingsStore}
	videosH := &videos.Handler{DB: database, Bucket: bucket}
	intelH := &intelligence.Handler{DB: database, Bucket: bucket}
	accountsH := &accounts.Handler{DB: database}
	trackerH := &tracker.Handler{DB: database, Syncer: syncer}
	contentH := &content.Handler{DB: database, Settings: settingsStore, BaseURL: cfg.AIBaseURL, Model: cfg.AIModel}
	publishingH := &publishing.Handler{DB: database}
	collectionsH := &collections.Handler{DB: database, Bucket: bucket}
	agentsH := &agents.Handler{DB: database, Settings: settingsStore, BaseURL: cfg.AIBaseURL, Model: cfg.AIModel}

	aiLimiter := ratelimit.New(10, time.Minute)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Post("/api/auth/register", authH.HandleRegister)
	r.Post("/api/auth/login", authH.HandleLogin)

	r.Group(func(r chi.Router) {
		r.Use(authH.Middleware)

		r.Get("/api/intelligence", intelH.HandleIntelligence)
		r.Get("/api/trends", intelH.HandleTrends)
		r.Get("/api/videos", videosH.HandleList)

		r.Get("/api/accounts", accountsH.HandleList)
		r.Delete("/api/accounts/{id}", accountsH.HandleDelete)

		r.Post("/api/track", trackerH.HandleTrack)
		r.Post("/api/sync/youtube", trackerH.HandleSyncYouTube)
		r.Get("/api/explore", trackerH.HandleExplore)

		r.Get("/api/ideas", contentH.HandleListIdeas)
		r.Get("/api/scripts", contentH.HandleListScripts)

		r.Get("/api/publishing", publishingH.HandleList)
		r.Post("/api/publishing", publishingH.HandleCreate)
		r.Patch("/api/publishing/{id}", publishingH.HandleUpdateStatus)

		r.Post("/api/collections", collectionsH.HandleCreate)
		r.Get("/api/collections", collectionsH.HandleList)
		r.Get("/api/collections/{id}", collectionsH.HandleGetItems)
		r.Delete("/api/collections/{id}", collectionsH.HandleDelete)
		r.Post("/api/collections/{id}/videos", collectionsH.HandleAddItem)
		r.Delete("/api/collections/{id}/videos/{videoId}", collectionsH.HandleRemoveItem)

		r.Get("/api/settings", settingsH.HandleGet)
		r.Post("/api/settings", settingsH.HandleSet)

		// AI-backed endpoints share one rate limiter.
		r.Group(func(r chi.Router) {
			r.Use(ratelimit.Middleware(aiLimiter))
			r.Post("/api/ideas/generate", contentH.HandleGenerateIdeas)
			r.Post("/api/scripts/generate", contentH.HandleGenerateScript)
			r.Post("/api/scripts/review", contentH.HandleReviewScript)
			r.Post("/api/agents/chat", agentsH.HandleChat)
		})
		r.Get("/api/agents/conversations", agentsH.HandleListConversations)
	})

	var scheduler *tracker.Scheduler
	if cfg.SyncSchedule != "" && cfg.SyncSchedule != "off" {
		scheduler = &tracker.Scheduler{DB: database, Syncer: syncer}
		if err := scheduler.Start(cfg.SyncSchedule); err != nil {
			log.Fatalf("invalid SYNC_SCHEDULE %q: %v", cfg.SyncSchedule, err)
		}
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		log.Printf("warroom API listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if scheduler != nil {
		scheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	log.Println("server shut down")
}
