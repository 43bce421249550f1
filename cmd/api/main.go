package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pavanborigi/deepfake-detect/internal/application"
	appai "github.com/pavanborigi/deepfake-detect/internal/application/ai"
	appdet "github.com/pavanborigi/deepfake-detect/internal/application/detections"
	"github.com/pavanborigi/deepfake-detect/internal/config"
	detdomain "github.com/pavanborigi/deepfake-detect/internal/domain/detections"
	"github.com/pavanborigi/deepfake-detect/internal/domain/faults"
	"github.com/pavanborigi/deepfake-detect/internal/domain/insights"
	openaiClient "github.com/pavanborigi/deepfake-detect/internal/infra/ai/openai"
	mysqlp "github.com/pavanborigi/deepfake-detect/internal/infra/db/mysql"
	postgresp "github.com/pavanborigi/deepfake-detect/internal/infra/db/postgres"
	"github.com/pavanborigi/deepfake-detect/internal/infra/httpserver"
	"github.com/pavanborigi/deepfake-detect/internal/infra/inference"
	minioStore "github.com/pavanborigi/deepfake-detect/internal/infra/storage"
	"github.com/pavanborigi/deepfake-detect/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database (driver per config)
	var (
		db        *sql.DB
		repo      detdomain.Repository
		insRepo   insights.Repository
		faultRepo faults.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		repo = postgresp.NewDetectionRepository(db)
		insRepo = postgresp.NewInsightRepository(db)
		faultRepo = postgresp.NewFaultRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		repo = mysqlp.NewDetectionRepository(db)
		insRepo = mysqlp.NewInsightRepository(db)
		faultRepo = mysqlp.NewFaultRepository(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		log.Fatalf("minio init error: %v", err)
	}

	// init inference client
	detector := inference.NewClient(cfg.Inference.BaseURL, time.Duration(cfg.Inference.TimeoutSeconds)*time.Second)

	// result cache over the record store
	cache := appdet.NewCache(repo.ListByOwner)
	cache.Subscribe(func(ownerID string) {
		log.Printf("cache invalidated owner=%s", ownerID)
	})
	history := appdet.NewProjection(cache)

	// init service
	svc := &appdet.Service{
		Repo:      repo,
		Media:     store,
		Detector:  detector,
		Faults:    faultRepo,
		Cache:     cache,
		Clock:     application.SystemClock{},
		ModelName: cfg.Inference.ModelName,
	}

	// AI insights are optional
	var aiSvc *appai.Service
	if cfg.OpenAI.APIKey != "" {
		aiSvc = appai.NewService(
			openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
			insRepo,
			application.SystemClock{},
		)
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	mux.Use(middleware.LoggingMiddleware)

	capacity, refill := cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate
	if capacity <= 0 {
		capacity = 30
	}
	if refill <= 0 {
		refill = 1
	}
	mux.Use(middleware.RateLimitMiddleware(capacity, refill))

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(svc, history, aiSvc))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
