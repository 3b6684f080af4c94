package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-wellness-api/internal/conversation"
	"github.com/noah-isme/sma-wellness-api/internal/handler"
	"github.com/noah-isme/sma-wellness-api/internal/nlp"
	"github.com/noah-isme/sma-wellness-api/internal/repository"
	"github.com/noah-isme/sma-wellness-api/internal/responses"
	"github.com/noah-isme/sma-wellness-api/internal/service"
	"github.com/noah-isme/sma-wellness-api/pkg/cache"
	"github.com/noah-isme/sma-wellness-api/pkg/config"
	"github.com/noah-isme/sma-wellness-api/pkg/database"
	"github.com/noah-isme/sma-wellness-api/pkg/jobs"
	"github.com/noah-isme/sma-wellness-api/pkg/logger"
	"github.com/noah-isme/sma-wellness-api/pkg/storage"
)

// @title SMA Wellness API
// @version 1.0.0
// @description Health-office mental health risk pipeline: conversations, mood check-ins and counselor alerts.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	app := buildApp(ctx, cfg, db, redisClient, logr)
	defer app.shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type app struct {
	router *gin.Engine
	queue  *jobs.Queue
}

func (a *app) shutdown() {
	if a.queue != nil {
		a.queue.Stop()
	}
}

// buildApp loads the shared runtime bundle once and wires repositories,
// services and handlers into the router.
func buildApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *app {
	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, "wellness")
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	users := repository.NewUserRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	moodRepo := repository.NewMoodRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	lexicon := nlp.LoadLexicon(cfg.Wellness.LexiconPath, logr)
	var loader nlp.ModelLoader
	if cfg.Classifier.Enabled {
		loader = nlp.OpenAIModelLoader(nlp.OpenAIModelConfig{
			BaseURL:    cfg.Classifier.BaseURL,
			APIKey:     cfg.Classifier.APIKey,
			Model:      cfg.Classifier.Model,
			Timeout:    cfg.Classifier.Timeout,
			MaxRetries: 1,
		})
	}
	classifier := nlp.NewClassifier(lexicon, nlp.NewSentimentAnalyzer(), loader, nlp.ClassifierOptions{
		MaxInputRunes: cfg.Classifier.MaxInputRunes,
		MinConfidence: cfg.Classifier.MinConfidence,
		PoolSize:      cfg.Classifier.PoolSize,
		Logger:        logr.Named("classifier"),
	})
	picker := responses.NewRandomPicker(time.Now().UnixNano())
	library := responses.Load(cfg.Wellness.ResponseCatalogPath, picker, logr)
	engine := conversation.NewEngine(classifier, library, picker, logr.Named("conversation"))

	authSvc := service.NewAuthService(users, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "sma-wellness-api",
	})
	riskScorer := service.NewRiskScorer(repository.NewRiskRepository(db), cacheSvc, logr)
	alertSvc := service.NewAlertService(alertRepo, users, riskScorer, metrics, validate, logr, cfg.Wellness.DedupWindow)
	patterns := service.NewPatternDetector(moodRepo, repository.NewPatternRepository(db), alertSvc, cfg.Wellness.PatternThreshold, logr)
	moodSvc := service.NewMoodService(moodRepo, patterns, alertSvc, riskScorer, validate, logr, service.MoodServiceConfig{
		RiskAlertThreshold: cfg.Wellness.RiskAlertThreshold,
	})
	sessions := service.NewSessionService(sessionRepo, alertSvc, cfg.Wellness.SessionIdleTTL, logr)
	conversationSvc := service.NewConversationService(service.ConversationDeps{
		Conversations: repository.NewConversationRepository(db),
		Sessions:      sessions,
		Flags:         repository.NewKeywordFlagRepository(db),
		Classifier:    classifier,
		Engine:        engine,
		Library:       library,
		Moods:         moodSvc,
		Risk:          riskScorer,
		Metrics:       metrics,
		Validator:     validate,
		Logger:        logr,
	})

	out := &app{}
	var exportHandler *handler.ExportHandler
	if exportSvc, queue := buildExports(ctx, cfg, db, alertRepo, users, metrics, logr); exportSvc != nil {
		out.queue = queue
		exportHandler = handler.NewExportHandler(exportSvc)
	} else {
		exportHandler = handler.NewExportHandler(nil)
	}

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	out.router = newRouter(cfg, logr, routeDeps{
		auth:         authSvc,
		audit:        users,
		metrics:      metrics,
		authH:        handler.NewAuthHandler(authSvc),
		conversation: handler.NewConversationHandler(conversationSvc),
		mood:         handler.NewMoodHandler(moodSvc),
		alert:        handler.NewAlertHandler(alertSvc),
		export:       exportHandler,
		metricsH:     handler.NewMetricsHandler(metrics, checks),
	})
	return out
}

// buildExports returns nil when exports are disabled or storage cannot be prepared.
func buildExports(ctx context.Context, cfg *config.Config, db *sqlx.DB, alerts *repository.AlertRepository, users *repository.UserRepository, metrics *service.MetricsService, logr *zap.Logger) (*service.ExportService, *jobs.Queue) {
	if !cfg.Exports.Enabled {
		return nil, nil
	}
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Warn("alert exports disabled, storage unavailable", zap.Error(err))
		return nil, nil
	}

	var exportSvc *service.ExportService
	queue := jobs.NewQueue("alert-exports", func(ctx context.Context, job jobs.Job) error {
		return exportSvc.Handle(ctx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		JobTimeout: 2 * time.Minute,
		Logger:     logr,
	})
	exportSvc = service.NewExportService(
		repository.NewExportRepository(db),
		alerts,
		users,
		queue,
		files,
		storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL),
		metrics,
		logr,
		service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Exports.RetentionPeriod,
			CleanupInterval: cfg.Exports.CleanupInterval,
		},
	)

	queue.Start(ctx)
	exportSvc.RecoverPending(ctx)
	exportSvc.StartCleanup(ctx)
	return exportSvc, queue
}
