package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pantrychef/internal/api"
	"pantrychef/internal/config"
	"pantrychef/internal/cooking"
	"pantrychef/internal/logger"
	"pantrychef/internal/notify"
	"pantrychef/internal/platform/gemini"
	"pantrychef/internal/platform/localllm"
	"pantrychef/internal/recipe"
	"pantrychef/internal/storage"
	"pantrychef/internal/suggest"
)

// provider is an AI backend able to both suggest and detect.
type provider interface {
	suggest.Generator
	suggest.Detector
}

func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		panic(fmt.Errorf("failed to load configuration: %w", err))
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(fmt.Errorf("failed to create logger: %w", err))
	}
	defer logger.Sync(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, closeKV, err := openStorage(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("error opening %s storage: %w", cfg.Storage, err))
	}
	defer closeKV()

	ai, closeAI, err := newProvider(ctx, cfg, log)
	if err != nil {
		panic(fmt.Errorf("error creating %s client: %w", cfg.Provider, err))
	}
	defer closeAI()

	inbox := notify.NewInbox(notify.DefaultInboxSize)
	notifier := notify.Multi{inbox, notify.NewLogNotifier(log)}

	saved := recipe.NewSavedStore(kv, notifier, log)
	playlists := recipe.NewPlaylistStore(kv, notifier, log)
	suggester := suggest.New(ai, ai, notifier, log, suggest.WithTimeout(cfg.RequestTimeout))
	sessions := cooking.NewManager(notifier, log)
	defer sessions.Shutdown()

	handler := api.NewHandler(suggester, saved, playlists, sessions, inbox, log)

	if cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           newRouter(handler, cfg.AllowOrigins, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("provider", cfg.Provider), zap.String("storage", cfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newRouter registers every route on a fresh engine.
func newRouter(handler *api.Handler, allowOrigins []string, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestID(), api.AccessLog(log))

	// Configure CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", api.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", api.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	recipes := r.Group("/recipes")
	recipes.POST("/suggest", handler.SuggestRecipe)
	recipes.GET("/options", handler.RecipeOptions)
	recipes.GET("/current", handler.CurrentRecipe)
	recipes.POST("/view", handler.ViewRecipe)
	recipes.DELETE("/current", handler.ClearRecipe)

	r.POST("/dishes/detect", handler.DetectDish)
	r.POST("/dishes/detect/upload", handler.DetectDishUpload)

	saved := r.Group("/saved")
	saved.GET("", handler.ListSaved)
	saved.POST("", handler.SaveRecipe)
	saved.POST("/toggle", handler.ToggleSaved)
	saved.GET("/check", handler.CheckSaved)
	saved.DELETE("/:id", handler.RemoveSaved)

	playlists := r.Group("/playlists")
	playlists.GET("", handler.ListPlaylists)
	playlists.POST("", handler.CreatePlaylist)
	playlists.GET("/:id", handler.GetPlaylist)
	playlists.DELETE("/:id", handler.DeletePlaylist)
	playlists.POST("/:id/recipes", handler.AddToPlaylist)
	playlists.DELETE("/:id/recipes/:recipeId", handler.RemoveFromPlaylist)

	sessions := r.Group("/cooking/sessions")
	sessions.POST("", handler.OpenCooking)
	sessions.GET("/:id", handler.GetCooking)
	sessions.POST("/:id/next", handler.NextStep)
	sessions.POST("/:id/previous", handler.PreviousStep)
	sessions.POST("/:id/timer/start", handler.StartTimer)
	sessions.POST("/:id/timer/pause", handler.PauseTimer)
	sessions.POST("/:id/timer/resume", handler.ResumeTimer)
	sessions.POST("/:id/timer/reset", handler.ResetTimer)
	sessions.DELETE("/:id", handler.CloseCooking)

	r.GET("/notifications", handler.Notifications)
	return r
}

// openStorage opens the configured backend. The returned func releases it.
func openStorage(ctx context.Context, cfg *config.Config) (storage.KV, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Storage {
	case storage.BackendMemory:
		return storage.NewMemoryKV(storage.WithQuota(cfg.StorageQuota)), noop, nil
	case storage.BackendFile:
		return storage.NewFileKV(cfg.DataDir, cfg.StorageQuota), noop, nil
	case storage.BackendPostgres:
		kv, err := storage.NewPostgresKV(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case storage.BackendRedis:
		kv, err := storage.NewRedisKV(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// newProvider creates the configured AI client.
func newProvider(ctx context.Context, cfg *config.Config, log *zap.Logger) (provider, func() error, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	case config.ProviderLocal:
		client := localllm.NewClient(cfg.LocalLLMURL, cfg.LocalLLMModel, &http.Client{Timeout: cfg.RequestTimeout}, log)
		return client, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
