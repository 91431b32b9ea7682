package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/siteforge/backend/internal/config"
	"github.com/siteforge/backend/internal/handler"
	"github.com/siteforge/backend/internal/logging"
	"github.com/siteforge/backend/internal/repository"
	"github.com/siteforge/backend/internal/service"
	"github.com/siteforge/backend/pkg/auth"
	"github.com/siteforge/backend/pkg/llm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Setup("INFO")
		logging.Fatal("invalid configuration", "error", err)
	}
	logging.Setup(cfg.Logging.Level)

	ctx := context.Background()

	// カタログストア（file または postgres）
	var store repository.CatalogStore
	switch cfg.Catalog.Driver {
	case config.DriverPostgres:
		pool, err := repository.NewPool(ctx, cfg.Catalog.DatabaseURL)
		if err != nil {
			logging.Fatal("failed to connect to database", "error", err)
		}
		defer pool.Close()
		store = repository.NewPgCatalogStore(pool, cfg.Catalog.DocumentID)
	default:
		store = repository.NewFileCatalogStore(cfg.Catalog.Path)
	}
	slog.Info("catalog store configured", "driver", cfg.Catalog.Driver)

	catalogService := service.NewCatalogService(store)
	quoteService := service.NewQuoteService(catalogService)
	comparisonService := service.NewComparisonService(catalogService)

	// LLM 設定（API キー未設定の場合は推薦機能を無効化）
	var advisor service.Advisor
	if cfg.LLM.Enabled() {
		advisor = service.NewLLMAdvisor(llm.NewClient(llm.Options{
			APIKey:     cfg.LLM.APIKey,
			BaseURL:    cfg.LLM.BaseURL,
			Model:      cfg.LLM.Model,
			Timeout:    cfg.LLM.Timeout,
			MaxRetries: cfg.LLM.MaxRetries,
		}))
	} else {
		slog.Warn("LLM_API_KEY not set, recommendations disabled")
	}
	recommendationService := service.NewRecommendationService(catalogService, advisor, service.RecommendationConfig{
		MaxQuestions:   cfg.Recommendation.MaxQuestions,
		ScoreThreshold: cfg.Recommendation.ScoreThreshold,
		SessionTTL:     cfg.Recommendation.SessionTTL,
		CallTimeout:    cfg.LLM.Timeout * time.Duration(cfg.LLM.MaxRetries+1),
	})

	h := handler.New(store, cfg.Server.FrontendURL)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	quoteHandler := handler.NewQuoteHandler(quoteService)
	comparisonHandler := handler.NewComparisonHandler(comparisonService)
	recommendationHandler := handler.NewRecommendationHandler(recommendationService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", h.Health)

	// カタログ・価格計算・比較（認証不要）
	mux.HandleFunc("GET /api/catalog", catalogHandler.Get)
	mux.HandleFunc("GET /api/catalog/options", catalogHandler.Options)
	mux.HandleFunc("GET /api/products/{key}/selection", quoteHandler.Selection)
	mux.HandleFunc("POST /api/quote", quoteHandler.Quote)
	mux.HandleFunc("GET /api/comparison", comparisonHandler.Compare)

	// 管理者エンドポイント
	wrapAdmin := func(next http.Handler) http.Handler {
		if cfg.Server.AdminToken != "" {
			return auth.RequireAdmin(cfg.Server.AdminToken)(next)
		}
		return auth.DevAuth(next)
	}
	if cfg.Server.AdminToken == "" {
		slog.Warn("ADMIN_TOKEN not set, admin routes are open")
	}
	mux.Handle("POST /api/admin/products", wrapAdmin(http.HandlerFunc(catalogHandler.CreateProduct)))
	mux.Handle("PUT /api/admin/products/{key}", wrapAdmin(http.HandlerFunc(catalogHandler.ReplaceProduct)))
	mux.Handle("POST /api/admin/options", wrapAdmin(http.HandlerFunc(catalogHandler.CreateOption)))
	mux.Handle("PUT /api/admin/options/{category}/{key}", wrapAdmin(http.HandlerFunc(catalogHandler.ReplaceOption)))

	// 推薦クイズ（外部 API を呼ぶためレート制限）
	limiter := handler.NewRateLimiter(cfg.Server.RateLimitPerMinute)
	limit := func(fn http.HandlerFunc) http.Handler { return limiter.Middleware(fn) }
	mux.Handle("POST /api/recommendations", limit(recommendationHandler.Start))
	mux.Handle("GET /api/recommendations/{id}", limit(recommendationHandler.Get))
	mux.Handle("POST /api/recommendations/{id}/answers", limit(recommendationHandler.Answer))
	mux.Handle("DELETE /api/recommendations/{id}", http.HandlerFunc(recommendationHandler.End))

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.RequestLogger(handler.SecurityHeaders(h.CORS(mux))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.LLM.Timeout*time.Duration(cfg.LLM.MaxRetries+1) + 10*time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
