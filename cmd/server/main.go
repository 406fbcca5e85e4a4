// Command server is a sandbox HTTP server that drives the Wave connector end to end.
package main

import (
	stdcontext "context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourorg/wave-connector/internal/config"
	"github.com/yourorg/wave-connector/internal/logger"
)

func main() {
	// .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = zapLogger.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.App.Tracing {
		tp, err := newTracerProvider(os.Stdout)
		if err != nil {
			zapLogger.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
	}

	a, cleanup, err := buildApp(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to build connector", zap.Error(err))
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           setupRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server")
	ctx, cancel := stdcontext.WithTimeout(stdcontext.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
}
