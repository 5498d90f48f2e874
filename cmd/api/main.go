package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"recipefinder/internal/api"
	"recipefinder/internal/config"
	"recipefinder/internal/ingredient"
	"recipefinder/internal/logging"
	"recipefinder/internal/recipe"
	"recipefinder/internal/search"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Errorf("failed to load config: %w", err))
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		panic(fmt.Errorf("failed to create logger: %w", err))
	}
	defer logger.Sync()

	ctx := context.Background()

	dbStore, err := recipe.Open(ctx, cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("error opening recipe store", zap.Error(err))
	}
	defer dbStore.Close()

	canon := ingredient.NewCanonicalizer(nil)
	if cfg.Search.CanonicalLexicon {
		canon, err = search.LexiconCanonicalizer(ctx, dbStore, logger)
		if err != nil {
			logger.Fatal("error loading canonical lexicon", zap.Error(err))
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	service := search.NewService(dbStore, canon, cfg.Search.Options(), logger, search.NewMetrics(registry))
	handler := api.NewHandler(service, dbStore, cfg.Server.RequestTimeout, logger)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	r := api.NewRouter(handler, cfg.Server.AllowOrigins, registry, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("recipefinder listening", zap.String("addr", srv.Addr), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}
