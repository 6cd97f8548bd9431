package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/config"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/database"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/pipeline"
	"github.com/synaptica-ai/erker2phenopackets/pkg/storage"
)

func main() {
	logger.Init()
	cfg := config.Load()

	p, err := pipeline.New(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load pipeline configuration")
	}

	handler := pipeline.NewHTTPHandler(p, cfg.MaxRequestBody)
	if cfg.RunStoreEnabled {
		rdb, err := database.OpenRedis(context.Background(), cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to connect to run store")
		}
		defer rdb.Close()
		handler.WithRuns(storage.NewRunStore(rdb, cfg.RunRecordTTL))
	}

	router := mux.NewRouter()
	router.Use(pipeline.Recovery, pipeline.Logging)
	handler.Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":    cfg.ServerHost,
			"port":    cfg.ServerPort,
			"workers": cfg.Workers,
		}).Info("Phenopacket Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Phenopacket Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Phenopacket Service stopped")
}
