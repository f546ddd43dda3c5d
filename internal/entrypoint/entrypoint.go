package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mrlokans/apollo-indexer/internal/collections"
	"github.com/mrlokans/apollo-indexer/internal/config"
	"github.com/mrlokans/apollo-indexer/internal/database"
	http_controllers "github.com/mrlokans/apollo-indexer/internal/http"
	"github.com/mrlokans/apollo-indexer/internal/loader"
	"github.com/mrlokans/apollo-indexer/internal/scheduler"
	"github.com/mrlokans/apollo-indexer/internal/search"
	"github.com/mrlokans/apollo-indexer/internal/services"
	"github.com/mrlokans/apollo-indexer/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is SIGINT, plain kill sends SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop the scheduler and queue before the server
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting apollo-indexer v%s", version)

	if cfg.Refresh.Schedule != "" {
		if err := scheduler.ValidateSchedule(cfg.Refresh.Schedule); err != nil {
			log.Fatalf("Invalid REFRESH_SCHEDULE %q: %v", cfg.Refresh.Schedule, err)
		}
	}

	db, err := database.NewDatabase(cfg.Ledger.Path)
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing ledger: %v", err)
		}
	}()

	store, err := collections.NewStore(cfg.Export.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize data dir: %v", err)
	}

	client, err := search.NewClient(search.Config{
		Addresses: []string{cfg.Elastic.Address()},
		Username:  cfg.Elastic.User,
		Password:  cfg.Elastic.Password,
		Timeout:   cfg.Elastic.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to initialize search client: %v", err)
	}
	log.Printf("Search cluster: %s", cfg.Elastic.Address())

	ld := loader.New(client, store, db, loader.Config{
		BatchSize:     cfg.Loader.BatchSize,
		MaxRetries:    cfg.Loader.MaxRetries,
		RetryDelay:    cfg.Loader.RetryDelay,
		StopOnFailure: cfg.Loader.StopOnFailure,
	})

	// Workers drain batches left queued by an interrupted `load -queue`.
	taskClient, err := tasks.NewClient(cfg.Ledger.Path, tasks.Config{
		Workers:         cfg.Tasks.Workers,
		ReleaseAfter:    cfg.Tasks.ReleaseAfter,
		CleanupInterval: cfg.Tasks.CleanupInterval,
	})
	if err != nil {
		log.Fatalf("Failed to initialize task queue: %v", err)
	}
	defer func() {
		if err := taskClient.Close(); err != nil {
			log.Printf("Error closing task client: %v", err)
		}
	}()
	taskClient.Register(tasks.NewIndexBatchQueue(ld, db))

	taskCtx, taskCtxCancel := context.WithCancel(context.Background())
	go taskClient.Start(taskCtx)

	extractor := services.NewExtractService(services.ExtractConfig{
		Timezone:   cfg.Export.Timezone,
		Strict:     cfg.Export.Strict,
		StableIDs:  cfg.Export.StableIDs,
		Namespace:  cfg.Export.Namespace,
		Classifier: cfg.Export.Classifier(),
	}, store)
	indexes := services.NewIndexService(client, ld)
	refresher := services.NewRefreshService(cfg.Export.Path, extractor, indexes)

	refreshScheduler := scheduler.NewRefreshScheduler(refresher, cfg.Refresh.Schedule, cfg.Refresh.Timeout)
	schedCtx, schedCtxCancel := context.WithCancel(context.Background())
	if err := refreshScheduler.Start(schedCtx); err != nil {
		log.Fatalf("Failed to start refresh scheduler: %v", err)
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Ledger:  db,
		Cluster: client,
		Runs:    db,
		Retrier: ld,
		Refresh: refreshScheduler,
		Tasks:   taskClient,
		Version: version,
	})

	onShutdown := func(ctx context.Context) {
		schedCtxCancel()
		refreshScheduler.Stop()
		refreshScheduler.Wait()

		taskClient.Stop(ctx)
		taskCtxCancel()
	}

	Serve(router, cfg, onShutdown)
}
