// Command sitewatch runs the content-change monitoring service: a periodic
// scheduler, a worker pool executing the check pipeline, and an HTTP surface
// for health, metrics, and on-demand checks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"sitewatch/internal/analyzer"
	"sitewatch/internal/api"
	"sitewatch/internal/archive"
	"sitewatch/internal/browser"
	"sitewatch/internal/clock/system"
	"sitewatch/internal/config"
	"sitewatch/internal/fetch"
	sessionfetch "sitewatch/internal/fetch/session"
	"sitewatch/internal/fetch/web"
	sha256hash "sitewatch/internal/hash/sha256"
	uuidgen "sitewatch/internal/id/uuid"
	"sitewatch/internal/logging"
	"sitewatch/internal/metrics"
	"sitewatch/internal/monitor"
	"sitewatch/internal/notify"
	"sitewatch/internal/publisher"
	queuememory "sitewatch/internal/queue/memory"
	"sitewatch/internal/sched"
	storememory "sitewatch/internal/store/memory"
	"sitewatch/internal/store/postgres"
	"sitewatch/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "sitewatch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.Clock{}
	hasher := sha256hash.Hasher{}
	ids := uuidgen.Generator{}

	targets, snapshots, changes, decisions, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	queue := queuememory.NewQueue(cfg.Scheduler.QueueDepth)
	defer queue.Close()
	locks := sched.NewLocks(cfg.LockTTL(), clock)

	webFetcher := web.New(web.Config{
		UserAgent:  cfg.Fetch.UserAgent,
		Timeout:    cfg.FetchTimeout(),
		ContentCap: cfg.Fetch.ContentCap,
	}, hasher)

	var sessionFetcher monitor.Fetcher
	var pool *browser.Pool
	if cfg.Browser.Enabled {
		pool = browser.New(browser.Config{
			RemoteURL:     cfg.Browser.RemoteURL,
			LoginURL:      cfg.Browser.LoginURL,
			Username:      cfg.Browser.Username,
			Password:      cfg.Browser.Password,
			NavTimeout:    time.Duration(cfg.Browser.NavTimeoutSeconds) * time.Second,
			AuthTimeout:   time.Duration(cfg.Browser.AuthTimeoutSeconds) * time.Second,
			CreateRetries: cfg.Browser.CreateRetries,
			CreateBackoff: time.Duration(cfg.Browser.CreateBackoffSeconds) * time.Second,
		}, clock, logger.Named("browser"))
		defer pool.Teardown()
		sessionFetcher = sessionfetch.New(sessionfetch.Config{
			Retries:    cfg.Fetch.SessionRetries,
			ContentCap: cfg.Fetch.ContentCap,
		}, sessionfetch.WrapPool(pool), hasher, logger.Named("session"))
	}
	router := fetch.NewRouter(webFetcher, sessionFetcher)

	analysisClient := analyzer.New(analyzer.Config{
		Endpoint: cfg.Analyzer.Endpoint,
		Model:    cfg.Analyzer.Model,
		APIKey:   cfg.Analyzer.APIKey,
		Timeout:  time.Duration(cfg.Analyzer.TimeoutSeconds) * time.Second,
	}, logger.Named("analyzer"))

	var notifier monitor.Notifier
	if cfg.Notifier.Endpoint != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notifier.Endpoint, time.Duration(cfg.Notifier.TimeoutSeconds)*time.Second)
	} else {
		logger.Warn("notifier endpoint not configured, recording notifications in memory")
		notifier = notify.NewMemoryNotifier()
	}
	engine := notify.NewEngine(notifier, decisions, ids, clock, logger.Named("notify"))

	pub, pubCleanup, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pubCleanup()

	arch, err := buildArchive(ctx, cfg)
	if err != nil {
		return err
	}

	scheduler := sched.New(targets, queue, locks, clock, logger.Named("scheduler"), cfg.SchedulerPeriod())

	w := worker.New(
		queue, targets, snapshots, changes,
		router, analysisClient, engine, pub, arch,
		locks, clock, ids,
		worker.Config{
			ArchiveContentType: cfg.Archive.ContentType,
			ArchivePrefix:      cfg.Archive.Prefix,
			Topic:              cfg.PubSub.TopicName,
		},
		logger.Named("worker"),
	)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Scheduler.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	server := api.NewServer(targets, scheduler, logger.Named("api"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		stop()
		logger.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}

	wg.Wait()
	logger.Info("shutdown complete")
	return nil
}

func buildStores(ctx context.Context, cfg config.Config) (monitor.TargetStore, monitor.SnapshotStore, monitor.ChangeStore, monitor.DecisionStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		targets, err := postgres.NewTargetStore(pool)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		snapshots, err := postgres.NewSnapshotStore(pool)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		changes, err := postgres.NewChangeStore(pool)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		decisions, err := postgres.NewDecisionStore(pool)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		return targets, snapshots, changes, decisions, pool.Close, nil
	case "memory":
		return storememory.NewTargetStore(), storememory.NewSnapshotStore(),
			storememory.NewChangeStore(), storememory.NewDecisionStore(), func() {}, nil
	default:
		return nil, nil, nil, nil, nil, fmt.Errorf("unknown db provider %q", cfg.DB.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (monitor.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		logger.Info("pubsub not configured, recording change events in memory")
		return publisher.NewMemory(), func() {}, nil
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("pubsub client: %w", err)
	}
	pub, err := publisher.NewPubSub(client)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		pub.Stop()
		_ = client.Close()
	}
	return pub, cleanup, nil
}

func buildArchive(ctx context.Context, cfg config.Config) (monitor.Archive, error) {
	switch cfg.Archive.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		return archive.NewGCS(client, cfg.Archive.GCSBucket)
	case "local":
		return archive.NewLocal(cfg.Archive.BaseDir)
	case "memory":
		return archive.NewMemory(), nil
	case "noop":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown archive provider %q", cfg.Archive.Provider)
	}
}
