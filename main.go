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

	"opinion-etl/api"
	"opinion-etl/config"
	"opinion-etl/scraper"
	"opinion-etl/scraper/euro"
	"opinion-etl/services"
	"opinion-etl/storage"
	"opinion-etl/utils"
)

const usage = `usage:
  opinion-etl serve
  opinion-etl etl -keyword <phrase> [-limit N]`

// app holds the wired components shared by both commands.
type app struct {
	cfg      *config.Config
	logger   *utils.Logger
	repo     storage.Repository
	pipeline *services.Pipeline
	curator  *services.Curator
	runOpts  services.RunOptions
	closers  []func() error
}

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerFor(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "etl":
		err = etl(ctx, cfg, logger, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	a, err := wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	handler := api.NewHandler(a.pipeline, a.curator, a.runOpts, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.SetupRouter(cfg, handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("=== Opinion ETL API listening on %s ===", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutdown signal received, draining requests")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func etl(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
	keyword := fs.String("keyword", "", "search phrase")
	limit := fs.Int("limit", 0, "process at most N search hits (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *keyword == "" {
		return errors.New("etl: -keyword is required")
	}

	a, err := wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	logger.Info("=== Opinion ETL run starting ===")
	logger.Info("Keyword: %q | limit: %d | fetch: %s | storage: %s | concurrency: %d | rate: %dms",
		*keyword, *limit, cfg.FetchMode, cfg.Storage, cfg.MaxConcurrency, cfg.RateLimitMs)

	opts := a.runOpts
	opts.Limit = *limit
	summary, err := a.pipeline.Run(ctx, *keyword, opts)
	if err != nil {
		return err
	}

	stored, err := a.curator.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("read back products: %w", err)
	}

	reports := services.NewReportService(logger)
	reports.Print(os.Stdout, &summary, reports.Generate(stored))

	if cfg.RawCSVPath != "" {
		fmt.Printf("  Done. Raw opinions → %s | Clean data → %s storage\n\n", cfg.RawCSVPath, cfg.Storage)
	}
	return nil
}

// wire builds the fetcher, storage, locker and services selected by cfg.
func wire(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	fetcher, err := newFetcher(cfg, logger, a)
	if err != nil {
		a.close()
		return nil, err
	}

	repo, err := newRepository(ctx, cfg, logger)
	if err != nil {
		a.close()
		return nil, err
	}
	a.repo = repo
	a.closers = append(a.closers, repo.Close)

	locker, err := newLocker(ctx, cfg, logger, a)
	if err != nil {
		a.close()
		return nil, err
	}

	if cfg.RawCSVPath != "" {
		raw, err := storage.NewCSVWriter(cfg.RawCSVPath)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, raw.Close)
		a.runOpts.OnExtracted = services.AuditRaw(raw, logger)
	}

	source := euro.New(fetcher, cfg.MaxConcurrency, logger)
	transformer := services.NewTransformer(logger)
	loader := services.NewLoader(repo, locker, logger)
	a.pipeline = services.NewPipeline(source, transformer, loader, services.NewRunRegistry(), cfg.MaxConcurrency, logger)
	a.curator = services.NewCurator(repo, locker, source, transformer, loader, logger)
	return a, nil
}

func newFetcher(cfg *config.Config, logger *utils.Logger, a *app) (scraper.Fetcher, error) {
	switch cfg.FetchMode {
	case "browser":
		bf, err := scraper.NewBrowserFetcher(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("browser fetcher: %w", err)
		}
		a.closers = append(a.closers, bf.Close)
		return bf, nil
	case "http", "":
		return scraper.NewHTTPFetcher(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown FETCH_MODE %q", cfg.FetchMode)
	}
}

func newRepository(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.Repository, error) {
	switch cfg.Storage {
	case "postgres":
		repo, err := storage.NewPostgresRepository(ctx, cfg.DSN())
		if err != nil {
			logger.Error("Make sure PostgreSQL is reachable at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
			return nil, err
		}
		logger.Info("Storage: PostgreSQL database %q", cfg.PostgresDB)
		return repo, nil
	case "memory", "":
		logger.Info("Storage: in-memory, data is lost on exit")
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}
}

func newLocker(ctx context.Context, cfg *config.Config, logger *utils.Logger, a *app) (storage.Locker, error) {
	switch cfg.Locker {
	case "redis":
		rl, err := storage.NewRedisLocker(ctx, cfg.RedisAddr, cfg.LockTTL, logger)
		if err != nil {
			return nil, fmt.Errorf("redis locker: %w", err)
		}
		a.closers = append(a.closers, rl.Close)
		return rl, nil
	case "local", "":
		return storage.NewLocalLocker(), nil
	default:
		return nil, fmt.Errorf("unknown LOCKER %q", cfg.Locker)
	}
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Close: %v", err)
		}
	}
	a.closers = nil
}
