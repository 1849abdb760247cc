package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/me/imagebuilder/internal/builder"
	"github.com/me/imagebuilder/internal/config"
	"github.com/me/imagebuilder/internal/engine"
	"github.com/me/imagebuilder/internal/logging"
	"github.com/me/imagebuilder/internal/server"
	"github.com/me/imagebuilder/internal/sink"
	"github.com/me/imagebuilder/internal/store"
)

func main() {
	cfg := config.DefaultServerConfig()

	configFile := flag.String("config", "", "Path to YAML config file")
	addr := flag.String("addr", cfg.Addr, "Listen address")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", cfg.LogFormat, "Log format (text, json)")
	dbPath := flag.String("db", cfg.DBPath, "Database path (default ~/.imagebuilder/imagebuilder.db)")
	outDir := flag.String("out", "", "Also write finished images to this directory")
	s3Bucket := flag.String("s3-bucket", "", "Also upload finished images to this S3 bucket")
	budget := flag.Duration("budget", cfg.Render.Budget, "Per-cycle time budget")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")

	flag.Parse()

	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		case "db":
			cfg.DBPath = *dbPath
		case "out":
			cfg.Sink.Dir = *outDir
		case "s3-bucket":
			cfg.Sink.S3Bucket = *s3Bucket
		case "budget":
			cfg.Render.Budget = *budget
		}
	})
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	// Resolve database path.
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".imagebuilder")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
			os.Exit(1)
		}
		cfg.DBPath = filepath.Join(dir, "imagebuilder.db")
	}

	// Open store and run migrations.
	st, err := store.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	publisher, err := sink.New(ctx, cfg.Sink, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configure sink: %v\n", err)
		os.Exit(1)
	}
	if publisher != nil {
		logger.Info("image sink ready", "dir", cfg.Sink.Dir, "s3_bucket", cfg.Sink.S3Bucket)
	}

	rec := store.NewRecorder(st, publisher, logger)
	eng, err := engine.New(cfg.Render, logger, builder.WithListener(rec))
	if err != nil {
		fmt.Fprintf(os.Stderr, "create engine: %v\n", err)
		os.Exit(1)
	}
	defer eng.Close()

	// The recorder outlives the render loop so that the last events are
	// written before the store closes.
	recCtx, stopRecorder := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		rec.Run(recCtx)
	}()
	go func() {
		defer wg.Done()
		eng.Start(ctx)
	}()

	srv := server.New(cfg, st, logger,
		server.WithQueue(eng.Builder()),
		server.WithDeliverer(rec),
	)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Stop rendering before draining the recorder.
	if err := eng.Stop(); err != nil {
		logger.Error("engine stop error", "error", err)
	}
	stopRecorder()
	wg.Wait()

	if n := eng.Builder().Len(); n > 0 {
		logger.Warn("unfinished jobs dropped", "count", n)
	}
	logger.Info("server stopped")
}
