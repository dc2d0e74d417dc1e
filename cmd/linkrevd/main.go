// Linkrevd serves one record-linkage review session over HTTP.
//
// The daemon loads its configuration, optionally restores a session from
// a review packet, and exposes the review API plus Prometheus metrics.
//
// Usage:
//
//	# Start with defaults
//	linkrevd
//
//	# Start from a config file and a saved packet
//	linkrevd --config linkrev.yaml
//	LINKREV_PACKET=session.yaml linkrevd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linkrev/linkrev/internal/config"
	"github.com/linkrev/linkrev/internal/httpapi"
	"github.com/linkrev/linkrev/internal/logging"
	"github.com/linkrev/linkrev/internal/packet"
	"github.com/linkrev/linkrev/internal/review"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath = flag.String("config", "", "path to a YAML config file")

func main() {
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  linkrevd            Start the review daemon\n")
			fmt.Fprintf(os.Stderr, "  linkrevd version    Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("linkrevd\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the review server and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	session := review.NewSession(logger, &review.Options{
		LabelChoices:   cfg.Review.LabelChoices,
		ExistThreshold: cfg.Review.ExistThreshold,
	})

	if cfg.Packet != "" {
		warnings, err := packet.ImportFile(cfg.Packet, session)
		if err != nil {
			return fmt.Errorf("failed to load packet %s: %w", cfg.Packet, err)
		}
		for _, w := range warnings {
			logger.Warn("packet load warning", zap.String("warning", w))
		}
		if cfg.Review.Autosave {
			session.SetAutosave(true)
		}
		logger.Info("session restored from packet",
			zap.String("packet", cfg.Packet),
			zap.Int("pairs", session.NumPairs()),
		)
	}

	server, err := httpapi.NewServer(session, logger, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
