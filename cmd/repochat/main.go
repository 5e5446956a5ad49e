package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/repochat/repochat/internal/ai"
	"github.com/repochat/repochat/internal/db"
	"github.com/repochat/repochat/internal/engine"
	gh "github.com/repochat/repochat/internal/github"
	httpsvr "github.com/repochat/repochat/internal/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ghClient, err := newGitHubClient()
	if err != nil {
		logger.Error("github client init failed", "err", err)
		os.Exit(1)
	}

	ctx := context.Background()
	aiClient, err := ai.NewClient(ctx, requireEnv("GEMINI_API_KEY"))
	if err != nil {
		logger.Error("gemini client init failed", "err", err)
		os.Exit(1)
	}
	bridge := ai.NewBridge(aiClient, envOrDefault("GEMINI_MODEL", "gemini-2.0-flash"))

	var auditor engine.Auditor
	var auditStore httpsvr.AuditStore
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		database, err := db.New(databaseURL)
		if err != nil {
			logger.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		defer database.Close()
		auditor = database
		auditStore = database
		logger.Info("audit trail enabled")
	} else {
		logger.Info("DATABASE_URL not set, audit trail disabled")
	}

	eng := engine.New(engine.Config{
		Gateway:  ghClient,
		Bridge:   bridge,
		Logger:   logger,
		Username: requireEnv("GITHUB_USERNAME"),
		Auditor:  auditor,
		Policy:   engine.NewPolicy(os.Getenv("REPO_ALLOWLIST"), os.Getenv("TOOL_ALLOWLIST")),
	})

	httpAddr := envOrDefault("REPOCHAT_HTTP_LISTEN", "0.0.0.0:8080")
	server := httpsvr.NewServer(httpAddr, eng, auditStore, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	logger.Info("shutdown complete")
}

// newGitHubClient picks PAT auth when GITHUB_TOKEN is set, GitHub App auth
// otherwise.
func newGitHubClient() (*gh.Client, error) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return gh.NewClient(token)
	}

	appID, err := strconv.ParseInt(requireEnv("GITHUB_APP_ID"), 10, 64)
	if err != nil {
		slog.Error("invalid GITHUB_APP_ID", "err", err)
		os.Exit(1)
	}
	var installationID int64
	if raw := os.Getenv("GITHUB_INSTALLATION_ID"); raw != "" {
		installationID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			slog.Error("invalid GITHUB_INSTALLATION_ID", "err", err)
			os.Exit(1)
		}
	}
	return gh.NewAppClient(appID, installationID, requireEnv("GITHUB_PRIVATE_KEY_PATH"))
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required env var missing", "key", key)
		os.Exit(1)
	}
	return v
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
