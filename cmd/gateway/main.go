package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Joseph-Rai/translationapis/internal/api"
	"github.com/Joseph-Rai/translationapis/internal/auth"
	"github.com/Joseph-Rai/translationapis/internal/chat"
	"github.com/Joseph-Rai/translationapis/internal/config"
	"github.com/Joseph-Rai/translationapis/internal/credential"
	"github.com/Joseph-Rai/translationapis/internal/googlecloud"
	"github.com/Joseph-Rai/translationapis/internal/registration"
	"github.com/Joseph-Rai/translationapis/internal/secrets"
	"github.com/Joseph-Rai/translationapis/internal/server"
	"github.com/Joseph-Rai/translationapis/internal/session"
	"github.com/Joseph-Rai/translationapis/internal/storage"
	"github.com/Joseph-Rai/translationapis/internal/storage/memory"
	"github.com/Joseph-Rai/translationapis/internal/storage/sqlite"
	"github.com/Joseph-Rai/translationapis/internal/telemetry"
	"github.com/Joseph-Rai/translationapis/internal/translation"
)

const shutdownTimeout = 30 * time.Second

type flags struct {
	configFile string
	port       int
}

func main() {
	f := &flags{}
	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Google Cloud Translation and chat refinement gateway",
		Long: `gateway holds a Google Cloud service-account session and exposes

  POST /api/v1/authenticate   install a service-account key
  POST /api/v1/translate      forward a protobuf TranslateTextRequest
  POST /api/v1/chatGPT        refine text through a chat model
  GET  /api/v1/refinements    recent chat refinements
  GET  /healthz               session status`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), f)
		},
	}
	rootCmd.Flags().StringVar(&f.configFile, "config", config.DefaultConfigPath, "config file")
	rootCmd.Flags().IntVar(&f.port, "port", 0, "listen port (overrides server.port)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, f *flags) error {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.LoadFile(f.configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.port > 0 {
		cfg.Server.Port = f.port
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.Setup(telemetry.Options{ServiceName: cfg.Telemetry.ServiceName, Logger: logger})
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
			}
		}()
	}

	registration.RegisterBuiltins()

	keyFile, err := credential.NewKeyFile(cfg.Credentials.KeyPath)
	if err != nil {
		return err
	}
	manager := session.NewManager(keyFile, googlecloud.NewConnector(),
		session.WithLogger(logger),
		session.WithConnectTimeout(cfg.Vendor.Timeout),
	)
	defer manager.Close()

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	refiner, err := chat.NewRefiner(
		secrets.NewResolver(manager, cfg.Secrets.Version, cfg.Vendor.Timeout, logger),
		chat.Options{
			Provider:       cfg.Chat.Provider,
			Mode:           chat.Mode(cfg.Chat.Mode),
			OnFailure:      chat.FailurePolicy(cfg.Chat.OnFailure),
			TopP:           cfg.Chat.TopP,
			MaxTokens:      cfg.Chat.MaxTokens,
			MaxInputTokens: cfg.Chat.MaxInputTokens,
			BaseURL:        cfg.Chat.BaseURL,
			Timeout:        cfg.Vendor.Timeout,
			ModelSecret:    cfg.Secrets.ModelName,
			APIKeySecret:   cfg.Secrets.APIKeyName,
			PromptSecret:   cfg.Secrets.PromptName,
			Store:          store,
			Logger:         logger,
		},
	)
	if err != nil {
		return err
	}

	authenticator := auth.NewAuthenticator(cfg.Server.APIKeys)
	if authenticator.Enabled() {
		logger.Info("API key authentication enabled", slog.Int("keys", len(cfg.Server.APIKeys)))
	}

	srv := server.New(server.Options{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
		ServiceName:    cfg.Telemetry.ServiceName,
		Logger:         logger,
	})
	api.NewHandler(api.Options{
		Sessions:   manager,
		Translator: translation.NewPassthrough(manager, cfg.Vendor.Timeout),
		Refiner:    refiner,
		Store:      store,
		Logger:     logger,
	}).Mount(srv.Router, authenticator)

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		return err
	}
	return <-errCh
}

// openStore returns the configured refinement store, or nil for "none".
func openStore(cfg config.StorageConfig) (storage.RefinementStore, error) {
	switch cfg.Type {
	case "none":
		return nil, nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
		store, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return memory.New(0), nil
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
