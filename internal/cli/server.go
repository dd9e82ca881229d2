package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/criteo/code-id-registry/internal/config"
	"github.com/criteo/code-id-registry/internal/registry"
	"github.com/criteo/code-id-registry/internal/server"
	"github.com/criteo/code-id-registry/internal/storage"
)

// Version is set by the main package
var Version = "dev"

var configFile string

// ServerCmd represents the server command
var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the code ID registry HTTP server",
	Long: `Start the HTTP server that records which code IDs a chain has assigned to
which (contract name, version) pairs, and serves lookups by name or by code ID.`,
	RunE: runServer,
}

func init() {
	ServerCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (optional, can also use "+config.ConfigFileEnvVar+" env var)")
}

func runServer(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		configFile = os.Getenv(config.ConfigFileEnvVar)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := server.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	uri, err := cfg.GetParsedStorageURI()
	if err != nil {
		return fmt.Errorf("invalid storage URI: %w", err)
	}

	logger.Info("Server starting",
		"version", Version,
		"port", cfg.Server.Port,
		"config_file", configFile,
		"storage_uri", uri.String(),
		"storage_token", cfg.MaskToken(),
		"auth_type", cfg.Auth.Type)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := storage.NewStorage(ctx, uri, cfg.Storage.Token, logger)
	if err != nil {
		logger.Error("Failed to initialize storage",
			"error", err,
			"storage_uri", uri.String())
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	validator, err := cfg.IdentityValidator()
	if err != nil {
		store.Close()
		return err
	}
	service := registry.NewService(store, validator, logger)
	service.SetVersion(Version)

	if err := server.Bootstrap(ctx, service, cfg.Registry.Admin, logger); err != nil {
		store.Close()
		return err
	}

	authenticator, err := server.NewAuthenticator(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize authentication",
			"error", err,
			"auth_type", cfg.Auth.Type)
		store.Close()
		return err
	}

	srv := server.NewServer(cfg, logger, store, service, authenticator)

	logger.Info("Server ready to accept connections",
		"address", fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port))

	if err := srv.Start(); err != nil {
		logger.Error("Server stopped with error", "error", err)
		return err
	}

	return nil
}
