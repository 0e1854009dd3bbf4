package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/ukpostcode/internal/core/api"
	"github.com/solatis/ukpostcode/internal/core/auth"
	"github.com/solatis/ukpostcode/internal/core/config"
	"github.com/solatis/ukpostcode/internal/core/db"
	"github.com/solatis/ukpostcode/internal/core/metrics"
	"github.com/solatis/ukpostcode/internal/core/server"
)

// Version is reported at startup.
const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC lookup API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
	serveCmd.Flags().String("metrics-addr", ":9090", "Prometheus listen address (empty disables)")
	serveCmd.Flags().Bool("audit-lookups", true, "record every lookup in the database")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return failed(fmt.Errorf("failed to load config: %w", err))
	}

	secrets, err := config.HMACSecrets()
	if err != nil {
		return failed(fmt.Errorf("failed to load HMAC secrets: %w", err))
	}
	if len(secrets) == 0 {
		return failed(fmt.Errorf("%w (set %s_HMAC_SECRET)", auth.ErrNoSecrets, config.EnvPrefix))
	}

	database, err := openDatabase()
	if err != nil {
		return failed(err)
	}
	defer database.Close()

	if err := db.RequireMigrations(database); err != nil {
		return failed(err)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		return failed(fmt.Errorf("failed to load queries: %w", err))
	}

	m := metrics.New()
	service, err := api.NewLookupService(cfg, db.NewLookupStore(queries), m, logger)
	if err != nil {
		return failed(fmt.Errorf("failed to create service: %w", err))
	}

	grpcServer, err := server.NewGRPCServer(cfg, service, auth.NewAuthenticator(secrets, queries), m, logger)
	if err != nil {
		return failed(fmt.Errorf("failed to create server: %w", err))
	}

	logger.Info("starting ukpostcode lookup API",
		zap.String("version", Version),
		zap.String("addr", cfg.Address()),
		zap.String("metrics_addr", cfg.MetricsAddr),
		zap.Bool("audit_lookups", cfg.AuditLookups),
		zap.Int("secrets", len(secrets)))

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return failed(err)
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return failed(grpcServer.Shutdown(shutdownCtx))
	}
}
