package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/ukpostcode/internal/core/config"
	"github.com/solatis/ukpostcode/internal/core/db"
	"github.com/solatis/ukpostcode/internal/core/logging"
)

// Exit codes.
const (
	exitOK      = 0
	exitInvalid = 1
	exitUsage   = 2
)

var (
	configFile string
	dbURL      string
	logLevel   string
	logFormat  string

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "ukpostcode",
	Short: "UK postcode validation and formatting",
	Long: `ukpostcode validates, normalizes, formats and decomposes UK postcodes,
including BFPO and overseas-territory codes, from the command line, over
JSON Lines files, or as a gRPC service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db-url", "", "database connection URL (sqlite://path or postgres://...), defaults to $"+config.EnvPrefix+"_DB_URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "log format (json, text)")
}

// exitError carries the exit code of a command that ran and failed.
// Errors without one come from cobra itself (bad flags, arguments or
// command names) and exit with exitUsage.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// failed wraps a runtime error with exitInvalid.
func failed(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: exitInvalid, err: err}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	_ = logger.Sync()
	return exitCode(err, os.Stderr)
}

// exitCode reports err on stderr and maps it to a process exit code.
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return exitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintln(stderr, "Error:", exitErr.err)
		}
		return exitErr.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	fmt.Fprintln(stderr, "Run 'ukpostcode --help' for usage.")
	return exitUsage
}

// openDatabase connects using --db-url or UKPC_DB_URL.
func openDatabase() (*sqlx.DB, error) {
	url := dbURL
	if url == "" {
		url = os.Getenv(config.EnvPrefix + "_DB_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("--db-url or %s_DB_URL required", config.EnvPrefix)
	}
	database, err := db.Open(url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}
