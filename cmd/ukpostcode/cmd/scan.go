package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/ukpostcode/internal/records"
)

var (
	scanField       string
	scanInvalidOnly bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Validate the postcode field of every record in a JSON Lines file",
	Long: `Validate one postcode field per JSON record, reading a file or stdin.

The field is a path such as "postcode", "address.postcode",
"contacts[0].postcode" or "branches[*].postcode". One JSON result is
written per record; a summary is logged at the end. Exits 1 if any
record fails.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanField, "field", "f", "postcode", "field path of the postcode in each record")
	scanCmd.Flags().BoolVar(&scanInvalidOnly, "invalid-only", false, "only print failing records")
}

func runScan(cmd *cobra.Command, args []string) error {
	scanner, err := records.NewScanner(scanField)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return failed(err)
		}
		defer f.Close()
		in = f
	}

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc := json.NewEncoder(cmd.OutOrStdout())
	summary, err := scanner.Scan(ctx, in, func(r records.Result) error {
		if scanInvalidOnly && r.Valid {
			return nil
		}
		return enc.Encode(r)
	})
	if err != nil {
		return failed(fmt.Errorf("scan stopped after %d records: %w", summary.Records, err))
	}

	logger.Info("scan complete",
		zap.String("field", scanField),
		zap.Int("records", summary.Records),
		zap.Int("valid", summary.Valid),
		zap.Int("invalid", summary.Invalid),
		zap.Any("shapes", summary.Shapes))

	if summary.Invalid > 0 {
		return &exitError{code: exitInvalid}
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
