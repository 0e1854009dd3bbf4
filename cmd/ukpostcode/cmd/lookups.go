package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/ukpostcode/internal/core/db"
)

var (
	lookupsTenant  string
	lookupsLimit   int
	lookupsByShape bool
)

var lookupsCmd = &cobra.Command{
	Use:   "lookups",
	Short: "Show a tenant's audited API lookups",
	Long: `Show a tenant's most recent audited API lookups, newest first, or with
--by-shape the lookup totals per postcode shape.`,
	Args: cobra.NoArgs,
	RunE: runLookups,
}

func init() {
	rootCmd.AddCommand(lookupsCmd)
	lookupsCmd.Flags().StringVar(&lookupsTenant, "tenant", "", "tenant whose lookups to show")
	lookupsCmd.Flags().IntVar(&lookupsLimit, "limit", 20, "maximum number of lookups")
	lookupsCmd.Flags().BoolVar(&lookupsByShape, "by-shape", false, "print totals per shape instead")
	_ = lookupsCmd.MarkFlagRequired("tenant")
}

func runLookups(cmd *cobra.Command, args []string) error {
	if lookupsLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
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
		return failed(err)
	}
	store := db.NewLookupStore(queries)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	if lookupsByShape {
		counts, err := store.CountByShape(cmdContext(cmd), lookupsTenant)
		if err != nil {
			return failed(err)
		}
		fmt.Fprintln(w, "SHAPE\tTOTAL")
		for _, c := range counts {
			fmt.Fprintf(w, "%s\t%d\n", c.Shape, c.Total)
		}
		return failed(w.Flush())
	}

	lookups, err := store.Recent(cmdContext(cmd), lookupsTenant, lookupsLimit)
	if err != nil {
		return failed(err)
	}
	fmt.Fprintln(w, "TIME\tMETHOD\tNORMALIZED\tSHAPE\tVALID")
	for _, l := range lookups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n",
			l.CreatedAt.UTC().Format(time.RFC3339), l.Method, l.Normalized, l.Shape, l.Valid)
	}
	return failed(w.Flush())
}
