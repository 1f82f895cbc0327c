package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/store"
)

var (
	reportStatus  string
	reportCompany string
	reportLimit   int
	reportRuns    bool
	reportCSVOut  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect stored verification results",
	Long: `Lists verification results from the results store, optionally
filtered by status or company, or prints recent run summaries.

Examples:
  # Recent results as JSON
  verify-cli report --limit 20

  # Only unverified announcements for one company
  verify-cli report --status UNVERIFIED --company acme

  # Recent run summaries
  verify-cli report --runs

  # Export filtered results to CSV
  verify-cli report --status PARTIALLY_VERIFIED --csv partial.csv`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if reportRuns {
			summaries, err := st.ListSummaries(ctx, reportLimit)
			if err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Fprint(os.Stdout, store.FormatSummary(s))
			}
			return nil
		}

		status, err := statusFromFlag(reportStatus)
		if err != nil {
			return err
		}

		results, err := st.ListResults(ctx, store.ResultFilter{
			Status:  status,
			Company: reportCompany,
			Limit:   reportLimit,
		})
		if err != nil {
			return err
		}

		if reportCSVOut != "" {
			if err := store.ExportCSV(reportCSVOut, results); err != nil {
				return err
			}
			zap.L().Info("report: results csv written",
				zap.String("path", reportCSVOut),
				zap.Int("results", len(results)),
			)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

// statusFromFlag normalizes the --status flag value, accepting any
// casing. An empty value means no status filter.
func statusFromFlag(s string) (model.VerificationStatus, error) {
	if s == "" {
		return "", nil
	}
	status := model.VerificationStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case model.StatusVerified, model.StatusPartiallyVerified, model.StatusUnverified:
		return status, nil
	}
	return "", eris.Errorf("report: unknown status %q", s)
}

func init() {
	reportCmd.Flags().StringVar(&reportStatus, "status", "", "filter by status: VERIFIED, PARTIALLY_VERIFIED or UNVERIFIED")
	reportCmd.Flags().StringVar(&reportCompany, "company", "", "filter by company name substring")
	reportCmd.Flags().IntVar(&reportLimit, "limit", 50, "max rows to return (0 = all)")
	reportCmd.Flags().BoolVar(&reportRuns, "runs", false, "list run summaries instead of results")
	reportCmd.Flags().StringVar(&reportCSVOut, "csv", "", "export results to a CSV file instead of printing JSON")
	rootCmd.AddCommand(reportCmd)
}
