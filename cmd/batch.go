package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/checkpoint"
	"github.com/sells-group/verify-cli/internal/ingest"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/store"
	"github.com/sells-group/verify-cli/internal/verify"
)

var (
	batchInput   string
	batchLimit   int
	batchOffline bool
	batchFresh   bool
	batchCSVOut  string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Verify a file of funding announcements",
	Long: `Loads announcements from a CSV or Excel file and verifies each one
against its cited source in paced concurrent batches.

Progress is checkpointed per announcement, so an interrupted run resumes
where it stopped. The checkpoint is cleared when the run completes.

Examples:
  # Verify all announcements in a CSV
  verify-cli batch --input announcements.csv

  # Offline smoke test (no API key needed)
  verify-cli batch --input announcements.csv --offline --limit 3

  # Ignore a previous checkpoint and start over
  verify-cli batch --input announcements.xlsx --fresh`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		announcements, err := loadAnnouncements(batchInput)
		if err != nil {
			return err
		}
		if batchLimit > 0 && batchLimit < len(announcements) {
			announcements = announcements[:batchLimit]
		}
		if len(announcements) == 0 {
			return eris.New("batch: no valid announcements in input")
		}

		pipeline, err := buildPipeline(batchOffline)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cp := checkpoint.NewFileStore(cfg.Checkpoint.Path)
		if batchFresh {
			if err := cp.Clear(); err != nil {
				return eris.Wrap(err, "batch: clear checkpoint")
			}
		}

		orch := verify.NewOrchestrator(pipeline, cp, st, verify.BatchOptions{
			BatchSize:   cfg.Batch.Size,
			Concurrency: cfg.Batch.Workers,
			Pacing:      time.Duration(cfg.Batch.PacingMsec) * time.Millisecond,
		})
		orch.OnProgress(func(ev verify.ProgressEvent) {
			zap.L().Info(fmt.Sprintf("[%d/%d] %s", ev.Processed, ev.Total, ev.Company),
				zap.String("status", string(ev.Status)),
			)
		})

		summary, results, runErr := orch.Run(ctx, announcements)

		fmt.Fprint(os.Stderr, store.FormatSummary(summary))

		if batchCSVOut != "" && len(results) > 0 {
			if err := store.ExportCSV(batchCSVOut, results); err != nil {
				return err
			}
			zap.L().Info("batch: results csv written", zap.String("path", batchCSVOut))
		}

		return runErr
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "path to announcements CSV or XLSX file (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max announcements to verify (0 = all)")
	batchCmd.Flags().BoolVar(&batchOffline, "offline", false, "use stub oracle and fetcher (no API key needed)")
	batchCmd.Flags().BoolVar(&batchFresh, "fresh", false, "discard any existing checkpoint before running")
	batchCmd.Flags().StringVar(&batchCSVOut, "csv", "", "also export results to a CSV file")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

func loadAnnouncements(path string) ([]model.Announcement, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ingest.LoadCSV(path)
	case ".xlsx":
		return ingest.LoadXLSX(path)
	default:
		return nil, eris.Errorf("batch: unsupported input format %q (want .csv or .xlsx)", filepath.Ext(path))
	}
}
