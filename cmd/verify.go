package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/verify-cli/internal/model"
)

var (
	verifyCompany   string
	verifyAmount    float64
	verifyRound     string
	verifyYear      int
	verifyMonth     int
	verifyInvestors string
	verifySource    string
	verifyOffline   bool
	verifyStore     bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a single funding announcement",
	Long: `Verifies one announcement given on the command line against its
cited source and prints the result as JSON.

Example:
  verify-cli verify --company "Acme" --amount 25 --round "Series B" \
    --year 2024 --source https://techcrunch.com/acme-raises-25m`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pipeline, err := buildPipeline(verifyOffline)
		if err != nil {
			return err
		}

		a := model.Announcement{
			ID:          verifyCompany,
			CompanyName: verifyCompany,
			RoundType:   verifyRound,
			Amount:      verifyAmount,
			Year:        verifyYear,
			Month:       verifyMonth,
			SourceURL:   verifySource,
		}
		for _, inv := range strings.Split(verifyInvestors, ",") {
			if inv = strings.TrimSpace(inv); inv != "" {
				a.Investors = append(a.Investors, inv)
			}
		}

		result, failed := pipeline.VerifyOne(ctx, a)
		if failed {
			zap.L().Warn("verify: source could not be analyzed",
				zap.String("company", a.CompanyName),
				zap.String("notes", result.Notes),
			)
		}

		if verifyStore {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.AppendResults(ctx, []model.VerificationResult{result}); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	verifyCmd.Flags().StringVar(&verifyCompany, "company", "", "reported company name (required)")
	verifyCmd.Flags().Float64Var(&verifyAmount, "amount", 0, "reported amount in millions USD")
	verifyCmd.Flags().StringVar(&verifyRound, "round", "", "reported round type, e.g. \"Series B\"")
	verifyCmd.Flags().IntVar(&verifyYear, "year", 0, "reported announcement year")
	verifyCmd.Flags().IntVar(&verifyMonth, "month", 0, "reported announcement month (1-12)")
	verifyCmd.Flags().StringVar(&verifyInvestors, "investors", "", "comma-separated reported investors")
	verifyCmd.Flags().StringVar(&verifySource, "source", "", "source article URL")
	verifyCmd.Flags().BoolVar(&verifyOffline, "offline", false, "use stub oracle and fetcher (no API key needed)")
	verifyCmd.Flags().BoolVar(&verifyStore, "store", false, "also persist the result to the results store")
	_ = verifyCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(verifyCmd)
}
