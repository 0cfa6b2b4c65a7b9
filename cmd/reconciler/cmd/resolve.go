package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang-trade-reconciliation-engine/cmd/reconciler/config"
	"golang-trade-reconciliation-engine/internal/reconciler"
	"golang-trade-reconciliation-engine/internal/reporter"
	"golang-trade-reconciliation-engine/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the resolve command
var (
	breaksFile          string
	resolveFormat       string
	resolveOutput       string
	minActionConfidence float64
	effectiveDate       string
	historyFile         string
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Propose resolution actions for classified breaks",
	Long: `Resolve walks classified breaks through the resolution workflow:
eligible breaks get a proposed action, validated actions are applied, and
each applied action produces a simulated journal entry. Nothing is posted
to an external ledger.

This command requires a breaks file, a JSON array of classified breaks as
produced by the reconcile command.

Examples:
  # Propose and apply resolution actions
  reconengine resolve --breaks-file breaks.json

  # Adjust confidences from resolution history
  reconengine resolve --breaks-file breaks.json --history-file history.json

  # Require stronger actions and pin the journal date
  reconengine resolve --breaks-file breaks.json \
    --min-action-confidence 0.5 --effective-date 2024-01-31

  # CSV action report to a file
  reconengine resolve --breaks-file breaks.json \
    --output-format csv --output-file actions.csv`,

	PreRunE: validateResolveFlags,
	RunE:    runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	// Required flags
	resolveCmd.Flags().StringVarP(&breaksFile, "breaks-file", "b", "", "path to classified breaks JSON file (required)")

	// Output flags
	resolveCmd.Flags().StringVarP(&resolveFormat, "output-format", "f", "console", "output format: console, json, csv")
	resolveCmd.Flags().StringVarP(&resolveOutput, "output-file", "o", "", "output file path (default: stdout)")

	// Resolution configuration flags
	resolveCmd.Flags().Float64Var(&minActionConfidence, "min-action-confidence", 0.1, "minimum adjusted confidence for an action to be applied (0.0-1.0)")
	resolveCmd.Flags().StringVar(&effectiveDate, "effective-date", "", "journal entry effective date override (YYYY-MM-DD)")
	resolveCmd.Flags().StringVar(&historyFile, "history-file", "", "JSON file with historical resolution statistics")

	// Mark required flags
	resolveCmd.MarkFlagRequired("breaks-file")

	// Bind flags to viper
	viper.BindPFlag("breaks-file", resolveCmd.Flags().Lookup("breaks-file"))
	viper.BindPFlag("min-action-confidence", resolveCmd.Flags().Lookup("min-action-confidence"))
	viper.BindPFlag("effective-date", resolveCmd.Flags().Lookup("effective-date"))
	viper.BindPFlag("history-file", resolveCmd.Flags().Lookup("history-file"))
}

func validateResolveFlags(cmd *cobra.Command, args []string) error {
	// Shared with the reconcile command, re-bound per invocation.
	viper.BindPFlag("output-format", cmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", cmd.Flags().Lookup("output-file"))

	// Get values from viper (allows override from config file)
	breaksFile = viper.GetString("breaks-file")
	resolveFormat = viper.GetString("output-format")
	resolveOutput = viper.GetString("output-file")
	minActionConfidence = viper.GetFloat64("min-action-confidence")
	effectiveDate = viper.GetString("effective-date")
	historyFile = viper.GetString("history-file")

	// Validate required flags
	if breaksFile == "" {
		return fmt.Errorf("breaks-file is required")
	}

	// Validate file existence
	if err := validateFileExists(breaksFile, "breaks file"); err != nil {
		return err
	}
	if historyFile != "" {
		if err := validateFileExists(historyFile, "history file"); err != nil {
			return err
		}
	}

	// Validate output format
	if !reporter.OutputFormat(resolveFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", resolveFormat)
	}

	// Validate resolution settings
	if minActionConfidence < 0.0 || minActionConfidence > 1.0 {
		return fmt.Errorf("min action confidence must be between 0.0 and 1.0")
	}
	if effectiveDate != "" {
		if _, err := time.Parse("2006-01-02", effectiveDate); err != nil {
			return fmt.Errorf("invalid effective date format. Use YYYY-MM-DD: %w", err)
		}
	}

	// Validate output file directory exists if specified
	if resolveOutput != "" {
		dir := filepath.Dir(resolveOutput)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting resolution...\n")
		fmt.Fprintf(os.Stderr, "Breaks file: %s\n", breaksFile)
		if historyFile != "" {
			fmt.Fprintf(os.Stderr, "History file: %s\n", historyFile)
		}
	}

	// Load breaks
	breaks, err := loadBreaks(breaksFile)
	if err != nil {
		return err
	}

	// Build engine configuration from flags
	resolverConfig, err := config.CreateResolverConfig(minActionConfidence, effectiveDate)
	if err != nil {
		return err
	}

	opts := &reconciler.Options{
		ResolverConfig: resolverConfig,
		Logger:         logger.GetGlobalLogger(),
	}

	if historyFile != "" {
		snapshot, err := config.LoadHistoricalSnapshot(historyFile)
		if err != nil {
			return err
		}
		opts.HistoricalSnapshot = snapshot
	}

	service, err := reconciler.NewService(opts)
	if err != nil {
		return err
	}

	// Run the resolution workflow
	result, err := service.Resolve(breaks)
	if err != nil {
		return err
	}

	// Generate report
	reportConfig := config.CreateReportConfig(resolveFormat, false)
	reportGenerator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	output, closeOutput, err := openOutput(resolveOutput)
	if err != nil {
		return err
	}
	defer closeOutput()

	if err := reportGenerator.WriteResolutionReport(result, output); err != nil {
		return err
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nResolution completed.\n")
		fmt.Fprintf(os.Stderr, "Proposed %d actions, resolved %d of %d resolvable breaks.\n",
			result.Summary.ActionCount, result.Summary.Resolved, result.Summary.Resolvable)
		fmt.Fprintf(os.Stderr, "Created %d journal entries.\n", result.Summary.JournalCount)
		if result.Summary.Rejected > 0 || result.Summary.Failed > 0 {
			fmt.Fprintf(os.Stderr, "Rejected %d actions, %d apply failures.\n",
				result.Summary.Rejected, result.Summary.Failed)
		}
		if len(result.Errors) > 0 {
			fmt.Fprintf(os.Stderr, "%s\n", FormatEngineErrors(result.Errors))
		}
	}

	return nil
}
