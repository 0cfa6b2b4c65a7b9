package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"golang-trade-reconciliation-engine/cmd/reconciler/config"
	"golang-trade-reconciliation-engine/internal/models"
	"golang-trade-reconciliation-engine/internal/reconciler"
	"golang-trade-reconciliation-engine/internal/reporter"
	"golang-trade-reconciliation-engine/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	feedAFile      string
	feedBFile      string
	outputFormat   string
	outputFile     string
	amountTol      float64
	minConfidence  float64
	dateTolerance  int
	priceTolerance float64
	fxTolerance    float64
	marketDataFile string
	includeMatches bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match two trade feeds and classify the breaks",
	Long: `Reconcile matches trade records from feed A against feed B, classifies
every discrepancy into a typed break with a severity, and reports break
patterns across the run.

This command requires two feed files, each a JSON array of trade records.

Examples:
  # Basic reconciliation
  reconengine reconcile --feed-a feed_a.json --feed-b feed_b.json

  # Custom tolerances and JSON output
  reconengine reconcile --feed-a a.json --feed-b b.json \
    --amount-tolerance 0.05 --date-tolerance 2 \
    --output-format json --output-file breaks.json

  # Price z-score and FX cross-rate checks from a market data file
  reconengine reconcile --feed-a a.json --feed-b b.json \
    --market-data market.json

  # Include matched pairs in the report
  reconengine reconcile --feed-a a.json --feed-b b.json --include-matches`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&feedAFile, "feed-a", "a", "", "path to feed A JSON file (required)")
	reconcileCmd.Flags().StringVarP(&feedBFile, "feed-b", "b", "", "path to feed B JSON file (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&includeMatches, "include-matches", false, "include matched pairs in the report")

	// Matching configuration flags
	reconcileCmd.Flags().Float64Var(&amountTol, "amount-tolerance", 0.01, "absolute amount tolerance for exact matching")
	reconcileCmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.7, "similarity threshold for probabilistic matching (0.0-1.0)")

	// Break detection flags
	reconcileCmd.Flags().IntVarP(&dateTolerance, "date-tolerance", "d", 1, "settlement date tolerance in days")
	reconcileCmd.Flags().Float64Var(&priceTolerance, "price-tolerance", 0.01, "market price tolerance as a fraction of the larger price")
	reconcileCmd.Flags().Float64Var(&fxTolerance, "fx-tolerance", 0.005, "fx rate tolerance as a fraction of the larger rate")

	// Optional classifier inputs
	reconcileCmd.Flags().StringVar(&marketDataFile, "market-data", "", "JSON file with price histories and reference fx rates")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("feed-a")
	reconcileCmd.MarkFlagRequired("feed-b")

	// Bind flags to viper
	viper.BindPFlag("feed-a", reconcileCmd.Flags().Lookup("feed-a"))
	viper.BindPFlag("feed-b", reconcileCmd.Flags().Lookup("feed-b"))
	viper.BindPFlag("include-matches", reconcileCmd.Flags().Lookup("include-matches"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("min-confidence", reconcileCmd.Flags().Lookup("min-confidence"))
	viper.BindPFlag("date-tolerance", reconcileCmd.Flags().Lookup("date-tolerance"))
	viper.BindPFlag("price-tolerance", reconcileCmd.Flags().Lookup("price-tolerance"))
	viper.BindPFlag("fx-tolerance", reconcileCmd.Flags().Lookup("fx-tolerance"))
	viper.BindPFlag("market-data", reconcileCmd.Flags().Lookup("market-data"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// output-format and output-file are shared with the resolve command,
	// so their viper bindings are refreshed per invocation.
	viper.BindPFlag("output-format", cmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", cmd.Flags().Lookup("output-file"))

	// Get values from viper (allows override from config file)
	feedAFile = viper.GetString("feed-a")
	feedBFile = viper.GetString("feed-b")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	amountTol = viper.GetFloat64("amount-tolerance")
	minConfidence = viper.GetFloat64("min-confidence")
	dateTolerance = viper.GetInt("date-tolerance")
	priceTolerance = viper.GetFloat64("price-tolerance")
	fxTolerance = viper.GetFloat64("fx-tolerance")
	marketDataFile = viper.GetString("market-data")
	includeMatches = viper.GetBool("include-matches")

	// Validate required flags
	if feedAFile == "" {
		return fmt.Errorf("feed-a is required")
	}
	if feedBFile == "" {
		return fmt.Errorf("feed-b is required")
	}

	// Validate file existence
	if err := validateFileExists(feedAFile, "feed A file"); err != nil {
		return err
	}
	if err := validateFileExists(feedBFile, "feed B file"); err != nil {
		return err
	}
	if marketDataFile != "" {
		if err := validateFileExists(marketDataFile, "market data file"); err != nil {
			return err
		}
	}

	// Validate output format
	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	// Validate tolerances
	if amountTol < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}
	if minConfidence < 0.0 || minConfidence > 1.0 {
		return fmt.Errorf("min confidence must be between 0.0 and 1.0")
	}
	if dateTolerance < 0 {
		return fmt.Errorf("date tolerance cannot be negative")
	}
	if priceTolerance < 0 {
		return fmt.Errorf("price tolerance cannot be negative")
	}
	if fxTolerance < 0 {
		return fmt.Errorf("fx tolerance cannot be negative")
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Feed A: %s\n", feedAFile)
		fmt.Fprintf(os.Stderr, "Feed B: %s\n", feedBFile)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	// Load feeds
	feedA, err := loadFeed(feedAFile, models.FeedA)
	if err != nil {
		return err
	}
	feedB, err := loadFeed(feedBFile, models.FeedB)
	if err != nil {
		return err
	}

	// Build engine configurations from flags
	matcherConfig := config.CreateMatcherConfig(amountTol, minConfidence)
	classifierConfig := config.CreateClassifierConfig(dateTolerance, priceTolerance, fxTolerance)

	opts := &reconciler.Options{
		MatcherConfig:    matcherConfig,
		ClassifierConfig: classifierConfig,
		Logger:           logger.GetGlobalLogger(),
	}

	if marketDataFile != "" {
		marketData, err := config.LoadMarketData(marketDataFile)
		if err != nil {
			return err
		}
		opts.PriceStats = marketData.PriceStats
		opts.ReferenceRates = marketData.ReferenceRates
	}

	service, err := reconciler.NewService(opts)
	if err != nil {
		return err
	}

	// Perform reconciliation
	result, err := service.Reconcile(feedA, feedB)
	if err != nil {
		return err
	}

	// Generate report
	reportConfig := config.CreateReportConfig(outputFormat, includeMatches)
	reportGenerator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	output, closeOutput, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	defer closeOutput()

	if err := reportGenerator.WriteReconciliationReport(result, output); err != nil {
		return err
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed.\n")
		fmt.Fprintf(os.Stderr, "Matched %d pairs, %d unmatched in feed A, %d in feed B.\n",
			len(result.Matches), len(result.UnmatchedA), len(result.UnmatchedB))
		fmt.Fprintf(os.Stderr, "Classified %d breaks across %d types.\n",
			result.Summary.TotalBreaks, len(result.Summary.BreaksByType))
		if result.Summary.ExcludedRecords > 0 {
			fmt.Fprintf(os.Stderr, "Excluded %d malformed records.\n", result.Summary.ExcludedRecords)
		}
		if len(result.Errors) > 0 {
			fmt.Fprintf(os.Stderr, "%s\n", FormatEngineErrors(result.Errors))
		}
	}

	return nil
}
