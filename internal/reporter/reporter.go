// Package reporter renders reconciliation and resolution results for the
// CLI. Console output is tabular and human readable; JSON is the models'
// own marshaling; CSV flattens the break list for spreadsheet triage.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"golang-trade-reconciliation-engine/internal/analyzer"
	"golang-trade-reconciliation-engine/internal/models"
	"golang-trade-reconciliation-engine/internal/reconciler"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Detail level options
	IncludeMatches   bool `json:"include_matches"`
	IncludeUnmatched bool `json:"include_unmatched"`
	IncludeBreaks    bool `json:"include_breaks"`
	IncludePatterns  bool `json:"include_patterns"`
	IncludeErrors    bool `json:"include_errors"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:           FormatConsole,
		IncludeMatches:   false,
		IncludeUnmatched: true,
		IncludeBreaks:    true,
		IncludePatterns:  true,
		IncludeErrors:    true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReconciliationReport renders a reconciliation result to the writer
func (rg *ReportGenerator) GenerateReconciliationReport(result *reconciler.ReconciliationResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.reconciliationConsole(result, writer)
	case FormatJSON:
		return writeJSON(result, writer)
	case FormatCSV:
		return rg.breaksCSV(result.Breaks, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// GenerateResolutionReport renders a resolution result to the writer
func (rg *ReportGenerator) GenerateResolutionReport(result *reconciler.ResolutionResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("resolution result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.resolutionConsole(result, writer)
	case FormatJSON:
		return writeJSON(result, writer)
	case FormatCSV:
		return rg.actionsCSV(result.Actions, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func writeJSON(v interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (rg *ReportGenerator) reconciliationConsole(result *reconciler.ReconciliationResult, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n\n", result.ProcessedAt.Format(time.RFC3339))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Feed A records:\t%d\n", result.Summary.Matching.TotalFeedA)
	fmt.Fprintf(tw, "Feed B records:\t%d\n", result.Summary.Matching.TotalFeedB)
	fmt.Fprintf(tw, "Deterministic matches:\t%d\n", result.Summary.Matching.DeterministicMatches)
	fmt.Fprintf(tw, "Probabilistic matches:\t%d\n", result.Summary.Matching.ProbabilisticMatches)
	fmt.Fprintf(tw, "Unmatched A:\t%d\n", result.Summary.Matching.UnmatchedA)
	fmt.Fprintf(tw, "Unmatched B:\t%d\n", result.Summary.Matching.UnmatchedB)
	fmt.Fprintf(tw, "Amount matched:\t%s\n", result.Summary.Matching.TotalAmountMatched.StringFixed(2))
	fmt.Fprintf(tw, "Amount unmatched:\t%s\n", result.Summary.Matching.TotalAmountUnmatched.StringFixed(2))
	fmt.Fprintf(tw, "Total breaks:\t%d\n", result.Summary.TotalBreaks)
	fmt.Fprintf(tw, "Excluded records:\t%d\n", result.Summary.ExcludedRecords)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(writer, "\n")

	if len(result.Summary.BreaksByType) > 0 {
		fmt.Fprintf(writer, "=== BREAKS BY TYPE ===\n")
		tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		for _, bt := range sortedBreakTypes(result.Summary.BreaksByType) {
			fmt.Fprintf(tw, "%s:\t%d\n", bt, result.Summary.BreaksByType[bt])
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeMatches && len(result.Matches) > 0 {
		fmt.Fprintf(writer, "=== MATCHES ===\n")
		tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "A\tB\tTYPE\tCONFIDENCE\n")
		for _, m := range result.Matches {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n",
				m.RecordA.ExternalID, m.RecordB.ExternalID, m.MatchType, m.ConfidenceScore)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeUnmatched && (len(result.UnmatchedA) > 0 || len(result.UnmatchedB) > 0) {
		fmt.Fprintf(writer, "=== UNMATCHED RECORDS ===\n")
		tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "FEED\tEXTERNAL ID\tAMOUNT\tCURRENCY\n")
		for _, r := range result.UnmatchedA {
			fmt.Fprintf(tw, "A\t%s\t%s\t%s\n", r.ExternalID, r.Amount.StringFixed(2), r.Currency)
		}
		for _, r := range result.UnmatchedB {
			fmt.Fprintf(tw, "B\t%s\t%s\t%s\n", r.ExternalID, r.Amount.StringFixed(2), r.Currency)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeBreaks && len(result.Breaks) > 0 {
		fmt.Fprintf(writer, "=== BREAKS ===\n")
		tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "TYPE\tSEVERITY\tCONFIDENCE\tDESCRIPTION\n")
		for _, br := range result.Breaks {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n",
				br.BreakType, br.Severity, br.ConfidenceScore, br.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludePatterns && len(result.Patterns) > 0 {
		fmt.Fprintf(writer, "=== PATTERNS ===\n")
		for _, bt := range sortedPatternTypes(result.Patterns) {
			pattern := result.Patterns[bt]
			fmt.Fprintf(writer, "%s (%d):\n", pattern.BreakType, pattern.Count)
			for _, cause := range pattern.CommonCauses {
				fmt.Fprintf(writer, "  cause: %s\n", cause)
			}
			for _, strategy := range pattern.ResolutionStrategies {
				fmt.Fprintf(writer, "  strategy: %s\n", strategy)
			}
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeErrors && len(result.Errors) > 0 {
		fmt.Fprintf(writer, "=== ERRORS ===\n")
		for _, e := range result.Errors {
			fmt.Fprintf(writer, "[%s/%s] %s\n", e.Category, e.Code, e.Message)
		}
		fmt.Fprintf(writer, "\n")
	}

	return nil
}

func (rg *ReportGenerator) resolutionConsole(result *reconciler.ResolutionResult, writer io.Writer) error {
	fmt.Fprintf(writer, "RESOLUTION REPORT\n")
	fmt.Fprintf(writer, "Generated: %s\n\n", result.ProcessedAt.Format(time.RFC3339))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	tw := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total breaks:\t%d\n", result.Summary.TotalBreaks)
	fmt.Fprintf(tw, "Resolvable:\t%d\n", result.Summary.Resolvable)
	fmt.Fprintf(tw, "Resolved:\t%d\n", result.Summary.Resolved)
	fmt.Fprintf(tw, "Skipped:\t%d\n", result.Summary.Skipped)
	fmt.Fprintf(tw, "Rejected:\t%d\n", result.Summary.Rejected)
	fmt.Fprintf(tw, "Failed:\t%d\n", result.Summary.Failed)
	fmt.Fprintf(tw, "Success rate:\t%.1f%%\n", result.Summary.SuccessRate*100)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(writer, "\n")

	if len(result.Actions) > 0 {
		fmt.Fprintf(writer, "=== PROPOSED ACTIONS ===\n")
		tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "ACTION\tPRIORITY\tCONFIDENCE\tDESCRIPTION\n")
		for _, a := range result.Actions {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n",
				a.ActionType, a.Priority, a.ConfidenceScore, a.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	if len(result.JournalEntries) > 0 {
		fmt.Fprintf(writer, "=== JOURNAL ENTRIES ===\n")
		tw = tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "DEBIT\tCREDIT\tAMOUNT\tCURRENCY\tEFFECTIVE\n")
		for _, j := range result.JournalEntries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				j.DebitAccount, j.CreditAccount, j.Amount.StringFixed(2),
				j.Currency, j.EffectiveDate.Format("2006-01-02"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(writer, "\n")
	}

	if rg.config.IncludeErrors && len(result.Errors) > 0 {
		fmt.Fprintf(writer, "=== ERRORS ===\n")
		for _, e := range result.Errors {
			fmt.Fprintf(writer, "[%s/%s] %s\n", e.Category, e.Code, e.Message)
		}
		fmt.Fprintf(writer, "\n")
	}

	return nil
}

func (rg *ReportGenerator) breaksCSV(breaks []*models.BreakRecord, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{"break_id", "break_type", "severity", "confidence", "status", "security_id", "description"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, br := range breaks {
		row := []string{
			br.ID,
			br.BreakType.String(),
			br.Severity.String(),
			strconv.FormatFloat(br.ConfidenceScore, 'f', 2, 64),
			string(br.Status),
			br.SecurityIdentifier(),
			br.Description,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func (rg *ReportGenerator) actionsCSV(actions []*models.ProposedAction, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{"action_id", "break_id", "action_type", "priority", "confidence", "description"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, a := range actions {
		row := []string{
			a.ID,
			a.BreakID,
			a.ActionType.String(),
			string(a.Priority),
			strconv.FormatFloat(a.ConfidenceScore, 'f', 2, 64),
			a.Description,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func sortedBreakTypes(histogram map[models.BreakType]int) []models.BreakType {
	types := make([]models.BreakType, 0, len(histogram))
	for bt := range histogram {
		types = append(types, bt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func sortedPatternTypes(patterns map[models.BreakType]analyzer.Pattern) []models.BreakType {
	types := make([]models.BreakType, 0, len(patterns))
	for bt := range patterns {
		types = append(types, bt)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
