package reporter

import (
	"io"

	"golang-trade-reconciliation-engine/internal/reconciler"
	"golang-trade-reconciliation-engine/pkg/errors"
	"golang-trade-reconciliation-engine/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and categorized
// errors for the CLI layer.
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the report configuration values")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// WriteReconciliationReport renders a reconciliation result, logging the
// outcome and wrapping any failure in a categorized error.
func (srg *SafeReportGenerator) WriteReconciliationReport(result *reconciler.ReconciliationResult, writer io.Writer) error {
	srg.logger.WithField("format", srg.config.Format).Info("Generating reconciliation report")

	if writer == nil {
		return errors.New(errors.CategoryInternal, errors.CodeUnexpectedError,
			"report writer cannot be nil")
	}

	if err := srg.GenerateReconciliationReport(result, writer); err != nil {
		srg.logger.WithError(err).Error("Reconciliation report generation failed")
		return errors.WrapIfNeeded(err, errors.CategoryInternal,
			errors.CodeUnexpectedError, "reconciliation report generation failed")
	}

	srg.logger.Info("Reconciliation report generated")
	return nil
}

// WriteResolutionReport renders a resolution result with the same handling.
func (srg *SafeReportGenerator) WriteResolutionReport(result *reconciler.ResolutionResult, writer io.Writer) error {
	srg.logger.WithField("format", srg.config.Format).Info("Generating resolution report")

	if writer == nil {
		return errors.New(errors.CategoryInternal, errors.CodeUnexpectedError,
			"report writer cannot be nil")
	}

	if err := srg.GenerateResolutionReport(result, writer); err != nil {
		srg.logger.WithError(err).Error("Resolution report generation failed")
		return errors.WrapIfNeeded(err, errors.CategoryInternal,
			errors.CodeUnexpectedError, "resolution report generation failed")
	}

	srg.logger.Info("Resolution report generated")
	return nil
}
