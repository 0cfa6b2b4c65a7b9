package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"golang-trade-reconciliation-engine/internal/models"
)

// Feed and break files are JSON arrays produced upstream; ingestion of
// raw CSV/XLSX exports happens before records reach this tool.

func loadFeed(filePath string, side models.Feed) ([]*models.TransactionRecord, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed file: %w", err)
	}

	var records []*models.TransactionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse feed file %s: %w", filePath, err)
	}

	for _, record := range records {
		if record != nil {
			record.Feed = side
		}
	}

	return records, nil
}

func loadBreaks(filePath string) ([]*models.BreakRecord, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read breaks file: %w", err)
	}

	var breaks []*models.BreakRecord
	if err := json.Unmarshal(data, &breaks); err != nil {
		return nil, fmt.Errorf("failed to parse breaks file %s: %w", filePath, err)
	}

	return breaks, nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func openOutput(outputFile string) (*os.File, func(), error) {
	if outputFile == "" {
		return os.Stdout, func() {}, nil
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
