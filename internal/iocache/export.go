package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/parquet"
)

// ErrNothingToExport is returned when the results store holds no runs.
var ErrNothingToExport = errors.New("no scan runs found to export")

// ExportResults writes the runs and repository records of store to two Parquet files
// derived from outputFile and reports progress to w.
func ExportResults(store contract.ResultsStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("results store is not configured")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get results status: %w", err)
	}
	if status.TotalRuns == 0 {
		return ErrNothingToExport
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total scan runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total repository records: %d\n", status.TotalRepos)

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve scan runs: %w", err)
	}
	results, err := store.GetAllRepoResults()
	if err != nil {
		return fmt.Errorf("failed to retrieve repository records: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteFile(parquet.ConvertScanRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write scan runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d scan runs to: %s\n", len(runs), runsFile)

	resultsFile := outputFile + ".repo_results.parquet"
	if err := parquet.WriteFile(parquet.ConvertRepoResultRecords(results), resultsFile); err != nil {
		return fmt.Errorf("failed to write repository records: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d repository records to: %s\n", len(results), resultsFile)
	return nil
}
