// Package outwriter renders scan results as tables, CSV, JSON and Parquet.
package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/parquet"
	"github.com/huangsam/logscan/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// PrintBatchResults outputs the records of a batch, dispatching on the configured output format.
// Only successful repositories become rows; failures are summarized separately.
func PrintBatchResults(batch schema.BatchResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtInt := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, batch.Records)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchCSV(w, batch.Records, fmtFloat, fmtInt)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := parquet.WriteFile(parquet.ConvertRepoMetricRecords(batch.Records), cfg.OutputFile); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeBatchTable(w, batch, cfg, fmtFloat, duration)
		}, "Wrote table")
	}
	return writeFailures(os.Stderr, batch.Failures)
}

// writeBatchTable generates the human-readable table with one column group per pipeline.
func writeBatchTable(w io.Writer, batch schema.BatchResult, cfg *contract.Config, fmtFloat func(float64) string, duration time.Duration) error {
	withLogs := cfg.HasPipeline(schema.LogsPipeline)
	withClasses := cfg.HasPipeline(schema.ClassesPipeline)
	withContrib := cfg.HasPipeline(schema.ContributorsPipeline)

	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}
	repoWidth := getMaxTableRepoWidth(cfg)

	headers := []string{"#", "Repository", "Lang", "Stars", "Contrib"}
	if withLogs {
		headers = append(headers, "Logs", "Density", "Files w/ Logs")
	}
	if withClasses {
		headers = append(headers, "Classes", "Mean Len", "Max Len")
	}
	if withContrib {
		headers = append(headers, "Top 1 %", "Label")
	}

	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for i, r := range batch.Records {
		row := []string{
			strconv.Itoa(i + 1),
			contract.TruncatePath(r.ID(), repoWidth),
			r.Metadata.MainLang,
			humanize.Comma(int64(r.Metadata.Stars)),
			humanize.Comma(int64(r.Metadata.Contributors)),
		}
		if withLogs {
			if l := r.Logs; l != nil {
				row = append(row, humanize.Comma(int64(l.LogsTotal)), fmtFloat(l.LogsDensity), fmtFloat(l.FilesWithRatio))
			} else {
				row = append(row, "-", "-", "-")
			}
		}
		if withClasses {
			if c := r.Classes; c != nil {
				row = append(row, humanize.Comma(int64(c.NumberOfClasses)), fmtFloat(c.MeanEffectiveLength), strconv.Itoa(c.MaxEffectiveLength))
			} else {
				row = append(row, "-", "-", "-")
			}
		}
		if withContrib {
			if d := r.Contributors; d != nil {
				row = append(row, fmtFloat(d.TopPercent[0]), label(d.TopPercent[0]))
			} else {
				row = append(row, "-", "-")
			}
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	totalLogs := 0
	for _, r := range batch.Records {
		if r.Logs != nil {
			totalLogs += r.Logs.LogsTotal
		}
	}
	if _, err := fmt.Fprintf(w, "Scanned %s repositories, skipped %s (total log sites: %s)\n",
		humanize.Comma(int64(len(batch.Records))), humanize.Comma(int64(len(batch.Failures))), humanize.Comma(int64(totalLogs))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Scan completed in %v with %d workers. Cache backend: %s\n", duration.Round(time.Millisecond), cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeFailures lists the skipped jobs in input order.
func writeFailures(w io.Writer, failures []schema.JobResult) error {
	if len(failures) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Skipped %d repositories:\n", len(failures)); err != nil {
		return err
	}
	for _, f := range failures {
		if _, err := fmt.Fprintf(w, "  #%d %s: %v\n", f.Job.Index+1, f.Job.URL, f.Err); err != nil {
			return err
		}
	}
	return nil
}

// batchCSVHeader lists every column of the CSV output; absent sections leave their cells empty.
var batchCSVHeader = []string{
	"repo_url", "project_name", "creator",
	"main_lang", "license_type", "is_open_source", "owner_type", "forks", "stars", "watchers", "contributors",
	"other_langs_percent",
	"logs_total_amount", "no_logger_logs_amount", "debug_usage", "info_usage", "warning_usage",
	"error_usage", "critical_usage", "files_with_logs", "amount_of_files", "amount_of_lines",
	"logs_density", "files_with_logs_ratio",
	"source_files", "number_of_classes", "mean_effective_length", "median_effective_length",
	"max_effective_length", "max_class_length",
	"total_contributions", "top_1_percent", "top_2_percent", "top_3_percent", "top_4_percent",
	"top_5_percent", "centralized",
	"contributing_file", "code_of_conduct_file", "issue_template", "pull_request_template",
	"readme_mentions_contributing",
}

// writeBatchCSV writes one row per record.
func writeBatchCSV(w io.Writer, records []schema.RepoMetricRecord, fmtFloat func(float64) string, fmtInt func(int) string) error {
	return writeCSVWithHeader(w, batchCSVHeader, func(cw *csv.Writer) error {
		for _, r := range records {
			if err := cw.Write(csvRow(r, fmtFloat, fmtInt)); err != nil {
				return err
			}
		}
		return nil
	})
}

func csvRow(r schema.RepoMetricRecord, fmtFloat func(float64) string, fmtInt func(int) string) []string {
	m := r.Metadata
	row := []string{
		r.RepoURL, r.Project, r.Creator,
		m.MainLang, m.License, strconv.FormatBool(m.OpenSource), m.OwnerType,
		fmtInt(m.Forks), fmtInt(m.Stars), fmtInt(m.Watchers), fmtInt(m.Contributors),
		fmtFloat(r.OtherLangs),
	}

	if l := r.Logs; l != nil {
		row = append(row,
			fmtInt(l.LogsTotal), fmtInt(l.NoLoggerLogs), fmtInt(l.DebugUsage), fmtInt(l.InfoUsage),
			fmtInt(l.WarningUsage), fmtInt(l.ErrorUsage), fmtInt(l.CriticalUsage), fmtInt(l.FilesWithLogs),
			fmtInt(l.AmountOfFiles), fmtInt(l.AmountOfLines), fmtFloat(l.LogsDensity), fmtFloat(l.FilesWithRatio),
		)
	} else {
		row = append(row, make([]string, 12)...)
	}

	if c := r.Classes; c != nil {
		row = append(row,
			fmtInt(c.SourceFiles), fmtInt(c.NumberOfClasses), fmtFloat(c.MeanEffectiveLength),
			fmtFloat(c.MedianEffectiveLength), fmtInt(c.MaxEffectiveLength), fmtInt(c.MaxClassLength),
		)
	} else {
		row = append(row, make([]string, 6)...)
	}

	if d := r.Contributors; d != nil {
		row = append(row, fmtInt(d.Total))
		for _, p := range d.TopPercent {
			row = append(row, fmtFloat(p))
		}
		row = append(row, strconv.FormatBool(d.Centralized))
	} else {
		row = append(row, make([]string, 7)...)
	}

	if f := r.Friendliness; f != nil {
		row = append(row,
			strconv.FormatBool(f.ContributingFile), strconv.FormatBool(f.CodeOfConductFile),
			strconv.FormatBool(f.IssueTemplate), strconv.FormatBool(f.PullRequestTemplate),
			strconv.FormatBool(f.ReadmeMentions),
		)
	} else {
		row = append(row, make([]string, 5)...)
	}
	return row
}
