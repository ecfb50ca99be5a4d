package outwriter

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
	"github.com/olekukonko/tablewriter"
)

// PrintClassMetrics outputs the class measurements of path as JSON or as a table.
func PrintClassMetrics(path string, m schema.ClassMetrics, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, m)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeClassTable(w, path, m, cfg.Precision)
	}, "Wrote table")
}

func writeClassTable(w io.Writer, path string, m schema.ClassMetrics, precision int) error {
	fmtFloat, _ := createFormatters(precision)
	if _, err := fmt.Fprintf(w, "Classes in %s\n", path); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Metric", "Value"})
	rows := [][]string{
		{"Source files", humanize.Comma(int64(m.SourceFiles))},
		{"Classes", humanize.Comma(int64(m.NumberOfClasses))},
		{"Mean effective length", fmtFloat(m.MeanEffectiveLength)},
		{"Median effective length", fmtFloat(m.MedianEffectiveLength)},
		{"Max effective length", humanize.Comma(int64(m.MaxEffectiveLength))},
		{"Max raw length", humanize.Comma(int64(m.MaxClassLength))},
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// PrintLineReport outputs the classification of a single line as JSON or text.
func PrintLineReport(report schema.LineReport, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeLineReport(w, report, cfg.UseColors)
	}, "Wrote text")
}

var severityColors = map[schema.Severity]*color.Color{
	schema.DebugLevel:    color.New(color.FgCyan),
	schema.InfoLevel:     color.New(color.FgGreen),
	schema.WarningLevel:  color.New(color.FgYellow),
	schema.ErrorLevel:    color.New(color.FgRed),
	schema.CriticalLevel: color.New(color.FgRed, color.Bold),
}

func severityText(s schema.Severity, useColors bool) string {
	if c, ok := severityColors[s]; ok && useColors {
		return c.Sprint(string(s))
	}
	return string(s)
}

func writeLineReport(w io.Writer, report schema.LineReport, useColors bool) error {
	if _, err := fmt.Fprintf(w, "Severity: %s\n", severityText(report.Severity, useColors)); err != nil {
		return err
	}
	if report.Language == "" {
		return nil
	}
	if len(report.Sites) == 0 {
		_, err := fmt.Fprintf(w, "No %s log site found\n", report.Language)
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Language", "Level", "Templates"})
	var rows [][]string
	for _, s := range report.Sites {
		rows = append(rows, []string{report.Language, severityText(s.Level, useColors), strings.Join(s.Templates, " | ")})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
