package logs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/lang"
	"github.com/huangsam/logscan/schema"
)

// Result is the outcome of scanning one repository.
type Result struct {
	Metrics   schema.LogMetrics
	Templates []string // normalized string templates of every site
	Lines     []string // raw log lines, in file order
}

// Scan reads every file of every language with log patterns under root and
// aggregates the per-language counts into repository totals.
func (e *Extractor) Scan(ctx context.Context, root string, classifier *lang.Classifier) (*Result, error) {
	logger := contract.LoggerFrom(ctx)
	res := &Result{
		Metrics: schema.LogMetrics{ByLanguage: make(map[string]schema.LanguageLogMetrics)},
	}

	for _, l := range e.rules.LogLanguages() {
		files, err := classifier.ScanDirectory(root, l.Name)
		if err != nil {
			return nil, fmt.Errorf("walk %s files: %w", l.Name, err)
		}
		if len(files) == 0 {
			continue
		}

		lm := schema.LanguageLogMetrics{Levels: make(map[schema.Severity]int)}
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				logger.Debug("skipping unreadable file", "path", path, "err", err)
				continue
			}
			content := string(data)
			lm.Files++
			lm.Lines += countLines(content)

			sites := e.ExtractLanguage(content, l.Name)
			if len(sites) > 0 {
				lm.FilesWithLog++
			}
			for _, s := range sites {
				lm.Sites++
				lm.Levels[s.Level]++
				res.Lines = append(res.Lines, s.Line)
				res.Templates = append(res.Templates, s.Templates...)
			}
		}
		res.Metrics.ByLanguage[l.Name] = lm
		mergeLanguage(&res.Metrics, lm)
	}

	finalize(&res.Metrics)
	logger.Debug("log scan finished", "root", root, "logs", res.Metrics.LogsTotal, "files", res.Metrics.AmountOfFiles)
	return res, nil
}

// mergeLanguage adds the counts of one language to the repository totals.
func mergeLanguage(m *schema.LogMetrics, lm schema.LanguageLogMetrics) {
	m.LogsTotal += lm.Sites
	m.FilesWithLogs += lm.FilesWithLog
	m.AmountOfFiles += lm.Files
	m.AmountOfLines += lm.Lines
}

// countLines counts lines whose trimmed length exceeds two characters.
func countLines(content string) int {
	n := 0
	for line := range strings.SplitSeq(content, "\n") {
		if len(strings.TrimSpace(line)) > 2 {
			n++
		}
	}
	return n
}

// finalize derives the usage columns and ratios from the merged counts.
func finalize(m *schema.LogMetrics) {
	levels := map[schema.Severity]int{}
	for _, lm := range m.ByLanguage {
		for level, n := range lm.Levels {
			levels[level] += n
		}
	}
	m.NoLoggerLogs = levels[schema.NoLevel]
	m.DebugUsage = levels[schema.DebugLevel]
	m.InfoUsage = levels[schema.InfoLevel] + levels[schema.NoLevel]
	m.WarningUsage = levels[schema.WarningLevel]
	m.ErrorUsage = levels[schema.ErrorLevel]
	m.CriticalUsage = levels[schema.CriticalLevel]

	m.LogsDensity = 0
	if m.AmountOfLines > 0 {
		m.LogsDensity = float64(m.LogsTotal) / float64(m.AmountOfLines)
	}
	m.FilesWithRatio = 0
	if m.AmountOfFiles > 0 {
		m.FilesWithRatio = float64(m.FilesWithLogs) / float64(m.AmountOfFiles)
	}
}

// WriteRecords writes the raw log lines of one repository to dir/<owner>--<repo>.txt.
func WriteRecords(dir, owner, repo string, lines []string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log records dir: %w", err)
	}
	path := filepath.Join(dir, contract.RecordFileName(owner, repo))
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write log records: %w", err)
	}
	return path, nil
}
