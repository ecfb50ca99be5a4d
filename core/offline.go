package core

import (
	"context"
	"fmt"
	"os"

	"github.com/huangsam/logscan/core/classes"
	"github.com/huangsam/logscan/core/logs"
	"github.com/huangsam/logscan/internal/lang"
	"github.com/huangsam/logscan/internal/rules"
	"github.com/huangsam/logscan/schema"
)

// ClassLengths measures the classes of a single file, or of every file of language
// under a directory. No minimum file count applies.
func ClassLengths(ctx context.Context, path, language, rulesFile string) (schema.ClassMetrics, error) {
	info, err := os.Stat(path)
	if err != nil {
		return schema.ClassMetrics{}, err
	}
	if !info.IsDir() {
		f, err := os.Open(path)
		if err != nil {
			return schema.ClassMetrics{}, err
		}
		defer func() { _ = f.Close() }()
		records, err := classes.ExtractClassesFromReader(f)
		if err != nil {
			return schema.ClassMetrics{}, fmt.Errorf("read %s: %w", path, err)
		}
		m := classes.Summarize(records)
		m.SourceFiles = 1
		return m, nil
	}

	r, err := rules.LoadCompiled(rulesFile)
	if err != nil {
		return schema.ClassMetrics{}, err
	}
	l, ok := r.Language(language)
	if !ok {
		return schema.ClassMetrics{}, fmt.Errorf("unknown language %q", language)
	}
	m, err := classes.Scan(ctx, path, l.Name, 0, lang.NewClassifier(r.Languages, false))
	if err != nil {
		return schema.ClassMetrics{}, err
	}
	return *m, nil
}

// ClassifyLine classifies line with the severity table and, when language is set,
// also runs the log-site extraction of that language over it.
func ClassifyLine(line, language, rulesFile string) (schema.LineReport, error) {
	r, err := rules.LoadCompiled(rulesFile)
	if err != nil {
		return schema.LineReport{}, err
	}
	e := logs.NewExtractor(r)
	report := schema.LineReport{Line: line, Severity: e.Severity(line)}
	if language == "" {
		return report, nil
	}
	l, ok := r.Language(language)
	if !ok {
		return schema.LineReport{}, fmt.Errorf("unknown language %q", language)
	}
	report.Language = l.Name
	report.Sites = e.ExtractLanguage(line, l.Name)
	return report, nil
}
