// Package logs finds logging call sites in source text and measures how a repository logs.
package logs

import (
	"regexp"
	"strings"

	"github.com/huangsam/logscan/internal/rules"
	"github.com/huangsam/logscan/schema"
)

var (
	doubleQuoted = regexp.MustCompile(`"(.*)"`)
	singleQuoted = regexp.MustCompile(`'(.*)'`)
)

// Extract returns the log sites of content for one language. Each trimmed line is tested
// against patterns in order; the first match is checked against excludes and, if kept,
// becomes a site with its raw string templates. Levels are left as No_Level.
func Extract(content string, patterns, excludes []*regexp.Regexp) []schema.LogSite {
	var sites []schema.LogSite
	for raw := range strings.SplitSeq(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		for _, re := range patterns {
			matches := re.FindAllStringSubmatch(line, -1)
			if matches == nil {
				continue
			}
			if !excluded(line, excludes) {
				sites = append(sites, schema.LogSite{
					Line:      line,
					Level:     schema.NoLevel,
					Templates: templatesOf(matches),
				})
			}
			break
		}
	}
	return sites
}

// templatesOf takes the last capture group of the last match and returns the
// double-quoted then single-quoted strings found inside it.
func templatesOf(matches [][]string) []string {
	last := matches[len(matches)-1]
	if len(last) < 2 {
		return nil
	}
	group := last[len(last)-1]

	var out []string
	for _, quoted := range []*regexp.Regexp{doubleQuoted, singleQuoted} {
		for _, m := range quoted.FindAllStringSubmatch(group, -1) {
			out = append(out, m[1])
		}
	}
	return out
}

func excluded(line string, excludes []*regexp.Regexp) bool {
	for _, re := range excludes {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Normalize replaces every dynamic-format finding in template with schema.Placeholder.
// A finding is the single capture group when the format has exactly one, otherwise the
// whole match. Findings that already contain the placeholder are left alone, which makes
// Normalize idempotent.
func Normalize(template string, formats []*regexp.Regexp) string {
	for _, re := range formats {
		for _, m := range re.FindAllStringSubmatch(template, -1) {
			finding := m[0]
			if re.NumSubexp() == 1 {
				finding = m[1]
			}
			if finding == "" || strings.Contains(finding, schema.Placeholder) {
				continue
			}
			template = strings.ReplaceAll(template, finding, schema.Placeholder)
		}
	}
	return template
}

// ClassifySeverity returns the first level whose patterns match line, or No_Level.
func ClassifySeverity(line string, levels []rules.CompiledSeverity) schema.Severity {
	for _, level := range levels {
		for _, re := range level.Patterns {
			if re.MatchString(line) {
				return level.Level
			}
		}
	}
	return schema.NoLevel
}

// Extractor binds the compiled tables to the pure extraction functions.
type Extractor struct {
	rules *rules.Compiled
}

// NewExtractor creates an extractor over the compiled tables.
func NewExtractor(r *rules.Compiled) *Extractor {
	return &Extractor{rules: r}
}

// ExtractLanguage returns the sites of content for language with levels
// classified and templates normalized. Languages without patterns yield nothing.
func (e *Extractor) ExtractLanguage(content, language string) []schema.LogSite {
	patterns := e.rules.LogPatterns[language]
	if len(patterns) == 0 {
		return nil
	}
	sites := Extract(content, patterns, e.rules.Excludes)
	for i := range sites {
		sites[i].Level = ClassifySeverity(sites[i].Line, e.rules.Severity)
		for j, t := range sites[i].Templates {
			sites[i].Templates[j] = Normalize(t, e.rules.Formats)
		}
	}
	return sites
}

// Severity classifies a single line with the configured severity table.
func (e *Extractor) Severity(line string) schema.Severity {
	return ClassifySeverity(strings.TrimSpace(line), e.rules.Severity)
}
