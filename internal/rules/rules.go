// Package rules loads the declarative tables that drive classification and extraction.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/huangsam/logscan/schema"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Language is one entry of the language taxonomy.
type Language struct {
	Name       string   `yaml:"name"`
	Extensions []string `yaml:"extensions"`
}

// SeverityRule maps one severity level to the patterns that select it.
type SeverityRule struct {
	Level    schema.Severity `yaml:"level"`
	Patterns []string        `yaml:"patterns"`
}

// Rules is the raw, uncompiled form of the tables.
type Rules struct {
	Languages            []Language          `yaml:"languages"`
	LogPatterns          map[string][]string `yaml:"log_patterns"`
	Severity             []SeverityRule      `yaml:"severity"`
	Excludes             []string            `yaml:"excludes"`
	DynamicFormats       []string            `yaml:"dynamic_formats"`
	OpenSourceLicenses   []string            `yaml:"open_source_licenses"`
	ContributionKeywords []string            `yaml:"contribution_keywords"`
}

// CompiledSeverity is a SeverityRule with its patterns compiled.
type CompiledSeverity struct {
	Level    schema.Severity
	Patterns []*regexp.Regexp
}

// Compiled holds the tables in the form used by the extractors.
type Compiled struct {
	Languages   []Language
	LogPatterns map[string][]*regexp.Regexp
	Severity    []CompiledSeverity
	Excludes    []*regexp.Regexp
	Formats     []*regexp.Regexp
	Keywords    []string
	licenses    map[string]struct{}
}

// Default parses the embedded tables.
func Default() (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(defaultRules, &r); err != nil {
		return nil, fmt.Errorf("failed to parse embedded rules: %w", err)
	}
	return &r, nil
}

// Load returns the embedded tables, with every table present in the file at path replacing its default.
// An empty path returns the defaults.
func Load(path string) (*Rules, error) {
	r, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return r, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
	}

	var override Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
	}
	r.merge(&override)
	return r, nil
}

// merge replaces every non-empty table of r with the one from o.
func (r *Rules) merge(o *Rules) {
	if len(o.Languages) > 0 {
		r.Languages = o.Languages
	}
	if len(o.LogPatterns) > 0 {
		r.LogPatterns = o.LogPatterns
	}
	if len(o.Severity) > 0 {
		r.Severity = o.Severity
	}
	if len(o.Excludes) > 0 {
		r.Excludes = o.Excludes
	}
	if len(o.DynamicFormats) > 0 {
		r.DynamicFormats = o.DynamicFormats
	}
	if len(o.OpenSourceLicenses) > 0 {
		r.OpenSourceLicenses = o.OpenSourceLicenses
	}
	if len(o.ContributionKeywords) > 0 {
		r.ContributionKeywords = o.ContributionKeywords
	}
}

// Compile validates every pattern and severity level.
func (r *Rules) Compile() (*Compiled, error) {
	c := &Compiled{
		Languages:   r.Languages,
		LogPatterns: make(map[string][]*regexp.Regexp, len(r.LogPatterns)),
		Keywords:    make([]string, 0, len(r.ContributionKeywords)),
		licenses:    make(map[string]struct{}, len(r.OpenSourceLicenses)),
	}

	known := make(map[string]struct{}, len(r.Languages))
	for _, l := range r.Languages {
		if l.Name == "" || len(l.Extensions) == 0 {
			return nil, fmt.Errorf("language entries need a name and at least one extension (got %q)", l.Name)
		}
		known[l.Name] = struct{}{}
	}

	for lang, patterns := range r.LogPatterns {
		if _, ok := known[lang]; !ok {
			return nil, fmt.Errorf("log patterns declared for unknown language %q", lang)
		}
		compiled, err := compileAll(patterns)
		if err != nil {
			return nil, fmt.Errorf("log patterns for %s: %w", lang, err)
		}
		c.LogPatterns[lang] = compiled
	}

	valid := make(map[schema.Severity]struct{}, len(schema.SeverityOrder))
	for _, level := range schema.SeverityOrder {
		valid[level] = struct{}{}
	}
	for _, s := range r.Severity {
		if _, ok := valid[s.Level]; !ok {
			return nil, fmt.Errorf("unknown severity level %q", s.Level)
		}
		compiled, err := compileAll(s.Patterns)
		if err != nil {
			return nil, fmt.Errorf("severity %s: %w", s.Level, err)
		}
		c.Severity = append(c.Severity, CompiledSeverity{Level: s.Level, Patterns: compiled})
	}

	var err error
	if c.Excludes, err = compileAll(r.Excludes); err != nil {
		return nil, fmt.Errorf("excludes: %w", err)
	}
	if c.Formats, err = compileAll(r.DynamicFormats); err != nil {
		return nil, fmt.Errorf("dynamic formats: %w", err)
	}

	for _, l := range r.OpenSourceLicenses {
		c.licenses[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}
	for _, k := range r.ContributionKeywords {
		c.Keywords = append(c.Keywords, strings.ToLower(k))
	}
	return c, nil
}

// LoadCompiled is Load followed by Compile.
func LoadCompiled(path string) (*Compiled, error) {
	r, err := Load(path)
	if err != nil {
		return nil, err
	}
	return r.Compile()
}

// IsOpenSource reports whether the license key or SPDX id is in the open-source list.
func (c *Compiled) IsOpenSource(license string) bool {
	_, ok := c.licenses[strings.ToLower(strings.TrimSpace(license))]
	return ok
}

// LogLanguages returns the languages that have log patterns, in taxonomy order.
func (c *Compiled) LogLanguages() []Language {
	out := make([]Language, 0, len(c.LogPatterns))
	for _, l := range c.Languages {
		if _, ok := c.LogPatterns[l.Name]; ok {
			out = append(out, l)
		}
	}
	return out
}

// Language returns the taxonomy entry with the given name.
func (c *Compiled) Language(name string) (Language, bool) {
	for _, l := range c.Languages {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Language{}, false
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
