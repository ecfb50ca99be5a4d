package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/logscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRulesCompile(t *testing.T) {
	c, err := LoadCompiled("")
	require.NoError(t, err)

	assert.NotEmpty(t, c.Languages)
	assert.Contains(t, c.LogPatterns, "Java")
	assert.Contains(t, c.LogPatterns, "Python")
	assert.NotEmpty(t, c.Excludes)
	assert.NotEmpty(t, c.Formats)

	levels := make([]schema.Severity, 0, len(c.Severity))
	for _, s := range c.Severity {
		levels = append(levels, s.Level)
	}
	assert.Equal(t, schema.SeverityOrder, levels)
}

func TestIsOpenSource(t *testing.T) {
	c, err := LoadCompiled("")
	require.NoError(t, err)

	assert.True(t, c.IsOpenSource("MIT"))
	assert.True(t, c.IsOpenSource("Apache-2.0"))
	assert.True(t, c.IsOpenSource("mit"))
	assert.False(t, c.IsOpenSource(schema.NoLicense))
	assert.False(t, c.IsOpenSource("NOASSERTION"))
}

func TestLogLanguagesFollowTaxonomyOrder(t *testing.T) {
	c, err := LoadCompiled("")
	require.NoError(t, err)

	langs := c.LogLanguages()
	require.NotEmpty(t, langs)
	assert.Equal(t, "Java", langs[0].Name)

	java, ok := c.Language("java")
	require.True(t, ok)
	assert.Equal(t, []string{"java"}, java.Extensions)
}

func TestLoadOverridesOnlyPresentTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
excludes:
  - '^\s*;'
contribution_keywords:
  - hacking
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{`^\s*;`}, r.Excludes)
	assert.Equal(t, []string{"hacking"}, r.ContributionKeywords)

	def, err := Default()
	require.NoError(t, err)
	assert.Equal(t, def.Languages, r.Languages)
	assert.Equal(t, def.Severity, r.Severity)
}

func TestCompileRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		rules Rules
	}{
		{
			name: "invalid regex",
			rules: Rules{
				Languages: []Language{{Name: "Java", Extensions: []string{"java"}}},
				Excludes:  []string{"("},
			},
		},
		{
			name: "unknown severity",
			rules: Rules{
				Severity: []SeverityRule{{Level: "Loud", Patterns: []string{"x"}}},
			},
		},
		{
			name: "patterns for unknown language",
			rules: Rules{
				LogPatterns: map[string][]string{"Cobol": {"DISPLAY"}},
			},
		},
		{
			name: "language without extensions",
			rules: Rules{
				Languages: []Language{{Name: "Java"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.rules.Compile()
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
