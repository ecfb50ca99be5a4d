package logs

import (
	"regexp"
	"testing"

	"github.com/huangsam/logscan/internal/rules"
	"github.com/huangsam/logscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compiledRules(t *testing.T) *rules.Compiled {
	t.Helper()
	c, err := rules.LoadCompiled("")
	require.NoError(t, err)
	return c
}

func TestExtract(t *testing.T) {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`logger\.\w+\((.*)\)`),
		regexp.MustCompile(`System\.out\.println\((.*)\)`),
		regexp.MustCompile(`audit\(\)`),
	}
	excludes := []*regexp.Regexp{regexp.MustCompile(`^\s*//`)}

	content := `
public void run() {
    logger.info("starting %s", name);
    // logger.debug("commented out");
    System.out.println('single ' + x);
    int y = 2;
    audit();
}`

	sites := Extract(content, patterns, excludes)
	require.Len(t, sites, 3)

	assert.Equal(t, `logger.info("starting %s", name);`, sites[0].Line)
	assert.Equal(t, []string{"starting %s"}, sites[0].Templates)
	assert.Equal(t, schema.NoLevel, sites[0].Level)

	assert.Equal(t, []string{"single "}, sites[1].Templates)

	// A pattern without a capture group still yields a site.
	assert.Equal(t, "audit();", sites[2].Line)
	assert.Empty(t, sites[2].Templates)
}

func TestExtractUsesLastMatchLastGroup(t *testing.T) {
	patterns := []*regexp.Regexp{regexp.MustCompile(`log\((\w+), "([^"]*)"\)`)}
	sites := Extract(`log(a, "first") + log(b, "second")`, patterns, nil)
	require.Len(t, sites, 1)
	// The last group holds the unquoted text, so no quoted template is found in it.
	assert.Empty(t, sites[0].Templates)

	patterns = []*regexp.Regexp{regexp.MustCompile(`log\(([^)]*)\)`)}
	sites = Extract(`log("first"); log("second")`, patterns, nil)
	require.Len(t, sites, 1)
	assert.Equal(t, []string{"second"}, sites[0].Templates)
}

func TestExtractFirstPatternWins(t *testing.T) {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(`print\((.*)\)`),
		regexp.MustCompile(`(print)`),
	}
	// The first pattern matches and the line is excluded: later patterns are not tried.
	excludes := []*regexp.Regexp{regexp.MustCompile(`^#`)}
	assert.Empty(t, Extract(`# print("x")`, patterns, excludes))
}

func TestNormalize(t *testing.T) {
	c := compiledRules(t)

	tests := []struct {
		in   string
		want string
	}{
		{"user %s logged in", "user {str_format} logged in"},
		{"took %.2f ms for %d items", "took {str_format} ms for {str_format} items"},
		{"hello {} and {0}", "hello {str_format} and {str_format}"},
		{"value {name!r:>10}", "value {str_format}"},
		{"path ${HOME}/x", "path ${str_format}/x"},
		{"no dynamic content", "no dynamic content"},
		{schema.Placeholder, schema.Placeholder},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in, c.Formats)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got, c.Formats), "normalization must be idempotent")
		})
	}
}

func TestNormalizeSingleGroupFinding(t *testing.T) {
	formats := []*regexp.Regexp{regexp.MustCompile(`<(\w+)>`)}
	assert.Equal(t, "<{str_format}> and <{str_format}>", Normalize("<id> and <name>", formats))
}

func TestClassifySeverity(t *testing.T) {
	c := compiledRules(t)

	tests := []struct {
		line string
		want schema.Severity
	}{
		{`logger.debug("x")`, schema.DebugLevel},
		{`LOG.trace("x")`, schema.DebugLevel},
		{`log.info("x")`, schema.InfoLevel},
		{`logger.warning("x")`, schema.WarningLevel},
		{`log.Warnf("x")`, schema.WarningLevel},
		{`logger.error("x")`, schema.ErrorLevel},
		{`System.err.println("x")`, schema.ErrorLevel},
		{`log.fatal("x")`, schema.CriticalLevel},
		{`Log.wtf(TAG, "x")`, schema.CriticalLevel},
		{`System.out.println("x")`, schema.NoLevel},
		{`print("debug mode")`, schema.NoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifySeverity(tt.line, c.Severity))
		})
	}
}

func TestClassifySeverityOrderedEvaluation(t *testing.T) {
	levels := []rules.CompiledSeverity{
		{Level: schema.DebugLevel, Patterns: []*regexp.Regexp{regexp.MustCompile(`verbose`)}},
		{Level: schema.ErrorLevel, Patterns: []*regexp.Regexp{regexp.MustCompile(`error`)}},
	}
	assert.Equal(t, schema.DebugLevel, ClassifySeverity("verbose error", levels))
	assert.Equal(t, schema.ErrorLevel, ClassifySeverity("error", levels))
	assert.Equal(t, schema.NoLevel, ClassifySeverity("info", levels))
}

func TestExtractorExtractLanguage(t *testing.T) {
	e := NewExtractor(compiledRules(t))

	content := `import logging
logger.info("processing %s of %d", item, total)
logger.error('failed: {}', err)
print("done")
# logger.debug("ignored")
`
	sites := e.ExtractLanguage(content, "Python")
	require.Len(t, sites, 3)
	assert.Equal(t, schema.InfoLevel, sites[0].Level)
	assert.Equal(t, []string{"processing {str_format} of {str_format}"}, sites[0].Templates)
	assert.Equal(t, schema.ErrorLevel, sites[1].Level)
	assert.Equal(t, []string{"failed: {str_format}"}, sites[1].Templates)
	assert.Equal(t, schema.NoLevel, sites[2].Level)

	assert.Nil(t, e.ExtractLanguage(content, "Cobol"))
	assert.Equal(t, schema.WarningLevel, e.Severity("  logger.warn('x')  "))
}
