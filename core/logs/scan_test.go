package logs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/logscan/internal/lang"
	"github.com/huangsam/logscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan(t *testing.T) {
	c := compiledRules(t)
	root := t.TempDir()

	writeFile(t, root, "src/App.java", `package app;

public class App {
    void run() {
        logger.debug("start %s", id);
        logger.error("failed");
        System.out.println("plain");
    }
}
`)
	writeFile(t, root, "src/Empty.java", `package app;
class Empty {}
`)
	writeFile(t, root, "tools/run.py", `import logging
logging.warning("careful")
`)
	writeFile(t, root, "README.md", `logger.info("not source")`)

	res, err := NewExtractor(c).Scan(context.Background(), root, lang.NewClassifier(c.Languages, false))
	require.NoError(t, err)

	m := res.Metrics
	assert.Equal(t, 4, m.LogsTotal)
	assert.Equal(t, 1, m.NoLoggerLogs)
	assert.Equal(t, 1, m.DebugUsage)
	assert.Equal(t, 1, m.InfoUsage) // No_Level folded into info
	assert.Equal(t, 1, m.WarningUsage)
	assert.Equal(t, 1, m.ErrorUsage)
	assert.Equal(t, 0, m.CriticalUsage)
	assert.Equal(t, 3, m.AmountOfFiles)
	assert.Equal(t, 2, m.FilesWithLogs)
	// App.java has 6 lines longer than two characters, Empty.java 2 and run.py 2.
	assert.Equal(t, 10, m.AmountOfLines)
	assert.InDelta(t, 4.0/10, m.LogsDensity, 1e-9)
	assert.InDelta(t, 2.0/3, m.FilesWithRatio, 1e-9)

	require.Contains(t, m.ByLanguage, "Java")
	assert.Equal(t, 2, m.ByLanguage["Java"].Files)
	assert.Equal(t, 3, m.ByLanguage["Java"].Sites)
	assert.Equal(t, 1, m.ByLanguage["Python"].Sites)

	assert.Equal(t, []string{"start {str_format}", "failed", "plain", "careful"}, res.Templates)
	assert.Len(t, res.Lines, 4)
}

func TestScanEmptyRepository(t *testing.T) {
	c := compiledRules(t)
	res, err := NewExtractor(c).Scan(context.Background(), t.TempDir(), lang.NewClassifier(c.Languages, false))
	require.NoError(t, err)
	assert.Zero(t, res.Metrics.LogsTotal)
	assert.Zero(t, res.Metrics.LogsDensity)
	assert.Zero(t, res.Metrics.FilesWithRatio)
}

func TestScanHonorsCancellation(t *testing.T) {
	c := compiledRules(t)
	root := t.TempDir()
	writeFile(t, root, "A.java", `logger.info("x");`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExtractor(c).Scan(ctx, root, lang.NewClassifier(c.Languages, false))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 2, countLines("abc\n  }\n\n  x = 1\n{}"))
	assert.Equal(t, 0, countLines(""))
}

func TestWriteRecords(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	path, err := WriteRecords(dir, "owner", "repo", []string{`log.info("a")`, `log.warn("b")`})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "owner--repo.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "log.info(\"a\")\nlog.warn(\"b\")\n", string(data))
}

func TestFinalizeFoldsNoLevelIntoInfo(t *testing.T) {
	m := schema.LogMetrics{ByLanguage: map[string]schema.LanguageLogMetrics{
		"Java": {Levels: map[schema.Severity]int{schema.InfoLevel: 2, schema.NoLevel: 3}},
		"Go":   {Levels: map[schema.Severity]int{schema.NoLevel: 1}},
	}}
	finalize(&m)
	assert.Equal(t, 6, m.InfoUsage)
	assert.Equal(t, 4, m.NoLoggerLogs)
}
