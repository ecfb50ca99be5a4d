package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/logscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassLengthsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "App.java")
	require.NoError(t, os.WriteFile(path, []byte(appJava), 0o644))

	m, err := ClassLengths(context.Background(), path, "", "")
	require.NoError(t, err)
	assert.Equal(t, 1, m.SourceFiles)
	assert.Equal(t, 1, m.NumberOfClasses)
}

func TestClassLengthsDirectory(t *testing.T) {
	root := fixtureRepo(t)
	m, err := ClassLengths(context.Background(), root, "java", "")
	require.NoError(t, err)
	assert.Equal(t, 1, m.SourceFiles)
	assert.Equal(t, 1, m.NumberOfClasses)

	_, err = ClassLengths(context.Background(), root, "Cobol", "")
	assert.ErrorContains(t, err, "unknown language")

	_, err = ClassLengths(context.Background(), filepath.Join(root, "missing"), "Java", "")
	assert.Error(t, err)
}

func TestClassifyLine(t *testing.T) {
	report, err := ClassifyLine(`logger.warn("disk {} low", pct)`, "", "")
	require.NoError(t, err)
	assert.Equal(t, schema.WarningLevel, report.Severity)
	assert.Empty(t, report.Sites)

	report, err = ClassifyLine(`logger.warn("disk {} low", pct)`, "java", "")
	require.NoError(t, err)
	assert.Equal(t, "Java", report.Language)
	require.Len(t, report.Sites, 1)
	assert.Equal(t, schema.WarningLevel, report.Sites[0].Level)
	assert.Equal(t, []string{"disk {str_format} low"}, report.Sites[0].Templates)

	report, err = ClassifyLine("return x;", "", "")
	require.NoError(t, err)
	assert.Equal(t, schema.NoLevel, report.Severity)

	_, err = ClassifyLine("x", "Cobol", "")
	assert.Error(t, err)

	_, err = ClassifyLine("x", "", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
