package outwriter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/huangsam/logscan/schema"
)

// Histogram file names inside the histogram directory.
const (
	WordsHistogramFile = "words.csv"
	LinesHistogramFile = "lines.csv"
)

// WriteHistograms writes the word and line histograms of a batch to dir as two CSV files.
func WriteHistograms(dir string, words, lines []schema.HistogramEntry) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create histogram dir: %w", err)
	}
	if err := writeHistogram(filepath.Join(dir, WordsHistogramFile), "word", words); err != nil {
		return err
	}
	return writeHistogram(filepath.Join(dir, LinesHistogramFile), "line", lines)
}

func writeHistogram(path, column string, entries []schema.HistogramEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create histogram: %w", err)
	}
	defer func() { _ = f.Close() }()

	return writeCSVWithHeader(f, []string{column, "appearances"}, func(w *csv.Writer) error {
		for _, e := range entries {
			if err := w.Write([]string{e.Value, strconv.Itoa(e.Appearances)}); err != nil {
				return err
			}
		}
		return nil
	})
}
