package logs

import (
	"sort"
	"strings"

	"github.com/huangsam/logscan/schema"
)

// MaxHistogramLine is the longest template, in bytes, that is counted.
const MaxHistogramLine = 200

// BuildHistograms counts words and whole lines across templates. Only entries seen
// more than minAppearances times are kept, sorted by count desc then value asc.
func BuildHistograms(templates []string, minAppearances int) (words, lines []schema.HistogramEntry) {
	wordCounts := make(map[string]int)
	lineCounts := make(map[string]int)

	for _, t := range templates {
		t = strings.ReplaceAll(strings.ToLower(t), "  ", " ")
		if len(t) > MaxHistogramLine {
			continue
		}
		if len(t) > 1 {
			lineCounts[t]++
		}
		for _, w := range strings.Split(t, " ") {
			if len(w) > 1 {
				wordCounts[w]++
			}
		}
	}
	return toEntries(wordCounts, minAppearances), toEntries(lineCounts, minAppearances)
}

func toEntries(counts map[string]int, minAppearances int) []schema.HistogramEntry {
	out := make([]schema.HistogramEntry, 0, len(counts))
	for v, n := range counts {
		if n > minAppearances {
			out = append(out, schema.HistogramEntry{Value: v, Appearances: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Appearances != out[j].Appearances {
			return out[i].Appearances > out[j].Appearances
		}
		return out[i].Value < out[j].Value
	})
	return out
}
