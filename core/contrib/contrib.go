// Package contrib collects contributor counts and measures how concentrated contributions are.
package contrib

import (
	"context"
	"math"
	"sort"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
)

// PageFetcher returns the contribution counts of one contributors page.
type PageFetcher interface {
	ContributorsPage(ctx context.Context, owner, repo string, page int) ([]int, error)
}

// Fetch paginates from page 1 until a page comes back empty.
func Fetch(ctx context.Context, api PageFetcher, owner, repo string) ([]int, error) {
	counts := []int{}
	for page := 1; ; page++ {
		batch, err := api.ContributorsPage(ctx, owner, repo, page)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			contract.LoggerFrom(ctx).Debug("contributors collected", "repo", owner+"/"+repo, "pages", page-1, "contributors", len(counts))
			return counts, nil
		}
		counts = append(counts, batch...)
	}
}

// Collect fetches every contributor of owner/repo and returns the distribution.
func Collect(ctx context.Context, api PageFetcher, owner, repo string) (schema.ContributorDistribution, error) {
	counts, err := Fetch(ctx, api, owner, repo)
	if err != nil {
		return schema.ContributorDistribution{}, err
	}
	return Distribution(counts), nil
}

// Distribution sorts counts descending and derives the concentration metrics.
// Negative counts are treated as zero.
func Distribution(counts []int) schema.ContributorDistribution {
	sorted := make([]int, len(counts))
	total := 0
	for i, c := range counts {
		sorted[i] = max(c, 0)
		total += sorted[i]
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))

	d := schema.ContributorDistribution{Contributions: sorted, Total: total}
	for k := 1; k <= len(d.TopPercent); k++ {
		d.TopPercent[k-1] = topShare(sorted, total, k)
	}
	for _, c := range sorted {
		if c >= 1 && c <= len(d.ExactlyN) {
			d.ExactlyN[c-1]++
		}
	}
	d.Centralized = d.TopPercent[0] > schema.CentralizedThreshold
	return d
}

// topShare is the cumulative share of the k largest counts in percent, rounded to two decimals.
func topShare(sorted []int, total, k int) float64 {
	if total == 0 {
		return 0
	}
	sum := 0
	for _, c := range sorted[:min(k, len(sorted))] {
		sum += c
	}
	return math.Round(float64(sum)/float64(total)*100*100) / 100
}
