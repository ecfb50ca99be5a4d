package outwriter

import (
	"os"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/schema"
	"golang.org/x/term"
)

// Bounds for the repository column.
const (
	minRepoWidth = 15
	maxRepoWidth = 70
)

// getMaxTableRepoWidth calculates the maximum width of the repository column in table
// output, based on terminal width and the columns added by each pipeline.
func getMaxTableRepoWidth(cfg *contract.Config) int {
	termWidth := cfg.Width
	if termWidth <= 0 {
		detected, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detected <= 0 {
			termWidth = 80 // CI and pipes
		} else {
			termWidth = detected
		}
	}

	baseWidth := 30 // # + Lang + Stars + Contrib
	if cfg.HasPipeline(schema.LogsPipeline) {
		baseWidth += 30
	}
	if cfg.HasPipeline(schema.ClassesPipeline) {
		baseWidth += 30
	}
	if cfg.HasPipeline(schema.ContributorsPipeline) {
		baseWidth += 25
	}
	baseWidth += 20 // borders and padding

	available := termWidth - baseWidth
	if available < minRepoWidth {
		return minRepoWidth
	}
	if available > maxRepoWidth {
		return maxRepoWidth
	}
	return available
}
