package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/huangsam/logscan/internal/rules"
	"github.com/huangsam/logscan/schema"
)

// Community files looked up relative to the repository root.
var (
	contributingFiles    = []string{"CONTRIBUTING.md", ".github/CONTRIBUTING.md", "docs/CONTRIBUTING.md"}
	codeOfConductFiles   = []string{"CODE_OF_CONDUCT.md", ".github/CODE_OF_CONDUCT.md", "docs/CODE_OF_CONDUCT.md"}
	issueTemplates       = []string{".github/ISSUE_TEMPLATE", ".github/ISSUE_TEMPLATE.md", ".github/issue_template.md"}
	pullRequestTemplates = []string{".github/PULL_REQUEST_TEMPLATE", ".github/PULL_REQUEST_TEMPLATE.md", ".github/pull_request_template.md"}
	readmeFiles          = []string{"README.md", "README.rst", "README.txt", "README"}
)

// BuildMetadata maps the repository payload to the descriptive fields. The contributor
// count is filled in by the caller.
func BuildMetadata(repo *github.Repository, r *rules.Compiled) schema.RepoMetadata {
	m := schema.RepoMetadata{
		MainLang:  repo.GetLanguage(),
		License:   schema.NoLicense,
		OwnerType: repo.GetOwner().GetType(),
		Forks:     repo.GetForksCount(),
		Stars:     repo.GetStargazersCount(),
		Watchers:  repo.GetSubscribersCount(),
	}
	if lic := repo.GetLicense(); lic != nil {
		if spdx := lic.GetSPDXID(); spdx != "" {
			m.License = spdx
		}
		m.OpenSource = r.IsOpenSource(lic.GetKey()) || r.IsOpenSource(lic.GetSPDXID())
	}
	return m
}

// Friendliness checks the clone at root for community files and README contribution keywords.
func Friendliness(root string, keywords []string) schema.ContributionFriendliness {
	return schema.ContributionFriendliness{
		ContributingFile:    anyExists(root, contributingFiles),
		CodeOfConductFile:   anyExists(root, codeOfConductFiles),
		IssueTemplate:       anyExists(root, issueTemplates),
		PullRequestTemplate: anyExists(root, pullRequestTemplates),
		ReadmeMentions:      readmeMentions(root, keywords),
	}
}

func anyExists(root string, candidates []string) bool {
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(c))); err == nil {
			return true
		}
	}
	return false
}

// readmeMentions reports whether the first README found mentions any keyword, case-insensitively.
func readmeMentions(root string, keywords []string) bool {
	for _, name := range readmeFiles {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		text := strings.ToLower(string(data))
		for _, k := range keywords {
			if k != "" && strings.Contains(text, strings.ToLower(k)) {
				return true
			}
		}
		return false
	}
	return false
}
