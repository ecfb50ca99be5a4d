// Package schema has the models and constants shared by every part of logscan.
package schema

import (
	"errors"
	"strings"
)

// ErrInvalidURL is returned when a repository URL has no owner/repo segments.
var ErrInvalidURL = errors.New("repository url must look like https://host/owner/repo")

// RepositoryJob is one repository URL and its stable position in the input list.
type RepositoryJob struct {
	URL   string `json:"url"`
	Index int    `json:"index"`
}

// Owner returns the owner segment of the URL.
func (j RepositoryJob) Owner() string {
	owner, _, _ := j.split()
	return owner
}

// Name returns the repository segment of the URL.
func (j RepositoryJob) Name() string {
	_, name, _ := j.split()
	return name
}

// ID returns owner/repo, which keys the final aggregate.
func (j RepositoryJob) ID() string {
	owner, name, _ := j.split()
	return owner + "/" + name
}

// Validate reports whether the owner and repository can be derived from the URL.
func (j RepositoryJob) Validate() error {
	_, _, ok := j.split()
	if !ok {
		return ErrInvalidURL
	}
	return nil
}

// split takes path segments 3 and 4 of the URL split on "/".
func (j RepositoryJob) split() (string, string, bool) {
	parts := strings.Split(strings.TrimSpace(j.URL), "/")
	if len(parts) < 5 || parts[3] == "" || parts[4] == "" {
		return "", "", false
	}
	return parts[3], strings.TrimSuffix(parts[4], ".git"), true
}

// LogSite is one recognized logging call site.
type LogSite struct {
	Line      string   `json:"line"`
	Level     Severity `json:"level"`
	Templates []string `json:"templates,omitempty"`
}

// ClassRecord measures one parsed class body.
type ClassRecord struct {
	RawLength       int `json:"raw_length"`
	EffectiveLength int `json:"effective_length"`
}

// ContributorDistribution summarizes how contributions spread across contributors.
type ContributorDistribution struct {
	Contributions []int      `json:"contributors_distribution"`
	Total         int        `json:"total_contributions"`
	TopPercent    [5]float64 `json:"top_contributors_percent"`
	ExactlyN      [5]int     `json:"n_time_contributors"`
	Centralized   bool       `json:"centralized"`
}

// Contributors returns the number of contributors in the distribution.
func (d ContributorDistribution) Contributors() int {
	return len(d.Contributions)
}

// RepoMetadata holds the descriptive fields fetched from the hosting API.
type RepoMetadata struct {
	MainLang     string `json:"main_lang"`
	License      string `json:"license_type"`
	OpenSource   bool   `json:"is_open_source"`
	OwnerType    string `json:"owner_type"`
	Forks        int    `json:"forks"`
	Stars        int    `json:"stars"`
	Watchers     int    `json:"watchers"`
	Contributors int    `json:"contributors"`
}

// LanguageLogMetrics holds the log counts of a single language inside a repository.
type LanguageLogMetrics struct {
	Files        int              `json:"files"`
	FilesWithLog int              `json:"files_with_logs"`
	Lines        int              `json:"lines"`
	Sites        int              `json:"logs"`
	Levels       map[Severity]int `json:"levels"`
}

// LogMetrics is the repository-level outcome of the log pipeline.
type LogMetrics struct {
	LogsTotal      int                           `json:"logs_total_amount"`
	NoLoggerLogs   int                           `json:"no_logger_logs_amount"`
	DebugUsage     int                           `json:"debug_usage"`
	InfoUsage      int                           `json:"info_usage"`
	WarningUsage   int                           `json:"warning_usage"`
	ErrorUsage     int                           `json:"error_usage"`
	CriticalUsage  int                           `json:"critical_usage"`
	FilesWithLogs  int                           `json:"files_with_logs"`
	AmountOfFiles  int                           `json:"amount_of_files"`
	AmountOfLines  int                           `json:"amount_of_lines"`
	LogsDensity    float64                       `json:"logs_density"`
	FilesWithRatio float64                       `json:"files_with_logs_ratio"`
	ByLanguage     map[string]LanguageLogMetrics `json:"by_language,omitempty"`
}

// ClassMetrics is the repository-level outcome of the class-length pipeline.
type ClassMetrics struct {
	SourceFiles           int     `json:"source_files"`
	NumberOfClasses       int     `json:"number_of_classes"`
	ClassLengths          []int   `json:"class_lengths"`
	EffectiveLengths      []int   `json:"class_effective_lengths"`
	MeanEffectiveLength   float64 `json:"mean_effective_length"`
	// Upper median: element n/2 of the ascending effective lengths.
	MedianEffectiveLength float64 `json:"median_effective_length"`
	MaxEffectiveLength    int     `json:"max_effective_length"`
	MaxClassLength        int     `json:"max_class_length"`
}

// ContributionFriendliness records community files and README signals.
type ContributionFriendliness struct {
	ContributingFile    bool `json:"contributing_file"`
	CodeOfConductFile   bool `json:"code_of_conduct_file"`
	IssueTemplate       bool `json:"issue_template"`
	PullRequestTemplate bool `json:"pull_request_template"`
	ReadmeMentions      bool `json:"readme_mentions_contributing"`
}

// RepoMetricRecord is the final per-repository aggregate.
type RepoMetricRecord struct {
	RepoURL      string                    `json:"repo_url"`
	Project      string                    `json:"project_name"`
	Creator      string                    `json:"creator"`
	Metadata     RepoMetadata              `json:"metadata"`
	// Language shares are percentages in [0, 100], not fractions.
	UsedLangs    map[string]float64        `json:"used_langs,omitempty"`
	OtherLangs   float64                   `json:"other_langs"`
	Logs         *LogMetrics               `json:"logs,omitempty"`
	Classes      *ClassMetrics             `json:"classes,omitempty"`
	Contributors *ContributorDistribution  `json:"contributors,omitempty"`
	Friendliness *ContributionFriendliness `json:"friendliness,omitempty"`
}

// ID returns owner/repo for the record.
func (r RepoMetricRecord) ID() string {
	return r.Creator + "/" + r.Project
}

// JobResult is the tagged outcome of a single job.
type JobResult struct {
	Job       RepositoryJob
	Record    *RepoMetricRecord
	Templates []string
	Err       error
}

// OK reports whether the job produced a record.
func (r JobResult) OK() bool {
	return r.Err == nil && r.Record != nil
}

// BatchResult is the outcome of a whole batch after the final barrier.
type BatchResult struct {
	Records   []RepoMetricRecord
	Failures  []JobResult
	Templates []string
}

// ByRepository maps owner/repo to its record.
func (b BatchResult) ByRepository() map[string]RepoMetricRecord {
	out := make(map[string]RepoMetricRecord, len(b.Records))
	for _, r := range b.Records {
		out[r.ID()] = r
	}
	return out
}

// LineReport is the outcome of classifying a single source line.
type LineReport struct {
	Line     string    `json:"line"`
	Severity Severity  `json:"severity"`
	Language string    `json:"language,omitempty"`
	Sites    []LogSite `json:"sites,omitempty"`
}

// HistogramEntry is one row of a word or line histogram.
type HistogramEntry struct {
	Value       string `json:"value"`
	Appearances int    `json:"appearances"`
}
