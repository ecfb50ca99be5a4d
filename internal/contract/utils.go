package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Concentration label constants.
const (
	CentralizedValue  = "Centralized"  // Centralized value
	ConcentratedValue = "Concentrated" // Concentrated value
	SharedValue       = "Shared"       // Shared value
	DistributedValue  = "Distributed"  // Distributed value
)

// Color variables for console output.
var (
	CentralizedColor  = color.New(color.FgRed, color.Bold)     // centralizedColor represents a single-owner repository.
	ConcentratedColor = color.New(color.FgMagenta, color.Bold) // concentratedColor represents a strong top contributor.
	SharedColor       = color.New(color.FgYellow)              // sharedColor represents a small core team.
	DistributedColor  = color.New(color.FgCyan)                // distributedColor represents a broad contributor base.
)

// GetPlainLabel returns a plain text label for the share of the top contributor.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(topShare float64) string {
	switch {
	case topShare > 80:
		return CentralizedValue
	case topShare >= 50:
		return ConcentratedValue
	case topShare >= 20:
		return SharedValue
	default:
		return DistributedValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
// It uses GetPlainLabel to determine the string, and then applies the appropriate color.
func GetColorLabel(topShare float64) string {
	text := GetPlainLabel(topShare)

	switch text {
	case CentralizedValue:
		return CentralizedColor.Sprint(text)
	case ConcentratedValue:
		return ConcentratedColor.Sprint(text)
	case SharedValue:
		return SharedColor.Sprint(text)
	default:
		return DistributedColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(ctx context.Context, msg string, err error) {
	LoggerFrom(ctx).Fatal(msg, "err", err)
}

// LogWarn logs a warning message.
func LogWarn(ctx context.Context, msg string, err error) {
	LoggerFrom(ctx).Warn(msg, "err", err)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for API cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".logscan_cache.db"
	}
	return filepath.Join(homeDir, ".logscan_cache.db")
}

// GetResultsDBFilePath returns the path to the SQLite DB file for results storage.
func GetResultsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".logscan_results.db"
	}
	return filepath.Join(homeDir, ".logscan_results.db")
}

// TruncatePath truncates a path or URL to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// RecordFileName returns the file name used for per-repository artifacts, "<owner>--<repo>.txt".
func RecordFileName(owner, repo string) string {
	return owner + "--" + repo + ".txt"
}
