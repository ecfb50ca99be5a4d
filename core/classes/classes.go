// Package classes measures class bodies with a line-oriented brace-depth scanner.
package classes

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/huangsam/logscan/internal/contract"
	"github.com/huangsam/logscan/internal/lang"
	"github.com/huangsam/logscan/schema"
)

// ErrInsufficientFiles is returned when a repository has too few source files of the class language.
var ErrInsufficientFiles = errors.New("not enough source files")

var declaration = regexp.MustCompile(`^\s*(public|protected|private)?\s*(abstract|final)?\s*class\s+(\w+)\b`)

type state int

const (
	outside state = iota
	inside
	inBlockComment
)

// parser holds the scanner state for one input.
type parser struct {
	state     state
	depth     int
	raw       int
	effective int
	records   []schema.ClassRecord
}

// ExtractClasses returns one record per balanced class found in lines, in order of their
// closing line. Nested classes are part of their outer class. A class still open at the
// end of input is dropped.
//
// Braces inside string and character literals are counted like any other brace.
func ExtractClasses(lines []string) []schema.ClassRecord {
	p := &parser{}
	for _, line := range lines {
		p.feed(line)
	}
	return p.records
}

// ExtractClassesFromReader is ExtractClasses over the lines of r.
func ExtractClassesFromReader(r io.Reader) ([]schema.ClassRecord, error) {
	p := &parser{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		p.feed(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p.records, nil
}

func (p *parser) feed(line string) {
	switch p.state {
	case outside:
		if !declaration.MatchString(line) {
			return
		}
		p.depth = braceDelta(line)
		if p.depth <= 0 {
			p.records = append(p.records, schema.ClassRecord{RawLength: 1, EffectiveLength: 1})
			return
		}
		p.raw, p.effective = 0, 0
		p.state = inside

	case inBlockComment:
		p.raw++
		end := strings.Index(line, "*/")
		if end < 0 {
			return
		}
		p.state = inside
		rest := line[end+2:]
		p.depth += braceDelta(rest)
		if strings.TrimSpace(rest) != "" {
			p.effective++
		}
		p.closeIfBalanced()

	case inside:
		p.raw++
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "//"):
			p.depth += braceDelta(line)
		default:
			p.code(line)
		}
		p.closeIfBalanced()
	}
}

// code handles a non-blank line that is not a single-line comment.
func (p *parser) code(line string) {
	start := strings.Index(line, "/*")
	if start < 0 {
		p.depth += braceDelta(line)
		p.effective++
		return
	}

	before := line[:start]
	p.depth += braceDelta(before)
	end := strings.Index(line[start+2:], "*/")
	if end < 0 {
		if p.depth == 0 {
			// The class ends before the comment opens.
			if strings.TrimSpace(before) != "" {
				p.effective++
			}
			return
		}
		p.state = inBlockComment
		return
	}
	after := line[start+2+end+2:]
	p.depth += braceDelta(after)
	if strings.TrimSpace(before) != "" || strings.TrimSpace(after) != "" {
		p.effective++
	}
}

func (p *parser) closeIfBalanced() {
	if p.state == inside && p.depth == 0 {
		p.records = append(p.records, schema.ClassRecord{RawLength: p.raw, EffectiveLength: p.effective})
		p.state = outside
	}
}

func braceDelta(s string) int {
	return strings.Count(s, "{") - strings.Count(s, "}")
}

// Scan walks the files of language under root and measures every class found.
// Fewer than minFiles files is ErrInsufficientFiles.
func Scan(ctx context.Context, root, language string, minFiles int, classifier *lang.Classifier) (*schema.ClassMetrics, error) {
	logger := contract.LoggerFrom(ctx)
	files, err := classifier.ScanDirectory(root, language)
	if err != nil {
		return nil, fmt.Errorf("walk %s files: %w", language, err)
	}
	if len(files) < minFiles {
		return nil, fmt.Errorf("%w: %d %s files, need %d", ErrInsufficientFiles, len(files), language, minFiles)
	}

	var records []schema.ClassRecord
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := extractFile(path)
		if err != nil {
			logger.Debug("skipping unreadable file", "path", path, "err", err)
			continue
		}
		records = append(records, found...)
	}

	m := Summarize(records)
	m.SourceFiles = len(files)
	return &m, nil
}

func extractFile(path string) ([]schema.ClassRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ExtractClassesFromReader(f)
}

// Summarize derives the repository-level class metrics from records.
func Summarize(records []schema.ClassRecord) schema.ClassMetrics {
	m := schema.ClassMetrics{
		NumberOfClasses:  len(records),
		ClassLengths:     make([]int, 0, len(records)),
		EffectiveLengths: make([]int, 0, len(records)),
	}
	if len(records) == 0 {
		return m
	}

	sum := 0
	for _, r := range records {
		m.ClassLengths = append(m.ClassLengths, r.RawLength)
		m.EffectiveLengths = append(m.EffectiveLengths, r.EffectiveLength)
		sum += r.EffectiveLength
	}
	sort.Sort(sort.Reverse(sort.IntSlice(m.ClassLengths)))
	sort.Sort(sort.Reverse(sort.IntSlice(m.EffectiveLengths)))

	m.MaxClassLength = m.ClassLengths[0]
	m.MaxEffectiveLength = m.EffectiveLengths[0]
	m.MeanEffectiveLength = float64(sum) / float64(len(records))

	// Upper median of the ascending order.
	n := len(m.EffectiveLengths)
	m.MedianEffectiveLength = float64(m.EffectiveLengths[n-1-n/2])
	return m
}
