// Package lang maps file extensions to languages and walks repositories by language.
package lang

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/huangsam/logscan/internal/rules"
	"github.com/src-d/enry/v2"
)

// MinLanguageShare is the fraction a language must exceed to be listed on its own.
const MinLanguageShare = 0.01

// Classifier is a pure lookup from extension to language.
type Classifier struct {
	byExt      map[string]string
	extsByLang map[string]map[string]struct{}
	skipVendor bool
}

// NewClassifier builds a classifier from the taxonomy. When an extension is declared
// by more than one language, the first declaration wins.
func NewClassifier(languages []rules.Language, skipVendor bool) *Classifier {
	c := &Classifier{
		byExt:      make(map[string]string),
		extsByLang: make(map[string]map[string]struct{}, len(languages)),
		skipVendor: skipVendor,
	}
	for _, l := range languages {
		set := make(map[string]struct{}, len(l.Extensions))
		for _, ext := range l.Extensions {
			ext = normalizeExt(ext)
			set[ext] = struct{}{}
			if _, taken := c.byExt[ext]; !taken {
				c.byExt[ext] = l.Name
			}
		}
		c.extsByLang[l.Name] = set
	}
	return c
}

// Classify returns the language for an extension, with or without its leading dot.
func (c *Classifier) Classify(ext string) (string, bool) {
	l, ok := c.byExt[normalizeExt(ext)]
	return l, ok
}

// ClassifyPath classifies a file by the text after its last dot.
func (c *Classifier) ClassifyPath(path string) (string, bool) {
	return c.Classify(fileExt(path))
}

// ScanDirectory returns every file under root whose extension belongs to language, sorted.
// Zero matches is an empty slice.
func (c *Classifier) ScanDirectory(root, language string) ([]string, error) {
	exts := c.extsByLang[language]
	files := []string{}
	if len(exts) == 0 {
		return files, nil
	}
	err := c.walk(root, func(path string) {
		if _, ok := exts[fileExt(path)]; ok {
			files = append(files, path)
		}
	})
	return files, err
}

// Histogram returns the share (in percent) of each known language among the classified
// files under root. Languages at or below MinLanguageShare are summed into other.
func (c *Classifier) Histogram(root string) (map[string]float64, float64, error) {
	counts := make(map[string]int)
	total := 0
	err := c.walk(root, func(path string) {
		if l, ok := c.ClassifyPath(path); ok {
			counts[l]++
			total++
		}
	})
	if err != nil {
		return nil, 0, err
	}

	used := make(map[string]float64, len(counts))
	other := 0.0
	if total == 0 {
		return used, other, nil
	}

	langs := make([]string, 0, len(counts))
	for l := range counts {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	for _, l := range langs {
		share := float64(counts[l]) / float64(total)
		if share > MinLanguageShare {
			used[l] = share * 100
		} else {
			other += share * 100
		}
	}
	return used, other, nil
}

// walk visits every regular file under root, skipping .git and optionally vendored paths.
func (c *Classifier) walk(root string, visit func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if c.skipVendor && path != root && enry.IsVendor(relSlash(root, path)+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if c.skipVendor && enry.IsVendor(relSlash(root, path)) {
			return nil
		}
		visit(path)
		return nil
	})
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// fileExt returns the text after the last dot of the base name, or the whole base name when there is no dot.
func fileExt(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		return base[i+1:]
	}
	return base
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.TrimSpace(ext), ".")
}
