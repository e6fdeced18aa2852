// Package languages maps source files to the language tags tool adapters
// declare support for.
package languages

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Known language tags.
const (
	C          = "c"
	CPP        = "c++"
	Java       = "java"
	Python     = "python"
	JavaScript = "javascript"
	TypeScript = "typescript"
	Go         = "go"
	Matlab     = "matlab"
	R          = "r"
)

// Unknown is returned when no language can be determined.
const Unknown = "unknown"

// FileExtensions maps each language to its recognized file extensions.
var FileExtensions = map[string][]string{
	C:          {".c", ".h"},
	CPP:        {".cc", ".cpp", ".cxx", ".hpp", ".hh"},
	Java:       {".java"},
	Python:     {".py", ".pyi"},
	JavaScript: {".js", ".jsx", ".mjs", ".cjs"},
	TypeScript: {".ts", ".tsx"},
	Go:         {".go"},
	Matlab:     {".m"},
	R:          {".r", ".R"},
}

var extIndex = func() map[string]string {
	idx := make(map[string]string)
	for lang, exts := range FileExtensions {
		for _, ext := range exts {
			idx[ext] = lang
		}
	}
	return idx
}()

// Known returns all language tags in sorted order.
func Known() []string {
	out := make([]string, 0, len(FileExtensions))
	for lang := range FileExtensions {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Normalize lower-cases and trims a language tag.
func Normalize(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

// FromPath returns the language of a single file based on its extension.
func FromPath(path string) string {
	if lang, ok := extIndex[filepath.Ext(path)]; ok {
		return lang
	}
	return Unknown
}

// skippedDirs are never descended into during detection.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"__pycache__":  true,
}

// Detect returns the dominant language of path. A file yields its own
// language; a directory yields the language with the most files, ties broken
// alphabetically.
func Detect(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return FromPath(path), nil
	}

	counts := make(map[string]int)
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if d.IsDir() {
			if p != path && skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if lang := FromPath(p); lang != Unknown {
			counts[lang]++
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	best, bestCount := Unknown, 0
	for _, lang := range Known() {
		if counts[lang] > bestCount {
			best, bestCount = lang, counts[lang]
		}
	}
	return best, nil
}
