package fileutil

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	illegalChars = regexp.MustCompile(`[\/\\:*?"<>|]`)
	whitespace   = regexp.MustCompile(`[\s_]+`)
)

// SanitizeForFilename sanitizes a string for safe use in filenames
func SanitizeForFilename(input string) string {
	if input == "" {
		return "Transcript"
	}

	// Illegal chars: / \ : * ? " < > |
	sanitized := illegalChars.ReplaceAllString(input, "_")
	sanitized = whitespace.ReplaceAllString(sanitized, "-")
	sanitized = strings.Trim(sanitized, "-.")

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
		sanitized = strings.TrimRight(sanitized, "-")
	}

	if sanitized == "" {
		return "Transcript"
	}
	return sanitized
}

// ExportBasename names an export after the audio it belongs to.
// Format: YYYY-MM-DD_HHMM_<audio name without extension>
func ExportBasename(audioName string, at time.Time) string {
	stem := strings.TrimSuffix(audioName, filepath.Ext(audioName))
	stem = strings.ReplaceAll(stem, ".", "-")
	return at.Format("2006-01-02_1504") + "_" + SanitizeForFilename(stem)
}

// UniqueBase returns dir/base, or dir/base_N for the first N in 2..99 where
// no file with any of exts exists yet. The result has no extension.
func UniqueBase(dir, base string, exts []string) string {
	taken := func(b string) bool {
		for _, ext := range exts {
			if _, err := os.Stat(filepath.Join(dir, b+ext)); err == nil {
				return true
			}
		}
		return false
	}
	if !taken(base) {
		return filepath.Join(dir, base)
	}
	for i := 2; i < 100; i++ {
		try := base + "_" + strconv.Itoa(i)
		if !taken(try) {
			return filepath.Join(dir, try)
		}
	}
	return filepath.Join(dir, base)
}
