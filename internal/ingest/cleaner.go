// Package ingest provides document cleaning, chunking, and corpus ingestion.
package ingest

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	urlRe        = regexp.MustCompile(`https?://[^\s]+`)
	pageNumberRe = regexp.MustCompile(`Page \d+`)
	bareNumberRe = regexp.MustCompile(`^\d+\s*$`)
)

// Clean normalizes raw document text for chunking: strips URL-like
// substrings, page-number lines and "Page N" markers, long all-caps
// header lines, collapses horizontal whitespace runs, and collapses
// multiple blank lines to one.
func Clean(text string) string {
	text = urlRe.ReplaceAllString(text, "")
	text = pageNumberRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = collapseSpaces(strings.TrimSpace(line))
		if bareNumberRe.MatchString(line) || isHeaderArtifact(line) {
			continue
		}
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// isHeaderArtifact reports whether a line is an all-caps header artifact:
// at least 10 characters of only uppercase letters and spaces.
func isHeaderArtifact(line string) bool {
	if len(line) < 10 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			hasLetter = true
			continue
		}
		if r != ' ' {
			return false
		}
	}
	return hasLetter
}

func collapseSpaces(s string) string {
	var b strings.Builder
	wasSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}
