// Package dedupe collapses jobs describing the same posting.
package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/spigell/job-matcher/internal/jobs"
)

// Dedupe keeps the first job of every identity key, preserving order.
func Dedupe(list []*jobs.Job) []*jobs.Job {
	seen := make(map[string]struct{}, len(list))
	out := make([]*jobs.Job, 0, len(list))

	for _, job := range list {
		key := Key(job)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, job)
	}
	return out
}

// Key is the identity of a posting: folded company, title and primary location.
func Key(job *jobs.Job) string {
	return Fold(job.Company) + "|" + Fold(job.Title) + "|" + Fold(job.PrimaryLocation())
}

// Fold lowercases s, strips accents and punctuation and collapses whitespace,
// so "Zürich, CH" and "zurich ch" fold alike.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	folded = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' {
			return unicode.ToLower(r)
		}
		return ' '
	}, folded)

	return strings.Join(strings.Fields(folded), " ")
}
