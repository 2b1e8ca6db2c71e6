package scoring

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/job-matcher/internal/jobs"
)

const (
	requiredWeight = 2.0
	desiredWeight  = 1.0

	// Shorter terms only match exactly; "c" must not match "c++ / c#".
	containmentMinRunes = 3
)

// Lines with any of these markers list nice-to-have skills.
var desiredMarkers = []string{"preferred", "nice to have", "nice-to-have", "bonus", "a plus", "desirable"}

var aliases = map[string]string{
	"golang":                "go",
	"js":                    "javascript",
	"ts":                    "typescript",
	"postgres":              "postgresql",
	"psql":                  "postgresql",
	"k8s":                   "kubernetes",
	"nodejs":                "node.js",
	"reactjs":               "react",
	"react.js":              "react",
	"vuejs":                 "vue",
	"vue.js":                "vue",
	"amazon web services":   "aws",
	"gcp":                   "google cloud",
	"google cloud platform": "google cloud",
	"c sharp":               "c#",
	"csharp":                "c#",
	"ml":                    "machine learning",
	"mongo":                 "mongodb",
	"tf":                    "terraform",
}

type skillResult struct {
	score   float64
	matched []string
	missing []string
}

func canonicalSkill(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if alias, ok := aliases[s]; ok {
		return alias
	}
	return s
}

// requirements returns canonical required and desired skills of a job.
// Structured data wins; the description is only mined when there is none.
func requirements(job *jobs.Job, userSkills []string) (required, desired []string) {
	seen := make(map[string]struct{})
	add := func(dst *[]string, s string) {
		c := canonicalSkill(s)
		if c == "" {
			return
		}
		if _, dup := seen[c]; dup {
			return
		}
		seen[c] = struct{}{}
		*dst = append(*dst, c)
	}

	if job.Analysis != nil {
		for _, s := range job.Analysis.RequiredSkills {
			add(&required, s)
		}
		// Preferred skills are claimed before source tools so a skill the
		// analysis calls optional stays optional.
		for _, s := range job.Analysis.PreferredSkills {
			add(&desired, s)
		}
	}
	for _, s := range job.Skills {
		add(&required, s)
	}

	if len(required) > 0 || len(desired) > 0 {
		return required, desired
	}
	return extractSkills(job.Description, vocabulary(userSkills))
}

// extractSkills finds vocabulary terms in text. A term seen on any regular
// line is required; one seen only on nice-to-have lines is desired.
func extractSkills(text string, vocab []string) (required, desired []string) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	isRequired := make(map[string]bool)
	var order []string

	for _, line := range strings.Split(strings.ToLower(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		optional := containsAny(line, desiredMarkers)
		for _, term := range vocab {
			if !containsTerm(line, term) {
				continue
			}
			skill := canonicalSkill(term)
			prev, seen := isRequired[skill]
			if !seen {
				order = append(order, skill)
			}
			isRequired[skill] = prev || !optional
		}
	}

	for _, skill := range order {
		if isRequired[skill] {
			required = append(required, skill)
		} else {
			desired = append(desired, skill)
		}
	}
	return required, desired
}

func scoreSkills(job *jobs.Job, userSkills []string) skillResult {
	required, desired := requirements(job, userSkills)
	if len(required) == 0 && len(desired) == 0 {
		return skillResult{score: neutralSkills, matched: []string{}, missing: []string{}}
	}

	have := make([]string, 0, len(userSkills))
	for _, s := range userSkills {
		have = append(have, canonicalSkill(s))
	}

	res := skillResult{matched: []string{}, missing: []string{}}
	var total, earned float64

	for _, skill := range required {
		total += requiredWeight
		if hasSkill(skill, have) {
			earned += requiredWeight
			res.matched = append(res.matched, skill)
		} else {
			res.missing = append(res.missing, skill)
		}
	}
	for _, skill := range desired {
		total += desiredWeight
		if hasSkill(skill, have) {
			earned += desiredWeight
			res.matched = append(res.matched, skill)
		}
	}

	res.score = earned / total * 100
	// A profile without skills cannot be compared; missing still feeds the gap report.
	if len(have) == 0 {
		res.score = neutralSkills
	}
	return res
}

// hasSkill matches exactly or by whole-word containment either way, so
// "aws" covers "aws lambda" and "spring boot" covers "spring".
func hasSkill(skill string, have []string) bool {
	for _, h := range have {
		if h == skill {
			return true
		}
		if utf8.RuneCountInString(skill) < containmentMinRunes || utf8.RuneCountInString(h) < containmentMinRunes {
			continue
		}
		if containsTerm(h, skill) || containsTerm(skill, h) {
			return true
		}
	}
	return false
}

// containsTerm reports whether term occurs in text with word boundaries on
// both sides. Symbols used in tech names (c++, c#, .net) count as word chars.
func containsTerm(text, term string) bool {
	if term == "" {
		return false
	}
	for offset := 0; offset <= len(text)-len(term); {
		i := strings.Index(text[offset:], term)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		offset = start + 1
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	// A trailing period ends a sentence, not a name like "node.js".
	if r == '.' {
		next, _ := utf8.DecodeRuneInString(text[i+1:])
		return i+1 >= len(text) || !isWordRune(next)
	}
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '+' || r == '#' || r == '_'
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
