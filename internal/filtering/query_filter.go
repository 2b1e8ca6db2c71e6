package filtering

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/search"
)

// Seniority and filler words never decide whether a title matches the query.
var titleStopWords = map[string]struct{}{
	"new": {}, "grad": {}, "graduate": {}, "level": {}, "senior": {}, "junior": {}, "mid": {},
	"lead": {}, "staff": {}, "principal": {}, "associate": {}, "intern": {}, "entry": {},
	"i": {}, "ii": {}, "iii": {}, "iv": {}, "v": {}, "the": {}, "a": {}, "an": {}, "and": {},
	"or": {}, "of": {}, "for": {}, "in": {}, "at": {},
}

// Keywords shorter than this must match a whole token; "go" must not match "google".
const substringMinRunes = 4

type queryFilter struct {
	gate
	keywords           []string
	match              string
	includeDescription bool
}

// NewQuery creates a filter keeping jobs whose title (and optionally
// description) contains the query keywords.
func NewQuery(q search.Query) Filter {
	keywords := QueryKeywords(q.Query)
	match := q.Match
	if match == "" {
		match = search.MatchAny
	}
	return &queryFilter{
		gate:               newGate("query", len(keywords) > 0),
		keywords:           keywords,
		match:              match,
		includeDescription: q.IncludeDescription,
	}
}

// QueryKeywords returns substantive lowercase keywords of a search query.
func QueryKeywords(query string) []string {
	var keywords []string
	seen := make(map[string]struct{})
	for _, word := range tokenize(query) {
		if _, stop := titleStopWords[word]; stop || utf8.RuneCountInString(word) < 2 {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

func (f *queryFilter) Validate() error {
	if f.match != search.MatchAny && f.match != search.MatchAll {
		return fmt.Errorf("unsupported match mode %q", f.match)
	}
	return nil
}

func (f *queryFilter) Apply(_ context.Context, v *jobs.Jobs) (*jobs.Jobs, Step, error) {
	next, step := keepStep(v, f.matches)
	return next, step, nil
}

func (f *queryFilter) matches(job *jobs.Job) bool {
	text := job.Title
	if f.includeDescription {
		text += "\n" + job.Description
	}
	haystack := strings.ToLower(text)
	tokens := tokenSet(haystack)

	found := 0
	for _, kw := range f.keywords {
		if containsKeyword(haystack, tokens, kw) {
			if f.match == search.MatchAny {
				return true
			}
			found++
		}
	}
	return f.match == search.MatchAll && found == len(f.keywords)
}

func (f *queryFilter) Status() Status {
	return f.status(map[string]string{
		"keywords":            strings.Join(f.keywords, ","),
		"match":               f.match,
		"include_description": fmt.Sprintf("%t", f.includeDescription),
	})
}

func containsKeyword(haystack string, tokens map[string]struct{}, kw string) bool {
	if utf8.RuneCountInString(kw) >= substringMinRunes {
		return strings.Contains(haystack, kw)
	}
	_, ok := tokens[kw]
	return ok
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokenize(s) {
		set[t] = struct{}{}
	}
	return set
}
