package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/spigell/job-matcher/internal/jobs"
)

var (
	htmlTagPattern = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	blankLines     = regexp.MustCompile(`\n{3,}`)
)

func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

func looksLikeHTML(s string) bool {
	return htmlTagPattern.MatchString(s)
}

// HTMLToText flattens an HTML description into plain text with one block
// element per line and list items prefixed with "- ".
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return CleanText(htmlTagPattern.ReplaceAllString(html, " "))
	}

	doc.Find("script, style").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("li").PrependHtml("- ")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr, ul, ol").AppendHtml("\n")

	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = CleanText(line)
	}
	text := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text)
}

func vocabKey(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", " ", "_", " ", "/", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

var workplaces = map[string]jobs.WorkplaceType{
	"remote": jobs.WorkplaceRemote, "fully remote": jobs.WorkplaceRemote, "wfh": jobs.WorkplaceRemote,
	"work from home": jobs.WorkplaceRemote, "hybrid": jobs.WorkplaceHybrid,
	"onsite": jobs.WorkplaceOnsite, "on site": jobs.WorkplaceOnsite, "in office": jobs.WorkplaceOnsite,
	"in person": jobs.WorkplaceOnsite, "office": jobs.WorkplaceOnsite,
}

var commitments = map[string]jobs.CommitmentType{
	"full time": jobs.CommitmentFullTime, "fulltime": jobs.CommitmentFullTime, "permanent": jobs.CommitmentFullTime,
	"part time": jobs.CommitmentPartTime, "parttime": jobs.CommitmentPartTime,
	"contract": jobs.CommitmentContract, "contractor": jobs.CommitmentContract, "freelance": jobs.CommitmentContract,
	"internship": jobs.CommitmentInternship, "intern": jobs.CommitmentInternship,
	"temporary": jobs.CommitmentTemporary, "temp": jobs.CommitmentTemporary, "seasonal": jobs.CommitmentTemporary,
}

var levels = map[string]jobs.ExperienceLevel{
	"internship": jobs.LevelInternship, "intern": jobs.LevelInternship,
	"entry level": jobs.LevelEntry, "entry": jobs.LevelEntry, "junior": jobs.LevelEntry,
	"new grad": jobs.LevelEntry, "graduate": jobs.LevelEntry, "no prior experience required": jobs.LevelEntry,
	"mid level": jobs.LevelMid, "mid": jobs.LevelMid, "intermediate": jobs.LevelMid, "mid senior level": jobs.LevelMid,
	"senior level": jobs.LevelSenior, "senior": jobs.LevelSenior, "sr": jobs.LevelSenior,
	"lead": jobs.LevelLead, "staff": jobs.LevelLead, "principal": jobs.LevelLead,
	"director": jobs.LevelDirector,
	"executive": jobs.LevelExecutive, "vp": jobs.LevelExecutive, "c level": jobs.LevelExecutive,
}

// Workplace maps a source workplace label to the canonical value or "".
func Workplace(s string) jobs.WorkplaceType { return workplaces[vocabKey(s)] }

func Commitment(s string) jobs.CommitmentType { return commitments[vocabKey(s)] }

func Experience(s string) jobs.ExperienceLevel { return levels[vocabKey(s)] }

// InferWorkplace guesses the workplace type from the location and title.
// The description is not used: "no remote" and similar phrases mislead it.
func InferWorkplace(location, title string) jobs.WorkplaceType {
	blob := vocabKey(location + " " + title)
	switch {
	case strings.Contains(blob, "remote"):
		return jobs.WorkplaceRemote
	case strings.Contains(blob, "hybrid"):
		return jobs.WorkplaceHybrid
	case strings.Contains(blob, "on site") || strings.Contains(blob, "onsite"):
		return jobs.WorkplaceOnsite
	}
	return ""
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	time.DateOnly,
	time.RFC1123Z,
	time.RFC1123,
}

// ParseDate accepts RFC3339 and date-only strings and unix seconds or
// milliseconds. Anything else yields the zero time, meaning unknown.
func ParseDate(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return fromUnix(n)
		}
	default:
		if n, ok := parseAmount(v); ok {
			return fromUnix(n)
		}
	}
	return time.Time{}
}

func fromUnix(n float64) time.Time {
	if n <= 0 {
		return time.Time{}
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC()
	}
	return time.Unix(int64(n), 0).UTC()
}
