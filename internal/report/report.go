// Package report renders the markdown summary of a matching run.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/scoring"
	"github.com/spigell/job-matcher/internal/search"
)

const (
	FileName = "summary_report.md"

	topJobsLimit    = 25
	breakdownLimit  = 10
	skillGapLimit   = 15
	companyLimit    = 15
	recommendFrom   = 20
	highPriority    = 5
	mediumPriority  = 3
	histogramWidth  = 30
	excellentScore  = 70
	strongScore     = 50
	prioritizeLimit = 5
)

//go:embed report.md.tmpl
var reportTemplate string

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
	"cut":  cut,
	"pct":  func(w float64) string { return fmt.Sprintf("%.0f%%", w*100) },
	"score": func(j *jobs.Job) string {
		if j.Score == nil {
			return "N/A"
		}
		return fmt.Sprintf("%.1f%%", j.Score.Total)
	},
}).Parse(reportTemplate))

type Bucket struct {
	Label     string
	Low, High float64
	Count     int
	Bar       string
	Threshold bool
}

type SkillGap struct {
	Skill    string
	Count    int
	Priority string
}

type Company struct {
	Name    string
	Count   int
	Average float64
}

type Summary struct {
	GeneratedAt      time.Time
	Query            string
	Locations        []string
	ExperienceLevels []string
	WorkplaceTypes   []string

	Total          int
	Scored         bool
	Threshold      float64
	AboveThreshold int
	Above50        int
	Above70        int
	Average        float64

	Weights         scoring.Weights
	Buckets         []Bucket
	Top             []*jobs.Job
	Breakdown       []*jobs.Job
	SkillGaps       []SkillGap
	Companies       []Company
	Recommendations []string
}

// Options carries run settings that show up in the report.
type Options struct {
	Threshold float64
	Weights   scoring.Weights
	Now       time.Time
}

// Build computes report data for ranked jobs. Threshold is a percentage
// (e.g. 35).
func Build(ranked []*jobs.Job, filters *search.Filters, opts Options) *Summary {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	s := &Summary{
		GeneratedAt: now.UTC(),
		Total:       len(ranked),
		Threshold:   opts.Threshold / 100,
		Weights:     opts.Weights,
	}

	if filters != nil {
		s.Query = filters.Search.Query
		s.Locations = filters.LocationNames()
		s.ExperienceLevels = filters.ExperienceLevels
		s.WorkplaceTypes = filters.WorkplaceTypes
	}

	var sum float64
	for _, job := range ranked {
		if job.Score == nil {
			continue
		}
		s.Scored = true
		total := job.Score.Total
		sum += total
		if total >= opts.Threshold {
			s.AboveThreshold++
		}
		if total >= strongScore {
			s.Above50++
		}
		if total >= excellentScore {
			s.Above70++
		}
	}
	if s.Total > 0 {
		s.Average = sum / float64(s.Total)
	}

	s.Buckets = buckets(ranked, opts.Threshold)
	s.Top = head(ranked, topJobsLimit)
	s.Breakdown = head(ranked, breakdownLimit)
	s.SkillGaps = skillGaps(ranked)
	s.Companies = companies(ranked)
	s.Recommendations = recommendations(s, ranked)

	return s
}

// Render produces the markdown report.
func Render(s *Summary) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, s); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders s into dir/summary_report.md and returns the path.
func Write(dir string, s *Summary) (string, error) {
	content, err := Render(s)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func buckets(list []*jobs.Job, threshold float64) []Bucket {
	out := []Bucket{
		{Label: "0-19", Low: 0, High: 20},
		{Label: "20-34", Low: 20, High: 35},
		{Label: "35-49", Low: 35, High: 50},
		{Label: "50-64", Low: 50, High: 65},
		{Label: "65-79", Low: 65, High: 80},
		{Label: "80-100", Low: 80, High: math.Inf(1)},
	}

	for _, job := range list {
		if job.Score == nil {
			continue
		}
		for i := range out {
			if job.Score.Total >= out[i].Low && job.Score.Total < out[i].High {
				out[i].Count++
				break
			}
		}
	}

	peak := 0
	for _, b := range out {
		peak = max(peak, b.Count)
	}
	for i := range out {
		if peak > 0 {
			out[i].Bar = strings.Repeat("#", out[i].Count*histogramWidth/peak)
		}
		out[i].Threshold = threshold >= out[i].Low && threshold < out[i].High
	}
	return out
}

// counter counts keys and reports them most common first, ties in first-seen order.
type counter struct {
	order  []string
	counts map[string]int
}

func (c *counter) add(key string) {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) mostCommon(n int) []string {
	keys := append([]string(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool { return c.counts[keys[i]] > c.counts[keys[j]] })
	return head(keys, n)
}

func skillGaps(list []*jobs.Job) []SkillGap {
	var c counter
	for _, job := range list {
		if job.Score == nil {
			continue
		}
		for _, skill := range job.Score.MissingSkills {
			c.add(strings.ToLower(skill))
		}
	}

	var out []SkillGap
	for _, skill := range c.mostCommon(skillGapLimit) {
		n := c.counts[skill]
		priority := "LOW"
		switch {
		case n >= highPriority:
			priority = "HIGH"
		case n >= mediumPriority:
			priority = "MEDIUM"
		}
		out = append(out, SkillGap{Skill: skill, Count: n, Priority: priority})
	}
	return out
}

func companies(list []*jobs.Job) []Company {
	var c counter
	sums := make(map[string]float64)
	for _, job := range list {
		if job.Company == "" {
			continue
		}
		c.add(job.Company)
		if job.Score != nil {
			sums[job.Company] += job.Score.Total
		}
	}

	var out []Company
	for _, name := range c.mostCommon(companyLimit) {
		n := c.counts[name]
		out = append(out, Company{Name: name, Count: n, Average: sums[name] / float64(n)})
	}
	return out
}

func recommendations(s *Summary, ranked []*jobs.Job) []string {
	var out []string
	if s.Above70 > 0 {
		out = append(out, fmt.Sprintf("**Prioritize the top %d excellent matches** (70%%+), these roles closely align with your profile",
			min(s.Above70, prioritizeLimit)))
	}
	if s.AboveThreshold > 0 {
		out = append(out, fmt.Sprintf("**%d jobs** meet the application threshold", s.AboveThreshold))
	}

	var c counter
	for _, job := range head(ranked, recommendFrom) {
		if job.Score == nil {
			continue
		}
		for _, skill := range job.Score.MissingSkills {
			c.add(strings.ToLower(skill))
		}
	}
	if top := c.mostCommon(3); len(top) > 0 {
		out = append(out, fmt.Sprintf("**Skill development:** learning %s would improve your match rate", strings.Join(top, ", ")))
	}
	return out
}

func head[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func cut(s string, n int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "|", "/")
	if s == "" {
		return "N/A"
	}
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}
