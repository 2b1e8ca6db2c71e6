// Package profile describes the candidate the jobs are scored against.
package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/viper"

	"github.com/spigell/job-matcher/internal/schema"
)

//go:embed profile.schema.json
var profileSchema []byte

// ErrNotFound is returned by Load when the profile file does not exist.
// Callers switch to resume-only mode on it.
var ErrNotFound = errors.New("profile not found")

type Profile struct {
	Personal   Personal            `mapstructure:"personal" json:"personal"`
	Summary    string              `mapstructure:"summary" json:"summary,omitempty"`
	Skills     map[string][]string `mapstructure:"skills" json:"skills"`
	Experience Experience          `mapstructure:"experience" json:"experience"`
	Education  []Education         `mapstructure:"education" json:"education,omitempty"`
	Projects   []Project           `mapstructure:"projects" json:"projects,omitempty"`
}

type Personal struct {
	Name     string `mapstructure:"name" json:"name"`
	Email    string `mapstructure:"email" json:"email,omitempty"`
	Phone    string `mapstructure:"phone" json:"phone,omitempty"`
	Location string `mapstructure:"location" json:"location,omitempty"`
	LinkedIn string `mapstructure:"linkedin" json:"linkedin,omitempty"`
	GitHub   string `mapstructure:"github" json:"github,omitempty"`
	Website  string `mapstructure:"website" json:"website,omitempty"`
}

type Experience struct {
	// TotalYears is nil when the profile does not state it.
	TotalYears *float64   `mapstructure:"total_years" json:"total_years,omitempty"`
	Positions  []Position `mapstructure:"positions" json:"positions,omitempty"`
}

type Position struct {
	Title        string   `mapstructure:"title" json:"title"`
	Company      string   `mapstructure:"company" json:"company,omitempty"`
	Years        *float64 `mapstructure:"years" json:"years,omitempty"`
	StartDate    string   `mapstructure:"start_date" json:"start_date,omitempty"`
	EndDate      string   `mapstructure:"end_date" json:"end_date,omitempty"`
	Achievements []string `mapstructure:"achievements" json:"achievements,omitempty"`
}

type Education struct {
	Degree         string `mapstructure:"degree" json:"degree"`
	Field          string `mapstructure:"field" json:"field,omitempty"`
	Institution    string `mapstructure:"institution" json:"institution,omitempty"`
	GraduationYear int    `mapstructure:"graduation_year" json:"graduation_year,omitempty"`
}

type Project struct {
	Name         string   `mapstructure:"name" json:"name"`
	Description  string   `mapstructure:"description" json:"description,omitempty"`
	Technologies []string `mapstructure:"technologies" json:"technologies,omitempty"`
	URL          string   `mapstructure:"url" json:"url,omitempty"`
	Achievements []string `mapstructure:"achievements" json:"achievements,omitempty"`
}

// Load reads and validates a profile YAML file. A missing file yields ErrNotFound.
func Load(path string) (*Profile, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	if err := schema.Validate("profile", profileSchema, v.AllSettings()); err != nil {
		return nil, err
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return nil, fmt.Errorf("decoding profile: %w", err)
	}
	return &p, nil
}

// IsEmpty reports whether the profile carries nothing to score against.
func (p *Profile) IsEmpty() bool {
	if p == nil {
		return true
	}
	return len(p.FlattenSkills()) == 0 &&
		p.Experience.TotalYears == nil &&
		len(p.Experience.Positions) == 0 &&
		len(p.Education) == 0
}

// FlattenSkills returns every skill of every category plus project
// technologies, lowercased, deduplicated and sorted.
func (p *Profile) FlattenSkills() []string {
	if p == nil {
		return nil
	}

	set := make(map[string]struct{})
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			set[s] = struct{}{}
		}
	}

	for _, skills := range p.Skills {
		for _, s := range skills {
			add(s)
		}
	}
	for _, project := range p.Projects {
		for _, tech := range project.Technologies {
			add(tech)
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Years returns the stated total years of experience or, when absent, the sum
// of position durations. ok is false when neither is known.
func (p *Profile) Years(now time.Time) (years float64, ok bool) {
	if p == nil {
		return 0, false
	}
	if p.Experience.TotalYears != nil {
		return *p.Experience.TotalYears, true
	}

	for _, pos := range p.Experience.Positions {
		if y, known := pos.Duration(now); known {
			years += y
			ok = true
		}
	}
	return years, ok
}

// Duration is the explicit years value or the span between start and end
// dates ("YYYY-MM", end may be "present").
func (pos Position) Duration(now time.Time) (float64, bool) {
	if pos.Years != nil {
		return *pos.Years, true
	}

	start, err := parseMonth(pos.StartDate)
	if err != nil {
		return 0, false
	}

	end := now
	if e := strings.TrimSpace(pos.EndDate); e != "" && !strings.EqualFold(e, "present") {
		if end, err = parseMonth(e); err != nil {
			return 0, false
		}
	}
	if end.Before(start) {
		return 0, false
	}
	return end.Sub(start).Hours() / 24 / 365.25, true
}

func parseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// Degree levels, lowest to highest.
const (
	DegreeUnknown   = 0
	DegreeAssociate = 1
	DegreeBachelor  = 2
	DegreeMaster    = 3
	DegreeDoctorate = 4
)

var degreeWords = map[string]int{
	"associate": DegreeAssociate, "associates": DegreeAssociate,
	"bachelor": DegreeBachelor, "bachelors": DegreeBachelor,
	"master": DegreeMaster, "masters": DegreeMaster,
	"doctorate": DegreeDoctorate, "doctoral": DegreeDoctorate, "phd": DegreeDoctorate,
}

// Abbreviations only trusted in a degree title, never in free text.
var degreeAbbreviations = map[string]int{
	"aa": DegreeAssociate, "aas": DegreeAssociate,
	"ba": DegreeBachelor, "bs": DegreeBachelor, "bsc": DegreeBachelor, "beng": DegreeBachelor, "bba": DegreeBachelor,
	"ma": DegreeMaster, "ms": DegreeMaster, "msc": DegreeMaster, "meng": DegreeMaster, "mba": DegreeMaster,
	"dphil": DegreeDoctorate,
}

// DegreeWords returns the level of every degree keyword found in text.
func DegreeWords(text string) []int {
	var levels []int
	for _, w := range degreeTokens(text) {
		if level, ok := degreeWords[w]; ok {
			levels = append(levels, level)
		}
	}
	return levels
}

// DegreeLevel classifies a single degree title such as "B.Sc. Computer Science".
func DegreeLevel(degree string) int {
	best := DegreeUnknown
	for _, w := range degreeTokens(degree) {
		level, ok := degreeWords[w]
		if !ok {
			level = degreeAbbreviations[w]
		}
		if level > best {
			best = level
		}
	}
	return best
}

// HighestDegree is the best level across education entries.
func (p *Profile) HighestDegree() int {
	if p == nil {
		return DegreeUnknown
	}
	best := DegreeUnknown
	for _, e := range p.Education {
		if level := DegreeLevel(e.Degree); level > best {
			best = level
		}
	}
	return best
}

func degreeTokens(s string) []string {
	s = strings.ToLower(strings.NewReplacer(".", "", "'", "", "’", "").Replace(s))
	return strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
}
