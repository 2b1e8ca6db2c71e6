package jobs

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

type WorkplaceType string

const (
	WorkplaceRemote WorkplaceType = "Remote"
	WorkplaceHybrid WorkplaceType = "Hybrid"
	WorkplaceOnsite WorkplaceType = "Onsite"
)

type CommitmentType string

const (
	CommitmentFullTime   CommitmentType = "Full Time"
	CommitmentPartTime   CommitmentType = "Part Time"
	CommitmentContract   CommitmentType = "Contract"
	CommitmentInternship CommitmentType = "Internship"
	CommitmentTemporary  CommitmentType = "Temporary"
)

type ExperienceLevel string

const (
	LevelInternship ExperienceLevel = "Internship"
	LevelEntry      ExperienceLevel = "Entry Level"
	LevelMid        ExperienceLevel = "Mid Level"
	LevelSenior     ExperienceLevel = "Senior Level"
	LevelLead       ExperienceLevel = "Lead"
	LevelDirector   ExperienceLevel = "Director"
	LevelExecutive  ExperienceLevel = "Executive"
)

type Coordinates struct {
	Lat float64 `json:"lat" mapstructure:"lat"`
	Lon float64 `json:"lon" mapstructure:"lon"`
}

// Location is shared by jobs and search filters so both sides can be compared
// either by coordinates or by name.
type Location struct {
	Name        string       `json:"name" mapstructure:"formatted_address"`
	Coordinates *Coordinates `json:"coordinates,omitempty" mapstructure:"geometry"`
	RadiusKM    float64      `json:"radius_km,omitempty" mapstructure:"radius_km"`
}

func (l Location) HasCoordinates() bool {
	return l.Coordinates != nil
}

type Job struct {
	ID              string          `json:"id"`
	SourceID        string          `json:"source_id,omitempty"`
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Locations       []Location      `json:"locations,omitempty"`
	WorkplaceType   WorkplaceType   `json:"workplace_type,omitempty"`
	CommitmentType  CommitmentType  `json:"commitment_type,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experience_level,omitempty"`
	SalaryMin       *int            `json:"salary_min,omitempty"`
	SalaryMax       *int            `json:"salary_max,omitempty"`
	SalaryCurrency  string          `json:"salary_currency,omitempty"`
	PostedAt        time.Time       `json:"posted_at,omitempty"`
	Description     string          `json:"description,omitempty"`
	ApplyURL        string          `json:"apply_url,omitempty"`

	// Skills holds tools already extracted by the source, if any.
	Skills             []string `json:"skills,omitempty"`
	MinYearsExperience *int     `json:"min_years_experience,omitempty"`
	EducationLevels    []string `json:"education_levels,omitempty"`

	Analysis *Analysis       `json:"analysis,omitempty"`
	Score    *ScoreBreakdown `json:"score,omitempty"`

	// RawRef is the index of the source record in the raw feed.
	RawRef int `json:"raw_ref"`
}

type ScoreBreakdown struct {
	Skills        float64  `json:"skills"`
	Experience    float64  `json:"experience"`
	Education     float64  `json:"education"`
	Total         float64  `json:"total"`
	MatchedSkills []string `json:"matched_skills"`
	MissingSkills []string `json:"missing_skills"`
	MatchReasons  []string `json:"match_reasons,omitempty"`
	GapReasons    []string `json:"gap_reasons,omitempty"`
}

// Analysis is the LLM enrichment attached to selected jobs.
type Analysis struct {
	RequiredSkills          []string `json:"required_skills"`
	PreferredSkills         []string `json:"preferred_skills"`
	YearsExperienceRequired *int     `json:"years_experience_required"`
	EducationRequirement    string   `json:"education_requirement"`
	CompanyType             string   `json:"company_type"`
	RoleSummary             string   `json:"role_summary"`
	KeyResponsibilities     []string `json:"key_responsibilities"`
	RedFlags                []string `json:"red_flags"`
	CultureSignals          []string `json:"culture_signals"`
}

// PrimaryLocation returns the first location name, "remote" for remote jobs
// without one, or an empty string.
func (j *Job) PrimaryLocation() string {
	for _, loc := range j.Locations {
		if name := strings.TrimSpace(loc.Name); name != "" {
			return name
		}
	}
	if j.WorkplaceType == WorkplaceRemote {
		return "Remote"
	}
	return ""
}

// Salary returns the value compared against salary floors: max when known,
// min otherwise.
func (j *Job) Salary() (int, bool) {
	if j.SalaryMax != nil {
		return *j.SalaryMax, true
	}
	if j.SalaryMin != nil {
		return *j.SalaryMin, true
	}
	return 0, false
}

func (j *Job) LocationNames() []string {
	names := make([]string, 0, len(j.Locations))
	for _, loc := range j.Locations {
		if loc.Name != "" {
			names = append(names, loc.Name)
		}
	}
	return names
}

// MakeID derives the stable job id. Re-running the pipeline on the same raw
// feed must produce the same ids, so only normalized content goes in.
func MakeID(company, title, location string, postedAt time.Time) string {
	date := ""
	if !postedAt.IsZero() {
		date = postedAt.UTC().Format(time.DateOnly)
	}

	key := strings.Join([]string{
		canonical(company),
		canonical(title),
		canonical(location),
		date,
	}, "|")

	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", sum[:8])
}

func canonical(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func IntPtr(v int) *int {
	return &v
}
