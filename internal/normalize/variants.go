package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
)

type variant int

const (
	variantFlat variant = iota
	variantHiringCafe
)

// fields is the source-independent intermediate every variant decodes into.
type fields struct {
	sourceID     string
	title        string
	company      string
	locations    []string
	coordinates  *jobs.Coordinates
	workplace    string
	commitment   string
	experience   string
	salaryMin    any
	salaryMax    any
	salaryText   string
	salaryPeriod string
	currency     string
	postedAt     any
	description  string
	applyURL     string
	skills       []string
	minYears     any
	education    []string
	expired      bool
}

func detectVariant(raw RawRecord) variant {
	for _, key := range []string{"v5_processed_job_data", "job_information"} {
		if _, ok := raw[key]; ok {
			return variantHiringCafe
		}
	}
	return variantFlat
}

type hiringCafeRecord struct {
	ID        any    `mapstructure:"id"`
	ObjectID  any    `mapstructure:"objectID"`
	Title     string `mapstructure:"title"`
	Source    string `mapstructure:"source"`
	ApplyURL  string `mapstructure:"apply_url"`
	IsExpired bool   `mapstructure:"is_expired"`

	Description string `mapstructure:"description"`

	Info struct {
		Title       string `mapstructure:"title"`
		TitleRaw    string `mapstructure:"job_title_raw"`
		Description string `mapstructure:"description"`
		CompanyInfo struct {
			Name string `mapstructure:"name"`
		} `mapstructure:"company_info"`
	} `mapstructure:"job_information"`

	Job struct {
		CoreJobTitle      string   `mapstructure:"core_job_title"`
		CompanyName       string   `mapstructure:"company_name"`
		FormattedLocation string   `mapstructure:"formatted_workplace_location"`
		Cities            []string `mapstructure:"workplace_cities"`
		States            []string `mapstructure:"workplace_states"`
		Countries         []string `mapstructure:"workplace_countries"`
		WorkplaceType     string   `mapstructure:"workplace_type"`
		SeniorityLevel    string   `mapstructure:"seniority_level"`
		Commitment        []string `mapstructure:"commitment"`
		YearlyMin         any      `mapstructure:"yearly_min_compensation"`
		YearlyMax         any      `mapstructure:"yearly_max_compensation"`
		Currency          string   `mapstructure:"listed_compensation_currency"`
		TechnicalTools    []string `mapstructure:"technical_tools"`
		MinYOE            any      `mapstructure:"min_industry_and_role_yoe"`
		PublishDate       any      `mapstructure:"estimated_publish_date"`
		Associates        string   `mapstructure:"associates_degree_requirement"`
		Bachelors         string   `mapstructure:"bachelors_degree_requirement"`
		Masters           string   `mapstructure:"masters_degree_requirement"`
		Doctorate         string   `mapstructure:"doctorate_degree_requirement"`
	} `mapstructure:"v5_processed_job_data"`

	Company struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"v5_processed_company_data"`
}

const notMentioned = "not mentioned"

func fromHiringCafe(raw RawRecord) (fields, error) {
	var r hiringCafeRecord
	if err := decode(raw, &r); err != nil {
		return fields{}, err
	}

	location := r.Job.FormattedLocation
	if strings.TrimSpace(location) == "" {
		parts := append(append(append([]string{}, r.Job.Cities...), r.Job.States...), r.Job.Countries...)
		location = strings.Join(parts, ", ")
	}

	var commitment string
	if len(r.Job.Commitment) > 0 {
		commitment = r.Job.Commitment[0]
	}

	var education []string
	for level, requirement := range map[string]string{
		"associates": r.Job.Associates,
		"bachelors":  r.Job.Bachelors,
		"masters":    r.Job.Masters,
		"doctorate":  r.Job.Doctorate,
	} {
		req := strings.ToLower(strings.TrimSpace(requirement))
		if req != "" && req != notMentioned {
			education = append(education, level)
		}
	}
	sortLevels(education)

	currency := r.Job.Currency
	if currency == "" {
		currency = "USD"
	}

	return fields{
		sourceID:    idString(firstValue(r.ID, r.ObjectID)),
		title:       firstNonEmpty(r.Job.CoreJobTitle, r.Info.Title, r.Info.TitleRaw, r.Title),
		company:     firstNonEmpty(r.Job.CompanyName, r.Company.Name, r.Info.CompanyInfo.Name, r.Source),
		locations:   nonEmpty(location),
		workplace:   r.Job.WorkplaceType,
		commitment:  commitment,
		experience:  r.Job.SeniorityLevel,
		salaryMin:   r.Job.YearlyMin,
		salaryMax:   r.Job.YearlyMax,
		currency:    currency,
		postedAt:    r.Job.PublishDate,
		description: firstNonEmpty(r.Info.Description, r.Description),
		applyURL:    r.ApplyURL,
		skills:      r.Job.TechnicalTools,
		minYears:    r.Job.MinYOE,
		education:   education,
		expired:     r.IsExpired,
	}, nil
}

type flatRecord struct {
	ID       any `mapstructure:"id"`
	SourceID any `mapstructure:"source_id"`

	Title    string `mapstructure:"title"`
	JobTitle string `mapstructure:"job_title"`
	Position string `mapstructure:"position"`

	Company     string `mapstructure:"company"`
	CompanyName string `mapstructure:"company_name"`
	Employer    string `mapstructure:"employer"`

	Location  any `mapstructure:"location"`
	Locations any `mapstructure:"locations"`
	Latitude  any `mapstructure:"latitude"`
	Lat       any `mapstructure:"lat"`
	Longitude any `mapstructure:"longitude"`
	Lon       any `mapstructure:"lon"`
	Lng       any `mapstructure:"lng"`

	WorkplaceType   string `mapstructure:"workplace_type"`
	Remote          any    `mapstructure:"remote"`
	CommitmentType  string `mapstructure:"commitment_type"`
	EmploymentType  string `mapstructure:"employment_type"`
	ExperienceLevel string `mapstructure:"experience_level"`
	Seniority       string `mapstructure:"seniority"`

	SalaryMin      any    `mapstructure:"salary_min"`
	MinSalary      any    `mapstructure:"min_salary"`
	SalaryMax      any    `mapstructure:"salary_max"`
	MaxSalary      any    `mapstructure:"max_salary"`
	Salary         any    `mapstructure:"salary"`
	SalaryPeriod   string `mapstructure:"salary_period"`
	PayPeriod      string `mapstructure:"pay_period"`
	SalaryCurrency string `mapstructure:"salary_currency"`
	Currency       string `mapstructure:"currency"`

	PostedAt   any `mapstructure:"posted_at"`
	DatePosted any `mapstructure:"date_posted"`
	CreatedAt  any `mapstructure:"created_at"`

	Description     string   `mapstructure:"description"`
	DescriptionHTML string   `mapstructure:"description_html"`
	URL             string   `mapstructure:"url"`
	ApplyURL        string   `mapstructure:"apply_url"`
	Skills          []string `mapstructure:"skills"`
	MinYears        any      `mapstructure:"min_years_experience"`
	Education       []string `mapstructure:"education_levels"`
	IsExpired       bool     `mapstructure:"is_expired"`
}

func fromFlat(raw RawRecord) (fields, error) {
	var r flatRecord
	if err := decode(raw, &r); err != nil {
		return fields{}, err
	}

	f := fields{
		sourceID:     idString(firstValue(r.SourceID, r.ID)),
		title:        firstNonEmpty(r.Title, r.JobTitle, r.Position),
		company:      firstNonEmpty(r.Company, r.CompanyName, r.Employer),
		locations:    append(stringList(r.Location), stringList(r.Locations)...),
		workplace:    r.WorkplaceType,
		commitment:   firstNonEmpty(r.CommitmentType, r.EmploymentType),
		experience:   firstNonEmpty(r.ExperienceLevel, r.Seniority),
		salaryMin:    firstValue(r.SalaryMin, r.MinSalary),
		salaryMax:    firstValue(r.SalaryMax, r.MaxSalary),
		salaryPeriod: firstNonEmpty(r.SalaryPeriod, r.PayPeriod),
		currency:     strings.ToUpper(strings.TrimSpace(firstNonEmpty(r.SalaryCurrency, r.Currency))),
		postedAt:     firstValue(r.PostedAt, r.DatePosted, r.CreatedAt),
		description:  firstNonEmpty(r.DescriptionHTML, r.Description),
		applyURL:     firstNonEmpty(r.ApplyURL, r.URL),
		skills:       r.Skills,
		minYears:     r.MinYears,
		education:    r.Education,
		expired:      r.IsExpired,
	}

	// A free-text salary only fills the range when no explicit bound is given.
	if s, ok := r.Salary.(string); ok {
		f.salaryText = s
	} else if f.salaryMin == nil && f.salaryMax == nil {
		f.salaryMin = r.Salary
	}

	if f.workplace == "" && truthy(r.Remote) {
		f.workplace = string(jobs.WorkplaceRemote)
	}

	lat, latOK := parseAmount(firstValue(r.Latitude, r.Lat))
	lon, lonOK := parseAmount(firstValue(r.Longitude, r.Lon, r.Lng))
	if latOK && lonOK {
		f.coordinates = &jobs.Coordinates{Lat: lat, Lon: lon}
	}

	return f, nil
}

// stringList accepts a single string or a list of strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		return nonEmpty(t)
	case []string:
		return t
	case []any:
		var out []string
		for _, item := range t {
			switch s := item.(type) {
			case string:
				out = append(out, nonEmpty(s)...)
			case map[string]any:
				if name, ok := s["name"].(string); ok {
					out = append(out, nonEmpty(name)...)
				}
			}
		}
		return out
	}
	return nil
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{s}
}

func idString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "1", "remote":
			return true
		}
	}
	return false
}

var levelOrder = map[string]int{"associates": 1, "bachelors": 2, "masters": 3, "doctorate": 4}

func sortLevels(levels []string) {
	sort.Slice(levels, func(i, j int) bool { return levelOrder[levels[i]] < levelOrder[levels[j]] })
}
