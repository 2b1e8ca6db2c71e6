package scoring

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/profile"
)

func profileWith(skills ...string) *profile.Profile {
	return &profile.Profile{Skills: map[string][]string{"all": skills}}
}

func years(v float64) *float64 { return &v }

func TestScenarioFullSkillMatch(t *testing.T) {
	t.Parallel()

	job := &jobs.Job{Skills: []string{"Python", "SQL"}}
	b := New(DefaultWeights()).Score(job, profileWith("Python", "SQL", "Go"))

	if b.Skills != 100 {
		t.Fatalf("expected skills 100, got %v", b.Skills)
	}
	if len(b.MissingSkills) != 0 {
		t.Fatalf("expected no missing skills, got %v", b.MissingSkills)
	}
	if !reflect.DeepEqual(b.MatchedSkills, []string{"python", "sql"}) {
		t.Fatalf("unexpected matched skills: %v", b.MatchedSkills)
	}
}

func TestScenarioPartialSkillMatch(t *testing.T) {
	t.Parallel()

	job := &jobs.Job{Skills: []string{"Python", "SQL", "Go", "Rust"}}
	b := New(DefaultWeights()).Score(job, profileWith("Python"))

	if b.Skills != 25 {
		t.Fatalf("expected skills 25, got %v", b.Skills)
	}
	if !reflect.DeepEqual(b.MatchedSkills, []string{"python"}) {
		t.Fatalf("unexpected matched: %v", b.MatchedSkills)
	}
	if !reflect.DeepEqual(b.MissingSkills, []string{"sql", "go", "rust"}) {
		t.Fatalf("unexpected missing: %v", b.MissingSkills)
	}
	if len(b.GapReasons) == 0 || b.GapReasons[0] != "Missing skills: sql, go, rust" {
		t.Fatalf("unexpected gap reasons: %v", b.GapReasons)
	}
}

func TestNoSkillDataIsNeutral(t *testing.T) {
	t.Parallel()

	job := &jobs.Job{Description: "We are a friendly team that values curiosity."}
	b := New(DefaultWeights()).Score(job, profileWith("Go"))

	if b.Skills != neutralSkills {
		t.Fatalf("expected neutral skills score, got %v", b.Skills)
	}
}

func TestSkillsFromDescription(t *testing.T) {
	t.Parallel()

	job := &jobs.Job{Description: "Requirements:\n" +
		"- 3+ years with Go and PostgreSQL\n" +
		"- Experience with Kubernetes (k8s)\n" +
		"Nice to have: Terraform, Rust"}

	b := New(DefaultWeights()).Score(job, profileWith("Go", "PostgreSQL", "Docker"))

	if !reflect.DeepEqual(b.MatchedSkills, []string{"postgresql", "go"}) {
		t.Fatalf("unexpected matched: %v", b.MatchedSkills)
	}
	if !reflect.DeepEqual(b.MissingSkills, []string{"kubernetes"}) {
		t.Fatalf("unexpected missing: %v", b.MissingSkills)
	}
	// required: postgresql, go, kubernetes (2 each); desired: terraform, rust (1 each)
	if b.Skills != 50 {
		t.Fatalf("expected skills 50, got %v", b.Skills)
	}
}

func TestAnalysisPreferredStaysOptional(t *testing.T) {
	t.Parallel()

	job := &jobs.Job{
		Skills:   []string{"Docker", "SQL"},
		Analysis: &jobs.Analysis{RequiredSkills: []string{"Golang"}, PreferredSkills: []string{"docker"}},
	}

	required, desired := requirements(job, nil)
	if !reflect.DeepEqual(required, []string{"go", "sql"}) {
		t.Fatalf("unexpected required: %v", required)
	}
	if !reflect.DeepEqual(desired, []string{"docker"}) {
		t.Fatalf("unexpected desired: %v", desired)
	}
}

func TestHasSkill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		skill  string
		have   []string
		expect bool
	}{
		{"postgresql", []string{"postgresql"}, true},
		{"aws lambda", []string{"aws"}, true},
		{"spring", []string{"spring boot"}, true},
		{"java", []string{"javascript"}, false},
		{"c", []string{"c++"}, false},
		{"go", []string{"google cloud"}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.skill, func(t *testing.T) {
			t.Parallel()
			if got := hasSkill(tt.skill, tt.have); got != tt.expect {
				t.Fatalf("expected %t, got %t", tt.expect, got)
			}
		})
	}
}

func TestContainsTerm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text, term string
		expect     bool
	}{
		{"we use node.js daily", "node.js", true},
		{"experience with c++.", "c++", true},
		{"knowledge of c# and .net", ".net", true},
		{"javascript only", "java", false},
		{"mysql and postgres", "sql", false},
		{"ship it in go.", "go", true},
	}

	for _, tt := range tests {
		if got := containsTerm(tt.text, tt.term); got != tt.expect {
			t.Fatalf("containsTerm(%q, %q): expected %t, got %t", tt.text, tt.term, tt.expect, got)
		}
	}
}

func TestScoreExperience(t *testing.T) {
	t.Parallel()

	senior := levelBands[jobs.LevelSenior]
	tests := []struct {
		name   string
		band   band
		years  float64
		expect float64
	}{
		{"inside band", senior, 7, 100},
		{"band edge", senior, 5, 100},
		{"slightly under", senior, 3, 100 - math.Pow(2, 1.5)*12},
		{"far under floors at 10", senior, 0, 10},
		{"slightly over", senior, 11, 95},
		{"far over floors at 40", senior, 30, 40},
		{"unknown band", band{}, 4, neutralExperience},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := scoreExperience(tt.band, tt.years); math.Abs(got-tt.expect) > 1e-9 {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestExperienceBandSources(t *testing.T) {
	t.Parallel()

	job := &jobs.Job{ExperienceLevel: jobs.LevelMid, Analysis: &jobs.Analysis{YearsExperienceRequired: jobs.IntPtr(4)}}
	if b := experienceBand(job); b.min != 4 || b.max != 7 {
		t.Fatalf("expected analysis band 4..7, got %+v", b)
	}

	job.MinYearsExperience = jobs.IntPtr(1)
	if b := experienceBand(job); b.min != 1 || b.max != 4 {
		t.Fatalf("expected structured band 1..4, got %+v", b)
	}

	if b := experienceBand(&jobs.Job{}); b.known {
		t.Fatalf("expected unknown band")
	}
}

func TestEducation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		job    *jobs.Job
		degree string
		expect float64
	}{
		{"structured requirement met", &jobs.Job{EducationLevels: []string{"bachelors"}}, "Master of Science", 100},
		{"lowest stated level counts", &jobs.Job{Description: "Bachelor's or Master's degree in CS"}, "BSc", 100},
		{"below is proportional", &jobs.Job{Analysis: &jobs.Analysis{EducationRequirement: "PhD in Physics"}}, "B.Sc.", 50},
		{"no requirement", &jobs.Job{Description: "Great team."}, "BSc", neutralEducation},
		{"unknown profile degree", &jobs.Job{EducationLevels: []string{"masters"}}, "", neutralEducation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &profile.Profile{}
			if tt.degree != "" {
				p.Education = []profile.Education{{Degree: tt.degree}}
			}
			if got := scoreEducation(requiredDegree(tt.job), p.HighestDegree()); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestWeightedTotal(t *testing.T) {
	t.Parallel()

	p := profileWith("Python", "SQL")
	p.Experience.TotalYears = years(6)
	p.Education = []profile.Education{{Degree: "Master of Science"}}

	full := &jobs.Job{Skills: []string{"python", "sql"}, ExperienceLevel: jobs.LevelSenior, EducationLevels: []string{"bachelors"}}
	b := New(DefaultWeights()).Score(full, p)
	if b.Total != 100 || len(b.MatchReasons) != 3 || len(b.GapReasons) != 0 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}

	neutral := New(DefaultWeights()).Score(&jobs.Job{}, &profile.Profile{Experience: profile.Experience{TotalYears: years(3)}})
	if neutral.Total != 59.5 {
		t.Fatalf("expected neutral total 59.5, got %v", neutral.Total)
	}
}

func TestMissingProfileFieldsUseDefaults(t *testing.T) {
	t.Parallel()

	b := New(DefaultWeights()).Score(&jobs.Job{Skills: []string{"python"}, ExperienceLevel: jobs.LevelSenior}, nil)
	if b.Skills != neutralSkills || b.Experience != neutralExperience || b.Education != neutralEducation {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
	if b.Total != 59.5 {
		t.Fatalf("expected total 59.5, got %v", b.Total)
	}
}

func TestProfileWithoutSkillsIsNeutral(t *testing.T) {
	t.Parallel()

	years := 6.0
	p := &profile.Profile{
		Experience: profile.Experience{TotalYears: &years},
		Education:  []profile.Education{{Degree: "BSc Computer Science"}},
	}

	b := New(DefaultWeights()).Score(&jobs.Job{Skills: []string{"python", "sql"}}, p)
	if b.Skills != neutralSkills {
		t.Fatalf("expected neutral skills score, got %v", b.Skills)
	}
	if len(b.MatchedSkills) != 0 {
		t.Fatalf("expected no matched skills, got %v", b.MatchedSkills)
	}
	if len(b.MissingSkills) != 2 || b.MissingSkills[0] != "python" || b.MissingSkills[1] != "sql" {
		t.Fatalf("expected python and sql missing, got %v", b.MissingSkills)
	}
}

func TestWeightsAreNormalized(t *testing.T) {
	t.Parallel()

	w := New(Weights{Skills: 2, Experience: 1, Education: 1}).Weights()
	if w.Skills != 0.5 || w.Experience != 0.25 || w.Education != 0.25 {
		t.Fatalf("unexpected weights: %+v", w)
	}

	if got := New(Weights{}).Weights(); got != DefaultWeights() {
		t.Fatalf("expected defaults for zero weights, got %+v", got)
	}
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	profiles := []*profile.Profile{
		nil,
		{},
		profileWith("Go"),
		{Skills: map[string][]string{"x": {"python", "sql"}}, Experience: profile.Experience{TotalYears: years(45)},
			Education: []profile.Education{{Degree: "PhD"}}},
		{Experience: profile.Experience{TotalYears: years(0)}, Education: []profile.Education{{Degree: "Associate"}}},
	}
	list := []*jobs.Job{
		{},
		{Skills: []string{"rust", "haskell", "elixir"}, ExperienceLevel: jobs.LevelExecutive, EducationLevels: []string{"doctorate"}},
		{MinYearsExperience: jobs.IntPtr(30), Description: "Master's degree required. Python, SQL."},
		{ExperienceLevel: jobs.LevelInternship, Analysis: &jobs.Analysis{PreferredSkills: []string{"go"}}},
	}

	scorer := New(Weights{Skills: 5, Experience: 0, Education: 1})
	for pi, p := range profiles {
		for ji, job := range list {
			b := scorer.Score(job, p)
			for name, v := range map[string]float64{"skills": b.Skills, "experience": b.Experience, "education": b.Education, "total": b.Total} {
				if v < 0 || v > 100 {
					t.Fatalf("profile %d job %d: %s out of bounds: %v", pi, ji, name, v)
				}
			}
		}
	}
}

func TestAddingMissingSkillNeverLowersScore(t *testing.T) {
	t.Parallel()

	job := &jobs.Job{
		Analysis: &jobs.Analysis{RequiredSkills: []string{"Python", "SQL", "Kubernetes"}, PreferredSkills: []string{"Terraform"}},
	}
	p := profileWith("Python")
	scorer := New(DefaultWeights())

	before := scorer.Score(job, p)
	for _, missing := range before.MissingSkills {
		p.Skills["all"] = append(p.Skills["all"], missing)
		after := scorer.Score(job, p)
		if after.Skills < before.Skills {
			t.Fatalf("adding %s lowered skills from %v to %v", missing, before.Skills, after.Skills)
		}
		before = after
	}
	if before.Skills < 85 || len(before.MissingSkills) != 0 {
		t.Fatalf("expected only the preferred skill to be unmatched, got %+v", before)
	}
}

func TestScoreAllUsesReferenceTime(t *testing.T) {
	t.Parallel()

	p := &profile.Profile{Experience: profile.Experience{Positions: []profile.Position{{Title: "dev", StartDate: "2020-01"}}}}
	list := []*jobs.Job{{ID: "1", MinYearsExperience: jobs.IntPtr(5)}}

	New(DefaultWeights()).At(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)).ScoreAll(list, p)
	if list[0].Score == nil || list[0].Score.Experience != 100 {
		t.Fatalf("expected six years to fit the 5..8 band, got %+v", list[0].Score)
	}
}
