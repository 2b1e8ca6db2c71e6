// Package search holds the user-authored search criteria and their loader.
package search

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/schema"
)

const (
	MatchAny = "any"
	MatchAll = "all"
)

//go:embed filters.schema.json
var filtersSchema []byte

// Filters is the set of hard gates. Every field but Search.Query is optional
// and a zero value means "no constraint".
type Filters struct {
	Search           Query           `mapstructure:"search" json:"search"`
	Locations        []jobs.Location `mapstructure:"locations" json:"locations,omitempty"`
	WorkplaceTypes   []string        `mapstructure:"workplace_types" json:"workplace_types,omitempty"`
	ExperienceLevels []string        `mapstructure:"experience_levels" json:"experience_levels,omitempty"`
	CommitmentTypes  []string        `mapstructure:"commitment_types" json:"commitment_types,omitempty"`
	Salary           Salary          `mapstructure:"salary" json:"salary"`
	DateFilter       DateFilter      `mapstructure:"date_filter" json:"date_filter"`
	Pagination       Pagination      `mapstructure:"pagination" json:"pagination"`
}

type Query struct {
	Query              string `mapstructure:"query" json:"query"`
	Match              string `mapstructure:"match" json:"match,omitempty"`
	IncludeDescription bool   `mapstructure:"include_description" json:"include_description,omitempty"`
	TechnologyKeywords string `mapstructure:"technology_keywords" json:"technology_keywords,omitempty"`
}

type Salary struct {
	MinAnnual int    `mapstructure:"min_annual" json:"min_annual,omitempty"`
	Currency  string `mapstructure:"currency" json:"currency,omitempty"`
}

type DateFilter struct {
	Days int `mapstructure:"days" json:"days,omitempty"`
}

type Pagination struct {
	MaxPages int `mapstructure:"max_pages" json:"max_pages,omitempty"`
	PageSize int `mapstructure:"page_size" json:"page_size,omitempty"`
}

// Load reads a search filters YAML file, validates it against the embedded
// schema and decodes it.
func Load(path string) (*Filters, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading search filters: %w", err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Filters, error) {
	if err := schema.Validate("search filters", filtersSchema, v.AllSettings()); err != nil {
		return nil, err
	}

	var filters Filters
	if err := v.Unmarshal(&filters); err != nil {
		return nil, fmt.Errorf("decoding search filters: %w", err)
	}

	filters.Search.Query = strings.TrimSpace(filters.Search.Query)
	filters.Search.Match = strings.ToLower(strings.TrimSpace(filters.Search.Match))
	if filters.Search.Match == "" {
		filters.Search.Match = MatchAny
	}

	return &filters, nil
}

// AllowsWorkplace reports whether the given workplace type is explicitly allowed.
func (f *Filters) AllowsWorkplace(w jobs.WorkplaceType) bool {
	for _, allowed := range f.WorkplaceTypes {
		if strings.EqualFold(strings.TrimSpace(allowed), string(w)) {
			return true
		}
	}
	return false
}

func (f *Filters) LocationNames() []string {
	names := make([]string, 0, len(f.Locations))
	for _, loc := range f.Locations {
		names = append(names, loc.Name)
	}
	return names
}
