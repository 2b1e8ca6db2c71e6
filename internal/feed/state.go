package feed

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spigell/job-matcher/internal/search"
)

const defaultDays = 30

// BuildSearchState converts search filters into the upstream searchState
// document. Unset filters keep the upstream defaults.
func BuildSearchState(filters *search.Filters) map[string]any {
	state := map[string]any{
		"searchQuery":                       filters.Search.Query,
		"technologyKeywordsQuery":           filters.Search.TechnologyKeywords,
		"locations":                         []any{},
		"workplaceTypes":                    []string{"Remote", "Hybrid", "Onsite"},
		"commitmentTypes":                   []string{"Full Time"},
		"seniorityLevel":                    []string{"Entry Level", "Mid Level"},
		"currency":                          map[string]any{"label": "Any", "value": nil},
		"frequency":                         map[string]any{"label": "Any", "value": nil},
		"minCompensationLowEnd":             nil,
		"restrictJobsToTransparentSalaries": false,
		"calcFrequency":                     "Yearly",
		"dateFetchedPastNDays":              defaultDays,
		"sortBy":                            "default",
	}

	if len(filters.Locations) > 0 {
		locations := make([]any, 0, len(filters.Locations))
		for _, loc := range filters.Locations {
			entry := map[string]any{
				"formatted_address": loc.Name,
				"id":                "user_location",
				"options": map[string]any{
					"flexible_regions": []string{"anywhere_in_continent", "anywhere_in_world"},
				},
			}
			if loc.HasCoordinates() {
				entry["geometry"] = map[string]any{
					"location": map[string]string{
						"lat": fmt.Sprint(loc.Coordinates.Lat),
						"lon": fmt.Sprint(loc.Coordinates.Lon),
					},
				}
			}
			locations = append(locations, entry)
		}
		state["locations"] = locations
	}

	if len(filters.WorkplaceTypes) > 0 {
		state["workplaceTypes"] = filters.WorkplaceTypes
	}
	if len(filters.ExperienceLevels) > 0 {
		state["seniorityLevel"] = filters.ExperienceLevels
	}
	if len(filters.CommitmentTypes) > 0 {
		state["commitmentTypes"] = filters.CommitmentTypes
	}
	if filters.Salary.MinAnnual > 0 {
		state["minCompensationLowEnd"] = filters.Salary.MinAnnual
	}
	if c := filters.Salary.Currency; c != "" {
		state["currency"] = map[string]any{"label": c, "value": c}
	}
	if filters.DateFilter.Days > 0 {
		state["dateFetchedPastNDays"] = filters.DateFilter.Days
	}

	return state
}

// EncodeSearchState renders base64(percent-encoded(JSON)), the format the
// upstream ?s= parameter expects.
func EncodeSearchState(state map[string]any) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString([]byte(quote(string(raw)))), nil
}

// quote percent-encodes everything except unreserved characters and '/'.
func quote(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("_.-~/", c) >= 0
}
