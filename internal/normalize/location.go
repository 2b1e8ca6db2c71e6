package normalize

import (
	"regexp"
	"strings"

	"github.com/spigell/job-matcher/internal/dedupe"
	"github.com/spigell/job-matcher/internal/jobs"
)

var locationSeparators = regexp.MustCompile(`\s*(?:;|\||\s+or\s+)\s*`)

// Gazetteer resolves free-text location names to the coordinates of the
// configured search locations.
type Gazetteer struct {
	entries map[string]jobs.Coordinates
}

// NewGazetteer indexes every target with coordinates by its full name and by
// its first address part ("Toronto, ON, Canada" is also "Toronto").
func NewGazetteer(targets []jobs.Location) *Gazetteer {
	g := &Gazetteer{entries: make(map[string]jobs.Coordinates)}
	for _, t := range targets {
		if !t.HasCoordinates() {
			continue
		}
		for _, key := range []string{dedupe.Fold(t.Name), dedupe.Fold(firstPart(t.Name))} {
			if key == "" {
				continue
			}
			if _, exists := g.entries[key]; !exists {
				g.entries[key] = *t.Coordinates
			}
		}
	}
	return g
}

// Resolve maps a location name to a Location. Unknown names are kept without
// coordinates.
func (g *Gazetteer) Resolve(name string) jobs.Location {
	loc := jobs.Location{Name: CleanText(name)}
	for _, key := range []string{dedupe.Fold(loc.Name), dedupe.Fold(firstPart(loc.Name))} {
		if c, ok := g.entries[key]; ok && key != "" {
			coords := c
			loc.Coordinates = &coords
			break
		}
	}
	return loc
}

// ResolveAll splits combined strings ("Toronto; Montreal") and resolves each
// part. Source coordinates are attached when there is exactly one location.
func (g *Gazetteer) ResolveAll(raw []string, source *jobs.Coordinates) []jobs.Location {
	var out []jobs.Location
	seen := make(map[string]struct{})

	for _, item := range raw {
		for _, part := range locationSeparators.Split(item, -1) {
			loc := g.Resolve(part)
			if loc.Name == "" {
				continue
			}
			key := dedupe.Fold(loc.Name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, loc)
		}
	}

	if source != nil && len(out) == 1 {
		coords := *source
		out[0].Coordinates = &coords
	}
	return out
}

func firstPart(name string) string {
	if i := strings.Index(name, ","); i >= 0 {
		return name[:i]
	}
	return name
}
