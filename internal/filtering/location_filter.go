package filtering

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/job-matcher/internal/jobs"
	"github.com/spigell/job-matcher/internal/search"
)

const (
	DefaultRadiusKM = 50.0
	earthRadiusKM   = 6371.0
	// Address parts this short ("ON", "US") are too ambiguous for substring matching.
	minAddressPartLen = 3
)

type locationFilter struct {
	gate
	targets     []jobs.Location
	allowRemote bool
}

// NewLocation creates a filter keeping jobs located near any target location.
// Remote jobs bypass it when remote work is allowed.
func NewLocation(targets []jobs.Location, allowRemote bool) Filter {
	return &locationFilter{
		gate:        newGate("location", len(targets) > 0),
		targets:     targets,
		allowRemote: allowRemote,
	}
}

func (f *locationFilter) Validate() error { return nil }

func (f *locationFilter) Apply(_ context.Context, v *jobs.Jobs) (*jobs.Jobs, Step, error) {
	next, step := keepStep(v, f.matches)
	return next, step, nil
}

func (f *locationFilter) matches(job *jobs.Job) bool {
	if f.allowRemote && job.WorkplaceType == jobs.WorkplaceRemote {
		return true
	}

	for _, loc := range job.Locations {
		for _, target := range f.targets {
			if LocationMatches(loc, target) {
				return true
			}
		}
	}
	return false
}

func (f *locationFilter) Status() Status {
	names := make([]string, 0, len(f.targets))
	for _, t := range f.targets {
		names = append(names, t.Name)
	}
	return f.status(map[string]string{
		"targets":      strings.Join(names, "; "),
		"allow_remote": strconv.FormatBool(f.allowRemote),
	})
}

// LocationMatches compares by distance when both sides carry coordinates and
// falls back to matching address parts of the target inside the job location name.
func LocationMatches(job, target jobs.Location) bool {
	if job.HasCoordinates() && target.HasCoordinates() {
		radius := target.RadiusKM
		if radius <= 0 {
			radius = DefaultRadiusKM
		}
		return DistanceKM(*job.Coordinates, *target.Coordinates) <= radius
	}

	name := strings.ToLower(job.Name)
	if name == "" {
		return false
	}
	for _, part := range strings.Split(strings.ToLower(target.Name), ",") {
		part = strings.TrimSpace(part)
		if len(part) >= minAddressPartLen && strings.Contains(name, part) {
			return true
		}
	}
	return false
}

// DistanceKM is the great-circle (haversine) distance between two points.
func DistanceKM(a, b jobs.Coordinates) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(b.Lat - a.Lat)
	dLon := rad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// allowsRemote treats unset workplace types as a wildcard, Remote included.
func allowsRemote(filters *search.Filters) bool {
	return len(filters.WorkplaceTypes) == 0 || filters.AllowsWorkplace(jobs.WorkplaceRemote)
}
