package ranking

import (
	"reflect"
	"testing"
	"time"

	"github.com/spigell/job-matcher/internal/jobs"
)

var day = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

func scored(id string, total float64, posted time.Time) *jobs.Job {
	return &jobs.Job{ID: id, PostedAt: posted, Score: &jobs.ScoreBreakdown{Total: total}}
}

func ids(list []*jobs.Job) []string {
	out := make([]string, 0, len(list))
	for _, j := range list {
		out = append(out, j.ID)
	}
	return out
}

func TestRank(t *testing.T) {
	t.Parallel()

	input := []*jobs.Job{
		scored("low", 40, day),
		{ID: "unscored-old", PostedAt: day.AddDate(0, 0, -3)},
		scored("tie-old", 70, day.AddDate(0, 0, -1)),
		scored("tie-new", 70, day),
		{ID: "unscored-new", PostedAt: day},
		scored("tie-new-second", 70, day),
		scored("top", 90, time.Time{}),
	}

	got := ids(Rank(input))
	want := []string{"top", "tie-new", "tie-new-second", "tie-old", "low", "unscored-new", "unscored-old"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if input[0].ID != "low" {
		t.Fatalf("input order must be preserved")
	}
}

func TestRankUnscoredByRecency(t *testing.T) {
	t.Parallel()

	input := []*jobs.Job{
		{ID: "a", PostedAt: day.AddDate(0, 0, -10)},
		{ID: "b"},
		{ID: "c", PostedAt: day},
		{ID: "d"},
	}

	got := ids(Rank(input))
	want := []string{"c", "a", "b", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSelect(t *testing.T) {
	t.Parallel()

	ranked := Rank([]*jobs.Job{
		scored("a", 80, day),
		scored("b", 50, day),
		scored("c", 34.9, day),
		{ID: "d"},
	})

	tests := []struct {
		name   string
		opts   Options
		expect []string
	}{
		{"threshold only", Options{Threshold: 35}, []string{"a", "b", "d"}},
		{"threshold and cap", Options{Threshold: 35, TopN: 2}, []string{"a", "b"}},
		{"no gate", Options{}, []string{"a", "b", "c", "d"}},
		{"cap above size", Options{TopN: 10}, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ids(Select(ranked, tt.opts)); !reflect.DeepEqual(got, tt.expect) {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}
