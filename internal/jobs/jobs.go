package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Jobs struct {
	Items []*Job
}

func New(items []*Job) *Jobs {
	return &Jobs{Items: items}
}

func (j *Jobs) Len() int {
	return len(j.Items)
}

func (j *Jobs) IDs() []string {
	ids := make([]string, 0, len(j.Items))
	for _, job := range j.Items {
		ids = append(ids, job.ID)
	}
	return ids
}

// Keep retains the jobs accepted by keep, preserving order, and returns ids
// of the dropped ones.
func (j *Jobs) Keep(keep func(*Job) bool) []string {
	var dropped []string
	kept := j.Items[:0:0]
	for _, job := range j.Items {
		if keep(job) {
			kept = append(kept, job)
			continue
		}
		dropped = append(dropped, job.ID)
	}
	j.Items = kept
	return dropped
}

// Clone returns a shallow copy of the list; jobs themselves are shared.
func (j *Jobs) Clone() *Jobs {
	items := make([]*Job, len(j.Items))
	copy(items, j.Items)
	return &Jobs{Items: items}
}

// ToFile writes the jobs as an indented JSON array, creating parent dirs.
func (j *Jobs) ToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	items := j.Items
	if items == nil {
		items = []*Job{}
	}

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("encode jobs: %w", err)
	}
	return nil
}

func FromFile(path string) (*Jobs, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &Jobs{}, nil
	}

	var items []*Job
	if err := json.NewDecoder(file).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode jobs from %s: %w", path, err)
	}
	return &Jobs{Items: items}, nil
}

// ReportByCompany groups jobs by company for a quick overview.
func (j *Jobs) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range j.Items {
		entry := map[string]string{
			"title":    job.Title,
			"url":      job.ApplyURL,
			"location": job.PrimaryLocation(),
		}
		if min, max := job.SalaryMin, job.SalaryMax; min != nil || max != nil {
			entry["salary"] = formatRange(min, max, job.SalaryCurrency)
		}
		if job.Score != nil {
			entry["score"] = fmt.Sprintf("%.1f", job.Score.Total)
		}
		report[job.Company] = append(report[job.Company], entry)
	}
	return report
}

func formatRange(min, max *int, currency string) string {
	value := func(v *int) string {
		if v == nil {
			return "?"
		}
		return fmt.Sprintf("%d", *v)
	}
	if currency == "" {
		return fmt.Sprintf("%s-%s", value(min), value(max))
	}
	return fmt.Sprintf("%s-%s %s", value(min), value(max), currency)
}
