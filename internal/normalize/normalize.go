// Package normalize maps source-shaped raw job records into jobs.Job.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/job-matcher/internal/jobs"
)

var (
	// ErrMalformedRecord marks a record whose required fields cannot be recovered.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrExpiredRecord marks a posting the source flags as closed.
	ErrExpiredRecord = errors.New("expired record")
)

// RawRecord is one untyped record of the raw feed.
type RawRecord = map[string]any

type Stats struct {
	Total     int
	Kept      int
	Malformed int
	Expired   int
}

type Normalizer struct {
	gazetteer *Gazetteer
	logger    *zap.Logger
}

// New creates a normalizer resolving free-text locations against targets.
func New(targets []jobs.Location, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{gazetteer: NewGazetteer(targets), logger: logger}
}

// Normalize converts one raw record. ref is the record index in the feed.
func (n *Normalizer) Normalize(ref int, raw RawRecord) (*jobs.Job, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrMalformedRecord)
	}

	var (
		f   fields
		err error
	)
	switch detectVariant(raw) {
	case variantHiringCafe:
		f, err = fromHiringCafe(raw)
	default:
		f, err = fromFlat(raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	if f.expired {
		return nil, ErrExpiredRecord
	}

	job, err := n.build(f)
	if err != nil {
		return nil, err
	}
	job.RawRef = ref
	return job, nil
}

// NormalizeAll converts every record, skipping and logging the ones that fail.
func (n *Normalizer) NormalizeAll(records []RawRecord) ([]*jobs.Job, Stats) {
	stats := Stats{Total: len(records)}
	out := make([]*jobs.Job, 0, len(records))

	for i, raw := range records {
		job, err := n.Normalize(i, raw)
		switch {
		case errors.Is(err, ErrExpiredRecord):
			stats.Expired++
			n.logger.Debug("skipping expired record", zap.Int("raw_ref", i))
			continue
		case err != nil:
			stats.Malformed++
			n.logger.Warn("skipping malformed record", zap.Int("raw_ref", i), zap.Error(err))
			continue
		}
		out = append(out, job)
	}

	stats.Kept = len(out)
	n.logger.Info("normalized records",
		zap.Int("total", stats.Total),
		zap.Int("kept", stats.Kept),
		zap.Int("malformed", stats.Malformed),
		zap.Int("expired", stats.Expired),
	)
	return out, stats
}

func (n *Normalizer) build(f fields) (*jobs.Job, error) {
	title := CleanText(f.title)
	company := CleanText(f.company)
	switch {
	case title == "":
		return nil, fmt.Errorf("%w: missing title", ErrMalformedRecord)
	case company == "":
		return nil, fmt.Errorf("%w: missing company", ErrMalformedRecord)
	}

	description := f.description
	if looksLikeHTML(description) {
		description = HTMLToText(description)
	} else {
		description = strings.TrimSpace(description)
	}

	job := &jobs.Job{
		SourceID:        f.sourceID,
		Title:           title,
		Company:         company,
		Locations:       n.gazetteer.ResolveAll(f.locations, f.coordinates),
		WorkplaceType:   Workplace(f.workplace),
		CommitmentType:  Commitment(f.commitment),
		ExperienceLevel: Experience(f.experience),
		PostedAt:        ParseDate(f.postedAt),
		Description:     description,
		ApplyURL:        strings.TrimSpace(f.applyURL),
		Skills:          cleanList(f.skills),
		EducationLevels: cleanList(f.education),
	}

	if job.WorkplaceType == "" {
		job.WorkplaceType = InferWorkplace(strings.Join(f.locations, " "), title)
	}

	if years, ok := parseAmount(f.minYears); ok && years >= 0 {
		job.MinYearsExperience = jobs.IntPtr(int(years))
	}

	job.SalaryMin, job.SalaryMax = AnnualRange(f.salaryMin, f.salaryMax, f.salaryText, f.salaryPeriod)
	if job.SalaryMin != nil || job.SalaryMax != nil {
		job.SalaryCurrency = f.currency
		if job.SalaryCurrency == "" {
			job.SalaryCurrency = currencyFromText(f.salaryText)
		}
	}

	job.ID = jobs.MakeID(job.Company, job.Title, job.PrimaryLocation(), job.PostedAt)
	return job, nil
}

func decode(raw RawRecord, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = CleanText(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstValue(values ...any) any {
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return v
	}
	return nil
}
