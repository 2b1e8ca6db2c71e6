package pipeline

import "path/filepath"

const (
	DefaultWorkDir   = ".tmp"
	DefaultOutputDir = "output"

	ParsedFile   = "parsed_jobs.json"
	ScoredFile   = "scored_jobs.json"
	SelectedFile = "selected_jobs.json"
	ProgressFile = "progress.db"
)

// Paths locates run artifacts. WorkDir holds intermediate files, OutputDir the
// user-facing report and documents.
type Paths struct {
	WorkDir   string
	OutputDir string
}

func (p Paths) withDefaults() Paths {
	if p.WorkDir == "" {
		p.WorkDir = DefaultWorkDir
	}
	if p.OutputDir == "" {
		p.OutputDir = DefaultOutputDir
	}
	return p
}

func (p Paths) Parsed() string   { return filepath.Join(p.WorkDir, ParsedFile) }
func (p Paths) Scored() string   { return filepath.Join(p.WorkDir, ScoredFile) }
func (p Paths) Selected() string { return filepath.Join(p.WorkDir, SelectedFile) }
func (p Paths) Progress() string { return filepath.Join(p.WorkDir, ProgressFile) }
