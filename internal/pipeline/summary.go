package pipeline

import (
	"fmt"
	"time"

	"github.com/tphakala/soilnorm/internal/reflectance"
)

// JobSummary is the outcome of one job.
type JobSummary struct {
	Job            string
	RecordsWritten int
	RecordsSkipped int
	// WriteErrors counts failed documents, not records.
	WriteErrors int
	QC          reflectance.QC
	OSSLFiles   []string
	Duration    time.Duration
	// Err is set when the job was aborted.
	Err error
}

// Failed reports whether the job was aborted.
func (s JobSummary) Failed() bool {
	return s.Err != nil
}

// String renders the summary as one line.
func (s JobSummary) String() string {
	if s.Err != nil {
		return fmt.Sprintf("%s: failed: %v", s.Job, s.Err)
	}
	line := fmt.Sprintf("%s: %d written, %d skipped, %d write errors", s.Job, s.RecordsWritten, s.RecordsSkipped, s.WriteErrors)
	if n := s.QC.Total(); n > 0 {
		line += fmt.Sprintf(", %d QC flags", n)
	}
	return line
}

// ProjectSummary collects the job summaries of one run.
type ProjectSummary struct {
	Project string
	RunID   string
	Jobs    []JobSummary
}

// Failed reports whether any job was aborted.
func (p *ProjectSummary) Failed() bool {
	for _, j := range p.Jobs {
		if j.Failed() {
			return true
		}
	}
	return false
}

// Title names the project and the overall outcome.
func (p *ProjectSummary) Title() string {
	if p.Failed() {
		return fmt.Sprintf("%s finished with failed jobs", p.Project)
	}
	return fmt.Sprintf("%s finished", p.Project)
}

// Lines returns one line per job.
func (p *ProjectSummary) Lines() []string {
	lines := make([]string, 0, len(p.Jobs))
	for _, j := range p.Jobs {
		lines = append(lines, j.String())
	}
	return lines
}
