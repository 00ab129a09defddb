// Package normalize turns the rows and files of one job into finalized
// records. There is one normalizer per input format; each runs the name
// parsers and record finalization and leaves schema assembly to the caller.
package normalize

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/naming"
	"github.com/tphakala/soilnorm/internal/record"
)

// Context is the job state shared by the normalizers. It is built once per
// job and not modified while records are produced.
type Context struct {
	Fs      afero.Fs
	Job     *conf.Job
	Console *logger.Console
	// Finalize carries the job defaults and the coordinate table.
	Finalize record.Options
}

// NewContext collects the job defaults for finalization. Assumed defaults
// are announced on the console once per job.
func NewContext(fs afero.Fs, job *conf.Job, console *logger.Console, opts record.Options) *Context {
	if opts.Defaults == nil {
		opts.Defaults = record.JobDefaults(job, console)
	}
	return &Context{Fs: fs, Job: job, Console: console, Finalize: opts}
}

// Skip is a record that could not be normalized.
type Skip struct {
	Source string
	Sample string
	Err    error
}

// Batch is what one input file produced.
type Batch struct {
	Records []*record.Record
	Skipped []Skip
}

// Normalizer reads one input file. Errors that invalidate the whole job are
// returned; per-record problems are logged and collected in Batch.Skipped.
type Normalizer interface {
	Normalize(ctx context.Context, path string) (*Batch, error)
}

// New returns the normalizer for the job's format. Format specific setup
// such as method table distillation happens on the first file.
func New(c *Context, deps Dependencies) (Normalizer, error) {
	switch c.Job.Format {
	case conf.FormatAI4SHCSV:
		return NewTabular(c, deps.Methods)
	case conf.FormatDS2500CSV:
		return NewSpectral(c, DS2500)
	case conf.FormatNeoSpectraCSV:
		return NewSpectral(c, NeoSpectra)
	case conf.FormatXspectreJSON:
		return NewDevice(c, deps.References, deps.Reflectance)
	}
	return nil, errors.Newf("no normalizer for format %q", c.Job.Format).
		Component("normalize").
		Category(errors.CategoryJobSetup).
		Build()
}

// finish finalizes f and logs the outcome. A nil record means the input was
// skipped.
func (c *Context) finish(b *Batch, source, sample string, f record.Fields) *record.Record {
	rec, err := record.Finalize(f, c.Finalize)
	if err != nil {
		c.skip(b, source, sample, err)
		return nil
	}
	rec.Source = source
	return rec
}

// skip logs a per-record failure and records it in b.
func (c *Context) skip(b *Batch, source, sample string, err error) {
	switch {
	case errors.Is(err, record.ErrNoSubsample):
		c.Console.Warnf("Skipping sample <%s> as subsample is set to None", sample)
	case errors.Is(err, naming.ErrNotASample):
		c.Console.Warnf("Skipping %s: %v", filepath.Base(source), err)
	default:
		c.Console.Errorf("%v (%s)", err, filepath.Base(source))
	}
	b.Skipped = append(b.Skipped, Skip{Source: source, Sample: sample, Err: err})
}

// parseName runs the site parser and merges its fields over f.
func parseName(p naming.NameParser, in naming.Input, f record.Fields) error {
	parsed, err := p.Parse(in)
	if err != nil {
		return err
	}
	for k, v := range parsed {
		f[k] = v
	}
	return nil
}

// dashed lower-cases s and replaces spaces with dashes.
func dashed(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.New(err).
			Component("normalize").
			Category(errors.CategoryCancellation).
			Build()
	}
	return nil
}
