// Package pipeline runs the jobs of a project: it discovers the input files,
// normalizes them into records, and writes the AI4SH and xspectre documents
// and the OSSL spectral library rows.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/lookup"
	"github.com/tphakala/soilnorm/internal/normalize"
	"github.com/tphakala/soilnorm/internal/observability/metrics"
	"github.com/tphakala/soilnorm/internal/ossl"
	"github.com/tphakala/soilnorm/internal/output"
	"github.com/tphakala/soilnorm/internal/record"
	"github.com/tphakala/soilnorm/internal/reflectance"
	"github.com/tphakala/soilnorm/internal/schema"
)

// WetlabOSSLPrefix starts the OSSL file names of lab tables.
const WetlabOSSLPrefix = "ai4sh"

// Options configures a Runner. Zero values get working defaults: the OS
// filesystem, a stdout console at the settings verbosity and no metrics.
type Options struct {
	Fs       afero.Fs
	Console  *logger.Console
	Metrics  metrics.Recorder
	Cache    *lookup.Cache
	Settings *conf.Settings
}

// Runner runs jobs. It is not safe for concurrent use.
type Runner struct {
	fs       afero.Fs
	console  *logger.Console
	metrics  metrics.Recorder
	cache    *lookup.Cache
	settings *conf.Settings
	log      logger.Logger
}

// NewRunner returns a Runner. Settings are required.
func NewRunner(opts Options) *Runner {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Console == nil {
		opts.Console = logger.NewConsole(nil, opts.Settings.Verbose, logger.Global().Module("console"))
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoOpRecorder{}
	}
	if opts.Cache == nil {
		opts.Cache = lookup.NewCache(opts.Fs)
	}
	return &Runner{
		fs:       opts.Fs,
		console:  opts.Console,
		metrics:  opts.Metrics,
		cache:    opts.Cache,
		settings: opts.Settings,
		log:      logger.Global().Module("pipeline"),
	}
}

// RunProject runs the enabled jobs of p in order, or only the job named
// only when it is not empty. A job that fails is reported in its summary
// and the next job still runs. Only cancellation stops the project early.
func (r *Runner) RunProject(ctx context.Context, p *conf.Project, only string) (*ProjectSummary, error) {
	runID := uuid.New().String()
	ctx = logger.WithTraceID(ctx, runID)
	log := r.log.WithContext(ctx)

	summary := &ProjectSummary{Project: p.Name, RunID: runID}
	if only != "" {
		if _, ok := p.Job(only); !ok {
			return summary, errors.Newf("project %s has no job named %s", p.Name, only).
				Component("pipeline").
				Category(errors.CategoryConfiguration).
				Build()
		}
	}

	log.Info("project started", logger.String("project", p.Name), logger.Int("jobs", len(p.Jobs)))
	for i := range p.Jobs {
		job := &p.Jobs[i]
		if only != "" && job.Name != only {
			continue
		}
		if only == "" && !job.IsEnabled() {
			log.Debug("job disabled", logger.String("job", job.Name))
			continue
		}

		js, err := r.RunJob(ctx, p, job)
		summary.Jobs = append(summary.Jobs, js)
		if err != nil && errors.IsCategory(err, errors.CategoryCancellation) {
			return summary, err
		}
	}
	log.Info("project finished", logger.String("project", p.Name), logger.Bool("failed", summary.Failed()))
	return summary, nil
}

// RunJob runs one job. The returned error is also stored in the summary.
func (r *Runner) RunJob(ctx context.Context, p *conf.Project, job *conf.Job) (JobSummary, error) {
	start := time.Now()
	js := JobSummary{Job: job.Name}
	log := r.log.WithContext(ctx).With(logger.String("job", job.Name))

	err := r.runJob(ctx, p, job, &js, log)
	js.Duration = time.Since(start)
	r.metrics.ObserveJobDuration(job.Name, js.Duration.Seconds())
	for _, f := range js.QC.Flags() {
		r.metrics.RecordQC(job.Name, f.Name, f.Count)
	}

	if err != nil {
		js.Err = err
		if !errors.IsCategory(err, errors.CategoryCancellation) {
			r.console.Errorf("job %s aborted: %v", job.Name, err)
		}
		log.Error("job aborted", logger.Error(err), logger.Duration("duration", js.Duration))
		return js, err
	}
	log.Info("job finished",
		logger.Int("written", js.RecordsWritten),
		logger.Int("skipped", js.RecordsSkipped),
		logger.Int("write_errors", js.WriteErrors),
		logger.Int("qc_flags", js.QC.Total()),
		logger.Duration("duration", js.Duration))
	return js, nil
}

func (r *Runner) runJob(ctx context.Context, p *conf.Project, job *conf.Job, js *JobSummary, log logger.Logger) error {
	if err := job.Validate(); err != nil {
		return err
	}

	layout := output.NewLayout(r.fs, r.destination(job))
	if r.settings.Output.Overwrite {
		if err := layout.Clean(); err != nil {
			return err
		}
	}

	nctx, deps, err := r.setup(p, job)
	if err != nil {
		return err
	}

	inputs, err := Discover(r.fs, job.DataSrc, job.Format)
	if err != nil {
		return err
	}
	if len(inputs.Data) == 0 {
		r.console.Warnf("no %s files found in %s", Extension(job.Format), job.DataSrc)
	}
	log.Debug("inputs discovered", logger.Int("files", len(inputs.Data)), logger.Int("white_references", len(inputs.WhiteReferences)))

	if job.Format == conf.FormatXspectreJSON && job.Spectral() {
		pool, err := normalize.LoadReferencePool(nctx, inputs.WhiteReferences)
		if err != nil {
			return err
		}
		deps.References = pool
	}

	n, err := normalize.New(nctx, deps)
	if err != nil {
		return err
	}

	e := &emitter{
		r:        r,
		job:      job,
		js:       js,
		writer:   output.NewWriter(r.fs, layout, r.console),
		exporter: ossl.NewExporter(r.fs, layout),
		xopts:    schema.XspectreOptions{ExtendedMetadata: r.settings.Output.ExtendedMetadata},
	}
	prefix := WetlabOSSLPrefix
	if s, ok := n.(*normalize.Spectral); ok {
		inst := s.Instrument()
		e.grid = &inst.Grid
		prefix = inst.OSSLPrefix
	}

	for _, path := range inputs.Data {
		if err := ctx.Err(); err != nil {
			return cancelled(err)
		}
		b, err := n.Normalize(ctx, path)
		if b != nil {
			r.collect(e, b)
		}
		if err == nil {
			continue
		}
		if errors.IsFatal(err) || errors.IsCategory(err, errors.CategoryCancellation) {
			return err
		}
		// the file could not be read; the other files still run
		r.console.Errorf("%v (%s)", err, filepath.Base(path))
		js.RecordsSkipped++
		r.metrics.RecordRecord(job.Name, metrics.StatusSkipped)
	}

	if r.settings.Output.OSSL && e.exporter.Rows() > 0 {
		files, err := e.exporter.Flush(prefix)
		js.OSSLFiles = files
		for _, f := range files {
			r.console.Successf("OSSL csv created successfully: %s", f)
		}
		if err != nil {
			js.WriteErrors++
			r.console.Errorf("%v", err)
		}
	}
	return nil
}

// setup loads the lookups of job and builds the normalization context.
func (r *Runner) setup(p *conf.Project, job *conf.Job) (*normalize.Context, normalize.Dependencies, error) {
	deps := normalize.Dependencies{
		Reflectance: normalize.ReflectanceOptions{
			Strategy: r.settings.Reflectance.WhiteReference,
			Compute: reflectance.Options{
				Sentinel:     r.settings.Reflectance.Sentinel,
				CheckLengths: r.settings.Reflectance.CheckWavelengths,
			},
		},
	}

	if job.CoordinatesSrc == "" {
		return nil, deps, errors.Newf("job %s has no coordinates_src", job.Name).
			Component("pipeline").
			Category(errors.CategoryJobSetup).
			Build()
	}
	coords, err := r.cache.CoordinateTable(job.CoordinatesSrc, job.CoordinateKey)
	if err != nil {
		return nil, deps, err
	}
	if job.MethodSrc != "" {
		deps.Methods, err = r.cache.MethodTable(job.MethodSrc)
		if err != nil {
			return nil, deps, err
		}
	}

	nctx := normalize.NewContext(r.fs, job, r.console, record.Options{
		Coordinates:     coords,
		CoordinatesSrc:  job.CoordinatesSrc,
		ProjectFile:     p.Path(),
		CheckDepthOrder: r.settings.Reflectance.CheckDepthOrder,
	})
	return nctx, deps, nil
}

// destination is the job dst, moved under the output root when one is set.
func (r *Runner) destination(job *conf.Job) string {
	if r.settings.Output.Root == "" {
		return job.Dst
	}
	return filepath.Join(r.settings.Output.Root, job.Method())
}

func (r *Runner) collect(e *emitter, b *normalize.Batch) {
	for range b.Skipped {
		e.js.RecordsSkipped++
		r.metrics.RecordRecord(e.job.Name, metrics.StatusSkipped)
	}
	for _, rec := range b.Records {
		e.emit(rec)
	}
}

func cancelled(err error) error {
	return errors.New(err).
		Component("pipeline").
		Category(errors.CategoryCancellation).
		Build()
}
