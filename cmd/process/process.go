package process

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/errors"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/notification"
	"github.com/tphakala/soilnorm/internal/observability"
	"github.com/tphakala/soilnorm/internal/observability/metrics"
	"github.com/tphakala/soilnorm/internal/pipeline"
)

// Command creates the process command running the jobs of a project file.
func Command() *cobra.Command {
	var job string

	cmd := &cobra.Command{
		Use:   "process [project.yaml]",
		Short: "Run the jobs of a project file",
		Long: `Normalize every enabled job of a project file. Records are written as
AI4SH and xspectre JSON documents and, for spectra and lab tables, as OSSL
CSV rows. A failing job is reported and the next job still runs.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], job)
		},
	}

	cmd.Flags().StringVarP(&job, "job", "j", "", "Run only the named job, even when disabled")

	return cmd
}

func run(cmd *cobra.Command, projectPath, job string) error {
	settings := conf.Setting()
	log := logger.Global().Module("process")
	fs := afero.NewOsFs()

	project, err := conf.LoadProject(fs, projectPath)
	if err != nil {
		return err
	}

	var recorder metrics.Recorder = metrics.NoOpRecorder{}
	var m *observability.Metrics
	if settings.Metrics.Enabled {
		m, err = observability.NewMetrics()
		if err != nil {
			return err
		}
		m.CountErrors()
		recorder = m.Pipeline
	}

	runner := pipeline.NewRunner(pipeline.Options{
		Fs:       fs,
		Console:  logger.NewConsole(cmd.OutOrStdout(), settings.Verbose, logger.Global().Module("console")),
		Metrics:  recorder,
		Settings: settings,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := runner.RunProject(ctx, project, job)
	for _, line := range summary.Lines() {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}

	if m != nil {
		if err := m.WriteTextfile(settings.Metrics.Textfile); err != nil {
			log.Error("failed to write metrics", logger.Error(err))
		}
	}

	notifier, err := notification.NewNotifier(settings.Notification)
	if err != nil {
		log.Error("notifications disabled", logger.Error(err))
	} else if err := notifier.Send(ctx, summary); err != nil {
		log.Warn("failed to send run summary", logger.Error(err))
	}

	if runErr != nil {
		return runErr
	}
	if summary.Failed() {
		return errors.Newf("project %s: one or more jobs failed", project.Name).
			Component("process").
			Category(errors.CategoryJobSetup).
			Build()
	}
	return nil
}
