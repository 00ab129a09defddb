package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/soilnorm/cmd/process"
	"github.com/tphakala/soilnorm/cmd/whiteref"
	"github.com/tphakala/soilnorm/internal/buildinfo"
	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/logger"
	"github.com/tphakala/soilnorm/internal/telemetry"
)

// RootCommand creates and returns the root command
func RootCommand() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:          "soilnorm",
		Short:        "Normalize soil sampling data into AI4SH, xspectre and OSSL outputs",
		Version:      buildinfo.Current().String(),
		SilenceUsage: true,
	}

	setupFlags(rootCmd, &configFile)

	rootCmd.AddCommand(process.Command(), whiteref.Command())

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initialize(configFile)
	}

	return rootCmd
}

// initialize loads settings after flags are parsed and sets up logging and
// telemetry for the subcommands.
func initialize(configFile string) error {
	if configFile != "" {
		conf.SetConfigFile(configFile)
	}
	settings, err := conf.Load()
	if err != nil {
		return err
	}

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)

	return telemetry.Init(settings, buildinfo.Version)
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, configFile *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(configFile, "config", "", "Path to config.yaml (default ./config.yaml or ~/.config/soilnorm/config.yaml)")
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.CountP("verbose", "v", "Increase diagnostic output, repeat for more")
	flags.Bool("overwrite", false, "Remove existing ai4sh, xspectre and ossl output of a job before writing")
	flags.String("output", "", "Destination root replacing the parent of every job dst")

	bind := map[string]string{
		"debug":            "debug",
		"verbose":          "verbose",
		"output.overwrite": "overwrite",
		"output.root":      "output",
	}
	for key, flag := range bind {
		// Lookup cannot fail for flags defined above
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}
