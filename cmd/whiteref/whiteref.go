package whiteref

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/tphakala/soilnorm/internal/conf"
	"github.com/tphakala/soilnorm/internal/pipeline"
)

// Command creates the whiteref command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "whiteref [dir]",
		Short: "Print overall white reference statistics for a folder of device files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := pipeline.InspectWhiteReferences(afero.NewOsFs(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.String())
			if conf.Setting().Verbose > 1 {
				for _, f := range report.Files {
					fmt.Fprintln(out, "  "+f)
				}
			}
			return nil
		},
	}
}
