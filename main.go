package main

import (
	"os"

	"github.com/tphakala/soilnorm/cmd"
	"github.com/tphakala/soilnorm/internal/telemetry"
)

func main() {
	err := cmd.RootCommand().Execute()
	telemetry.Shutdown()
	if err != nil {
		os.Exit(1)
	}
}
