// Command edrota builds a resident call schedule from a resident table and
// a weekly shift template, then writes it out as CSV.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiban/edrota/internal/config"
	"github.com/paiban/edrota/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:           "edrota",
		Short:         "Resident call schedule builder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(scheduleCmd(cfg))

	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
