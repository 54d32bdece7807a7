package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/fieldtime/internal/timecalc"
)

// timeNow is replaced in tests.
var timeNow = time.Now

var hoursCmd = &cobra.Command{
	Use:     "hours <date> <in> <out>",
	Short:   "Compute the hours between two clock times",
	Example: "  fieldtime hours 2026-02-27 22:00 06:00",
	Args:    cobra.ExactArgs(3),
	RunE:    runHours,
}

func runHours(cmd *cobra.Command, args []string) error {
	validateTimes(args[0], args[1], args[2])
	hours := timecalc.CalculateHours(args[0], args[1], args[2])
	fmt.Fprintf(cmd.OutOrStdout(), "%.2f (%s)\n", hours, timecalc.FormatHours(hours))
	return nil
}
