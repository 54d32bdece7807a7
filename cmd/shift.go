package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/timecalc"
)

var (
	shiftDate  string
	shiftIn    string
	shiftOut   string
	shiftToday bool
)

var shiftCmd = &cobra.Command{
	Use:   "shift",
	Short: "Plan, list and confirm shifts",
}

var shiftAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Plan a shift",
	Args:  cobra.NoArgs,
	RunE:  runShiftAdd,
}

var shiftListCmd = &cobra.Command{
	Use:   "list",
	Short: "List planned and confirmed shifts",
	Args:  cobra.NoArgs,
	RunE:  runShiftList,
}

var shiftConfirmCmd = &cobra.Command{
	Use:   "confirm <id>",
	Short: "Confirm a planned shift as worked and record its hours",
	Args:  cobra.ExactArgs(1),
	RunE:  runShiftConfirm,
}

func init() {
	shiftAddCmd.Flags().StringVar(&shiftDate, "date", "", "Day of the shift, YYYY-MM-DD")
	shiftAddCmd.Flags().StringVar(&shiftIn, "in", "", "Start time, HH:MM")
	shiftAddCmd.Flags().StringVar(&shiftOut, "out", "", "End time, HH:MM")
	_ = shiftAddCmd.MarkFlagRequired("date")
	_ = shiftAddCmd.MarkFlagRequired("in")
	_ = shiftAddCmd.MarkFlagRequired("out")

	shiftListCmd.Flags().BoolVar(&shiftToday, "today", false, "Only shifts still planned for today")

	shiftCmd.AddCommand(shiftAddCmd)
	shiftCmd.AddCommand(shiftListCmd)
	shiftCmd.AddCommand(shiftConfirmCmd)
}

func runShiftAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	validateTimes(shiftDate, shiftIn, shiftOut)

	a := openApp(ctx)
	defer a.Close()
	requireUser(a)

	shift, err := a.Shifts.Add(ctx, shiftDate, shiftIn, shiftOut)
	if err != nil {
		exitStorage(a, err)
	}

	state := "not synced yet"
	if shift.Synced {
		state = "synced"
	}
	fmt.Printf("Planned shift %s on %s %s–%s (%s).\n", shift.ID, shift.Date, shift.TimeIn, shift.TimeOut, state)
	if msg := a.Shifts.Engine().LastSyncError(); msg != "" {
		fmt.Fprintf(os.Stderr, "Sync failed: %s\n", msg)
	}
	return nil
}

func runShiftList(cmd *cobra.Command, args []string) error {
	a := openApp(cmd.Context())
	defer a.Close()
	requireUser(a)

	shifts := a.Shifts.Snapshot()
	if shiftToday {
		shifts = a.Shifts.Today(timeNow())
	}
	printShifts(os.Stdout, shifts)
	return nil
}

func printShifts(w io.Writer, shifts []model.Shift) {
	if len(shifts) == 0 {
		fmt.Fprintln(w, "No shifts found.")
		return
	}
	for _, s := range shifts {
		sync := ""
		if !s.Synced {
			sync = "  (not synced)"
		}
		fmt.Fprintf(w, "%s  %s %s–%s  %-9s (%s)%s\n",
			s.ID, s.Date, s.TimeIn, s.TimeOut, s.Status,
			timecalc.FormatHours(timecalc.CalculateHours(s.Date, s.TimeIn, s.TimeOut)), sync)
	}
}

func runShiftConfirm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()
	requireUser(a)

	id := args[0]
	if _, ok := a.Shifts.Find(id); !ok {
		fmt.Fprintf(os.Stderr, "No shift with id %q.\n", id)
		_ = a.Close()
		os.Exit(1)
	}

	draft, syncErr := a.Shifts.Confirm(ctx, id)
	if draft == nil {
		if syncErr != nil {
			exitStorage(a, syncErr)
		}
		fmt.Printf("Shift %s is already confirmed.\n", id)
		return nil
	}

	// The confirmation is saved; record its hours even if the shift sync failed.
	entry, err := a.Entries.AddDraft(ctx, *draft)
	if err != nil {
		exitStorage(a, err)
	}
	fmt.Printf("Confirmed shift %s. Recorded %s on %s, %s.\n",
		id, timecalc.FormatHours(entry.Hours), entry.Date, entry.Status)
	if syncErr != nil {
		exitStorage(a, syncErr)
	}
	return nil
}
