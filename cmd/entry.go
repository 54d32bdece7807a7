package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/timecalc"
)

var (
	entryDate   string
	entryIn     string
	entryOut    string
	entryFormat string
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Record and list worked time",
}

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record worked time",
	Args:  cobra.NoArgs,
	RunE:  runEntryAdd,
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded entries",
	Args:  cobra.NoArgs,
	RunE:  runEntryList,
}

func init() {
	entryAddCmd.Flags().StringVar(&entryDate, "date", "", "Day worked, YYYY-MM-DD (default today)")
	entryAddCmd.Flags().StringVar(&entryIn, "in", "", "Start time, HH:MM")
	entryAddCmd.Flags().StringVar(&entryOut, "out", "", "End time, HH:MM")
	_ = entryAddCmd.MarkFlagRequired("in")
	_ = entryAddCmd.MarkFlagRequired("out")

	entryListCmd.Flags().StringVar(&entryFormat, "format", "text", "Output format: text, csv, json")

	entryCmd.AddCommand(entryAddCmd)
	entryCmd.AddCommand(entryListCmd)
}

// validateTimes checks the date and clock flags, exiting with the usage
// error code on bad input.
func validateTimes(date, in, out string) {
	switch {
	case !timecalc.ValidDate(date):
		fmt.Fprintf(os.Stderr, "Invalid date %q, expected YYYY-MM-DD.\n", date)
	case !timecalc.ValidClock(in):
		fmt.Fprintf(os.Stderr, "Invalid start time %q, expected HH:MM.\n", in)
	case !timecalc.ValidClock(out):
		fmt.Fprintf(os.Stderr, "Invalid end time %q, expected HH:MM.\n", out)
	default:
		return
	}
	os.Exit(1)
}

func runEntryAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date := entryDate
	if date == "" {
		date = timecalc.Today(timeNow())
	}
	validateTimes(date, entryIn, entryOut)

	a := openApp(ctx)
	defer a.Close()
	requireUser(a)

	entry, err := a.Entries.Add(ctx, date, entryIn, entryOut)
	if err != nil {
		exitStorage(a, err)
	}

	fmt.Printf("Recorded %s %s–%s (%s), %s.\n",
		entry.Date, entry.TimeIn, entry.TimeOut, timecalc.FormatHours(entry.Hours), entry.Status)
	if msg := a.Entries.Engine().LastSyncError(); msg != "" {
		fmt.Fprintf(os.Stderr, "Sync failed: %s\n", msg)
	}
	return nil
}

func runEntryList(cmd *cobra.Command, args []string) error {
	a := openApp(cmd.Context())
	defer a.Close()
	requireUser(a)

	entries := a.Entries.Snapshot()
	switch entryFormat {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			fmt.Fprintln(os.Stderr, "error encoding JSON:", err)
			os.Exit(2)
		}
		fmt.Println(string(data))
	case "csv":
		printEntriesCSV(os.Stdout, entries)
	default:
		printEntries(os.Stdout, entries)
	}
	return nil
}

// printEntries groups entries by date and prints them with a total.
func printEntries(w io.Writer, entries []model.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}

	var currentDay string
	for _, e := range entries {
		if e.Date != currentDay {
			fmt.Fprintln(w, e.Date)
			currentDay = e.Date
		}
		mark := ""
		if e.Status == model.EntryPending {
			mark = "  (pending)"
		}
		fmt.Fprintf(w, "  %s–%s  %s%s\n", e.TimeIn, e.TimeOut, timecalc.FormatHours(e.Hours), mark)
	}
	fmt.Fprintf(w, "Total: %s\n", timecalc.FormatHours(timecalc.TotalHours(entries)))
}

func printEntriesCSV(w io.Writer, entries []model.Entry) {
	fmt.Fprintln(w, "id,date,time_in,time_out,hours,status,user_email")
	for _, e := range entries {
		fmt.Fprintf(w, "%s,%s,%s,%s,%.2f,%s,%s\n",
			csvEscape(e.ID),
			csvEscape(e.Date),
			csvEscape(e.TimeIn),
			csvEscape(e.TimeOut),
			e.Hours,
			csvEscape(string(e.Status)),
			csvEscape(e.UserEmail),
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
