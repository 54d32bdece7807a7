package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/fieldtime/internal/timecalc"
)

var reportFormat string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show hours worked per day this week",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

type weekReport struct {
	Week  string      `json:"week"`
	Days  []dayReport `json:"days"`
	Total float64     `json:"total_hours"`
}

type dayReport struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

func runReport(cmd *cobra.Command, args []string) error {
	a := openApp(cmd.Context())
	defer a.Close()
	requireUser(a)

	now := timeNow()
	from, to := timecalc.WeekRange(now)
	dates, totals := timecalc.HoursByDate(a.Entries.Snapshot(), from, to)

	r := weekReport{Week: timecalc.ISOWeekLabel(now), Days: []dayReport{}}
	for _, d := range dates {
		r.Days = append(r.Days, dayReport{Date: d, Hours: totals[d]})
		r.Total += totals[d]
	}
	r.Total = math.Round(r.Total*100) / 100
	return printReport(os.Stdout, r, reportFormat)
}

func printReport(w io.Writer, r weekReport, format string) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "date,hours")
		for _, d := range r.Days {
			fmt.Fprintf(w, "%s,%.2f\n", d.Date, d.Hours)
		}
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	default: // md
		fmt.Fprintf(w, "Week %s\n", r.Week)
		fmt.Fprintln(w, "--------------------------------")
		for _, d := range r.Days {
			fmt.Fprintf(w, "%-20s%s\n", d.Date, timecalc.FormatHours(d.Hours))
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%s\n", "Total", timecalc.FormatHours(r.Total))
	}
	return nil
}
