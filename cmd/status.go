package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the signed-in user, sync state and pending work",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a := openApp(cmd.Context())
	defer a.Close()

	user := a.Users.Current()
	if user == nil {
		fmt.Println("Not signed in.")
		return nil
	}
	role := ""
	if a.Users.IsAdmin() {
		role = " (admin)"
	}
	fmt.Printf("User: %s %s%s\n", user.ID, user.Email, role)

	switch {
	case !a.SyncEnabled():
		fmt.Println("Remote: not configured")
	case offline:
		fmt.Printf("Remote: %s (offline)\n", a.Config.Remote.Backend)
	default:
		fmt.Printf("Remote: %s\n", a.Config.Remote.Backend)
	}

	entries := a.Entries.Snapshot()
	pendingEntries := 0
	for _, e := range entries {
		if e.Status == model.EntryPending {
			pendingEntries++
		}
	}
	shifts := a.Shifts.Snapshot()
	unsynced := 0
	for _, s := range shifts {
		if s.Status == model.ShiftPlanned && !s.Synced {
			unsynced++
		}
	}

	fmt.Printf("Entries: %d (%d pending), %s total\n", len(entries), pendingEntries, timecalc.FormatHours(a.Entries.TotalHours()))
	fmt.Printf("Shifts: %d (%d not synced), %d planned today\n", len(shifts), unsynced, len(a.Shifts.Today(timeNow())))
	return nil
}
