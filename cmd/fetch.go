package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/fieldtime/internal/remote"
)

var fetchAllCmd = &cobra.Command{
	Use:   "fetch-all",
	Short: "Show every user's entries and shifts from the remote store (admin only)",
	Args:  cobra.NoArgs,
	RunE:  runFetchAll,
}

func runFetchAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()
	requireUser(a)

	if !a.Users.IsAdmin() {
		fmt.Fprintln(os.Stderr, "fetch-all is restricted to the admin account.")
		_ = a.Close()
		os.Exit(1)
	}
	if !a.SyncEnabled() {
		fmt.Fprintln(os.Stderr, "fetch-all:", remote.ErrNotConfigured)
		_ = a.Close()
		os.Exit(1)
	}
	if offline {
		fmt.Fprintln(os.Stderr, "fetch-all needs the remote store; drop --offline.")
		_ = a.Close()
		os.Exit(1)
	}

	// Push local work first so the listing includes it.
	if _, _, err := syncOnce(ctx, a); err != nil {
		exitStorage(a, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Entries.FetchAll(gctx) })
	g.Go(func() error { return a.Shifts.FetchAll(gctx) })
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Fetching from the remote store failed: %v\n", err)
		_ = a.Close()
		os.Exit(2)
	}

	entries := a.Entries.Snapshot()
	byUser := map[string]int{}
	for _, e := range entries {
		byUser[e.UserEmail]++
	}
	fmt.Printf("Entries (%d, %d users):\n", len(entries), len(byUser))
	printEntries(os.Stdout, entries)
	fmt.Println()
	fmt.Println("Shifts:")
	printShifts(os.Stdout, a.Shifts.Snapshot())
	return nil
}
