package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/fieldtime/internal/model"
)

var (
	loginID    string
	loginEmail string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as a user on this device",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear this user's local records",
	Long: `logout removes the signed-in user's cached entries and shifts from this
device. Records that were never synced are lost; run 'fieldtime sync' first.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	loginCmd.Flags().StringVar(&loginID, "id", "", "User id as known to the remote store")
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "User email")
	_ = loginCmd.MarkFlagRequired("id")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	if prev := a.Users.Current(); prev != nil && prev.ID != loginID {
		if n := pendingEntries(a.Entries.Snapshot()); n > 0 {
			fmt.Fprintf(os.Stderr, "Warning: discarding %d unsynced entries of %s.\n", n, prev.ID)
		}
	}
	if err := a.SignIn(ctx, model.User{ID: loginID, Email: loginEmail}); err != nil {
		exitStorage(a, err)
	}

	fmt.Printf("Signed in as %s.\n", loginID)
	if n, err := a.Entries.Sync(ctx); err == nil && n > 0 {
		fmt.Printf("Synced %d pending entries.\n", n)
	}
	if n, err := a.Shifts.Sync(ctx); err == nil && n > 0 {
		fmt.Printf("Synced %d pending shifts.\n", n)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	user := a.Users.Current()
	if user == nil {
		fmt.Println("Not signed in.")
		return nil
	}

	if pending := pendingEntries(a.Entries.Snapshot()); pending > 0 {
		fmt.Fprintf(os.Stderr, "Warning: discarding %d unsynced entries.\n", pending)
	}

	if err := a.SignOut(ctx); err != nil {
		exitStorage(a, err)
	}
	fmt.Printf("Signed out %s.\n", user.ID)
	return nil
}

func pendingEntries(entries []model.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Status == model.EntryPending {
			n++
		}
	}
	return n
}
