package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/fieldtime/internal/app"
	"github.com/Tiliavir/fieldtime/internal/netstatus"
)

var (
	syncWatch       bool
	syncMetricsAddr string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending entries and shifts to the remote store",
	Long: `sync pushes every pending entry and unsynced planned shift once.
With --watch it keeps running, probes the remote host and syncs again
every time the connection comes back.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "Keep running and sync on every reconnect")
	syncCmd.Flags().StringVar(&syncMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address in watch mode, e.g. :9090")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()
	requireUser(a)

	if !a.SyncEnabled() {
		fmt.Println("No remote store configured. Records stay on this device.")
		return nil
	}

	if offline {
		fmt.Println("Offline: nothing was sent.")
		return nil
	}
	if syncWatch {
		return watch(ctx, a)
	}

	entries, shifts, err := syncOnce(ctx, a)
	if err != nil {
		exitStorage(a, err)
	}
	fmt.Printf("Synced %d entries and %d shifts.\n", entries, shifts)
	reportSyncErrors(a)
	return nil
}

// syncOnce reconciles entries and shifts in parallel.
func syncOnce(ctx context.Context, a *app.App) (entries, shifts int, err error) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.Entries.Sync(ctx)
		entries = n
		return err
	})
	g.Go(func() error {
		n, err := a.Shifts.Sync(ctx)
		shifts = n
		return err
	})
	err = g.Wait()
	return entries, shifts, err
}

func reportSyncErrors(a *app.App) {
	if msg := a.Entries.Engine().LastSyncError(); msg != "" {
		fmt.Fprintf(os.Stderr, "Entries: %s\n", msg)
	}
	if msg := a.Shifts.Engine().LastSyncError(); msg != "" {
		fmt.Fprintf(os.Stderr, "Shifts: %s\n", msg)
	}
}

func watch(ctx context.Context, a *app.App) error {
	logger := newLogger(a.Config, "[probe] ")

	addr := a.Config.ProbeAddress()
	if addr == "" {
		fmt.Fprintln(os.Stderr, "Cannot derive a probe address; set network.probe_address.")
		_ = a.Close()
		os.Exit(1)
	}

	// Start offline so the first successful probe is a transition.
	a.Monitor.SetOnline(false)
	unsubscribe := a.Monitor.Subscribe(func(ev netstatus.Event) {
		fmt.Printf("%s  %s\n", time.Now().Format("15:04:05"), ev)
	})
	defer unsubscribe()

	stopEntries := a.Entries.Engine().Start(ctx)
	defer stopEntries()
	stopShifts := a.Shifts.Engine().Start(ctx)
	defer stopShifts()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		netstatus.NewProber(addr, a.Config.Network.Interval(), a.Monitor, logger).Run(ctx)
		return nil
	})
	if syncMetricsAddr != "" {
		srv := &http.Server{Addr: syncMetricsAddr, Handler: promhttp.Handler()}
		g.Go(func() error {
			logger.Printf("metrics listening on %s", syncMetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	fmt.Printf("Watching %s every %s. Press Ctrl+C to stop.\n", addr, a.Config.Network.Interval())
	err := g.Wait()
	reportSyncErrors(a)
	return err
}
