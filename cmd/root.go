package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Tiliavir/fieldtime/internal/app"
	"github.com/Tiliavir/fieldtime/internal/config"
)

var (
	configPath string
	logFile    string
	offline    bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "fieldtime",
	Short: "fieldtime – offline-first time and shift tracking",
	Long: `fieldtime records worked hours and planned shifts on this device and
pushes them to a shared backend whenever it is reachable.
Local data lives in ~/.fieldtime/.`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.fieldtime/config.json)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write sync logs to this file with rotation")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Do not contact the remote store")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log sync activity to stderr")

	rootCmd.AddCommand(entryCmd)
	rootCmd.AddCommand(shiftCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(fetchAllCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(hoursCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func loadConfig() config.Config {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}
	return cfg
}

// newLogger returns a logger writing to the rotating log file when one is
// configured, to stderr with --verbose, and nowhere otherwise.
func newLogger(cfg config.Config, prefix string) *log.Logger {
	path := logFile
	if path == "" {
		path = cfg.LogFile
	}
	var w io.Writer = io.Discard
	switch {
	case path != "":
		w = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
	case verbose:
		w = os.Stderr
	}
	return log.New(w, prefix, log.LstdFlags)
}

// openApp builds the app or exits with the storage error code.
func openApp(ctx context.Context) *app.App {
	cfg := loadConfig()
	a, err := app.New(ctx, cfg, app.Options{
		Logger:  newLogger(cfg, "[sync] "),
		Offline: offline,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return a
}

// requireUser exits with the usage error code when nobody is signed in.
func requireUser(a *app.App) {
	if a.Users.Current() == nil {
		fmt.Fprintln(os.Stderr, "Not signed in. Run: fieldtime login --id <user-id> --email <email>")
		_ = a.Close()
		os.Exit(1)
	}
}

func exitStorage(a *app.App, err error) {
	fmt.Fprintln(os.Stderr, err)
	_ = a.Close()
	os.Exit(2)
}
