package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jonline-io/jonline-go/internal/client/app"
	"github.com/jonline-io/jonline-go/internal/client/config"
	"github.com/jonline-io/jonline-go/internal/client/store"
	"github.com/jonline-io/jonline-go/internal/logging"
	"github.com/spf13/cobra"
)

var (
	rootCmd    *cobra.Command
	configPath string
	verbose    bool
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "jonline",
		Short: "Jonline - a federated social network client",
		Long: `Jonline talks to one or more independently operated Jonline servers,
keeps your accounts per server, and merges listings across the servers
you pin alongside the selected one.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newApp builds the application from config and the persistent store. The
// first run seeds the registry with the configured default server.
func newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	log := logging.NewTextLogger(os.Stderr, level)

	st, err := store.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	a := app.New(cfg, log, st, app.Options{})
	if err := a.Load(); err != nil {
		st.Close()
		return nil, err
	}

	if len(a.Servers.All()) == 0 && cfg.DefaultServer != "" {
		if _, err := a.AddServer(cmd.Context(), cfg.DefaultServer, cfg.Secure); err != nil {
			log.Warn(cmd.Context(), "default server unreachable",
				"host", cfg.DefaultServer, "error", err)
		}
	}
	return a, nil
}

// withApp wraps a command body with app construction and teardown.
func withApp(run func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

func main() {
	rootCmd.AddCommand(serverCommand())
	rootCmd.AddCommand(accountCommand())
	rootCmd.AddCommand(loginCommand())
	rootCmd.AddCommand(registerCommand())
	rootCmd.AddCommand(postsCommand())
	rootCmd.AddCommand(eventsCommand())
	rootCmd.AddCommand(usersCommand())
	rootCmd.AddCommand(groupsCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
