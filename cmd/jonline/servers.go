package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jonline-io/jonline-go/internal/client/app"
	"github.com/spf13/cobra"
)

func serverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage known servers",
	}

	var insecure bool
	addCmd := &cobra.Command{
		Use:           "add [host]",
		Short:         "Add a server and connect to it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			srv, err := a.AddServer(cmd.Context(), args[0], !insecure)
			if err != nil {
				fmt.Fprintf(os.Stderr, "added %s, but the first connection failed: %v\n", srv.ID(), err)
				return nil
			}
			fmt.Printf("added %s (version %s)\n", srv.ID(), srv.Version)
			return nil
		}),
	}
	addCmd.Flags().BoolVar(&insecure, "insecure", false, "connect over plain HTTP")

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List known servers",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			selected, _ := a.Servers.Selected()
			pinned := map[string]bool{}
			for _, link := range a.Accounts.Pinned() {
				pinned[link.ServerID] = link.Pinned
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tVERSION\tNAME\tSTATE")
			for _, srv := range a.Servers.All() {
				state := ""
				if srv.ID() == selected.ID() {
					state = "selected"
				} else if pinned[srv.ID()] {
					state = "pinned"
				}
				name := ""
				if srv.Configuration != nil && srv.Configuration.ServerInfo != nil {
					name = srv.Configuration.ServerInfo.Name
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", srv.ID(), srv.Version, name, state)
			}
			return w.Flush()
		}),
	}

	removeCmd := &cobra.Command{
		Use:           "remove [server-id]",
		Short:         "Remove a server, its accounts, and its live client",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			return a.RemoveServer(cmd.Context(), args[0])
		}),
	}

	selectCmd := &cobra.Command{
		Use:           "select [server-id]",
		Short:         "Switch the selected server",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			return a.SelectServer(cmd.Context(), args[0])
		}),
	}

	var pinAccount string
	pinCmd := &cobra.Command{
		Use:           "pin [server-id]",
		Short:         "Browse a server alongside the selected one",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			return a.PinServer(cmd.Context(), args[0], pinAccount)
		}),
	}
	pinCmd.Flags().StringVar(&pinAccount, "account", "", "account id to act through on the pinned server")

	unpinCmd := &cobra.Command{
		Use:           "unpin [server-id]",
		Short:         "Stop browsing a pinned server",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			a.UnpinServer(cmd.Context(), args[0])
			return nil
		}),
	}

	moveUpCmd := &cobra.Command{
		Use:           "move-up [server-id]",
		Short:         "Move a server earlier in display order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			a.MoveServerUp(cmd.Context(), args[0])
			return nil
		}),
	}

	moveDownCmd := &cobra.Command{
		Use:           "move-down [server-id]",
		Short:         "Move a server later in display order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			a.MoveServerDown(cmd.Context(), args[0])
			return nil
		}),
	}

	cmd.AddCommand(addCmd, listCmd, removeCmd, selectCmd, pinCmd, unpinCmd, moveUpCmd, moveDownCmd)
	return cmd
}
