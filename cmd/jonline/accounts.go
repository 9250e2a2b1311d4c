package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jonline-io/jonline-go/internal/client/app"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(password), nil
}

func loginCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "login [host] [username]",
		Short:         "Log in to a server and make the account active",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			acc, err := a.Login(cmd.Context(), args[0], args[1], password)
			if err != nil {
				return err
			}
			fmt.Printf("logged in as %s on %s\n", acc.User.Username, args[0])
			return nil
		}),
	}
}

func registerCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:           "register [host] [username]",
		Short:         "Create an account on a server and make it active",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return fmt.Errorf("passwords do not match")
			}
			acc, err := a.CreateAccount(cmd.Context(), args[0], args[1], password, email)
			if err != nil {
				return err
			}
			fmt.Printf("registered %s on %s\n", acc.User.Username, args[0])
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "contact email for the new account")
	return cmd
}

func accountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage stored accounts",
	}

	listCmd := &cobra.Command{
		Use:           "list",
		Short:         "List stored accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			active, _ := a.Accounts.Active()

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSERNAME\tSERVER\tSTATE")
			for _, acc := range a.Accounts.All() {
				state := ""
				if acc.ID() == active.ID() {
					state = "active"
				}
				if acc.NeedsReauthentication {
					state = "needs re-authentication"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", acc.ID(), acc.User.Username, acc.ServerID, state)
			}
			return w.Flush()
		}),
	}

	selectCmd := &cobra.Command{
		Use:           "select [account-id]",
		Short:         "Switch the active account",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			return a.SelectAccount(cmd.Context(), args[0])
		}),
	}

	logoutCmd := &cobra.Command{
		Use:           "logout",
		Short:         "Deselect the active account",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			a.Logout(cmd.Context())
			return nil
		}),
	}

	removeCmd := &cobra.Command{
		Use:           "remove [account-id]",
		Short:         "Forget a stored account",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			a.RemoveAccount(cmd.Context(), args[0])
			return nil
		}),
	}

	moveUpCmd := &cobra.Command{
		Use:           "move-up [account-id]",
		Short:         "Move an account earlier in display order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			a.MoveAccountUp(cmd.Context(), args[0])
			return nil
		}),
	}

	moveDownCmd := &cobra.Command{
		Use:           "move-down [account-id]",
		Short:         "Move an account later in display order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			a.MoveAccountDown(cmd.Context(), args[0])
			return nil
		}),
	}

	cmd.AddCommand(listCmd, selectCmd, logoutCmd, removeCmd, moveUpCmd, moveDownCmd)
	return cmd
}
