package main

import (
	"fmt"

	"github.com/franz/jukebox/internal/auth"
	"github.com/franz/jukebox/internal/store"
	"github.com/franz/jukebox/internal/util"
	"github.com/spf13/cobra"
)

var useraddCmd = &cobra.Command{
	Use:   "useradd <user> <password>",
	Short: "Add a user account",
	Long: `Add a user account to the credential file.

Only the password digest is stored. Adding a name that already exists
appends another record; use passwd to replace a password.`,
	Args: cobra.ExactArgs(2),
	RunE: runUseradd,
}

var passwdCmd = &cobra.Command{
	Use:   "passwd <user> <password>",
	Short: "Set the password of a user",
	Long: `Replace every credential record of a user with a single record holding
the new password digest. The credential file is rewritten atomically.`,
	Args: cobra.ExactArgs(2),
	RunE: runPasswd,
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List user accounts",
	Args:  cobra.NoArgs,
	RunE:  runUsers,
}

func init() {
	rootCmd.AddCommand(useraddCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(usersCmd)
}

func runUseradd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	events := openEvents()
	defer events.Close()

	return addUser(st, args[0], args[1], func(user string) { events.LogUserAdded(user) })
}

// addUser stores a new credential record for user
func addUser(st *store.Store, user, password string, onAdded func(string)) error {
	if password == "" {
		return fmt.Errorf("%w: password must not be empty", util.ErrInvalidRecord)
	}
	if err := st.Users.Add(user, auth.Digest(password)); err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	onAdded(user)
	util.SuccessLog("Added user %s", user)
	return nil
}

func runPasswd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	events := openEvents()
	defer events.Close()

	user, password := args[0], args[1]
	if password == "" {
		return fmt.Errorf("%w: password must not be empty", util.ErrInvalidRecord)
	}

	err = st.Users.Update(user, auth.Digest(password))
	events.LogPasswordUpdated(user, err)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	util.SuccessLog("Password updated for %s", user)
	return nil
}

func runUsers(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	creds, err := st.Users.List()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, c := range creds {
		fmt.Fprintln(out, c.Username)
	}
	return nil
}
