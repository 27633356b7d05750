package main

import (
	"fmt"

	"github.com/franz/jukebox/internal/util"
	"github.com/spf13/cobra"
)

var whitelistCmd = &cobra.Command{
	Use:   "whitelist",
	Short: "Manage the addresses allowed to stream audio",
	Long: `Manage the streaming whitelist.

Only requests whose client IP header names a listed address may fetch
audio from /data. Changes rewrite the whitelist file atomically and take
effect on the next request.`,
}

var whitelistAddCmd = &cobra.Command{
	Use:   "add <ip>",
	Short: "Allow an address to stream",
	Args:  cobra.ExactArgs(1),
	RunE:  runWhitelistAdd,
}

var whitelistRemoveCmd = &cobra.Command{
	Use:     "remove <ip>",
	Aliases: []string{"rm"},
	Short:   "Stop an address from streaming",
	Args:    cobra.ExactArgs(1),
	RunE:    runWhitelistRemove,
}

var whitelistListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print the whitelisted addresses",
	Args:    cobra.NoArgs,
	RunE:    runWhitelistList,
}

func init() {
	rootCmd.AddCommand(whitelistCmd)
	whitelistCmd.AddCommand(whitelistAddCmd)
	whitelistCmd.AddCommand(whitelistRemoveCmd)
	whitelistCmd.AddCommand(whitelistListCmd)
}

func runWhitelistAdd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	events := openEvents()
	defer events.Close()

	ip := args[0]
	if err := st.Whitelist.Add(ip); err != nil {
		return fmt.Errorf("failed to add %s: %w", ip, err)
	}
	events.LogWhitelistChanged("add", ip)
	util.SuccessLog("Whitelisted %s", ip)
	return nil
}

func runWhitelistRemove(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	events := openEvents()
	defer events.Close()

	ip := args[0]
	removed, err := st.Whitelist.Remove(ip)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", ip, err)
	}
	if !removed {
		util.WarnLog("%s was not whitelisted", ip)
		return nil
	}
	events.LogWhitelistChanged("remove", ip)
	util.SuccessLog("Removed %s from the whitelist", ip)
	return nil
}

func runWhitelistList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	ips, err := st.Whitelist.List()
	if err != nil {
		return fmt.Errorf("failed to read whitelist: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, ip := range ips {
		fmt.Fprintln(out, ip)
	}
	return nil
}
