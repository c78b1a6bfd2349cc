package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var killSwitchReason string

var killSwitchCmd = &cobra.Command{
	Use:   "kill-switch <flag> <true|false>",
	Short: "Toggle an operator kill switch (e.g. auto_update_enabled) and audit the change",
	Args:  cobra.ExactArgs(2),
	RunE:  runKillSwitch,
}

func runKillSwitch(cmd *cobra.Command, args []string) error {
	flag := args[0]
	var value bool
	switch args[1] {
	case "true", "1", "on":
		value = true
	case "false", "0", "off":
		value = false
	default:
		return fmt.Errorf("invalid value %q, expected true/false", args[1])
	}
	if err := current.Purge.ToggleKillSwitch(flag, value, killSwitchReason); err != nil {
		return err
	}
	fmt.Printf("%s = %v\n", flag, value)
	return nil
}

func init() {
	killSwitchCmd.Flags().StringVar(&killSwitchReason, "reason", "", "Why the flag was toggled (recorded in the audit log)")
}
