package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdoe/picofdc/fusefs"
)

var mountCmd = &cobra.Command{
	Use:   "mount <mountpoint>",
	Short: "Mount the volume read-only as a real filesystem (Linux only)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := fusefs.Mount(args[0], fs); err != nil {
			return fmt.Errorf("mount: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mountCmd)
}
