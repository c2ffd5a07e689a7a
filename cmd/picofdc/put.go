package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put LOCAL NAME",
	Short: "Copy a local file onto the mounted disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		local, remote := args[0], args[1]
		data, err := os.ReadFile(local)
		if err != nil {
			return fmt.Errorf("put: %w", err)
		}

		fd, err := fs.Open(remote, "w")
		if err != nil {
			return fmt.Errorf("put: %w", err)
		}
		defer fs.Close(fd)

		if _, err := fs.Write(fd, data); err != nil {
			return fmt.Errorf("put: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
