package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat NAME",
	Short: "Print a file's contents to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fd, err := fs.Open(args[0], "r")
		if err != nil {
			return fmt.Errorf("cat: %w", err)
		}
		defer fs.Close(fd)

		buf := make([]byte, 4096)
		for {
			n, err := fs.Read(fd, buf)
			if n > 0 {
				os.Stdout.Write(buf[:n])
			}
			if err != nil {
				break
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}
