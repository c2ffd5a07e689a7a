package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdoe/picofdc/fsapi"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List files in the root directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fs.List(func(s fsapi.Stat) bool {
			fmt.Println(s.String())
			return true
		})
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
