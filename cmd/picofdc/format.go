package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdoe/picofdc/fsapi"
)

func fsapiFormat(label string, full bool) error {
	volumeID := uint32(time.Now().Unix())
	return fsapi.Format(fs, label, volumeID, full)
}

var (
	formatLabel string
	formatFull  bool
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Write a fresh FAT12 volume to the mounted disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := fsapiFormat(formatLabel, formatFull); err != nil {
			return fmt.Errorf("format: %w", err)
		}
		return nil
	},
}

func init() {
	formatCmd.Flags().StringVar(&formatLabel, "label", "PICOFDC", "volume label")
	formatCmd.Flags().BoolVar(&formatFull, "full", false, "zero-fill every data cluster")
	rootCmd.AddCommand(formatCmd)
}
