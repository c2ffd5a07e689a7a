package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jdoe/picofdc/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the mounted profile and volume label",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Profile: %s (%s)\n", config.ProfileName, config.Transport)
		bpb := fs.BPB()
		fmt.Printf("Volume label: %q\n", string(bpb.VolumeLabel[:]))
		fmt.Printf("Geometry: %d total sectors, %d heads, %d sectors/track, %d bytes/sector\n",
			bpb.TotalSectors16, bpb.NumHeads, bpb.SectorsPerTrack, bpb.BytesPerSector)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
