// Command picofdc is a thin CLI over the File API: it exists to poke at
// a mounted image from a shell, not to be a feature surface in its own
// right.
package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jdoe/picofdc/config"
	"github.com/jdoe/picofdc/drivesim"
	"github.com/jdoe/picofdc/flux"
	"github.com/jdoe/picofdc/fsapi"
	"github.com/jdoe/picofdc/transport"
)

var fs *fsapi.FileSystem

var rootCmd = &cobra.Command{
	Use:   "picofdc",
	Short: "Talk to a PicoFDC-controlled floppy drive over a FAT12 file API",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("picofdc: %w", err)
		}
		drive, err := openDrive()
		if err != nil {
			return fmt.Errorf("picofdc: %w", err)
		}
		fs, err = fsapi.MountWithCache(drive, config.CacheCapacity)
		if err != nil {
			if cmd.Name() == "format" {
				fs = fsapi.NewUnmounted(drive, config.CacheCapacity)
				return nil
			}
			return fmt.Errorf("picofdc: mount: %w", err)
		}
		return nil
	},
}

func openDrive() (*flux.Drive, error) {
	var link flux.CoprocessorLink
	var err error
	switch config.Transport {
	case "greaseweazle":
		link, err = transport.OpenGreaseweazle(config.Port)
	case "kryoflux":
		link, err = transport.OpenKryoFlux(config.Port)
	case "supercardpro":
		link, err = transport.OpenSuperCardPro(config.Port)
	case "image":
		link, err = drivesim.OpenImage(config.ImagePath, false)
	default:
		return nil, fmt.Errorf("unknown transport %q", config.Transport)
	}
	if err != nil {
		return nil, err
	}
	drive := flux.NewDrive(link, config.TickCell)
	if config.IdleTimeoutSeconds > 0 {
		drive.SetIdleTimeout(time.Duration(config.IdleTimeoutSeconds) * time.Second)
	}
	return drive, nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func main() {
	Execute()
}
