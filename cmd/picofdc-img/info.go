package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jdoe/picofdc/drivesim"
	"github.com/jdoe/picofdc/fat12"
	"github.com/jdoe/picofdc/flux"
	"github.com/jdoe/picofdc/fsapi"
)

func infoImage(c *cli.Context) error {
	path, err := requireOneArg(c)
	if err != nil {
		return err
	}

	link, err := drivesim.OpenImage(path, false)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer link.Close()

	drive := flux.NewDrive(link, 22)
	defer drive.Close()

	fs, err := fsapi.MountWithCache(drive, fat12.SectorsPerTrack)
	if err != nil {
		return fmt.Errorf("mount %s: %w", path, err)
	}

	return fs.DumpDirectoryCSV(os.Stdout)
}
