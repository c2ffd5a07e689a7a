// Command picofdc-img formats and inspects raw .img disk image files
// without touching any hardware, for offline testing and image prep.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Usage: "Format and inspect raw PicoFDC floppy image files",
		Commands: []*cli.Command{
			{
				Name:      "format",
				Usage:     "Create a blank 1.44 MB FAT12 image file",
				ArgsUsage: "IMG_FILE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "label", Value: "PICOFDC"},
					&cli.Uint64Flag{Name: "volume-id", Value: 0},
				},
				Action: formatImage,
			},
			{
				Name:      "info",
				Usage:     "Print the root directory of an existing image as CSV",
				ArgsUsage: "IMG_FILE",
				Action:    infoImage,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("picofdc-img: %s", err.Error())
	}
}

func requireOneArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected exactly one argument, got %d", c.NArg())
	}
	return c.Args().Get(0), nil
}
