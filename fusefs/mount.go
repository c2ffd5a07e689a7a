//go:build !linux
// +build !linux

package fusefs

import (
	"fmt"

	"github.com/jdoe/picofdc/fsapi"
)

// Mount is unsupported outside Linux; bazil.org/fuse only binds to the
// Linux and Darwin kernel FUSE protocols, and PicoFDC only carries the
// Linux build tag.
func Mount(mountpoint string, fs *fsapi.FileSystem) error {
	return fmt.Errorf("fusefs: mount is only supported on linux")
}
