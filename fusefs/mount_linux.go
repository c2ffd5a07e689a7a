//go:build linux
// +build linux

package fusefs

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	fusefslib "bazil.org/fuse/fs"

	"github.com/jdoe/picofdc/fsapi"
)

// Mount serves fs as a read-only filesystem at mountpoint until a
// termination signal unmounts it.
func Mount(mountpoint string, fs *fsapi.FileSystem) error {
	created, err := prepareMountpoint(mountpoint)
	if err != nil {
		return err
	}
	if created {
		defer os.Remove(mountpoint)
	}

	conn, err := fuse.Mount(mountpoint, fuse.ReadOnly(), fuse.FSName("picofdc"))
	if err != nil {
		return err
	}
	defer conn.Close()

	srv := New(fs)
	go func() {
		if err := fusefslib.Serve(conn, srv); err != nil {
			log.Fatalf("fusefs: serve error: %v", err)
		}
	}()
	return waitForUnmount(mountpoint)
}

func waitForUnmount(mountpoint string) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	const maxUnmountRetries = 3
	attempts := 0
	for sig := range sigc {
		log.Printf("fusefs: signal received: %v", sig)

		if attempts >= maxUnmountRetries {
			log.Fatalf("fusefs: still unable to unmount %s after %d attempts", mountpoint, maxUnmountRetries)
		}
		if err := fuse.Unmount(mountpoint); err == nil {
			return nil
		} else {
			attempts++
			log.Printf("fusefs: unmount failed: %v, retrying", err)
		}
	}
	return nil
}

func prepareMountpoint(mountpoint string) (bool, error) {
	info, err := os.Stat(mountpoint)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(mountpoint, 0755); err != nil {
			return false, fmt.Errorf("fusefs: create mountpoint %s: %w", mountpoint, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("fusefs: stat mountpoint %s: %w", mountpoint, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("fusefs: mountpoint %s is not a directory", mountpoint)
	}
	empty, err := isDirEmpty(mountpoint)
	if err != nil {
		return false, fmt.Errorf("fusefs: check mountpoint %s: %w", mountpoint, err)
	}
	if !empty {
		return false, fmt.Errorf("fusefs: mountpoint %s is not empty", mountpoint)
	}
	return false, nil
}

func isDirEmpty(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	entries, err := f.Readdir(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}
