//go:build linux
// +build linux

// Package fusefs mounts a fsapi.FileSystem as a read-only kernel
// filesystem via bazil.org/fuse: the root directory lists the FAT12
// volume's files and each file is readable by any ordinary reader.
// There is no subdirectory layer to expose since the volume itself has
// none.
package fusefs

import (
	"context"
	"os"
	"sort"
	"time"

	"bazil.org/fuse"
	fusefslib "bazil.org/fuse/fs"

	"github.com/jdoe/picofdc/fsapi"
)

// PicoFS is the bazil.org/fuse root, backed by a mounted fsapi.FileSystem.
type PicoFS struct {
	fs *fsapi.FileSystem
}

// New wraps fs for FUSE serving.
func New(fs *fsapi.FileSystem) *PicoFS {
	return &PicoFS{fs: fs}
}

func (p *PicoFS) Root() (fusefslib.Node, error) {
	return &dir{fs: p.fs}, nil
}

// dir implements fs.Node and fs.HandleReadDirAller for the volume's
// single, flat root directory.
type dir struct {
	fs *fsapi.FileSystem
}

func (d *dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *dir) Lookup(ctx context.Context, name string) (fusefslib.Node, error) {
	st, err := d.fs.Stat(name)
	if err != nil {
		if fsapi.KindOf(err) == fsapi.KindNotFound {
			return nil, fuse.ENOENT
		}
		return nil, err
	}
	if st.IsDir {
		return nil, fuse.ENOENT
	}
	return &file{fs: d.fs, name: name, size: st.Size}, nil
}

func (d *dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	var dirents []fuse.Dirent
	err := d.fs.List(func(st fsapi.Stat) bool {
		if !st.IsDir {
			dirents = append(dirents, fuse.Dirent{
				Name: st.Name,
				Type: fuse.DT_File,
			})
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(dirents, func(i, j int) bool { return dirents[i].Name < dirents[j].Name })
	for i := range dirents {
		dirents[i].Inode = uint64(i + 1)
	}
	return dirents, nil
}

// file implements fs.Node and fs.NodeOpener; reading opens a real
// fsapi handle so the volume's bounded open-file table is respected
// rather than held open for the node's whole FUSE lifetime.
type file struct {
	fs   *fsapi.FileSystem
	name string
	size uint32
}

func (f *file) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = uint64(f.size)
	a.Mtime = time.Time{}
	return nil
}

func (f *file) Open(ctx context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefslib.Handle, error) {
	fd, err := f.fs.Open(f.name, "r")
	if err != nil {
		return nil, err
	}
	resp.Flags |= fuse.OpenKeepCache
	return &fileHandle{fs: f.fs, fd: fd}, nil
}

type fileHandle struct {
	fs *fsapi.FileSystem
	fd int
}

func (h *fileHandle) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	buf := make([]byte, req.Size)
	n, err := h.fs.ReadAt(h.fd, int(req.Offset), buf)
	if err != nil && fsapi.KindOf(err) != fsapi.KindEof {
		return err
	}
	resp.Data = buf[:n]
	return nil
}

func (h *fileHandle) Release(ctx context.Context, req *fuse.ReleaseRequest) error {
	return h.fs.Close(h.fd)
}
