//go:build linux
// +build linux

package fusefs

import (
	"context"
	"os"
	"testing"

	"bazil.org/fuse"
	"github.com/stretchr/testify/require"

	"github.com/jdoe/picofdc/drivesim"
	"github.com/jdoe/picofdc/flux"
	"github.com/jdoe/picofdc/fsapi"
)

const testTickCell = 22

func mustMount(t *testing.T) *fsapi.FileSystem {
	t.Helper()
	d := flux.NewDrive(drivesim.NewMemLink(), testTickCell)
	fsys := fsapi.NewUnmounted(d, fsapi.DefaultCacheCapacity)
	require.NoError(t, fsapi.Format(fsys, "TESTVOL", 0x1234, false))

	fd, err := fsys.Open("HELLO.TXT", "w")
	require.NoError(t, err)
	_, err = fsys.Write(fd, []byte("hello fuse"))
	require.NoError(t, err)
	require.NoError(t, fsys.Close(fd))
	return fsys
}

func TestRootListsCreatedFile(t *testing.T) {
	fsys := mustMount(t)
	root, err := New(fsys).Root()
	require.NoError(t, err)

	dirents, err := root.(*dir).ReadDirAll(context.Background())
	require.NoError(t, err)
	require.Len(t, dirents, 1)
	require.Equal(t, "HELLO.TXT", dirents[0].Name)
}

func TestLookupMissingFileReturnsENOENT(t *testing.T) {
	fsys := mustMount(t)
	root, err := New(fsys).Root()
	require.NoError(t, err)

	_, err = root.(*dir).Lookup(context.Background(), "NOPE.TXT")
	require.Equal(t, fuse.ENOENT, err)
}

func TestOpenAndReadReturnsWrittenBytes(t *testing.T) {
	fsys := mustMount(t)
	root, err := New(fsys).Root()
	require.NoError(t, err)

	node, err := root.(*dir).Lookup(context.Background(), "HELLO.TXT")
	require.NoError(t, err)

	handle, err := node.(*file).Open(context.Background(), &fuse.OpenRequest{}, &fuse.OpenResponse{})
	require.NoError(t, err)
	defer handle.(*fileHandle).Release(context.Background(), &fuse.ReleaseRequest{})

	resp := &fuse.ReadResponse{}
	req := &fuse.ReadRequest{Offset: 0, Size: 32}
	require.NoError(t, handle.(*fileHandle).Read(context.Background(), req, resp))
	require.Equal(t, "hello fuse", string(resp.Data))
}

func TestAttrReportsFileSize(t *testing.T) {
	fsys := mustMount(t)
	root, err := New(fsys).Root()
	require.NoError(t, err)

	node, err := root.(*dir).Lookup(context.Background(), "HELLO.TXT")
	require.NoError(t, err)

	var a fuse.Attr
	require.NoError(t, node.(*file).Attr(context.Background(), &a))
	require.Equal(t, uint64(len("hello fuse")), a.Size)
	require.Equal(t, os.FileMode(0444), a.Mode)
}
