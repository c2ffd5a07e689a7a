package fsapi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jdoe/picofdc/drivesim"
	"github.com/jdoe/picofdc/flux"
)

const testTickCell = 22

func mustMount(t *testing.T) *FileSystem {
	t.Helper()
	drive := flux.NewDrive(drivesim.NewMemLink(), testTickCell)
	fs := &FileSystem{drive: drive}
	fs.io = newDriveIO(drive, DefaultCacheCapacity)
	require.NoError(t, Format(fs, "TESTDISK", 0x12345678, false))
	return fs
}

func TestMountFormatsAndListsEmptyRoot(t *testing.T) {
	fs := mustMount(t)
	var names []string
	require.NoError(t, fs.List(func(s Stat) bool {
		names = append(names, s.Name)
		return true
	}))
	require.Empty(t, names)
}

func TestWriteReadRoundTripThroughFileAPI(t *testing.T) {
	fs := mustMount(t)

	fd, err := fs.Open("HELLO.TXT", "w")
	require.NoError(t, err)
	n, err := fs.Write(fd, []byte("hello floppy"))
	require.NoError(t, err)
	require.Equal(t, 12, n)
	require.NoError(t, fs.Close(fd))

	rfd, err := fs.Open("HELLO.TXT", "r")
	require.NoError(t, err)
	buf := make([]byte, 12)
	n, err = fs.Read(rfd, buf)
	require.NoError(t, err)
	require.Equal(t, "hello floppy", string(buf[:n]))
	require.NoError(t, fs.Close(rfd))

	st, err := fs.Stat("HELLO.TXT")
	require.NoError(t, err)
	require.Equal(t, "HELLO.TXT", st.Name)
	require.EqualValues(t, 12, st.Size)
}

func TestOpenForReadMissingFileReturnsNotFound(t *testing.T) {
	fs := mustMount(t)
	_, err := fs.Open("NOPE.TXT", "r")
	require.Error(t, err)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestTooManyOpenFilesIsHardError(t *testing.T) {
	fs := mustMount(t)
	for i := 0; i < MaxOpenFiles; i++ {
		name := []byte{'F', byte('A' + i), '.', 'T', 'X', 'T'}
		fd, err := fs.Open(string(name), "w")
		require.NoError(t, err)
		require.NoError(t, fs.Close(fd))
	}
	for i := 0; i < MaxOpenFiles; i++ {
		name := []byte{'F', byte('A' + i), '.', 'T', 'X', 'T'}
		_, err := fs.Open(string(name), "r")
		require.NoError(t, err)
	}
	_, err := fs.Open("ONEMORE.TXT", "r")
	require.Error(t, err)
	require.Equal(t, KindTooManyOpen, KindOf(err))
}

func TestDeleteThenStatReturnsNotFound(t *testing.T) {
	fs := mustMount(t)
	fd, err := fs.Open("BYE.TXT", "w")
	require.NoError(t, err)
	_, err = fs.Write(fd, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, fs.Close(fd))

	require.NoError(t, fs.Delete("BYE.TXT"))
	_, err = fs.Stat("BYE.TXT")
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestOperationsBeforeMountAreNotMounted(t *testing.T) {
	var fs FileSystem
	_, err := fs.Stat("ANY.TXT")
	require.Equal(t, KindNotMounted, KindOf(err))
}

func TestReadDirSkipsDeletedEntries(t *testing.T) {
	fs := mustMount(t)
	for _, name := range []string{"A.TXT", "B.TXT", "C.TXT"} {
		fd, err := fs.Open(name, "w")
		require.NoError(t, err)
		require.NoError(t, fs.Close(fd))
	}
	require.NoError(t, fs.Delete("B.TXT"))

	var names []string
	require.NoError(t, fs.List(func(s Stat) bool {
		names = append(names, s.Name)
		return true
	}))
	require.ElementsMatch(t, []string{"A.TXT", "C.TXT"}, names)
}
