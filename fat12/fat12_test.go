package fat12

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// memIO is a SectorIO backed by a flat in-memory image, standing in for
// a mounted drive/cache stack in tests.
type memIO struct {
	sectors [][512]byte
}

func newMemIO() *memIO {
	return &memIO{sectors: make([][512]byte, TotalSectors)}
}

func (m *memIO) ReadSector(lba int) ([512]byte, error) {
	return m.sectors[lba], nil
}

func (m *memIO) WriteSector(lba int, data [512]byte) error {
	m.sectors[lba] = data
	return nil
}

func mustMount(t *testing.T) (*memIO, *Engine) {
	t.Helper()
	io := newMemIO()
	require.NoError(t, Format(io, QuickFormat, 0xCAFEBABE, "TESTDISK"))
	e, err := Open(io)
	require.NoError(t, err)
	return io, e
}

func TestFormatProducesMountableVolume(t *testing.T) {
	_, e := mustMount(t)
	require.Equal(t, uint16(BytesPerSector), e.BPB().BytesPerSector)
	require.Equal(t, uint16(RootDirEntries), e.BPB().RootEntries)

	entries, err := e.ListRoot()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestFormatWritesMSDOSOEMName(t *testing.T) {
	io, _ := mustMount(t)
	require.Equal(t, "MSDOS5.0", string(io.sectors[0][3:11]))
}

func TestFormatWritesVolumeLabelAtRootIndexZero(t *testing.T) {
	io := newMemIO()
	require.NoError(t, Format(io, QuickFormat, 0xCAFEBABE, "TESTDISK"))
	e, err := Open(io)
	require.NoError(t, err)

	label, err := e.readRootEntry(0)
	require.NoError(t, err)
	require.True(t, label.IsVolumeLabel())
	require.Equal(t, "TESTDISK", Name83ToString(label.Name, label.Ext))

	// the volume label is neither a listed file nor findable by name.
	entries, err := e.ListRoot()
	require.NoError(t, err)
	require.Empty(t, entries)
	_, _, err = e.Find("TESTDISK")
	require.True(t, IsNotFound(err))
}

func TestFormatWithoutLabelLeavesRootIndexZeroEndOfDirectory(t *testing.T) {
	io := newMemIO()
	require.NoError(t, Format(io, QuickFormat, 0xCAFEBABE, ""))
	e, err := Open(io)
	require.NoError(t, err)

	d, err := e.readRootEntry(0)
	require.NoError(t, err)
	require.True(t, d.IsEnd())
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	_, e := mustMount(t)

	f, err := e.Create("HELLO.TXT")
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("the quick brown fox "), 200) // spans multiple clusters
	n, err := f.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.NoError(t, f.CloseWrite())

	rf, err := e.OpenRead("HELLO.TXT")
	require.NoError(t, err)
	require.Equal(t, len(payload), rf.Size())

	got := make([]byte, len(payload))
	total := 0
	for total < len(got) {
		n, err := rf.Read(got[total:])
		total += n
		if err != nil {
			break
		}
	}
	require.Equal(t, payload, got[:total])
}

func TestWriteThenPartialOverwritePreservesTail(t *testing.T) {
	_, e := mustMount(t)

	f, err := e.Create("PATCH.BIN")
	require.NoError(t, err)
	_, err = f.Write(bytes.Repeat([]byte{0xAA}, clusterDataSize*2))
	require.NoError(t, err)
	require.NoError(t, f.CloseWrite())

	wf, err := e.OpenWrite("PATCH.BIN")
	require.NoError(t, err)
	require.NoError(t, wf.Seek(10))
	_, err = wf.Write([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)
	require.NoError(t, wf.CloseWrite())

	rf, err := e.OpenRead("PATCH.BIN")
	require.NoError(t, err)
	got := make([]byte, clusterDataSize*2)
	total := 0
	for total < len(got) {
		n, err := rf.Read(got[total:])
		total += n
		if err != nil {
			break
		}
	}
	require.Equal(t, byte(0xAA), got[9])
	require.Equal(t, []byte{0x01, 0x02, 0x03}, got[10:13])
	require.Equal(t, byte(0xAA), got[13])
}

func TestDeleteFreesChainAndHidesEntry(t *testing.T) {
	_, e := mustMount(t)

	f, err := e.Create("GONE.TXT")
	require.NoError(t, err)
	_, err = f.Write(bytes.Repeat([]byte{0x42}, clusterDataSize*3))
	require.NoError(t, err)
	require.NoError(t, f.CloseWrite())

	require.NoError(t, e.Delete("GONE.TXT"))

	_, _, err = e.Find("GONE.TXT")
	require.True(t, IsNotFound(err))

	second, err := e.Create("AFTER.TXT")
	require.NoError(t, err)
	_, err = second.Write(bytes.Repeat([]byte{0x7E}, clusterDataSize*3))
	require.NoError(t, err)
	require.NoError(t, second.CloseWrite())
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	_, e := mustMount(t)
	f, err := e.Create("DUP.TXT")
	require.NoError(t, err)
	require.NoError(t, f.CloseWrite())

	_, err = e.Create("DUP.TXT")
	require.True(t, IsExists(err))
}

func TestDumpDirectoryCSVListsCreatedFiles(t *testing.T) {
	_, e := mustMount(t)
	f, err := e.Create("A.TXT")
	require.NoError(t, err)
	_, err = f.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, f.CloseWrite())

	var buf bytes.Buffer
	require.NoError(t, e.DumpDirectoryCSV(&buf))
	require.True(t, strings.Contains(buf.String(), "A.TXT"))
}
