package fat12

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// trackCountingIO is a SectorIO + TrackWriter fake that records how
// many whole-track writes it was asked to perform, so tests can assert
// writeBatch actually groups same-track entries instead of issuing one
// write per sector.
type trackCountingIO struct {
	sectors    [TotalSectors][512]byte
	trackCalls int
	sectorCalls int
}

func (t *trackCountingIO) ReadSector(lba int) ([512]byte, error) {
	return t.sectors[lba], nil
}

func (t *trackCountingIO) WriteSector(lba int, data [512]byte) error {
	t.sectorCalls++
	t.sectors[lba] = data
	return nil
}

func (t *trackCountingIO) WriteTrack(cylinder, head int, sectors map[byte][512]byte) error {
	t.trackCalls++
	for sector, data := range sectors {
		t.sectors[trackLBA(cylinder, head, sector)] = data
	}
	return nil
}

func TestFlushGroupsSameTrackWritesIntoOneTrackCall(t *testing.T) {
	io := &trackCountingIO{}
	b := newWriteBatch(io)

	cylinder, head := 5, 1
	for sector := byte(1); sector <= 4; sector++ {
		var data [512]byte
		data[0] = sector
		require.NoError(t, b.write(trackLBA(cylinder, head, sector), data))
	}
	require.NoError(t, b.flush())

	require.Equal(t, 1, io.trackCalls)
	require.Equal(t, 0, io.sectorCalls)
	for sector := byte(1); sector <= 4; sector++ {
		require.Equal(t, sector, io.sectors[trackLBA(cylinder, head, sector)][0])
	}
}

func TestFlushIssuesOneTrackCallPerDistinctTrack(t *testing.T) {
	io := &trackCountingIO{}
	b := newWriteBatch(io)

	require.NoError(t, b.write(trackLBA(1, 0, 1), [512]byte{1}))
	require.NoError(t, b.write(trackLBA(1, 0, 2), [512]byte{2}))
	require.NoError(t, b.write(trackLBA(2, 1, 1), [512]byte{3}))
	require.NoError(t, b.flush())

	require.Equal(t, 2, io.trackCalls)
}

func TestWriteFlushesAutomaticallyAtCapacity(t *testing.T) {
	io := &trackCountingIO{}
	b := newWriteBatch(io)

	// one entry per distinct track forces a flush once capacity is hit,
	// without an explicit b.flush() call.
	for i := 0; i < writeBatchCapacity+1; i++ {
		cylinder := i / NumHeads
		head := i % NumHeads
		require.NoError(t, b.write(trackLBA(cylinder, head, 1), [512]byte{byte(i)}))
	}
	require.Greater(t, io.trackCalls, 0)
	require.NoError(t, b.flush())
}

func TestReadPrefersNewestPendingValue(t *testing.T) {
	io := &trackCountingIO{}
	b := newWriteBatch(io)

	lba := trackLBA(0, 0, 1)
	require.NoError(t, b.write(lba, [512]byte{1}))
	require.NoError(t, b.write(lba, [512]byte{2}))

	got, err := b.read(lba)
	require.NoError(t, err)
	require.Equal(t, byte(2), got[0])
}
