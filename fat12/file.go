package fat12

import (
	"fmt"
)

// File is an open FAT12 file cursor: a directory entry snapshot plus the
// cluster-chain position needed to do sequential reads/writes, matching
// fat12's own fat12_file_t (f12.c's file-descriptor table wraps this
// with mode validation, not a second copy of the position).
type File struct {
	engine       *Engine
	dirIndex     int
	dirent       DirEntry
	firstCluster int
	size         uint32

	curCluster      int // 0 until the first cluster is resolved
	clusterIndex    int // how many clusters into the chain curCluster is
	clusterOffset   int // byte offset within curCluster's data

	writing      bool
	nextFreeHint int
}

// OpenRead opens name for sequential reading, matching fat12_open.
func (e *Engine) OpenRead(name string) (*File, error) {
	d, idx, err := e.Find(name)
	if err != nil {
		return nil, err
	}
	if d.Attr&AttrDir != 0 {
		return nil, errIsDirectory
	}
	f := &File{
		engine:       e,
		dirIndex:     idx,
		dirent:       d,
		firstCluster: int(d.FirstCluster),
		size:         d.Size,
	}
	if f.firstCluster != 0 {
		f.curCluster = f.firstCluster
	}
	return f, nil
}

// clusterDataSize is the usable payload per cluster (one sector).
const clusterDataSize = BytesPerSector * SectorsPerCluster

// seekCluster steps the chain forward target clusters from
// f.firstCluster, matching the chain-follow loop in fat12_read/
// fat12_write.
func (f *File) seekCluster(target int) error {
	cluster := f.firstCluster
	for i := 0; i < target; i++ {
		entry, err := f.engine.GetEntry(cluster)
		if err != nil {
			return err
		}
		if f.engine.IsEOF(entry) || f.engine.IsFree(entry) {
			return fmt.Errorf("fat12: chain ends before cluster index %d", target)
		}
		cluster = int(entry)
	}
	f.curCluster = cluster
	f.clusterIndex = target
	return nil
}

// Read reads len(buf) bytes sequentially starting at the file's current
// position, following cluster boundaries as needed. Matches
// fat12_read's chain-following semantics.
func (f *File) Read(buf []byte) (int, error) {
	if f.writing {
		return 0, fmt.Errorf("fat12: file not open for read")
	}
	total := 0
	for total < len(buf) {
		remaining := int(f.size) - f.Position()
		if f.firstCluster == 0 || remaining <= 0 {
			break
		}
		sec, err := f.engine.readSector(ClusterToLBA(f.engine.layout, f.curCluster))
		if err != nil {
			return total, err
		}
		end := len(buf)
		if end-total > remaining {
			end = total + remaining
		}
		n := copy(buf[total:end], sec[f.clusterOffset:])
		total += n
		f.clusterOffset += n
		if f.clusterOffset >= clusterDataSize {
			entry, err := f.engine.GetEntry(f.curCluster)
			if err != nil {
				return total, err
			}
			if f.engine.IsEOF(entry) {
				break
			}
			f.curCluster = int(entry)
			f.clusterIndex++
			f.clusterOffset = 0
		}
	}
	if total == 0 {
		return 0, errEOF
	}
	return total, nil
}

// Close is a no-op for a read-only file; kept for API symmetry with
// CloseWrite.
func (f *File) Close() error { return nil }

// Position returns the file's current byte offset from the start.
func (f *File) Position() int {
	return f.clusterIndex*clusterDataSize + f.clusterOffset
}

// Size returns the file's size as recorded in its directory entry.
func (f *File) Size() int { return int(f.size) }

// Seek repositions the cursor to byte offset from the start, matching
// fat12_seek's chain-walk (there is no random-access shortcut; FAT12
// chains must be walked from the front).
func (f *File) Seek(offset int) error {
	if offset < 0 {
		return fmt.Errorf("fat12: negative seek offset")
	}
	target := offset / clusterDataSize
	within := offset % clusterDataSize
	if within == 0 && target > 0 {
		// a cluster-aligned offset is the end of the previous cluster,
		// the same position Read and Write leave after filling it.
		target, within = target-1, clusterDataSize
	}
	if f.firstCluster == 0 {
		if offset != 0 {
			return errEOF
		}
		f.clusterIndex, f.clusterOffset = 0, 0
		return nil
	}
	if err := f.seekCluster(target); err != nil {
		return err
	}
	f.clusterOffset = within
	return nil
}
