package fat12

import "fmt"

// Create adds a new zero-length directory entry for name, matching
// fat12_create: no cluster is allocated until the first write.
func (e *Engine) Create(name string) (*File, error) {
	if _, _, err := e.Find(name); err == nil {
		return nil, errAlreadyExists
	} else if !IsNotFound(err) {
		return nil, err
	}

	nameBytes, extBytes, err := FormatName8_3(name)
	if err != nil {
		return nil, err
	}
	idx, err := e.findFreeDirentSlot()
	if err != nil {
		return nil, err
	}
	d := DirEntry{Name: nameBytes, Ext: extBytes, Attr: AttrArchive}
	if err := e.writeRootEntry(idx, d); err != nil {
		return nil, err
	}
	return &File{
		engine:       e,
		dirIndex:     idx,
		dirent:       d,
		firstCluster: 0,
		size:         0,
		writing:      true,
	}, nil
}

// OpenWrite opens name for overwriting in place with the cursor at
// offset 0 (Seek moves it), matching fat12_open_write (no implicit
// truncate; callers that want a clean slate call Truncate first).
func (e *Engine) OpenWrite(name string) (*File, error) {
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
		writing:      true,
	}
	if f.firstCluster != 0 {
		f.curCluster = f.firstCluster
	}
	return f, nil
}

// Truncate frees a file's entire cluster chain and resets it to empty,
// matching fat12_truncate.
func (e *Engine) Truncate(f *File) error {
	if f.firstCluster != 0 {
		if err := e.freeChain(f.firstCluster); err != nil {
			return err
		}
	}
	f.firstCluster = 0
	f.curCluster = 0
	f.clusterIndex = 0
	f.clusterOffset = 0
	f.size = 0
	return nil
}

func (e *Engine) freeChain(start int) error {
	cluster := start
	for cluster != 0 {
		entry, err := e.GetEntry(cluster)
		if err != nil {
			return err
		}
		if err := e.SetEntry(cluster, clusterFree); err != nil {
			return err
		}
		if e.IsEOF(entry) || e.IsFree(entry) {
			break
		}
		cluster = int(entry)
	}
	return nil
}

// allocateNext extends the chain by one cluster, linking it from prev (or
// establishing it as the first cluster when prev==0), matching
// fat12_allocate_next_cluster's next_free_hint handoff: each new search
// starts from the last cluster handed out, not cluster 2, so sequential
// writes to an empty disk don't re-scan clusters already consumed this
// session.
func (e *Engine) allocateNext(f *File, prev int) (int, error) {
	cluster, err := e.FindFreeClusterFrom(f.nextFreeHint)
	if err != nil {
		return 0, err
	}
	if err := e.SetEntry(cluster, clusterEOFHi); err != nil {
		return 0, err
	}
	if prev != 0 {
		if err := e.SetEntry(prev, uint16(cluster)); err != nil {
			return 0, err
		}
	}
	f.nextFreeHint = cluster + 1
	return cluster, nil
}

// Write appends/overwrites len(data) bytes at the file's current
// position, allocating new clusters as the chain runs out and
// read-modify-writing the final partial cluster whenever the write
// starts partway through it (clusterOffset > 0), matching
// fat12_write's handling of cluster_offset.
func (f *File) Write(data []byte) (int, error) {
	if !f.writing {
		return 0, fmt.Errorf("fat12: file not open for write")
	}
	e := f.engine
	total := 0
	for total < len(data) {
		if f.curCluster == 0 {
			cluster, err := e.allocateNext(f, 0)
			if err != nil {
				return total, err
			}
			f.curCluster = cluster
			f.firstCluster = cluster
			f.clusterIndex = 0
			f.clusterOffset = 0
		} else if f.clusterOffset >= clusterDataSize {
			entry, err := e.GetEntry(f.curCluster)
			if err != nil {
				return total, err
			}
			next := int(entry)
			if e.IsEOF(entry) || e.IsFree(entry) {
				if next, err = e.allocateNext(f, f.curCluster); err != nil {
					return total, err
				}
			}
			f.curCluster = next
			f.clusterIndex++
			f.clusterOffset = 0
		}

		var sec [512]byte
		if f.clusterOffset > 0 {
			existing, err := e.readSector(ClusterToLBA(e.layout, f.curCluster))
			if err != nil {
				return total, err
			}
			sec = existing
		}
		n := copy(sec[f.clusterOffset:], data[total:])
		if err := e.writeSector(ClusterToLBA(e.layout, f.curCluster), sec); err != nil {
			return total, err
		}
		total += n
		f.clusterOffset += n
		pos := f.Position()
		if pos > int(f.size) {
			f.size = uint32(pos)
		}
	}
	return total, nil
}

// CloseWrite flushes the directory entry (first cluster, size) and the
// pending sector batch to disk, matching fat12_close_write.
func (f *File) CloseWrite() error {
	f.dirent.FirstCluster = uint16(f.firstCluster)
	f.dirent.Size = f.size
	if err := f.engine.writeRootEntry(f.dirIndex, f.dirent); err != nil {
		return err
	}
	return f.engine.Flush()
}

// Delete frees a file's cluster chain and marks its directory entry
// deleted, matching fat12_delete.
func (e *Engine) Delete(name string) error {
	d, idx, err := e.Find(name)
	if err != nil {
		return err
	}
	if d.Attr&AttrDir != 0 {
		return errIsDirectory
	}
	if d.FirstCluster != 0 {
		if err := e.freeChain(int(d.FirstCluster)); err != nil {
			return err
		}
	}
	d.Name[0] = direntDeleted
	if err := e.writeRootEntry(idx, d); err != nil {
		return err
	}
	return e.Flush()
}
