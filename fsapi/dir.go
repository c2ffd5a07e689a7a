package fsapi

// Dir is an iterator over the root directory, matching f12_dir_t. Only
// the root is addressable: subdirectories are out of scope.
type Dir struct {
	fs    *FileSystem
	index int
	open  bool
}

// OpenDir opens path (must be "/" or "") for iteration, matching
// f12_opendir's single-level restriction.
func (fs *FileSystem) OpenDir(path string) (*Dir, error) {
	if err := fs.checkDisk("opendir"); err != nil {
		return nil, err
	}
	path = stripLeadingSlash(path)
	if path != "" {
		return nil, fs.setError("opendir", KindNotFound, nil)
	}
	return &Dir{fs: fs, open: true}, nil
}

// ReadDir advances to and returns the next live entry, matching
// f12_readdir: volume labels are skipped, deleted/free slots are
// skipped, and the scan stops at the end-of-directory sentinel.
func (d *Dir) ReadDir() (Stat, error) {
	if d == nil || !d.open {
		return Stat{}, &Error{Op: "readdir", Kind: KindInvalid}
	}
	fs := d.fs
	if err := fs.checkDisk("readdir"); err != nil {
		return Stat{}, err
	}
	for {
		entries, err := fs.engine.ListRoot()
		if err != nil {
			return Stat{}, fs.setError("readdir", KindIO, err)
		}
		if d.index >= len(entries) {
			return Stat{}, fs.setError("readdir", KindEof, nil)
		}
		entry := entries[d.index]
		d.index++
		return statFromDirEntry(entry), nil
	}
}

// CloseDir ends iteration, matching f12_closedir.
func (d *Dir) CloseDir() error {
	if d == nil {
		return &Error{Op: "closedir", Kind: KindInvalid}
	}
	d.open = false
	d.fs = nil
	return nil
}

// List calls fn for every live root directory entry, matching f12_list.
// Iteration stops early if fn returns false.
func (fs *FileSystem) List(fn func(Stat) bool) error {
	dir, err := fs.OpenDir("/")
	if err != nil {
		return err
	}
	defer dir.CloseDir()

	for {
		st, err := dir.ReadDir()
		if err != nil {
			if KindOf(err) == KindEof {
				return nil
			}
			return err
		}
		if !fn(st) {
			return nil
		}
	}
}
