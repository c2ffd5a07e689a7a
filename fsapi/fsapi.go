package fsapi

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/jdoe/picofdc/fat12"
	"github.com/jdoe/picofdc/flux"
)

// MaxOpenFiles bounds the open-file table; exhaustion is a hard error,
// never a block, matching spec's fixed-capacity discipline.
const MaxOpenFiles = 10

// DefaultCacheCapacity is the sector cache size a freshly mounted
// FileSystem allocates, one full track's worth.
const DefaultCacheCapacity = 18

type fileMode int

const (
	modeClosed fileMode = iota
	modeRead
	modeWrite
)

type handle struct {
	mode fileMode
	file *fat12.File
	path string
}

// FileSystem is a mounted FAT12 volume over a flux.Drive: the sector
// cache, the fat12 engine, the open-file table, and the last error,
// matching f12_t.
type FileSystem struct {
	drive   *flux.Drive
	io      *driveIO
	engine  *fat12.Engine
	mounted bool
	files   [MaxOpenFiles]handle
	lastErr Kind
}

func (fs *FileSystem) setError(op string, kind Kind, cause error) *Error {
	fs.lastErr = kind
	return newErr(op, kind, cause)
}

// BPB returns the mounted volume's BIOS Parameter Block.
func (fs *FileSystem) BPB() fat12.BPB { return fs.engine.BPB() }

// DumpDirectoryCSV writes the root directory listing as CSV, for
// offline inspection tooling.
func (fs *FileSystem) DumpDirectoryCSV(w io.Writer) error {
	if err := fs.checkDisk("dump"); err != nil {
		return err
	}
	if err := fs.engine.DumpDirectoryCSV(w); err != nil {
		return fs.setError("dump", KindIO, err)
	}
	return nil
}

// LastError returns the Kind of the most recent failing operation,
// matching f12_errno for callers that prefer to poll rather than check
// a returned error.
func (fs *FileSystem) LastError() Kind { return fs.lastErr }

// Mount opens drive's boot sector as a FAT12 volume, allocating a fresh
// sector cache, matching f12_mount.
func Mount(drive *flux.Drive) (*FileSystem, error) {
	return MountWithCache(drive, DefaultCacheCapacity)
}

// MountWithCache is Mount with an explicit cache capacity.
func MountWithCache(drive *flux.Drive, cacheCapacity int) (*FileSystem, error) {
	fs := &FileSystem{drive: drive}
	fs.io = newDriveIO(drive, cacheCapacity)

	engine, err := fat12.Open(fs.io)
	if err != nil {
		return nil, fs.setError("mount", fat12Kind(err), err)
	}
	fs.engine = engine
	fs.mounted = true
	return fs, nil
}

// NewUnmounted wires drive's sector cache without reading its boot
// sector, for callers that mean to Format a disk that isn't a valid
// FAT12 volume yet.
func NewUnmounted(drive *flux.Drive, cacheCapacity int) *FileSystem {
	fs := &FileSystem{drive: drive}
	fs.io = newDriveIO(drive, cacheCapacity)
	return fs
}

// checkDisk enforces the mounted invariant and detects media removal,
// matching f12_check_disk: a disk change clears the cache, force-closes
// every open file, and unmounts.
func (fs *FileSystem) checkDisk(op string) error {
	if !fs.mounted {
		return fs.setError(op, KindNotMounted, nil)
	}
	changed, err := fs.drive.HasDiskChanged()
	if err != nil {
		return fs.setError(op, KindIO, err)
	}
	if changed {
		fs.io.invalidate()
		for i := range fs.files {
			fs.files[i] = handle{}
		}
		fs.mounted = false
		return fs.setError(op, KindDiskChanged, nil)
	}
	return nil
}

// checkWritable additionally enforces the write-protect sensor,
// matching f12_check_writable.
func (fs *FileSystem) checkWritable(op string) error {
	if err := fs.checkDisk(op); err != nil {
		return err
	}
	protected, err := fs.drive.IsWriteProtected()
	if err != nil {
		return fs.setError(op, KindIO, err)
	}
	if protected {
		return fs.setError(op, KindWriteProtected, nil)
	}
	return nil
}

func (fs *FileSystem) allocSlot() (int, error) {
	for i := range fs.files {
		if fs.files[i].mode == modeClosed {
			return i, nil
		}
	}
	return 0, fs.setError("open", KindTooManyOpen, nil)
}

// Format writes a fresh FAT12 volume to fs's drive and remounts,
// matching f12_format.
func Format(fs *FileSystem, label string, volumeID uint32, full bool) error {
	if err := fs.checkWritable("format"); err != nil {
		// a not-yet-mounted drive may still be formatted; only a
		// write-protected or disk-changed drive blocks formatting.
		if fs.lastErr != KindNotMounted {
			return err
		}
	}
	mode := fat12.QuickFormat
	if full {
		mode = fat12.FullFormat
	}
	if err := fat12.Format(fs.io, mode, volumeID, label); err != nil {
		return fs.setError("format", KindIO, err)
	}
	fs.io.invalidate()

	engine, err := fat12.Open(fs.io)
	if err != nil {
		return fs.setError("format", fat12Kind(err), err)
	}
	fs.engine = engine
	fs.mounted = true
	return nil
}

// Open opens path for "r" (read) or "w" (write), matching f12_open.
// Paths are rooted-relative; a leading slash is stripped.
func (fs *FileSystem) Open(path string, mode string) (int, error) {
	if path == "" || mode == "" {
		return -1, fs.setError("open", KindInvalid, nil)
	}
	var fm fileMode
	switch mode[0] {
	case 'r':
		fm = modeRead
	case 'w':
		fm = modeWrite
	default:
		return -1, fs.setError("open", KindInvalid, nil)
	}

	var err error
	if fm == modeWrite {
		err = fs.checkWritable("open")
	} else {
		err = fs.checkDisk("open")
	}
	if err != nil {
		return -1, err
	}

	path = stripLeadingSlash(path)
	slot, err := fs.allocSlot()
	if err != nil {
		return -1, err
	}

	if fm == modeRead {
		f, err := fs.engine.OpenRead(path)
		if err != nil {
			return -1, fs.setError("open", fat12Kind(err), err)
		}
		fs.files[slot] = handle{mode: modeRead, file: f, path: path}
		return slot, nil
	}

	f, err := fs.openForWrite(path)
	if err != nil {
		return -1, fs.setError("open", fat12Kind(err), err)
	}
	fs.files[slot] = handle{mode: modeWrite, file: f, path: path}
	return slot, nil
}

// openForWrite creates path if it doesn't exist, or opens the existing
// file and truncates it (its cluster chain is freed and it restarts
// empty), matching fat12_open_write.
func (fs *FileSystem) openForWrite(path string) (*fat12.File, error) {
	if _, _, err := fs.engine.Find(path); err != nil {
		if fat12.IsNotFound(err) {
			return fs.engine.Create(path)
		}
		return nil, err
	}
	f, err := fs.engine.OpenWrite(path)
	if err != nil {
		return nil, err
	}
	if err := fs.engine.Truncate(f); err != nil {
		return nil, err
	}
	return f, nil
}

func stripLeadingSlash(path string) string {
	if len(path) > 0 && path[0] == '/' {
		return path[1:]
	}
	return path
}

// Close closes fd, flushing a pending write, matching f12_close.
func (fs *FileSystem) Close(fd int) error {
	h, err := fs.lookup(fd)
	if err != nil {
		return err
	}
	defer func() { fs.files[fd] = handle{} }()

	if h.mode == modeWrite {
		if err := h.file.CloseWrite(); err != nil {
			return fs.setError("close", KindIO, err)
		}
	}
	return nil
}

func (fs *FileSystem) lookup(fd int) (*handle, error) {
	if fd < 0 || fd >= len(fs.files) || fs.files[fd].mode == modeClosed {
		return nil, fs.setError("handle", KindBadHandle, nil)
	}
	return &fs.files[fd], nil
}

// Read reads into buf from fd, matching f12_read.
func (fs *FileSystem) Read(fd int, buf []byte) (int, error) {
	h, err := fs.lookup(fd)
	if err != nil {
		return -1, err
	}
	if h.mode != modeRead {
		return -1, fs.setError("read", KindInvalid, nil)
	}
	if err := fs.checkDisk("read"); err != nil {
		return -1, err
	}
	n, err := h.file.Read(buf)
	if err != nil {
		if fat12.IsEOF(err) {
			return 0, fs.setError("read", KindEof, nil)
		}
		return n, fs.setError("read", KindIO, err)
	}
	return n, nil
}

// Write writes buf to fd, matching f12_write.
func (fs *FileSystem) Write(fd int, buf []byte) (int, error) {
	h, err := fs.lookup(fd)
	if err != nil {
		return -1, err
	}
	if h.mode != modeWrite {
		return -1, fs.setError("write", KindInvalid, nil)
	}
	if err := fs.checkWritable("write"); err != nil {
		return -1, err
	}
	n, err := h.file.Write(buf)
	if err != nil {
		if fat12.IsDiskFull(err) {
			return n, fs.setError("write", KindFull, err)
		}
		return n, fs.setError("write", KindIO, err)
	}
	return n, nil
}

// Seek repositions fd (read-mode only, matching f12_seek's reopen-and-
// skip implementation over the chain-walk-only cluster structure).
func (fs *FileSystem) Seek(fd int, offset int) error {
	h, err := fs.lookup(fd)
	if err != nil {
		return err
	}
	if h.mode != modeRead {
		return fs.setError("seek", KindInvalid, nil)
	}
	if err := fs.checkDisk("seek"); err != nil {
		return err
	}
	if err := h.file.Seek(offset); err != nil {
		return fs.setError("seek", KindIO, err)
	}
	return nil
}

// Tell returns fd's current byte offset, matching f12_tell.
func (fs *FileSystem) Tell(fd int) (int, error) {
	h, err := fs.lookup(fd)
	if err != nil {
		return 0, err
	}
	return h.file.Position(), nil
}

// ReadAt reads len(buf) bytes at offset without disturbing fd's current
// position, matching f12_read_at's save-seek-read-restore pattern.
func (fs *FileSystem) ReadAt(fd int, offset int, buf []byte) (int, error) {
	h, err := fs.lookup(fd)
	if err != nil {
		return -1, err
	}
	saved := h.file.Position()
	if err := fs.Seek(fd, offset); err != nil {
		return -1, err
	}
	n, err := fs.Read(fd, buf)
	if seekErr := fs.Seek(fd, saved); seekErr != nil && err == nil {
		err = seekErr
	}
	return n, err
}

// Stat describes a directory entry, matching f12_stat_t.
type Stat struct {
	Name  string
	Size  uint32
	Attr  uint8
	IsDir bool
}

// String renders a human-readable size via go-humanize for logging and
// CLI display; Size itself remains the raw byte count.
func (s Stat) String() string {
	kind := "file"
	if s.IsDir {
		kind = "dir"
	}
	return fmt.Sprintf("%s\t%s\t%s", s.Name, humanize.Bytes(uint64(s.Size)), kind)
}

func statFromDirEntry(d fat12.DirEntry) Stat {
	return Stat{
		Name:  fat12.Name83ToString(d.Name, d.Ext),
		Size:  d.Size,
		Attr:  d.Attr,
		IsDir: d.Attr&fat12.AttrDir != 0,
	}
}

// Stat looks up path's metadata without opening it, matching f12_stat.
func (fs *FileSystem) Stat(path string) (Stat, error) {
	if err := fs.checkDisk("stat"); err != nil {
		return Stat{}, err
	}
	path = stripLeadingSlash(path)
	d, _, err := fs.engine.Find(path)
	if err != nil {
		return Stat{}, fs.setError("stat", fat12Kind(err), err)
	}
	return statFromDirEntry(d), nil
}

// Delete removes path, matching f12_delete.
func (fs *FileSystem) Delete(path string) error {
	if err := fs.checkWritable("delete"); err != nil {
		return err
	}
	path = stripLeadingSlash(path)
	if err := fs.engine.Delete(path); err != nil {
		return fs.setError("delete", fat12Kind(err), err)
	}
	return nil
}
