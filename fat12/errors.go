package fat12

import "errors"

// Structural errors the engine can return. fsapi maps these to its own
// error kind taxonomy; fat12 itself only needs to distinguish them
// internally (e.g. open-for-write's create-vs-truncate branch).
var (
	errNotFound      = errors.New("fat12: file not found")
	errDirectoryFull = errors.New("fat12: root directory full")
	errDiskFull      = errors.New("fat12: no free clusters")
	errAlreadyExists = errors.New("fat12: file already exists")
	errIsDirectory   = errors.New("fat12: is a directory")
	errEOF           = errors.New("fat12: end of file")
)

// IsNotFound reports whether err is (or wraps) a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, errNotFound) }

// IsDirectoryFull reports whether err is (or wraps) a directory-full error.
func IsDirectoryFull(err error) bool { return errors.Is(err, errDirectoryFull) }

// IsDiskFull reports whether err is (or wraps) a disk-full error.
func IsDiskFull(err error) bool { return errors.Is(err, errDiskFull) }

// IsExists reports whether err is (or wraps) an already-exists error.
func IsExists(err error) bool { return errors.Is(err, errAlreadyExists) }

// IsDirectory reports whether err is (or wraps) an is-a-directory error.
func IsDirectory(err error) bool { return errors.Is(err, errIsDirectory) }

// IsEOF reports whether err is (or wraps) an end-of-file error.
func IsEOF(err error) bool { return errors.Is(err, errEOF) }
