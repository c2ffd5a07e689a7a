// Package fsapi is the file-level API: mount/format/open/read/write/
// seek/stat/delete/opendir, wrapping fat12.Engine with the cache and
// write-protect/disk-change lifecycle checks every operation needs.
package fsapi

import (
	"errors"
	"fmt"

	"github.com/jdoe/picofdc/fat12"
)

// Kind is the error taxonomy surfaced to callers, matching f12_err_t.
type Kind int

const (
	KindIO Kind = iota
	KindNotFound
	KindExists
	KindFull
	KindTooManyOpen
	KindInvalid
	KindIsDirectory
	KindNotMounted
	KindEof
	KindDiskChanged
	KindWriteProtected
	KindBadHandle
)

// String renders a short English description, matching f12_strerror.
func (k Kind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindNotFound:
		return "file not found"
	case KindExists:
		return "file exists"
	case KindFull:
		return "disk full"
	case KindTooManyOpen:
		return "too many open files"
	case KindInvalid:
		return "invalid argument"
	case KindIsDirectory:
		return "is a directory"
	case KindNotMounted:
		return "not mounted"
	case KindEof:
		return "end of file"
	case KindDiskChanged:
		return "disk changed"
	case KindWriteProtected:
		return "write protected"
	case KindBadHandle:
		return "bad file handle"
	default:
		return "unknown error"
	}
}

// Error is the error type every fsapi operation returns, carrying a Kind
// a caller can switch on alongside the usual wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fsapi: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("fsapi: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newErr(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the Kind carried by err, defaulting to KindIO for any
// error fsapi didn't originate itself (an unclassified lower-layer
// failure), matching fat12_to_f12_err's catch-all.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindIO
}

// fat12Kind maps a fat12 structural error to an fsapi Kind, matching
// fat12_to_f12_err's switch.
func fat12Kind(err error) Kind {
	switch {
	case fat12.IsNotFound(err):
		return KindNotFound
	case fat12.IsExists(err):
		return KindExists
	case fat12.IsDiskFull(err), fat12.IsDirectoryFull(err):
		return KindFull
	case fat12.IsDirectory(err):
		return KindIsDirectory
	case fat12.IsEOF(err):
		return KindEof
	default:
		return KindInvalid
	}
}
