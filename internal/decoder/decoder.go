// Package decoder adapts one reader per supported compression format to a
// common capability surface. Formats are a closed set selected once at
// construction; the engine never re-dispatches on format afterwards.
package decoder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/siblount/DazProductInstaller/internal/format"
)

// ErrReadUnsupported is returned by ReadInPlace when a backend cannot
// serve entry bytes without extracting to disk first.
var ErrReadUnsupported = errors.New("in-place read not supported")

// EntryInfo describes one entry as reported by the underlying format.
type EntryInfo struct {
	Path  string
	Size  int64
	IsDir bool
}

// Reader enumerates and extracts entries of one opened archive.
// Implementations are not safe for concurrent use.
type Reader interface {
	// List enumerates all entries without materializing their bytes.
	List() ([]EntryInfo, error)
	// Extract writes one entry's bytes to destPath, creating parent
	// directories as needed.
	Extract(entryPath, destPath string) error
	// ReadInPlace returns one entry's bytes without touching disk, or
	// ErrReadUnsupported.
	ReadInPlace(entryPath string) ([]byte, error)
	Close() error
}

// Open selects the backend for a detected format and opens the source.
// Unknown is rejected; it must never fall through to a default backend.
func Open(f format.Format, path string) (Reader, error) {
	switch f {
	case format.Zip:
		return openZip(path)
	case format.Rar:
		return openRar(path)
	case format.SevenZip:
		return openSevenZip(path)
	default:
		return nil, fmt.Errorf("no decoder for format %q", f)
	}
}

// writeEntry copies r to destPath, creating parent directories.
func writeEntry(destPath string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	return nil
}
