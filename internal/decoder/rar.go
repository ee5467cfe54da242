package decoder

import (
	"fmt"
	"io"
	"strings"

	"github.com/nwaples/rardecode"

	"github.com/siblount/DazProductInstaller/internal/util"
)

// rarReader is stream-oriented: rardecode walks entries front to back, so
// each operation reopens the source and scans to the wanted entry. Open
// verifies the archive is readable up front; per-entry cost stays linear.
type rarReader struct {
	path string
}

func openRar(path string) (Reader, error) {
	rc, err := rardecode.OpenReader(path, "")
	if err != nil {
		return nil, fmt.Errorf("open rar: %w", err)
	}
	_ = rc.Close()
	return &rarReader{path: path}, nil
}

func (r *rarReader) List() ([]EntryInfo, error) {
	rc, err := rardecode.OpenReader(r.path, "")
	if err != nil {
		return nil, fmt.Errorf("open rar: %w", err)
	}
	defer rc.Close()

	var infos []EntryInfo
	for {
		hdr, err := rc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rar header: %w", err)
		}
		infos = append(infos, EntryInfo{
			Path:  util.NormalizePath(hdr.Name),
			Size:  hdr.UnPackedSize,
			IsDir: hdr.IsDir,
		})
	}
	return infos, nil
}

// seek advances a fresh reader to the entry with the given path.
func (r *rarReader) seek(entryPath string) (*rardecode.ReadCloser, error) {
	want := util.NormalizePath(entryPath)
	rc, err := rardecode.OpenReader(r.path, "")
	if err != nil {
		return nil, fmt.Errorf("open rar: %w", err)
	}
	for {
		hdr, err := rc.Next()
		if err == io.EOF {
			_ = rc.Close()
			return nil, fmt.Errorf("entry not found in rar: %s", entryPath)
		}
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("read rar header: %w", err)
		}
		if strings.EqualFold(util.NormalizePath(hdr.Name), want) {
			return rc, nil
		}
	}
}

func (r *rarReader) Extract(entryPath, destPath string) error {
	rc, err := r.seek(entryPath)
	if err != nil {
		return err
	}
	defer rc.Close()
	return writeEntry(destPath, rc)
}

func (r *rarReader) ReadInPlace(entryPath string) ([]byte, error) {
	rc, err := r.seek(entryPath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *rarReader) Close() error {
	return nil
}
