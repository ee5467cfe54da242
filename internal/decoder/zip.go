package decoder

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/siblount/DazProductInstaller/internal/util"
)

type zipReader struct {
	rc *zip.ReadCloser
}

func openZip(path string) (Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	return &zipReader{rc: rc}, nil
}

func (z *zipReader) List() ([]EntryInfo, error) {
	infos := make([]EntryInfo, 0, len(z.rc.File))
	for _, f := range z.rc.File {
		infos = append(infos, EntryInfo{
			Path:  util.NormalizePath(f.Name),
			Size:  int64(f.UncompressedSize64),
			IsDir: f.FileInfo().IsDir(),
		})
	}
	return infos, nil
}

func (z *zipReader) find(entryPath string) (*zip.File, error) {
	want := util.NormalizePath(entryPath)
	for _, f := range z.rc.File {
		if util.NormalizePath(f.Name) == want {
			return f, nil
		}
	}
	for _, f := range z.rc.File {
		if strings.EqualFold(util.NormalizePath(f.Name), want) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("entry not found in zip: %s", entryPath)
}

func (z *zipReader) Extract(entryPath, destPath string) error {
	f, err := z.find(entryPath)
	if err != nil {
		return err
	}
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("open zip entry: %w", err)
	}
	defer r.Close()
	return writeEntry(destPath, r)
}

func (z *zipReader) ReadInPlace(entryPath string) ([]byte, error) {
	f, err := z.find(entryPath)
	if err != nil {
		return nil, err
	}
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (z *zipReader) Close() error {
	return z.rc.Close()
}
