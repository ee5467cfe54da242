package decoder

import (
	"fmt"
	"io"
	"strings"

	"github.com/bodgit/sevenzip"

	"github.com/siblount/DazProductInstaller/internal/util"
)

type sevenZipReader struct {
	rc *sevenzip.ReadCloser
}

func openSevenZip(path string) (Reader, error) {
	rc, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open 7z: %w", err)
	}
	return &sevenZipReader{rc: rc}, nil
}

func (s *sevenZipReader) List() ([]EntryInfo, error) {
	infos := make([]EntryInfo, 0, len(s.rc.File))
	for _, f := range s.rc.File {
		infos = append(infos, EntryInfo{
			Path:  util.NormalizePath(f.Name),
			Size:  int64(f.UncompressedSize),
			IsDir: f.FileInfo().IsDir(),
		})
	}
	return infos, nil
}

func (s *sevenZipReader) find(entryPath string) (*sevenzip.File, error) {
	want := util.NormalizePath(entryPath)
	for _, f := range s.rc.File {
		if util.NormalizePath(f.Name) == want {
			return f, nil
		}
	}
	for _, f := range s.rc.File {
		if strings.EqualFold(util.NormalizePath(f.Name), want) {
			return f, nil
		}
	}
	return nil, fmt.Errorf("entry not found in 7z: %s", entryPath)
}

func (s *sevenZipReader) Extract(entryPath, destPath string) error {
	f, err := s.find(entryPath)
	if err != nil {
		return err
	}
	r, err := f.Open()
	if err != nil {
		return fmt.Errorf("open 7z entry: %w", err)
	}
	defer r.Close()
	return writeEntry(destPath, r)
}

func (s *sevenZipReader) ReadInPlace(entryPath string) ([]byte, error) {
	f, err := s.find(entryPath)
	if err != nil {
		return nil, err
	}
	r, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open 7z entry: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *sevenZipReader) Close() error {
	return s.rc.Close()
}
