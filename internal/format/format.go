package format

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
)

// Format is the true compression format of an archive, determined from
// magic bytes rather than the file extension.
type Format int

const (
	Unknown Format = iota
	Zip
	Rar
	SevenZip
)

func (f Format) String() string {
	switch f {
	case Zip:
		return "zip"
	case Rar:
		return "rar"
	case SevenZip:
		return "7z"
	default:
		return "unknown"
	}
}

// headerLen is the number of leading bytes inspected for a signature.
const headerLen = 8

// signature maps a magic-byte prefix to a format. Longer matches are
// listed first so RAR v5 wins over the shorter v4 prefix.
type signature struct {
	magic  []byte
	format Format
}

var signatures = []signature{
	// RAR v5.
	{[]byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00}, Rar},
	// RAR v4.
	{[]byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}, Rar},
	// 7-Zip.
	{[]byte{0x37, 0x7A, 0xBC, 0xAF}, SevenZip},
	// ZIP local header, empty archive, spanned archive.
	{[]byte{0x50, 0x4B, 0x03, 0x04}, Zip},
	{[]byte{0x50, 0x4B, 0x05, 0x06}, Zip},
	{[]byte{0x50, 0x4B, 0x07, 0x08}, Zip},
	// Self-extracting zip wrapper.
	{[]byte{0x57, 0x4B, 0x03, 0x04}, Zip},
}

// Detect classifies an archive by its leading bytes. A short or
// unrecognized header yields Unknown; Unknown is a terminal, reported
// condition and never stands in for a default format.
func Detect(r io.Reader) Format {
	header := make([]byte, headerLen)
	n, _ := io.ReadFull(r, header)
	header = header[:n]
	for _, sig := range signatures {
		if len(header) >= len(sig.magic) && bytes.Equal(header[:len(sig.magic)], sig.magic) {
			return sig.format
		}
	}
	return Unknown
}

// DetectPath opens path and classifies it by magic bytes.
func DetectPath(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	return Detect(f), nil
}

// FromExtension is the extension fallback, used only where no byte source
// is available yet (for example selecting a decoder before the file is
// opened). It must never override a magic-byte result.
func FromExtension(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return Zip
	case strings.HasSuffix(lower, ".rar"):
		return Rar
	case strings.HasSuffix(lower, ".7z"):
		return SevenZip
	default:
		return Unknown
	}
}
