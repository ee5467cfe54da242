package archive

import (
	"strings"

	"github.com/siblount/DazProductInstaller/internal/util"
)

// Kind distinguishes the variants of content found inside an archive.
type Kind int

const (
	KindPlain Kind = iota
	KindManifest
	KindSupplement
	KindContent
	KindNestedArchive
)

func (k Kind) String() string {
	switch k {
	case KindManifest:
		return "manifest"
	case KindSupplement:
		return "supplement"
	case KindContent:
		return "content"
	case KindNestedArchive:
		return "archive"
	default:
		return "file"
	}
}

// contentExtensions are the asset formats recognized by the DAZ domain.
// DSON scene/asset files plus the texture and geometry formats they carry.
var contentExtensions = map[string]struct{}{
	"duf": {}, "dsf": {}, "ds": {}, "dsa": {}, "dsb": {}, "dse": {},
	"jpg": {}, "jpeg": {}, "png": {}, "tif": {}, "tiff": {}, "bmp": {},
	"dds": {}, "obj": {}, "mtl": {},
}

var nestedArchiveExtensions = map[string]struct{}{
	"zip": {}, "rar": {}, "7z": {},
}

// Entry is one item discovered inside an archive: a plain file, a
// descriptor, a recognized content asset, or a nested archive.
type Entry struct {
	// Path is the slash-normalized path relative to the archive root, or
	// the absolute on-disk path once extracted.
	Path string
	// Size is the uncompressed size reported by the decoder.
	Size int64
	// Kind is derived from the entry name at discovery time.
	Kind Kind
	// Extracted is set once the entry's bytes were materialized to disk.
	Extracted bool
	// TargetPath is where the entry was (or would be) written on disk.
	TargetPath string
}

// NewEntry builds an Entry from a decoder-reported path, normalizing
// separators and classifying the variant.
func NewEntry(entryPath string, size int64) *Entry {
	norm := util.NormalizePath(entryPath)
	return &Entry{
		Path: norm,
		Size: size,
		Kind: ClassifyEntry(norm),
	}
}

// Extension returns the entry's lowercased extension without the dot.
func (e *Entry) Extension() string {
	return util.Extension(e.Path)
}

// Name returns the entry's base file name.
func (e *Entry) Name() string {
	return util.BaseName(e.Path)
}

// IsDescriptor reports whether the entry is a manifest or supplement file.
func (e *Entry) IsDescriptor() bool {
	return e.Kind == KindManifest || e.Kind == KindSupplement
}

// ClassifyEntry derives the entry variant from its path.
func ClassifyEntry(entryPath string) Kind {
	base := strings.ToLower(util.BaseName(entryPath))
	switch base {
	case "manifest.dsx":
		return KindManifest
	case "supplement.dsx":
		return KindSupplement
	}
	ext := util.Extension(entryPath)
	if _, ok := nestedArchiveExtensions[ext]; ok {
		return KindNestedArchive
	}
	if _, ok := contentExtensions[ext]; ok {
		return KindContent
	}
	return KindPlain
}
