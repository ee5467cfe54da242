// Package meta reads the descriptor and content-file formats shipped in
// DAZ product packages: DSX manifests/supplements (XML) and DSON assets
// (JSON, frequently gzip-compressed).
package meta

import (
	"fmt"

	"github.com/siblount/DazProductInstaller/internal/archive"
)

// Parsed is the result of reading one descriptor file.
type Parsed struct {
	ProductName string
	Authors     []string
	SKU         string
	TagHints    []string
}

// Parser turns raw descriptor bytes into structured product data.
// Parse failures are non-fatal to archive processing.
type Parser interface {
	Parse(data []byte) (Parsed, error)
}

// DSXParser reads DAZ install manifests and product supplements.
type DSXParser struct{}

func (DSXParser) Parse(data []byte) (Parsed, error) {
	if supplement, err := parseSupplement(data); err == nil {
		return supplement, nil
	}
	if manifest, err := parseManifest(data); err == nil {
		return manifest, nil
	}
	return Parsed{}, fmt.Errorf("unrecognized descriptor content")
}

// Merge folds a parse result into existing product info. Authors and tag
// hints accumulate; name and SKU are overwritten only by non-empty values.
func Merge(info *archive.ProductInfo, p Parsed) {
	if p.ProductName != "" {
		info.Name = p.ProductName
	}
	if p.SKU != "" {
		info.SKU = p.SKU
	}
	for _, a := range p.Authors {
		info.AddAuthor(a)
	}
	for _, t := range p.TagHints {
		info.AddTag(t)
	}
}
