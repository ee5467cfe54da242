package meta

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// DSON asset files are JSON documents; DAZ Studio writes most of them
// gzip-compressed with the same .duf/.dsf extension either way.
type dsonDocument struct {
	AssetInfo struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		Contributor struct {
			Author  string `json:"author"`
			Email   string `json:"email"`
			Website string `json:"website"`
		} `json:"contributor"`
	} `json:"asset_info"`
}

var gzipMagic = []byte{0x1F, 0x8B}

// ReadContentFile extracts author and tag hints from one DSON content
// file, transparently decompressing gzip-wrapped documents.
func ReadContentFile(data []byte) (Parsed, error) {
	if bytes.HasPrefix(data, gzipMagic) {
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return Parsed{}, fmt.Errorf("open gzip dson: %w", err)
		}
		defer gz.Close()
		data, err = io.ReadAll(gz)
		if err != nil {
			return Parsed{}, fmt.Errorf("decompress dson: %w", err)
		}
	}

	var doc dsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Parsed{}, fmt.Errorf("parse dson: %w", err)
	}

	out := Parsed{}
	if author := doc.AssetInfo.Contributor.Author; author != "" {
		out.Authors = append(out.Authors, author)
	}
	if doc.AssetInfo.Type != "" {
		out.TagHints = append(out.TagHints, doc.AssetInfo.Type)
	}
	return out, nil
}
