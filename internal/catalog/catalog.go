// Package catalog is the record-keeping collaborator. The engine hands it
// one ProductRecord and one ExtractionRecord per processed archive and
// never touches them again.
package catalog

import (
	"context"
	"time"
)

// ProductRecord is the immutable catalog snapshot of one product.
type ProductRecord struct {
	ID        uint64    `json:"id"`
	ImageID   uint64    `json:"image_id"`
	Name      string    `json:"name"`
	Tags      []string  `json:"tags"`
	Author    string    `json:"author,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExtractionRecord captures what one extraction actually did, for later
// retrieval or removal of the installed files.
type ExtractionRecord struct {
	ArchiveFileName string   `json:"archive_file_name"`
	DestinationPath string   `json:"destination_path"`
	ExtractedFiles  []string `json:"extracted_files"`
	ErroredFiles    []string `json:"errored_files"`
	Folders         []string `json:"folders"`
	ExpectedSize    int64    `json:"expected_size"`
}

// record is the persisted shape: both snapshots in one document.
type record struct {
	Product    *ProductRecord   `json:"product,omitempty"`
	Extraction ExtractionRecord `json:"extraction"`
}

// Store persists records. AddRecord returns the assigned record id.
type Store interface {
	AddRecord(ctx context.Context, product *ProductRecord, extraction ExtractionRecord) (uint64, error)
}
