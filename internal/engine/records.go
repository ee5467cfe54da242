package engine

import (
	"context"
	"sort"
	"time"

	"github.com/siblount/DazProductInstaller/internal/archive"
	"github.com/siblount/DazProductInstaller/internal/catalog"
	"github.com/siblount/DazProductInstaller/internal/images"
)

// CreateRecords snapshots this archive's outcome and hands it to the
// catalog. Bundles carry no single product identity, so they emit only an
// ExtractionRecord and return nil; their nested archives produce their
// own ProductRecords when independently processed.
func (e *Engine) CreateRecords(ctx context.Context) (*catalog.ProductRecord, error) {
	extraction := e.buildExtractionRecord()

	var product *catalog.ProductRecord
	if e.Class != archive.ClassBundle {
		product = e.buildProductRecord(ctx)
	}

	if e.pctx.Catalog != nil {
		id, err := e.pctx.Catalog.AddRecord(ctx, product, extraction)
		if err != nil {
			return nil, err
		}
		e.log.Info().Uint64("record", id).Str("class", e.Class.String()).Msg("record created")
	}
	return product, nil
}

func (e *Engine) buildExtractionRecord() catalog.ExtractionRecord {
	var extracted []string
	for _, entry := range e.Hier.Entries {
		if entry.Extracted {
			extracted = append(extracted, entry.TargetPath)
		}
	}
	folders := e.Hier.FolderPaths()
	sort.Strings(folders)

	return catalog.ExtractionRecord{
		ArchiveFileName: e.DisplayName,
		DestinationPath: e.pctx.DestRoot,
		ExtractedFiles:  extracted,
		ErroredFiles:    e.ErroredFiles(),
		Folders:         folders,
		ExpectedSize:    e.expectedSize,
	}
}

func (e *Engine) buildProductRecord(ctx context.Context) *catalog.ProductRecord {
	record := &catalog.ProductRecord{
		Name:      e.Info.Name,
		Tags:      e.Info.TagList(),
		Author:    e.Info.PrimaryAuthor(),
		CreatedAt: time.Now().UTC(),
	}
	sort.Strings(record.Tags)

	if e.pctx.Images != nil && images.Permitted(e.pctx.ImageMode, e.pctx.Decide, e.DisplayName) {
		thumb, err := e.pctx.Images.FetchThumbnail(ctx, e.DisplayName)
		if err != nil {
			e.log.Warn().Err(err).Msg("thumbnail fetch failed")
		} else {
			record.Thumbnail = thumb
		}
	}
	return record
}
