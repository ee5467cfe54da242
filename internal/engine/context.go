package engine

import (
	"github.com/rs/zerolog"

	"github.com/siblount/DazProductInstaller/internal/catalog"
	"github.com/siblount/DazProductInstaller/internal/images"
	"github.com/siblount/DazProductInstaller/internal/meta"
)

// Context carries everything one ingestion run shares across archives:
// the registry, the collaborators, and the extraction layout. It replaces
// ambient globals; recursion passes it down explicitly.
type Context struct {
	Registry *Registry
	Catalog  catalog.Store
	Images   images.Fetcher
	Parser   meta.Parser

	// ImageMode is the tri-state thumbnail decision; Decide answers a
	// prompt synchronously when ImageMode is ModePrompt.
	ImageMode images.Mode
	Decide    images.Decision

	// DestRoot is the library root extraction writes under; TempRoot
	// holds scratch extractions for descriptor-only reads.
	DestRoot string
	TempRoot string

	// Limit bounds concurrent nested-archive workers.
	Limit int

	// ContentFolders extends the recognized content folder names.
	ContentFolders []string

	Log zerolog.Logger
}

// NewContext builds a processing context with a fresh registry and a
// no-op descriptor parser fallback.
func NewContext(destRoot, tempRoot string, limit int, log zerolog.Logger) *Context {
	if limit <= 0 {
		limit = 1
	}
	return &Context{
		Registry: NewRegistry(),
		Parser:   meta.DSXParser{},
		DestRoot: destRoot,
		TempRoot: tempRoot,
		Limit:    limit,
		Log:      log,
	}
}
