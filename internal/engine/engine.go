// Package engine orchestrates the peek/extract/classify/tag workflow over
// one archive, recursing into nested archives discovered along the way.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/siblount/DazProductInstaller/internal/archive"
	"github.com/siblount/DazProductInstaller/internal/decoder"
	"github.com/siblount/DazProductInstaller/internal/format"
	"github.com/siblount/DazProductInstaller/internal/meta"
	"github.com/siblount/DazProductInstaller/internal/util"
)

// ErrUnknownFormat reports that magic-byte detection failed. The archive
// is never instantiated.
var ErrUnknownFormat = errors.New("unknown archive format")

// Engine processes one archive. Per-archive state is owned exclusively by
// its engine; only the errored-files list sees concurrent appends.
type Engine struct {
	Path        string
	DisplayName string
	Format      format.Format
	Class       archive.Classification

	// RelBase is the relative path under the destination root this
	// archive's entries extract beneath.
	RelBase string
	// IsInner marks an archive nested inside another.
	IsInner bool
	// ContainerPath identifies the containing archive by registry key.
	// It is a lookup identifier, never an owning reference.
	ContainerPath string

	Hier *archive.Hierarchy
	Info *archive.ProductInfo

	// Manifest and Supplement reference discovered descriptor entries.
	Manifest   *archive.Entry
	Supplement *archive.Entry

	pctx   *Context
	reader decoder.Reader
	log    zerolog.Logger

	mu      sync.Mutex
	errored []string

	contentParsed []meta.Parsed
	expectedSize  int64
	childPaths    []string
	closed        bool
}

// New detects the archive's format, opens the matching decoder, and
// registers the engine. Unknown format and open failures are fatal to
// this archive only.
func New(pctx *Context, archivePath string) (*Engine, error) {
	return newEngine(pctx, archivePath, "", false, "")
}

func newEngine(pctx *Context, archivePath, relBase string, inner bool, containerPath string) (*Engine, error) {
	f, err := format.DetectPath(archivePath)
	if err != nil {
		return nil, fmt.Errorf("detect %s: %w", archivePath, err)
	}
	if f == format.Unknown {
		return nil, fmt.Errorf("%s: %w", archivePath, ErrUnknownFormat)
	}
	r, err := decoder.Open(f, archivePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", archivePath, err)
	}

	e := &Engine{
		Path:          archivePath,
		DisplayName:   util.BaseName(archivePath),
		Format:        f,
		RelBase:       relBase,
		IsInner:       inner,
		ContainerPath: containerPath,
		Hier:          archive.NewHierarchy(pctx.ContentFolders),
		Info:          archive.NewProductInfo(archivePath),
		pctx:          pctx,
		reader:        r,
		log:           pctx.Log.With().Str("archive", util.BaseName(archivePath)).Logger(),
	}
	pctx.Registry.register(archivePath, e)
	return e, nil
}

// Close releases the decoder, closes any nested engines, and removes this
// engine from the registry. It is safe to call more than once and must
// run on every exit path.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	for _, p := range e.childPaths {
		if child := e.pctx.Registry.Lookup(p); child != nil {
			_ = child.Close()
		}
	}
	e.pctx.Registry.unregister(e.Path)
	return e.reader.Close()
}

// Peek enumerates entries without materializing bytes and rebuilds the
// hierarchy model. Re-running clears previous state first.
func (e *Engine) Peek(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	infos, err := e.reader.List()
	if err != nil {
		return fmt.Errorf("list %s: %w", e.DisplayName, err)
	}

	e.Hier.Reset()
	e.Manifest = nil
	e.Supplement = nil
	e.expectedSize = 0
	e.mu.Lock()
	e.errored = nil
	e.mu.Unlock()

	for _, info := range infos {
		if info.IsDir {
			e.Hier.AddFolder(info.Path)
			continue
		}
		// Folders implied by file paths may never appear as explicit
		// directory entries; register them before resolving the parent.
		if dir := util.ParentPath(info.Path); dir != "" {
			e.Hier.AddFolder(dir)
		}
		entry := archive.NewEntry(info.Path, info.Size)
		e.Hier.AddEntry(entry)
		e.expectedSize += info.Size

		switch entry.Kind {
		case archive.KindManifest:
			if e.Manifest == nil {
				e.Manifest = entry
			}
		case archive.KindSupplement:
			if e.Supplement == nil {
				e.Supplement = entry
			}
		}
	}
	return nil
}

// targetPath is where an entry lands under the destination root. Entry
// paths are attacker-controlled; a path that resolves outside the root
// (leading ".." segments survive normalization) is rejected.
func (e *Engine) targetPath(entry *archive.Entry) (string, error) {
	rel := entry.Path
	if e.RelBase != "" {
		rel = path.Join(e.RelBase, rel)
	}
	root := filepath.Clean(e.pctx.DestRoot)
	target := filepath.Join(root, filepath.FromSlash(rel))
	escape, err := filepath.Rel(root, target)
	if err != nil || escape == ".." || strings.HasPrefix(escape, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry escapes destination root: %s", entry.Path)
	}
	return target, nil
}

func (e *Engine) appendErrored(entryPath string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errored = append(e.errored, entryPath)
}

// ErroredFiles returns the entries whose extraction failed.
func (e *Engine) ErroredFiles() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.errored))
	copy(out, e.errored)
	return out
}

// Extract materializes every entry under the destination root, then
// recurses into nested archives with bounded parallel workers. Individual
// entry failures are recorded and siblings continue; cancellation is
// checked between entries and leaves the remainder not-extracted.
func (e *Engine) Extract(ctx context.Context) error {
	if err := e.Peek(ctx); err != nil {
		return err
	}

	for _, entry := range e.Hier.Entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		target, err := e.targetPath(entry)
		if err != nil {
			e.log.Warn().Err(err).Str("entry", entry.Path).Msg("entry rejected")
			e.appendErrored(entry.Path)
			continue
		}
		if err := e.reader.Extract(entry.Path, target); err != nil {
			e.log.Warn().Err(err).Str("entry", entry.Path).Msg("entry extraction failed")
			e.appendErrored(entry.Path)
			continue
		}
		entry.Extracted = true
		entry.TargetPath = target
	}

	return e.extractNested(ctx)
}

// extractNested processes nested archives discovered during extraction,
// each with its own engine and a relative base under this archive's.
func (e *Engine) extractNested(ctx context.Context) error {
	nested := e.Hier.NestedArchives()
	if len(nested) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.pctx.Limit)
	for _, entry := range nested {
		if !entry.Extracted {
			continue
		}
		entry := entry
		g.Go(func() error {
			relBase := util.ParentPath(entry.Path)
			if e.RelBase != "" {
				relBase = path.Join(e.RelBase, relBase)
			}
			// A re-run replaces the previous child engine for this path.
			if prev := e.pctx.Registry.Lookup(entry.TargetPath); prev != nil {
				_ = prev.Close()
			}
			child, err := newEngine(e.pctx, entry.TargetPath, relBase, true, e.Path)
			if err != nil {
				// Fatal to the nested archive only.
				e.log.Warn().Err(err).Str("entry", entry.Path).Msg("nested archive rejected")
				e.appendErrored(entry.Path)
				return nil
			}
			e.mu.Lock()
			e.childPaths = append(e.childPaths, entry.TargetPath)
			e.mu.Unlock()
			if err := child.Process(gctx); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				e.log.Warn().Err(err).Str("entry", entry.Path).Msg("nested archive failed")
			}
			return nil
		})
	}
	return g.Wait()
}

// ReadMetaFiles reads discovered descriptors and merges them into the
// product info. Backends without in-place reads fall back to a scratch
// extraction that is cleaned up regardless of outcome.
func (e *Engine) ReadMetaFiles(ctx context.Context) error {
	for _, entry := range e.Hier.Descriptors() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		data, err := e.readEntry(entry)
		if err != nil {
			e.log.Warn().Err(err).Str("entry", entry.Path).Msg("descriptor read failed")
			continue
		}
		parsed, err := e.pctx.Parser.Parse(data)
		if err != nil {
			e.log.Warn().Err(err).Str("entry", entry.Path).Msg("descriptor parse failed")
			continue
		}
		meta.Merge(e.Info, parsed)
	}
	return nil
}

// readEntry returns an entry's bytes, preferring in-place reads.
func (e *Engine) readEntry(entry *archive.Entry) ([]byte, error) {
	data, err := e.reader.ReadInPlace(entry.Path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, decoder.ErrReadUnsupported) {
		return nil, err
	}

	scratch, err := os.MkdirTemp(e.pctx.TempRoot, "dpi-meta-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	target := filepath.Join(scratch, entry.Name())
	if err := e.reader.Extract(entry.Path, target); err != nil {
		return nil, err
	}
	return os.ReadFile(target)
}

// ReadContentFiles scans extracted DSON assets for author and tag hints.
func (e *Engine) ReadContentFiles(ctx context.Context) error {
	e.contentParsed = e.contentParsed[:0]
	for _, entry := range e.Hier.ContentFiles() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		switch entry.Extension() {
		case "duf", "dsf":
		default:
			continue
		}
		if !entry.Extracted {
			continue
		}
		data, err := os.ReadFile(entry.TargetPath)
		if err != nil {
			e.log.Warn().Err(err).Str("entry", entry.Path).Msg("content read failed")
			continue
		}
		parsed, err := meta.ReadContentFile(data)
		if err != nil {
			e.log.Debug().Err(err).Str("entry", entry.Path).Msg("content parse skipped")
			continue
		}
		e.contentParsed = append(e.contentParsed, parsed)
	}
	return nil
}

// DetermineArchiveType classifies the archive after Peek or Extract.
// Content-folder evidence always wins over nested-archive evidence.
func (e *Engine) DetermineArchiveType() archive.Classification {
	if e.Hier.HasContentFolder() {
		e.Class = archive.ClassProduct
		return e.Class
	}
	for _, entry := range e.Hier.RootEntries {
		if entry.Kind == archive.KindNestedArchive {
			e.Class = archive.ClassBundle
			return e.Class
		}
	}
	e.Class = archive.ClassUnknown
	return e.Class
}

// GetTags aggregates the product's tag set: product-name tokens, content
// and descriptor hints, authors, and the SKU when present.
func (e *Engine) GetTags(ctx context.Context) error {
	tokens := archive.SplitProductName(e.Info.Name)

	if err := e.ReadContentFiles(ctx); err != nil {
		return err
	}
	if err := e.ReadMetaFiles(ctx); err != nil {
		return err
	}

	estimated := len(e.Info.Authors)
	for _, p := range e.contentParsed {
		estimated += len(p.TagHints)
	}
	e.Info.EnsureTags(estimated + len(tokens))

	for _, tok := range tokens {
		e.Info.AddTag(tok)
	}
	for _, p := range e.contentParsed {
		for _, a := range p.Authors {
			e.Info.AddAuthor(a)
		}
		for _, t := range p.TagHints {
			e.Info.AddTag(t)
		}
	}
	for _, a := range e.Info.Authors {
		e.Info.AddTag(a)
	}
	if e.Info.SKU != "" {
		e.Info.AddTag(e.Info.SKU)
	}
	return nil
}

// Process runs the full pipeline for one archive: extract, classify, tag,
// and emit records.
func (e *Engine) Process(ctx context.Context) error {
	if err := e.Extract(ctx); err != nil {
		return err
	}
	e.DetermineArchiveType()
	if e.Class != archive.ClassBundle {
		if err := e.GetTags(ctx); err != nil {
			return err
		}
	}
	_, err := e.CreateRecords(ctx)
	return err
}
