package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/siblount/DazProductInstaller/internal/archive"
	"github.com/siblount/DazProductInstaller/internal/catalog"
	"github.com/siblount/DazProductInstaller/internal/decoder"
	"github.com/siblount/DazProductInstaller/internal/format"
	"github.com/siblount/DazProductInstaller/internal/logging"
)

type memStore struct {
	mu          sync.Mutex
	products    []*catalog.ProductRecord
	extractions []catalog.ExtractionRecord
}

func (m *memStore) AddRecord(_ context.Context, p *catalog.ProductRecord, x catalog.ExtractionRecord) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append(m.products, p)
	m.extractions = append(m.extractions, x)
	return uint64(len(m.extractions)), nil
}

func zipBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	w := zip.NewWriter(buf)
	for name, body := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := f.Write(body); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func writeArchive(t *testing.T, dir, name string, files map[string][]byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, zipBytes(t, files), 0o600); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return p
}

func testContext(t *testing.T, store catalog.Store) *Context {
	t.Helper()
	pctx := NewContext(t.TempDir(), t.TempDir(), 2, logging.Nop())
	pctx.Catalog = store
	return pctx
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "garbage.zip")
	if err := os.WriteFile(p, []byte("not an archive"), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	pctx := testContext(t, nil)
	if _, err := New(pctx, p); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
	if pctx.Registry.Len() != 0 {
		t.Fatalf("rejected archive must not be registered")
	}
}

func TestPeekIdempotent(t *testing.T) {
	src := writeArchive(t, t.TempDir(), "pack.zip", map[string][]byte{
		"Runtime/Textures/skin.jpg": []byte("j"),
		"ReadMe.txt":                []byte("r"),
	})
	pctx := testContext(t, nil)
	e, err := New(pctx, src)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()

	if err := e.Peek(context.Background()); err != nil {
		t.Fatalf("peek: %v", err)
	}
	folders, roots, entries := len(e.Hier.Folders), len(e.Hier.RootEntries), len(e.Hier.Entries)

	if err := e.Peek(context.Background()); err != nil {
		t.Fatalf("second peek: %v", err)
	}
	if len(e.Hier.Folders) != folders || len(e.Hier.RootEntries) != roots || len(e.Hier.Entries) != entries {
		t.Fatalf("peek not idempotent: %d/%d/%d vs %d/%d/%d",
			len(e.Hier.Folders), len(e.Hier.RootEntries), len(e.Hier.Entries), folders, roots, entries)
	}
}

func TestProductEndToEnd(t *testing.T) {
	supplement := `<ProductSupplement VERSION="0.1">
 <ProductName VALUE="Fancy Outfit"/>
 <ProductStoreIDX VALUE="13176-1"/>
 <Artists><Artist VALUE="alice"/></Artists>
</ProductSupplement>`
	dson := `{"asset_info":{"id":"/data/m.dsf","type":"wearable","contributor":{"author":"alice"}}}`

	src := writeArchive(t, t.TempDir(), "IM00013176-01_Fancy_Outfit.zip", map[string][]byte{
		"Runtime/Textures/skin.jpg": []byte("j"),
		"People/outfit.duf":         []byte(dson),
		"Supplement.dsx":            []byte(supplement),
	})
	store := &memStore{}
	pctx := testContext(t, store)
	e, err := New(pctx, src)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()

	if err := e.Process(context.Background()); err != nil {
		t.Fatalf("process: %v", err)
	}

	if e.Class != archive.ClassProduct {
		t.Fatalf("classification = %v, want product", e.Class)
	}
	if len(store.extractions) != 1 {
		t.Fatalf("expected one extraction record, got %d", len(store.extractions))
	}
	rec := store.extractions[0]
	if len(rec.ExtractedFiles) != 3 {
		t.Fatalf("expected 3 extracted files, got %v", rec.ExtractedFiles)
	}
	if len(rec.ErroredFiles) != 0 {
		t.Fatalf("expected no errors, got %v", rec.ErroredFiles)
	}

	product := store.products[0]
	if product == nil {
		t.Fatalf("expected a product record")
	}
	// Supplement name wins over the file-name parse.
	if product.Name != "Fancy Outfit" {
		t.Fatalf("unexpected product name: %q", product.Name)
	}
	if product.Author != "alice" {
		t.Fatalf("unexpected author: %q", product.Author)
	}
	wantTags := []string{"13176", "Fancy", "Outfit", "alice", "wearable"}
	got := map[string]bool{}
	for _, tag := range product.Tags {
		got[tag] = true
	}
	for _, want := range wantTags {
		if !got[want] {
			t.Fatalf("missing tag %q in %v", want, product.Tags)
		}
	}

	// Extracted files must exist on disk with preserved relative paths.
	if _, err := os.Stat(filepath.Join(pctx.DestRoot, "Runtime", "Textures", "skin.jpg")); err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
}

func TestBundleEndToEnd(t *testing.T) {
	inner := zipBytes(t, map[string][]byte{
		"Runtime/Textures/a.jpg": []byte("j"),
	})
	src := writeArchive(t, t.TempDir(), "Mega_Bundle.zip", map[string][]byte{
		"IM00000042-01_Inner_Product.zip": inner,
		"ReadMe.txt":                      []byte("hello"),
	})

	store := &memStore{}
	pctx := testContext(t, store)
	e, err := New(pctx, src)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()

	if err := e.Extract(context.Background()); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if e.DetermineArchiveType() != archive.ClassBundle {
		t.Fatalf("classification = %v, want bundle", e.Class)
	}
	product, err := e.CreateRecords(context.Background())
	if err != nil {
		t.Fatalf("create records: %v", err)
	}
	if product != nil {
		t.Fatalf("bundles must not yield a product record")
	}

	// The nested archive got its own registered engine with the
	// container back-reference set.
	nestedPath := filepath.Join(pctx.DestRoot, "IM00000042-01_Inner_Product.zip")
	child := pctx.Registry.Lookup(nestedPath)
	if child == nil {
		t.Fatalf("nested engine not registered")
	}
	if !child.IsInner || child.ContainerPath != src {
		t.Fatalf("nested engine container reference wrong: inner=%v container=%q", child.IsInner, child.ContainerPath)
	}
	if child.Class != archive.ClassProduct {
		t.Fatalf("nested classification = %v, want product", child.Class)
	}

	// Closing the container tears down nested engines too.
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if pctx.Registry.Len() != 0 {
		t.Fatalf("registry should be empty after close, has %d", pctx.Registry.Len())
	}
}

func TestContentFolderEvidenceWins(t *testing.T) {
	inner := zipBytes(t, map[string][]byte{"x.txt": []byte("x")})
	src := writeArchive(t, t.TempDir(), "mixed.zip", map[string][]byte{
		"Runtime/Textures/a.jpg": []byte("j"),
		"extra.zip":              inner,
	})
	pctx := testContext(t, &memStore{})
	e, err := New(pctx, src)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()

	if err := e.Extract(context.Background()); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if e.DetermineArchiveType() != archive.ClassProduct {
		t.Fatalf("content-folder evidence must dominate, got %v", e.Class)
	}
}

func TestClassificationUnknown(t *testing.T) {
	src := writeArchive(t, t.TempDir(), "odd.zip", map[string][]byte{
		"misc/notes.txt": []byte("n"),
	})
	pctx := testContext(t, nil)
	e, err := New(pctx, src)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()

	if err := e.Peek(context.Background()); err != nil {
		t.Fatalf("peek: %v", err)
	}
	if e.DetermineArchiveType() != archive.ClassUnknown {
		t.Fatalf("expected unknown classification, got %v", e.Class)
	}
}

// flakyReader fails specific entries to exercise partial-failure handling.
type flakyReader struct {
	entries []decoder.EntryInfo
	failOn  map[string]bool
}

func (f *flakyReader) List() ([]decoder.EntryInfo, error) { return f.entries, nil }

func (f *flakyReader) Extract(entryPath, destPath string) error {
	if f.failOn[entryPath] {
		return fmt.Errorf("simulated failure: %s", entryPath)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
		return err
	}
	return os.WriteFile(destPath, []byte("x"), 0o600)
}

func (f *flakyReader) ReadInPlace(string) ([]byte, error) {
	return nil, decoder.ErrReadUnsupported
}

func (f *flakyReader) Close() error { return nil }

func TestPartialFailureTolerance(t *testing.T) {
	var entries []decoder.EntryInfo
	for i := 1; i <= 10; i++ {
		entries = append(entries, decoder.EntryInfo{
			Path: fmt.Sprintf("Runtime/file%02d.txt", i),
			Size: 1,
		})
	}
	pctx := testContext(t, &memStore{})
	e := &Engine{
		Path:        "synthetic.zip",
		DisplayName: "synthetic.zip",
		Format:      format.Zip,
		Hier:        archive.NewHierarchy(nil),
		Info:        archive.NewProductInfo("synthetic.zip"),
		pctx:        pctx,
		reader:      &flakyReader{entries: entries, failOn: map[string]bool{"Runtime/file03.txt": true}},
		log:         logging.Nop(),
	}
	pctx.Registry.register(e.Path, e)
	defer e.Close()

	if err := e.Extract(context.Background()); err != nil {
		t.Fatalf("extract: %v", err)
	}
	rec := e.buildExtractionRecord()
	if len(rec.ExtractedFiles) != 9 {
		t.Fatalf("expected 9 successes, got %d", len(rec.ExtractedFiles))
	}
	if len(rec.ErroredFiles) != 1 || rec.ErroredFiles[0] != "Runtime/file03.txt" {
		t.Fatalf("unexpected errored files: %v", rec.ErroredFiles)
	}
}

func TestExtractConfinesToDestRoot(t *testing.T) {
	base := t.TempDir()
	destRoot := filepath.Join(base, "library")
	pctx := NewContext(destRoot, t.TempDir(), 1, logging.Nop())
	e := &Engine{
		Path:        "hostile.zip",
		DisplayName: "hostile.zip",
		Format:      format.Zip,
		Hier:        archive.NewHierarchy(nil),
		Info:        archive.NewProductInfo("hostile.zip"),
		pctx:        pctx,
		reader: &flakyReader{entries: []decoder.EntryInfo{
			{Path: "../escape.txt", Size: 1},
			{Path: "Runtime/ok.txt", Size: 1},
		}},
		log: logging.Nop(),
	}
	pctx.Registry.register(e.Path, e)
	defer e.Close()

	if err := e.Extract(context.Background()); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if errored := e.ErroredFiles(); len(errored) != 1 || errored[0] != "../escape.txt" {
		t.Fatalf("traversal entry not recorded as errored: %v", errored)
	}
	if _, err := os.Stat(filepath.Join(base, "escape.txt")); !os.IsNotExist(err) {
		t.Fatalf("entry escaped the destination root")
	}
	if _, err := os.Stat(filepath.Join(destRoot, "Runtime", "ok.txt")); err != nil {
		t.Fatalf("sibling entry should still extract: %v", err)
	}
}

func TestReExtractClearsErroredFiles(t *testing.T) {
	reader := &flakyReader{
		entries: []decoder.EntryInfo{
			{Path: "Runtime/a.txt", Size: 1},
			{Path: "Runtime/b.txt", Size: 1},
		},
		failOn: map[string]bool{"Runtime/b.txt": true},
	}
	pctx := testContext(t, nil)
	e := &Engine{
		Path:        "retry.zip",
		DisplayName: "retry.zip",
		Format:      format.Zip,
		Hier:        archive.NewHierarchy(nil),
		Info:        archive.NewProductInfo("retry.zip"),
		pctx:        pctx,
		reader:      reader,
		log:         logging.Nop(),
	}
	pctx.Registry.register(e.Path, e)
	defer e.Close()

	if err := e.Extract(context.Background()); err != nil {
		t.Fatalf("first extract: %v", err)
	}
	if len(e.ErroredFiles()) != 1 {
		t.Fatalf("expected one failure on first run: %v", e.ErroredFiles())
	}

	// The transient condition clears; a re-run must not report it.
	reader.failOn = nil
	if err := e.Extract(context.Background()); err != nil {
		t.Fatalf("second extract: %v", err)
	}
	if errored := e.ErroredFiles(); len(errored) != 0 {
		t.Fatalf("stale failures survived the re-run: %v", errored)
	}
	rec := e.buildExtractionRecord()
	if len(rec.ExtractedFiles) != 2 || len(rec.ErroredFiles) != 0 {
		t.Fatalf("record should show 2 successes and 0 failures: %+v", rec)
	}
}

func TestExtractCancellation(t *testing.T) {
	src := writeArchive(t, t.TempDir(), "pack.zip", map[string][]byte{
		"Runtime/a.txt": []byte("a"),
	})
	pctx := testContext(t, nil)
	e, err := New(pctx, src)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Extract(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	for _, entry := range e.Hier.Entries {
		if entry.Extracted {
			t.Fatalf("cancelled run must leave entries not-extracted")
		}
	}
}

func TestDescriptorScratchCleanup(t *testing.T) {
	supplement := `<ProductSupplement><ProductName VALUE="Scratch Test"/></ProductSupplement>`
	temp := t.TempDir()
	pctx := NewContext(t.TempDir(), temp, 1, logging.Nop())
	e := &Engine{
		Path:        "scratch.zip",
		DisplayName: "scratch.zip",
		Hier:        archive.NewHierarchy(nil),
		Info:        archive.NewProductInfo("scratch.zip"),
		pctx:        pctx,
		reader: &flakyReader{entries: []decoder.EntryInfo{
			{Path: "Supplement.dsx", Size: int64(len(supplement))},
		}},
		log: logging.Nop(),
	}
	pctx.Registry.register(e.Path, e)
	defer e.Close()

	if err := e.Peek(context.Background()); err != nil {
		t.Fatalf("peek: %v", err)
	}
	// flakyReader has no in-place reads, forcing the scratch path; the
	// scratch file content is synthetic so the parse fails non-fatally.
	if err := e.ReadMetaFiles(context.Background()); err != nil {
		t.Fatalf("read meta: %v", err)
	}
	remaining, err := os.ReadDir(temp)
	if err != nil {
		t.Fatalf("read temp root: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("scratch dirs not cleaned up: %v", remaining)
	}
}
