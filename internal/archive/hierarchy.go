package archive

import (
	"strings"

	"github.com/siblount/DazProductInstaller/internal/util"
)

// Hierarchy models the folder/file tree of one archive. Folders are kept
// in a path-keyed map so parent resolution is a lookup, not a scan;
// root-level items are tracked separately for fast top-level iteration.
type Hierarchy struct {
	Folders     map[string]*Folder
	RootFolders []*Folder
	Entries     []*Entry
	RootEntries []*Entry

	extraContentNames []string
}

func NewHierarchy(extraContentNames []string) *Hierarchy {
	return &Hierarchy{
		Folders:           make(map[string]*Folder),
		extraContentNames: extraContentNames,
	}
}

// Reset clears all discovered state so a re-run rebuilds from scratch.
func (h *Hierarchy) Reset() {
	h.Folders = make(map[string]*Folder)
	h.RootFolders = nil
	h.Entries = nil
	h.RootEntries = nil
}

// AddFolder registers a folder (and any missing ancestors) in the map.
func (h *Hierarchy) AddFolder(folderPath string) *Folder {
	norm := util.NormalizePath(folderPath)
	if norm == "" {
		return nil
	}
	if f, ok := h.Folders[norm]; ok {
		return f
	}
	f := NewFolder(norm, h.extraContentNames)
	h.Folders[norm] = f
	parent := util.ParentPath(norm)
	if parent == "" {
		h.RootFolders = append(h.RootFolders, f)
	} else {
		h.AddFolder(parent)
	}
	return f
}

// AddEntry registers an entry, creating its parent folder chain as needed
// and attaching the entry to its containing folder. Entries with no
// registered parent are treated as root-level.
func (h *Hierarchy) AddEntry(e *Entry) {
	h.Entries = append(h.Entries, e)
	parent := h.FindParent(e)
	if parent == nil {
		h.RootEntries = append(h.RootEntries, e)
		return
	}
	parent.Entries = append(parent.Entries, e)
}

// FindParent resolves an entry's containing folder: strip the file name,
// exact lookup first, separator-normalized lookup second. A miss means
// the entry is root-level; that is not an error.
func (h *Hierarchy) FindParent(e *Entry) *Folder {
	dir := strings.TrimSuffix(e.Path, e.Name())
	dir = strings.TrimRight(dir, "/\\")
	if dir == "" {
		return nil
	}
	if f, ok := h.Folders[dir]; ok {
		return f
	}
	if f, ok := h.Folders[util.NormalizePath(dir)]; ok {
		return f
	}
	return nil
}

// HasContentFolder reports whether any registered folder is flagged as
// install-type content.
func (h *Hierarchy) HasContentFolder() bool {
	for _, f := range h.Folders {
		if f.IsContentFolder {
			return true
		}
	}
	return false
}

// Descriptors returns the manifest and supplement entries in discovery order.
func (h *Hierarchy) Descriptors() []*Entry {
	var out []*Entry
	for _, e := range h.Entries {
		if e.IsDescriptor() {
			out = append(out, e)
		}
	}
	return out
}

// ContentFiles returns recognized content-asset entries.
func (h *Hierarchy) ContentFiles() []*Entry {
	var out []*Entry
	for _, e := range h.Entries {
		if e.Kind == KindContent {
			out = append(out, e)
		}
	}
	return out
}

// NestedArchives returns entries that are themselves archives.
func (h *Hierarchy) NestedArchives() []*Entry {
	var out []*Entry
	for _, e := range h.Entries {
		if e.Kind == KindNestedArchive {
			out = append(out, e)
		}
	}
	return out
}

// FolderPaths returns every registered folder path.
func (h *Hierarchy) FolderPaths() []string {
	out := make([]string, 0, len(h.Folders))
	for p := range h.Folders {
		out = append(out, p)
	}
	return out
}
