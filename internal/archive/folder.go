package archive

import (
	"strings"

	"github.com/siblount/DazProductInstaller/internal/util"
)

// Folder is a directory discovered in an archive's hierarchy.
type Folder struct {
	Path string
	// IsContentFolder marks a folder whose name matches the DAZ library
	// layout. Its presence signals a standalone product rather than a
	// bundle wrapper.
	IsContentFolder bool
	Entries         []*Entry
}

// contentFolderNames is the DAZ Studio library layout. A folder with one
// of these names (any depth, case-insensitive) is install-type content.
var contentFolderNames = map[string]struct{}{
	"aniblocks": {}, "animals": {}, "architecture": {}, "camera presets": {},
	"data": {}, "daz studio tutorials": {}, "documentation": {}, "documents": {},
	"environments": {}, "general": {}, "light presets": {}, "lights": {},
	"people": {}, "presets": {}, "props": {}, "render presets": {},
	"render settings": {}, "runtime": {}, "scene builder": {}, "scene subsets": {},
	"scenes": {}, "scripts": {}, "shader presets": {}, "shaders": {},
	"support": {}, "templates": {}, "textures": {}, "vehicles": {},
}

// NewFolder builds a Folder from a decoder-reported directory path.
// extraContentNames lets callers extend the recognized layout via config.
func NewFolder(folderPath string, extraContentNames []string) *Folder {
	norm := util.NormalizePath(folderPath)
	return &Folder{
		Path:            norm,
		IsContentFolder: isContentFolderName(util.BaseName(norm), extraContentNames),
	}
}

func isContentFolderName(name string, extra []string) bool {
	lower := strings.ToLower(name)
	if _, ok := contentFolderNames[lower]; ok {
		return true
	}
	for _, e := range extra {
		if strings.EqualFold(e, name) {
			return true
		}
	}
	return false
}
