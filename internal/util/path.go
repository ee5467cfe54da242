package util

import (
	"path"
	"strings"
)

// NormalizePath rewrites an archive entry path to the single separator
// convention used across the hierarchy: forward slashes, no leading or
// trailing slash, no "." segments.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// ParentPath returns the normalized directory portion of p, or "" for a
// root-level path.
func ParentPath(p string) string {
	p = NormalizePath(p)
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// BaseName returns the final path segment of p.
func BaseName(p string) string {
	p = NormalizePath(p)
	if p == "" {
		return ""
	}
	return path.Base(p)
}

// Extension returns the lowercased extension of p without the dot, or ""
// when the name has none.
func Extension(p string) string {
	ext := path.Ext(BaseName(p))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
