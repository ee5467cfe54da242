package util

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		`Content\Runtime\Textures`: "Content/Runtime/Textures",
		"./Content/data/":          "Content/data",
		"/People/Genesis":          "People/Genesis",
		".":                        "",
	}
	for in, want := range cases {
		if got := NormalizePath(in); got != want {
			t.Fatalf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParentPath(t *testing.T) {
	if got := ParentPath(`Content\data\model.dsf`); got != "Content/data" {
		t.Fatalf("unexpected parent: %q", got)
	}
	if got := ParentPath("Manifest.dsx"); got != "" {
		t.Fatalf("expected root-level parent, got %q", got)
	}
}

func TestExtension(t *testing.T) {
	if got := Extension("Content/data/Model.DSF"); got != "dsf" {
		t.Fatalf("unexpected extension: %q", got)
	}
	if got := Extension("README"); got != "" {
		t.Fatalf("expected empty extension, got %q", got)
	}
}
