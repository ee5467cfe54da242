package archive

import (
	"reflect"
	"testing"
)

func TestSplitProductName(t *testing.T) {
	got := SplitProductName("My-Cool_Asset Pack")
	want := []string{"My", "Cool", "Asset", "Pack"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitProductName = %v, want %v", got, want)
	}
}

func TestSplitProductNameCollapsesSeparators(t *testing.T) {
	got := SplitProductName("a--b__c  d++e")
	want := []string{"a", "b", "c", "d", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitProductName = %v, want %v", got, want)
	}
}

func TestParseArchiveName(t *testing.T) {
	name, sku := ParseArchiveName("IM00013176-01_Fancy_Outfit.zip")
	if name != "Fancy_Outfit" {
		t.Fatalf("unexpected name: %q", name)
	}
	if sku != "13176" {
		t.Fatalf("unexpected sku: %q", sku)
	}

	name, sku = ParseArchiveName("Fancy Outfit.rar")
	if name != "Fancy Outfit" || sku != "" {
		t.Fatalf("unexpected plain parse: %q %q", name, sku)
	}
}

func TestClassifyEntry(t *testing.T) {
	cases := map[string]Kind{
		"Manifest.dsx":              KindManifest,
		"sub/Supplement.dsx":        KindSupplement,
		"Content/data/model.dsf":    KindContent,
		"Runtime/Textures/skin.jpg": KindContent,
		"inner/pack.zip":            KindNestedArchive,
		"ReadMe.txt":                KindPlain,
	}
	for p, want := range cases {
		if got := ClassifyEntry(p); got != want {
			t.Fatalf("ClassifyEntry(%q) = %v, want %v", p, got, want)
		}
	}
}

func TestHierarchyFindParent(t *testing.T) {
	h := NewHierarchy(nil)
	h.AddFolder("Content/Runtime")

	e := NewEntry(`Content\Runtime\geom.obj`, 10)
	h.AddEntry(e)
	if len(h.RootEntries) != 0 {
		t.Fatalf("entry should have resolved to a folder")
	}
	f := h.Folders["Content/Runtime"]
	if len(f.Entries) != 1 || f.Entries[0] != e {
		t.Fatalf("entry not attached to parent folder")
	}

	// No registered folder: root-level, not an error.
	orphan := NewEntry("loose/readme.txt", 1)
	h.AddEntry(orphan)
	if len(h.RootEntries) != 1 || h.RootEntries[0] != orphan {
		t.Fatalf("orphan entry should be root-level")
	}
}

func TestHierarchyContentFolderFlag(t *testing.T) {
	h := NewHierarchy([]string{"My Extras"})
	h.AddFolder("Content/Runtime/Textures")
	if !h.HasContentFolder() {
		t.Fatalf("Runtime should be a content folder")
	}

	h2 := NewHierarchy([]string{"My Extras"})
	h2.AddFolder("stuff/My Extras")
	if !h2.HasContentFolder() {
		t.Fatalf("configured extra content folder not honored")
	}

	h3 := NewHierarchy(nil)
	h3.AddFolder("misc/other")
	if h3.HasContentFolder() {
		t.Fatalf("unexpected content folder")
	}
}

func TestHierarchyResetIsIdempotent(t *testing.T) {
	h := NewHierarchy(nil)
	populate := func() {
		h.Reset()
		h.AddFolder("People/Genesis")
		h.AddEntry(NewEntry("People/Genesis/figure.duf", 5))
		h.AddEntry(NewEntry("root.txt", 1))
	}
	populate()
	folders, roots := len(h.Folders), len(h.RootEntries)
	populate()
	if len(h.Folders) != folders || len(h.RootEntries) != roots {
		t.Fatalf("rebuild changed hierarchy: %d/%d vs %d/%d",
			len(h.Folders), len(h.RootEntries), folders, roots)
	}
}

func TestProductInfoTagUnion(t *testing.T) {
	p := NewProductInfo("IM00000042-01_Thing.zip")
	p.AddAuthor("alice")
	p.AddAuthor("alice")
	if len(p.Authors) != 1 {
		t.Fatalf("duplicate author retained: %v", p.Authors)
	}
	p.EnsureTags(4)
	p.AddTag("alice")
	p.AddTag("alice")
	p.AddTag("")
	if len(p.Tags) != 1 {
		t.Fatalf("tag set should deduplicate: %v", p.TagList())
	}
}
