package archive

import (
	"strings"

	"github.com/siblount/DazProductInstaller/internal/util"
)

// ProductInfo is the derived descriptive data for one archive.
type ProductInfo struct {
	Name    string
	Authors []string
	SKU     string
	Tags    map[string]struct{}
}

func NewProductInfo(archivePath string) *ProductInfo {
	name, sku := ParseArchiveName(util.BaseName(archivePath))
	return &ProductInfo{Name: name, SKU: sku}
}

// AddAuthor appends an author unless it is already known.
func (p *ProductInfo) AddAuthor(author string) {
	author = strings.TrimSpace(author)
	if author == "" {
		return
	}
	for _, a := range p.Authors {
		if strings.EqualFold(a, author) {
			return
		}
	}
	p.Authors = append(p.Authors, author)
}

// PrimaryAuthor returns the first discovered author, or "".
func (p *ProductInfo) PrimaryAuthor() string {
	if len(p.Authors) == 0 {
		return ""
	}
	return p.Authors[0]
}

// EnsureTags pre-sizes the tag set for an estimated tag count.
func (p *ProductInfo) EnsureTags(estimated int) {
	if p.Tags == nil {
		p.Tags = make(map[string]struct{}, estimated)
	}
}

// AddTag unions one tag into the set; empty strings are ignored.
func (p *ProductInfo) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	p.EnsureTags(0)
	p.Tags[tag] = struct{}{}
}

// TagList returns the tag set as a slice. Order is not significant.
func (p *ProductInfo) TagList() []string {
	out := make([]string, 0, len(p.Tags))
	for t := range p.Tags {
		out = append(out, t)
	}
	return out
}

// SplitProductName tokenizes a product name on the separators
// '+', '-', '_' and whitespace. Consecutive separators collapse.
func SplitProductName(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		switch r {
		case '+', '-', '_', ' ', '\t':
			return true
		}
		return false
	})
}

// ParseArchiveName derives the product name and SKU from an archive file
// name. DAZ store packages follow "IM00013176-01_Product_Name.zip": the
// numeric block is the SKU, the portion after the first underscore is the
// product name. Anything else keeps the full base name and no SKU.
func ParseArchiveName(fileName string) (name, sku string) {
	base := fileName
	if ext := util.Extension(base); ext != "" {
		base = base[:len(base)-len(ext)-1]
	}
	if len(base) > 2 && (strings.HasPrefix(base, "IM") || strings.HasPrefix(base, "im")) {
		digits := 0
		for digits+2 < len(base) && base[digits+2] >= '0' && base[digits+2] <= '9' {
			digits++
		}
		if digits > 0 {
			sku = strings.TrimLeft(base[2:2+digits], "0")
			rest := base[2+digits:]
			if i := strings.IndexByte(rest, '_'); i >= 0 {
				name = rest[i+1:]
			}
			if name != "" {
				return name, sku
			}
		}
	}
	return base, sku
}
