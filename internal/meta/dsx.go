package meta

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// DSX files store every value as a VALUE attribute on a named element.
type dsxValue struct {
	Value string `xml:"VALUE,attr"`
}

type productSupplement struct {
	XMLName         xml.Name   `xml:"ProductSupplement"`
	ProductName     dsxValue   `xml:"ProductName"`
	InstallTypes    dsxValue   `xml:"InstallTypes"`
	ProductStoreIDX dsxValue   `xml:"ProductStoreIDX"`
	ProductTags     dsxValue   `xml:"ProductTags"`
	Artists         []dsxValue `xml:"Artists>Artist"`
}

type installManifest struct {
	XMLName  xml.Name `xml:"DAZInstallManifest"`
	GlobalID dsxValue `xml:"GlobalID"`
	Files    []struct {
		Target string `xml:"TARGET,attr"`
		Action string `xml:"ACTION,attr"`
		Value  string `xml:"VALUE,attr"`
	} `xml:"File"`
}

// parseSupplement reads a Supplement.dsx. The store index carries the SKU
// left of the dash ("12345-1" -> "12345").
func parseSupplement(data []byte) (Parsed, error) {
	var doc productSupplement
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Parsed{}, fmt.Errorf("parse supplement: %w", err)
	}
	out := Parsed{ProductName: strings.TrimSpace(doc.ProductName.Value)}
	if idx := doc.ProductStoreIDX.Value; idx != "" {
		out.SKU = strings.TrimSpace(strings.SplitN(idx, "-", 2)[0])
	}
	for _, artist := range doc.Artists {
		if a := strings.TrimSpace(artist.Value); a != "" {
			out.Authors = append(out.Authors, a)
		}
	}
	for _, tag := range strings.Fields(doc.ProductTags.Value) {
		out.TagHints = append(out.TagHints, tag)
	}
	return out, nil
}

// parseManifest reads a Manifest.dsx. Manifests carry no product name or
// author, but their file rows confirm install-type content; the TARGET
// values become tag hints.
func parseManifest(data []byte) (Parsed, error) {
	var doc installManifest
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Parsed{}, fmt.Errorf("parse manifest: %w", err)
	}
	out := Parsed{}
	seen := map[string]struct{}{}
	for _, f := range doc.Files {
		target := strings.TrimSpace(f.Target)
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out.TagHints = append(out.TagHints, target)
	}
	return out, nil
}
