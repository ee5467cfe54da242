package archive

// Classification is the inferred archive type.
type Classification int

const (
	ClassUnknown Classification = iota
	// ClassProduct is an archive holding installable content directly.
	ClassProduct
	// ClassBundle is a wrapper whose content is nested archives.
	ClassBundle
)

func (c Classification) String() string {
	switch c {
	case ClassProduct:
		return "product"
	case ClassBundle:
		return "bundle"
	default:
		return "unknown"
	}
}
