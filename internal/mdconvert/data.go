package mdconvert

// Representation

type ConversionResult struct {
	markdownContent []byte
	linkRefs        []LinkRef
}

func NewConversionResult(
	markdownContent []byte,
	linkRefs []LinkRef,
) ConversionResult {
	return ConversionResult{
		markdownContent: markdownContent,
		linkRefs:        linkRefs,
	}
}

func (c *ConversionResult) GetMarkdownContent() []byte {
	return c.markdownContent
}

func (c *ConversionResult) GetLinkRefs() []LinkRef {
	return c.linkRefs
}

// ImageRefs returns only the image references, in document order. They are
// the asset-fetch candidates; each one must still pass the gateway before
// any request is made.
func (c *ConversionResult) ImageRefs() []LinkRef {
	var images []LinkRef
	for _, ref := range c.linkRefs {
		if ref.kind == KindImage {
			images = append(images, ref)
		}
	}
	return images
}

type LinkKind string

const (
	KindNavigation LinkKind = "navigation"
	KindImage      LinkKind = "image"
	KindAnchor     LinkKind = "anchor"
)

// LinkRef is one outbound reference found in the converted document.
type LinkRef struct {
	raw  string
	kind LinkKind
}

func NewLinkRef(
	raw string,
	kind LinkKind,
) LinkRef {
	return LinkRef{
		raw:  raw,
		kind: kind,
	}
}

func (l *LinkRef) GetRaw() string {
	return l.raw
}

func (l *LinkRef) GetKind() LinkKind {
	return l.kind
}
