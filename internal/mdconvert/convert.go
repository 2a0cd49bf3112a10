package mdconvert

import (
	"bytes"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"

	"github.com/rohmanhakim/docmark/internal/metadata"
)

/*
Design Principles
- Semantic fidelity over visual fidelity
- No inferred structure
- No code reformatting
- GitHub-Flavored Markdown compatibility

Conversion Rules
- Headings map directly (h1-h6 to # - ######)
- Code blocks preserved verbatim
- Tables converted structurally (GFM)
- Links and images preserved as-is (no resolution)
- DOM order preserved

Chrome elements (script, style, nav, header, footer, aside) are stripped
before conversion: they carry no document content and routinely confuse
structure detection.
*/

// strippedSelectors are removed from the DOM before conversion.
const strippedSelectors = "script, style, noscript, nav, header, footer, aside, iframe"

type Converter struct {
	metadataSink metadata.MetadataSink
}

func NewConverter(metadataSink metadata.MetadataSink) *Converter {
	return &Converter{
		metadataSink: metadataSink,
	}
}

// Convert transforms fetched HTML into Markdown plus the document's
// outbound link references, in DOM order.
func (c *Converter) Convert(htmlContent []byte) (ConversionResult, *ConversionError) {
	result, conversionErr := convert(htmlContent)
	if conversionErr != nil {
		c.metadataSink.RecordError(
			time.Now(),
			"mdconvert",
			"Converter.Convert",
			mapConversionErrorToMetadataCause(conversionErr),
			conversionErr.Message,
			[]metadata.Attribute{},
		)
		return ConversionResult{}, conversionErr
	}
	return result, nil
}

// convert is a stateless pure function that transforms raw HTML into a
// ConversionResult. It uses the html-to-markdown/v2 library for
// deterministic, semantic conversion.
func convert(htmlContent []byte) (ConversionResult, *ConversionError) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlContent))
	if err != nil {
		return ConversionResult{}, &ConversionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseParseFailure,
		}
	}

	doc.Find(strippedSelectors).Remove()

	// Link refs are collected before conversion so the markdown renderer
	// cannot reorder or drop them.
	linkRefs := extractLinkRefs(doc)

	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)

	root := doc.Selection.Nodes
	if len(root) == 0 {
		return NewConversionResult(nil, linkRefs), nil
	}

	markdown, err := conv.ConvertNode(root[0])
	if err != nil {
		return ConversionResult{}, &ConversionError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseConversionFailure,
		}
	}

	return NewConversionResult(markdown, linkRefs), nil
}

// extractLinkRefs finds <a> tags with href attributes and <img> tags
// with src attributes, in document order.
func extractLinkRefs(doc *goquery.Document) []LinkRef {
	var linkRefs []LinkRef

	doc.Find("a[href], img[src]").Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "a":
			if href, exists := s.Attr("href"); exists {
				linkRefs = append(linkRefs, toLinkRef("a", href))
			}
		case "img":
			if src, exists := s.Attr("src"); exists {
				linkRefs = append(linkRefs, toLinkRef("img", src))
			}
		}
	})

	return linkRefs
}

// toLinkRef classifies the link based on tag type and URL pattern.
func toLinkRef(tagName, raw string) LinkRef {
	var kind LinkKind
	switch strings.ToLower(tagName) {
	case "img":
		kind = KindImage
	case "a":
		if strings.HasPrefix(raw, "#") {
			kind = KindAnchor
		} else {
			kind = KindNavigation
		}
	default:
		kind = KindNavigation
	}

	return NewLinkRef(raw, kind)
}
