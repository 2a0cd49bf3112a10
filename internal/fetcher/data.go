package fetcher

import (
	"net/url"
)

// HTTP boundary

// Kind distinguishes a document fetch from a subresource fetch.
// Documents are subject to the robots check; assets are not.
type Kind int

const (
	KindDocument Kind = iota
	KindAsset
)

func (k Kind) String() string {
	if k == KindAsset {
		return "asset"
	}
	return "document"
}

type FetchResult struct {
	url  url.URL
	body []byte
	meta ResponseMeta
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) ContentType() string {
	return f.meta.contentType
}

func (f *FetchResult) SizeByte() uint64 {
	return f.meta.transferredSizeByte
}

// Digest returns the blake3 hash of the response body.
func (f *FetchResult) Digest() string {
	return f.meta.bodyDigest
}

// Warned reports whether robots.txt disallowed the fetch but the
// policy's warn mode let it proceed.
func (f *FetchResult) Warned() bool {
	return f.meta.robotsWarned
}

type ResponseMeta struct {
	statusCode          int
	contentType         string
	transferredSizeByte uint64
	bodyDigest          string
	robotsWarned        bool
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	fetchUrl url.URL,
	body []byte,
	statusCode int,
	contentType string,
) FetchResult {
	return FetchResult{
		url:  fetchUrl,
		body: body,
		meta: ResponseMeta{
			statusCode:          statusCode,
			contentType:         contentType,
			transferredSizeByte: uint64(len(body)),
		},
	}
}
