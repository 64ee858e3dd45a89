package parser

// Document is a queryable view of a page, either a parsed static tree or a live
// browser page. Selectors are CSS selectors.
type Document interface {
	// Find returns all elements matching selector in document order.
	Find(selector string) ([]Node, error)
}

// Node is a single element of a Document.
type Node interface {
	// Text returns the element's visible text, untrimmed.
	Text() (string, error)

	// Attr returns the named attribute and whether it is present.
	Attr(name string) (string, bool, error)

	// Find returns descendants matching selector in document order.
	Find(selector string) ([]Node, error)

	// NextSibling returns the next element sibling, or nil when there is none.
	NextSibling() (Node, error)
}
