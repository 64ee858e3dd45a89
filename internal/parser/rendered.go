package parser

import (
	"github.com/go-rod/rod"
)

// RenderedDocument is a Document backed by a live rod page. Every call is a
// round trip to the browser, so callers must not share the page concurrently.
type RenderedDocument struct {
	page *rod.Page
}

// NewRenderedDocument wraps a fully loaded page.
func NewRenderedDocument(page *rod.Page) *RenderedDocument {
	return &RenderedDocument{page: page}
}

// Find implements Document. It does not wait for elements to appear.
func (d *RenderedDocument) Find(selector string) ([]Node, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	return elementNodes(els), nil
}

type renderedNode struct {
	el *rod.Element
}

func (n renderedNode) Text() (string, error) {
	return n.el.Text()
}

func (n renderedNode) Attr(name string) (string, bool, error) {
	v, err := n.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (n renderedNode) Find(selector string) ([]Node, error) {
	els, err := n.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	return elementNodes(els), nil
}

func (n renderedNode) NextSibling() (Node, error) {
	els, err := n.el.ElementsX("following-sibling::*[1]")
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, nil
	}
	return renderedNode{el: els[0]}, nil
}

func elementNodes(els rod.Elements) []Node {
	nodes := make([]Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, renderedNode{el: el})
	}
	return nodes
}
