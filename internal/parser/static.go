package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// StaticDocument is a Document backed by a goquery tree parsed from raw HTML.
type StaticDocument struct {
	doc *goquery.Document
}

// NewStaticDocument parses HTML from r.
func NewStaticDocument(r io.Reader) (*StaticDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &StaticDocument{doc: doc}, nil
}

// NewStaticDocumentFromString parses an HTML string.
func NewStaticDocumentFromString(body string) (*StaticDocument, error) {
	return NewStaticDocument(strings.NewReader(body))
}

// Find implements Document.
func (d *StaticDocument) Find(selector string) ([]Node, error) {
	return selectionNodes(d.doc.Find(selector)), nil
}

// staticNode wraps a single-element goquery selection.
type staticNode struct {
	sel *goquery.Selection
}

func (n staticNode) Text() (string, error) {
	return n.sel.Text(), nil
}

func (n staticNode) Attr(name string) (string, bool, error) {
	v, ok := n.sel.Attr(name)
	return v, ok, nil
}

func (n staticNode) Find(selector string) ([]Node, error) {
	return selectionNodes(n.sel.Find(selector)), nil
}

// NextSibling uses the same XPath axis the rendered view evaluates in the browser.
func (n staticNode) NextSibling() (Node, error) {
	if len(n.sel.Nodes) == 0 {
		return nil, nil
	}
	sib, err := htmlquery.Query(n.sel.Nodes[0], "following-sibling::*[1]")
	if err != nil {
		return nil, fmt.Errorf("sibling xpath: %w", err)
	}
	if sib == nil {
		return nil, nil
	}
	return staticNode{sel: selectionOf(sib)}, nil
}

func selectionNodes(sel *goquery.Selection) []Node {
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, staticNode{sel: s})
	})
	return nodes
}

func selectionOf(node *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(node).Selection
}
