package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/IshaanNene/TopHub/internal/types"
)

// Selectors describes where the ranking data lives in the page.
type Selectors struct {
	// Container matches candidate ranking blocks by class prefix.
	Container string
	// ContainerClass is the exact class token a candidate must carry. Inner
	// blocks share the class prefix and are filtered out by it.
	ContainerClass string
	// Labels are tried in order for the platform name.
	Labels []string
	// Items matches the entry anchors inside a container.
	Items string
	// Titles are tried in order inside an anchor before its full text.
	Titles []string
	// Heat matches a heat indicator inside an anchor.
	Heat string
}

// DefaultSelectors returns the selectors for tophub.today.
func DefaultSelectors() Selectors {
	return Selectors{
		Container:      `div[class^="cc-cd"]`,
		ContainerClass: "cc-cd",
		Labels:         []string{".cc-cd-lb", ".cc-cd-lb span", `[class*="lb"]`},
		Items:          `div[class^="cc-cd-cb"] a, div.cc-cd-cb a`,
		Titles:         []string{".t"},
		Heat:           `.heat, [class*="heat"], .hot, [class*="hot"]`,
	}
}

// textStrategy yields a trimmed text candidate from a node; "" means no match.
type textStrategy func(n Node) (string, error)

// selectorText returns the trimmed text of the first descendant matching sel.
func selectorText(sel string) textStrategy {
	return func(n Node) (string, error) {
		found, err := n.Find(sel)
		if err != nil || len(found) == 0 {
			return "", err
		}
		text, err := found[0].Text()
		return strings.TrimSpace(text), err
	}
}

func ownText(n Node) (string, error) {
	text, err := n.Text()
	return strings.TrimSpace(text), err
}

// firstText runs strategies in order and returns the first non-empty result.
func firstText(n Node, strategies []textStrategy) (string, error) {
	var errs []error
	for _, s := range strategies {
		text, err := s(n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if text != "" {
			return text, nil
		}
	}
	return "", errors.Join(errs...)
}

// Extractor turns a Document into HotItems. It holds no per-page state and is
// safe to reuse across scrapes.
type Extractor struct {
	origin *url.URL
	sel    Selectors
	labels []textStrategy
	titles []textStrategy
	logger *slog.Logger
}

// NewExtractor creates an extractor resolving relative links against origin.
func NewExtractor(origin string, sel Selectors, logger *slog.Logger) (*Extractor, error) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: origin %q", types.ErrInvalidURL, origin)
	}

	e := &Extractor{
		origin: u,
		sel:    sel,
		logger: logger.With("component", "extractor"),
	}
	for _, s := range sel.Labels {
		e.labels = append(e.labels, selectorText(s))
	}
	for _, s := range sel.Titles {
		e.titles = append(e.titles, selectorText(s))
	}
	e.titles = append(e.titles, ownText)
	return e, nil
}

// Extract walks every ranking container of doc. Items are grouped by container
// in page order and ranked densely from 1 after empty titles are dropped. The
// Timestamp field is left for the caller to stamp per batch.
func (e *Extractor) Extract(doc Document) ([]types.HotItem, error) {
	candidates, err := doc.Find(e.sel.Container)
	if err != nil {
		return nil, &types.ParseError{Selector: e.sel.Container, Err: err}
	}

	var items []types.HotItem
	containers := 0
	for i, c := range candidates {
		ok, err := e.isContainer(c)
		if err != nil {
			e.logger.Error("container check failed", "index", i, "error", err)
			continue
		}
		if !ok {
			continue
		}
		containers++

		found, err := e.extractContainer(c)
		if err != nil {
			e.logger.Error("container parse failed", "index", i, "error", err)
			continue
		}
		items = append(items, found...)
	}

	e.logger.Info("extraction complete", "containers", containers, "items", len(items))
	if containers == 0 {
		return nil, types.ErrNoContainers
	}
	return items, nil
}

func (e *Extractor) isContainer(n Node) (bool, error) {
	if e.sel.ContainerClass == "" {
		return true, nil
	}
	class, ok, err := n.Attr("class")
	if err != nil || !ok {
		return false, err
	}
	for _, c := range strings.Fields(class) {
		if c == e.sel.ContainerClass {
			return true, nil
		}
	}
	return false, nil
}

func (e *Extractor) extractContainer(c Node) ([]types.HotItem, error) {
	platform, err := firstText(c, e.labels)
	if err != nil {
		e.logger.Warn("platform label lookup failed", "error", err)
	}
	if platform == "" {
		platform = types.UnknownPlatform
	}

	anchors, err := c.Find(e.sel.Items)
	if err != nil {
		return nil, &types.ParseError{Platform: platform, Selector: e.sel.Items, Err: err}
	}

	items := make([]types.HotItem, 0, len(anchors))
	for idx, a := range anchors {
		item, ok, err := e.extractItem(a)
		if err != nil {
			e.logger.Warn("item parse failed", "platform", platform, "index", idx, "error", err)
			continue
		}
		if !ok {
			continue
		}
		item.Platform = platform
		item.Ranking = len(items) + 1
		items = append(items, item)
	}

	e.logger.Debug("platform extracted", "platform", platform, "anchors", len(anchors), "items", len(items))
	return items, nil
}

// extractItem reports ok=false for anchors that carry no title or link.
func (e *Extractor) extractItem(a Node) (types.HotItem, bool, error) {
	title, err := firstText(a, e.titles)
	if err != nil && title == "" {
		return types.HotItem{}, false, err
	}
	if title == "" {
		return types.HotItem{}, false, nil
	}

	href, _, err := a.Attr("href")
	if err != nil {
		return types.HotItem{}, false, err
	}
	link, err := e.absolute(href)
	if err != nil {
		return types.HotItem{}, false, err
	}
	if link == "" {
		e.logger.Debug("item without link skipped", "title", title)
		return types.HotItem{}, false, nil
	}

	heat, err := e.heatText(a)
	if err != nil {
		e.logger.Debug("heat lookup failed", "title", title, "error", err)
	}

	return types.HotItem{
		Title: title,
		URL:   link,
		Heat:  parseHeatPtr(heat),
	}, true, nil
}

// heatText looks for a heat marker inside the anchor, then in the next sibling.
func (e *Extractor) heatText(a Node) (string, error) {
	if e.sel.Heat != "" {
		found, err := a.Find(e.sel.Heat)
		if err != nil {
			return "", err
		}
		if len(found) > 0 {
			return found[0].Text()
		}
	}

	sib, err := a.NextSibling()
	if err != nil || sib == nil {
		return "", err
	}
	text, err := sib.Text()
	if err != nil {
		return "", err
	}
	if !strings.ContainsAny(text, "0123456789") {
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

func (e *Extractor) absolute(href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", nil
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href, nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: href %q", types.ErrInvalidURL, href)
	}
	return e.origin.ResolveReference(ref).String(), nil
}
