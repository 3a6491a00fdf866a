package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/jmylchreest/mapleads/pkg/browser"
)

// Page is one Chrome tab. It implements browser.Page.
type Page struct {
	session *Session
	ctx     context.Context
	cancel  context.CancelFunc // nil for the main page

	mu     sync.Mutex
	mouseX float64
	mouseY float64
	closed bool
}

var _ browser.Page = (*Page)(nil)

func newPage(s *Session, ctx context.Context, cancel context.CancelFunc) *Page {
	return &Page{
		session: s,
		ctx:     ctx,
		cancel:  cancel,
		mouseX:  float64(s.config.WindowWidth) / 4,
		mouseY:  float64(s.config.WindowHeight) / 2,
	}
}

func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return browser.ErrClosed
	}
	return run(ctx, p.ctx, actions...)
}

// queryOptions maps a locator kind to chromedp query options. BySearch
// accepts XPath expressions as well as CSS selectors.
func queryOptions(loc browser.Locator, all bool) []chromedp.QueryOption {
	switch {
	case loc.Kind == browser.KindXPath:
		return []chromedp.QueryOption{chromedp.BySearch}
	case all:
		return []chromedp.QueryOption{chromedp.ByQueryAll}
	default:
		return []chromedp.QueryOption{chromedp.ByQuery}
	}
}

// Navigate loads url and waits for the load event.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.session.config.NavigateTimeout)
		defer cancel()
	}
	return p.run(ctx, chromedp.Navigate(url))
}

// WaitLoaded waits for the document body.
func (p *Page) WaitLoaded(ctx context.Context) error {
	return p.run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
}

// Fill types text into the first element matching loc after clearing it.
func (p *Page) Fill(ctx context.Context, loc browser.Locator, text string) error {
	opts := queryOptions(loc, false)
	return p.run(ctx,
		chromedp.WaitVisible(loc.Query, opts...),
		chromedp.SetValue(loc.Query, "", opts...),
		chromedp.SendKeys(loc.Query, text, opts...),
	)
}

// PressEnter sends an Enter key press to the focused element.
func (p *Page) PressEnter(ctx context.Context) error {
	return p.run(ctx, chromedp.KeyEvent(kb.Enter))
}

// Hover moves the mouse to the centre of the first element matching loc.
func (p *Page) Hover(ctx context.Context, loc browser.Locator) error {
	nodes, err := p.nodes(ctx, loc)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%s: %w", loc, browser.ErrNoNode)
	}
	node := nodes[0]

	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(node.NodeID).Do(ctx); err != nil {
			return err
		}
		quads, err := dom.GetContentQuads().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		x, y, ok := quadCenter(quads)
		if !ok {
			return errors.New("element has no layout")
		}
		if err := input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
			return err
		}
		p.mu.Lock()
		p.mouseX, p.mouseY = x, y
		p.mu.Unlock()
		return nil
	}))
}

// Wheel dispatches a mouse wheel event at the current mouse position, so a
// preceding Hover decides which scroll container receives it.
func (p *Page) Wheel(ctx context.Context, deltaY float64) error {
	p.mu.Lock()
	x, y := p.mouseX, p.mouseY
	p.mu.Unlock()

	return p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, x, y).
			WithDeltaX(0).
			WithDeltaY(deltaY).
			Do(ctx)
	}))
}

// Count returns the number of elements matching loc.
func (p *Page) Count(ctx context.Context, loc browser.Locator) (int, error) {
	nodes, err := p.nodes(ctx, loc)
	return len(nodes), err
}

// Elements returns handles for every element matching loc.
func (p *Page) Elements(ctx context.Context, loc browser.Locator) ([]browser.Element, error) {
	nodes, err := p.nodes(ctx, loc)
	if err != nil {
		return nil, err
	}
	out := make([]browser.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &element{page: p, node: n}
	}
	return out, nil
}

func (p *Page) nodes(ctx context.Context, loc browser.Locator) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	opts := append(queryOptions(loc, true), chromedp.AtLeast(0))
	if err := p.run(ctx, chromedp.Nodes(loc.Query, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %s: %w", loc, err)
	}
	return nodes, nil
}

// HTML returns the outer HTML of the document element.
func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Close closes the tab. Closing the main page is a no-op; it lives as long
// as the session.
func (p *Page) Close() error {
	if p.cancel == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	return nil
}

type element struct {
	page *Page
	node *cdp.Node
}

func (e *element) Href() string {
	return e.node.AttributeValue("href")
}

func (e *element) Click(ctx context.Context) error {
	return e.page.run(ctx, chromedp.MouseClickNode(e.node))
}

// quadCenter returns the centre of the first content quad.
func quadCenter(quads []dom.Quad) (x, y float64, ok bool) {
	if len(quads) == 0 || len(quads[0]) < 8 {
		return 0, 0, false
	}
	q := quads[0]
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4, true
}
