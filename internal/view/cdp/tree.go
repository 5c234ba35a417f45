// Package cdp implements the view abstraction over a live Chrome tab
// driven through the DevTools protocol.
package cdp

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/internal/view"
)

// Tree adapts a chromedp tab context to view.Tree.
type Tree struct {
	ctx context.Context
}

// NewTree wraps an active chromedp tab context. The caller keeps ownership
// of the context and its lifetime.
func NewTree(tabCtx context.Context) *Tree {
	return &Tree{ctx: tabCtx}
}

// Root implements view.Tree.
func (t *Tree) Root() view.Node {
	return t.Subtree("")
}

// Subtree implements view.Tree. The handle re-resolves its selector on
// every read, so it survives re-renders of the underlying page.
func (t *Tree) Subtree(selector string) view.Node {
	return &liveNode{tree: t, selector: selector}
}

// Subscribe implements view.Tree. It enables the DOM domain, walks the
// document so Chrome starts reporting child node events, and forwards
// every structural change as one coalesced notification.
func (t *Tree) Subscribe(ctx context.Context) (view.Subscription, error) {
	err := chromedp.Run(t.ctx, chromedp.ActionFunc(func(c context.Context) error {
		if err := dom.Enable().Do(c); err != nil {
			return err
		}
		// Chrome only emits childNodeInserted/Removed for nodes it has
		// already pushed, so request the full tree once.
		_, err := dom.GetDocument().WithDepth(-1).WithPierce(true).Do(c)
		return err
	}))
	if err != nil {
		return nil, err
	}

	sub := &subscription{ch: make(chan struct{}, 1)}
	listenCtx, cancel := context.WithCancel(ctx)
	sub.cancel = cancel

	chromedp.ListenTarget(t.ctx, func(ev interface{}) {
		switch ev.(type) {
		case *dom.EventChildNodeInserted, *dom.EventChildNodeRemoved, *dom.EventChildNodeCountUpdated:
			select {
			case <-listenCtx.Done():
			case sub.ch <- struct{}{}:
			default:
			}
		}
	})

	go func() {
		<-listenCtx.Done()
	}()

	return sub, nil
}

// Activate implements view.Tree.
func (t *Tree) Activate(ctx context.Context, selector string) error {
	runCtx := t.ctx
	if ctx != nil {
		// Respect caller cancellation while still targeting the tab.
		done := make(chan error, 1)
		go func() {
			done <- chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery))
		}()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return chromedp.Run(runCtx, chromedp.Click(selector, chromedp.ByQuery))
}

type subscription struct {
	ch     chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Changes() <-chan struct{} { return s.ch }

func (s *subscription) Close() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// liveNode resolves its selector from the document root on every read.
type liveNode struct {
	tree     *Tree
	selector string
}

func (n *liveNode) resolve(c context.Context) (cdp.NodeID, error) {
	doc, err := dom.GetDocument().Do(c)
	if err != nil {
		return 0, err
	}
	if n.selector == "" {
		return doc.NodeID, nil
	}
	return dom.QuerySelector(doc.NodeID, n.selector).Do(c)
}

func (n *liveNode) run(fn func(c context.Context, id cdp.NodeID) error) {
	err := chromedp.Run(n.tree.ctx, chromedp.ActionFunc(func(c context.Context) error {
		id, err := n.resolve(c)
		if err != nil || id == 0 {
			return err
		}
		return fn(c, id)
	}))
	if err != nil {
		log.Debug().Err(err).Str("selector", n.selector).Msg("View query failed")
	}
}

func (n *liveNode) Attr(name string) (string, bool) {
	var val string
	var ok bool
	n.run(func(c context.Context, id cdp.NodeID) error {
		attrs, err := dom.GetAttributes(id).Do(c)
		if err != nil {
			return err
		}
		val, ok = attrValue(attrs, name)
		return nil
	})
	return val, ok
}

func (n *liveNode) Text() string {
	var text string
	n.run(func(c context.Context, id cdp.NodeID) error {
		var err error
		text, err = callString(c, id, `function() { return this.textContent; }`)
		return err
	})
	return text
}

func (n *liveNode) OwnText() string {
	var text string
	n.run(func(c context.Context, id cdp.NodeID) error {
		var err error
		text, err = callString(c, id, ownTextJS)
		return err
	})
	return text
}

func (n *liveNode) HTML() string {
	var html string
	n.run(func(c context.Context, id cdp.NodeID) error {
		outer, err := dom.GetOuterHTML().WithNodeID(id).Do(c)
		if err != nil {
			return err
		}
		html = innerOf(outer)
		return nil
	})
	return html
}

func (n *liveNode) Query(selector string) view.Node {
	var found view.Node
	n.run(func(c context.Context, id cdp.NodeID) error {
		child, err := dom.QuerySelector(id, selector).Do(c)
		if err != nil || child == 0 {
			return err
		}
		found = &boundNode{tree: n.tree, id: child}
		return nil
	})
	return found
}

func (n *liveNode) QueryAll(selector string) []view.Node {
	var nodes []view.Node
	n.run(func(c context.Context, id cdp.NodeID) error {
		ids, err := dom.QuerySelectorAll(id, selector).Do(c)
		if err != nil {
			return err
		}
		for _, child := range ids {
			nodes = append(nodes, &boundNode{tree: n.tree, id: child})
		}
		return nil
	})
	return nodes
}

func (n *liveNode) Children() []view.Node {
	return n.QueryAll(":scope > *")
}

// boundNode is pinned to a DevTools node id. Valid until the page
// re-renders the node away; extraction runs on settled trees.
type boundNode struct {
	tree *Tree
	id   cdp.NodeID
}

func (n *boundNode) run(fn func(c context.Context) error) {
	err := chromedp.Run(n.tree.ctx, chromedp.ActionFunc(fn))
	if err != nil {
		log.Debug().Err(err).Int64("node", int64(n.id)).Msg("View query failed")
	}
}

func (n *boundNode) Attr(name string) (string, bool) {
	var val string
	var ok bool
	n.run(func(c context.Context) error {
		attrs, err := dom.GetAttributes(n.id).Do(c)
		if err != nil {
			return err
		}
		val, ok = attrValue(attrs, name)
		return nil
	})
	return val, ok
}

func (n *boundNode) Text() string {
	var text string
	n.run(func(c context.Context) error {
		var err error
		text, err = callString(c, n.id, `function() { return this.textContent; }`)
		return err
	})
	return text
}

func (n *boundNode) OwnText() string {
	var text string
	n.run(func(c context.Context) error {
		var err error
		text, err = callString(c, n.id, ownTextJS)
		return err
	})
	return text
}

func (n *boundNode) HTML() string {
	var html string
	n.run(func(c context.Context) error {
		outer, err := dom.GetOuterHTML().WithNodeID(n.id).Do(c)
		if err != nil {
			return err
		}
		html = innerOf(outer)
		return nil
	})
	return html
}

func (n *boundNode) Query(selector string) view.Node {
	var found view.Node
	n.run(func(c context.Context) error {
		child, err := dom.QuerySelector(n.id, selector).Do(c)
		if err != nil || child == 0 {
			return err
		}
		found = &boundNode{tree: n.tree, id: child}
		return nil
	})
	return found
}

func (n *boundNode) QueryAll(selector string) []view.Node {
	var nodes []view.Node
	n.run(func(c context.Context) error {
		ids, err := dom.QuerySelectorAll(n.id, selector).Do(c)
		if err != nil {
			return err
		}
		for _, child := range ids {
			nodes = append(nodes, &boundNode{tree: n.tree, id: child})
		}
		return nil
	})
	return nodes
}

func (n *boundNode) Children() []view.Node {
	return n.QueryAll(":scope > *")
}

const ownTextJS = `function() {
	var out = [];
	for (var c = this.firstChild; c; c = c.nextSibling) {
		if (c.nodeType === 3) {
			var t = c.textContent.trim();
			if (t) out.push(t);
		}
	}
	return out.join("\n");
}`

// callString invokes a zero-argument function on the node and returns its
// string result.
func callString(c context.Context, id cdp.NodeID, decl string) (string, error) {
	obj, err := dom.ResolveNode().WithNodeID(id).Do(c)
	if err != nil {
		return "", err
	}
	res, exc, err := runtime.CallFunctionOn(decl).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		Do(c)
	if err != nil {
		return "", err
	}
	if exc != nil {
		return "", exc
	}
	if res == nil || len(res.Value) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(res.Value, &s); err != nil {
		return "", err
	}
	return s, nil
}

func attrValue(attrs []string, name string) (string, bool) {
	for i := 0; i+1 < len(attrs); i += 2 {
		if attrs[i] == name {
			return attrs[i+1], true
		}
	}
	return "", false
}

// innerOf strips the outermost element tags from an outerHTML string.
func innerOf(outer string) string {
	open := strings.Index(outer, ">")
	end := strings.LastIndex(outer, "</")
	if open < 0 || end <= open {
		return outer
	}
	return outer[open+1 : end]
}
