package view

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Snapshot is a Tree over a parsed HTML string. Replace swaps the document
// and notifies subscribers, which is how tests and snapshot-mode runs stand
// in for a browser delivering mutations.
type Snapshot struct {
	mu   sync.RWMutex
	doc  *goquery.Document
	subs map[*snapshotSub]struct{}

	// OnActivate, when set, is invoked for every Activate call. It may
	// call Replace to simulate the content a click loads.
	OnActivate func(selector string)

	clicks []string
}

// NewSnapshot parses raw HTML into a Snapshot tree.
func NewSnapshot(rawHTML string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &Snapshot{doc: doc, subs: make(map[*snapshotSub]struct{})}, nil
}

// Replace swaps the snapshot's document for newly rendered HTML and delivers
// one change notification to every subscriber.
func (s *Snapshot) Replace(rawHTML string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	s.mu.Lock()
	s.doc = doc
	subs := make([]*snapshotSub, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.notify()
	}
	return nil
}

// Root implements Tree.
func (s *Snapshot) Root() Node {
	return s.Subtree("")
}

// Subtree implements Tree. The returned node re-resolves its selector
// against the current document on every read, so it stays valid across
// Replace calls.
func (s *Snapshot) Subtree(selector string) Node {
	return &liveNode{tree: s, selector: selector}
}

// Subscribe implements Tree.
func (s *Snapshot) Subscribe(ctx context.Context) (Subscription, error) {
	sub := &snapshotSub{tree: s, ch: make(chan struct{}, 1)}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Close()
	}()

	return sub, nil
}

// Activate implements Tree. A snapshot has no runtime to click into, so the
// activation is recorded and handed to OnActivate when configured.
func (s *Snapshot) Activate(_ context.Context, selector string) error {
	s.mu.Lock()
	s.clicks = append(s.clicks, selector)
	cb := s.OnActivate
	s.mu.Unlock()

	if cb != nil {
		cb(selector)
	}
	return nil
}

// Activations returns every selector passed to Activate, in order.
func (s *Snapshot) Activations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.clicks))
	copy(out, s.clicks)
	return out
}

// Scripts returns the contents of every inline script element, in document
// order. Feeds the goja-backed state provider.
func (s *Snapshot) Scripts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scripts []string
	s.doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if _, external := sel.Attr("src"); external {
			return
		}
		if body := sel.Text(); body != "" {
			scripts = append(scripts, body)
		}
	})
	return scripts
}

func (s *Snapshot) resolve(selector string) *goquery.Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if selector == "" {
		return s.doc.Selection
	}
	return s.doc.Find(selector).First()
}

type snapshotSub struct {
	tree   *Snapshot
	ch     chan struct{}
	closed sync.Once
}

func (s *snapshotSub) Changes() <-chan struct{} { return s.ch }

func (s *snapshotSub) notify() {
	// Coalescing send: one pending notification is enough, the watcher
	// re-checks the whole subtree anyway.
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *snapshotSub) Close() {
	s.closed.Do(func() {
		s.tree.mu.Lock()
		delete(s.tree.subs, s)
		s.tree.mu.Unlock()
	})
}

// liveNode resolves its selector against the tree's current document on
// every read.
type liveNode struct {
	tree     *Snapshot
	selector string
}

func (n *liveNode) sel() *goquery.Selection { return n.tree.resolve(n.selector) }

func (n *liveNode) Attr(name string) (string, bool) { return n.sel().Attr(name) }
func (n *liveNode) Text() string                    { return n.sel().Text() }
func (n *liveNode) OwnText() string                 { return ownText(n.sel()) }

func (n *liveNode) HTML() string {
	h, err := n.sel().Html()
	if err != nil {
		return ""
	}
	return h
}

func (n *liveNode) Query(selector string) Node {
	found := n.sel().Find(selector).First()
	if found.Length() == 0 {
		return nil
	}
	return &staticNode{sel: found}
}

func (n *liveNode) QueryAll(selector string) []Node {
	return wrapAll(n.sel().Find(selector))
}

func (n *liveNode) Children() []Node {
	return wrapAll(n.sel().Children())
}

// staticNode wraps a concrete selection. Valid until the next Replace;
// extraction always runs on a settled tree so that is enough.
type staticNode struct {
	sel *goquery.Selection
}

func (n *staticNode) Attr(name string) (string, bool) { return n.sel.Attr(name) }
func (n *staticNode) Text() string                    { return n.sel.Text() }
func (n *staticNode) OwnText() string                 { return ownText(n.sel) }

func (n *staticNode) HTML() string {
	h, err := n.sel.Html()
	if err != nil {
		return ""
	}
	return h
}

func (n *staticNode) Query(selector string) Node {
	found := n.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil
	}
	return &staticNode{sel: found}
}

func (n *staticNode) QueryAll(selector string) []Node {
	return wrapAll(n.sel.Find(selector))
}

func (n *staticNode) Children() []Node {
	return wrapAll(n.sel.Children())
}

func wrapAll(sel *goquery.Selection) []Node {
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &staticNode{sel: s})
	})
	return nodes
}

// ownText collects the immediate text children of the selection's first
// node, one line per text node, skipping whitespace-only runs.
func ownText(sel *goquery.Selection) string {
	if len(sel.Nodes) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for c := sel.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.TextNode {
			continue
		}
		text := strings.TrimSpace(c.Data)
		if text == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(text)
	}
	return buf.String()
}
