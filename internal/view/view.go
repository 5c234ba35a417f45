// Package view abstracts the rendered page the engine extracts from.
//
// Nodes are borrowed handles into a live tree: the engine reads attributes,
// text and descendants but never owns or mutates them. The only write the
// engine performs is Activate, the simulated click that drives lazy widgets
// to load. Trees additionally expose structural change notifications so the
// watcher can wait for content to materialize.
package view

import "context"

// Node is a read-only handle into the rendered tree.
type Node interface {
	// Attr returns the value of the named attribute and whether it exists.
	Attr(name string) (string, bool)

	// Query resolves a selector to the first matching descendant, or nil.
	Query(selector string) Node

	// QueryAll resolves a selector to every matching descendant in
	// document order.
	QueryAll(selector string) []Node

	// Text returns the node's text content, including descendants.
	Text() string

	// OwnText returns only the text of the node's immediate text children,
	// one line per text node. Used for "Key: Value" attribute strips where
	// descendant elements must not bleed into the values.
	OwnText() string

	// HTML returns the node's inner HTML.
	HTML() string

	// Children returns the node's element children in document order.
	Children() []Node
}

// Subscription delivers structural change notifications for a tree. Exactly
// one is active per watcher invocation and it must be closed before the
// invocation resolves.
type Subscription interface {
	// Changes receives one signal per batch of node insertions/removals.
	Changes() <-chan struct{}

	// Close disconnects the subscription. Safe to call more than once.
	Close()
}

// Tree is one rendered page.
type Tree interface {
	// Root returns the document root.
	Root() Node

	// Subtree returns a live handle rooted at the first match of selector.
	// The handle tracks the current document: re-querying it after a
	// mutation sees the new content. A selector with no match yields a
	// node whose queries find nothing.
	Subtree(selector string) Node

	// Subscribe starts delivering structural change notifications until
	// ctx is done or the subscription is closed.
	Subscribe(ctx context.Context) (Subscription, error)

	// Activate simulates a click on the first match of selector.
	Activate(ctx context.Context, selector string) error
}

// Category identifies the currently selected analytics category.
type Category struct {
	ID    int
	Level int
	Name  string
}

// StateProvider is the read-only capability for reaching into the host
// page's runtime state (the client framework's live data), without
// depending on any concrete framework's object graph.
type StateProvider interface {
	// Selection returns the currently selected category.
	Selection() (Category, error)

	// CategoryTree returns the leaf category identifiers in a stable,
	// document-defined order.
	CategoryTree() ([]string, error)

	// Dispatch invokes a named action on the page runtime.
	Dispatch(ctx context.Context, action string, payload map[string]string) error

	// TrendsJSON returns the raw trend series for the current selection.
	TrendsJSON() ([]byte, error)
}
