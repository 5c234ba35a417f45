package watch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sizieks/parsers/internal/view"
)

func snapshot(t *testing.T, raw string) *view.Snapshot {
	t.Helper()
	tree, err := view.NewSnapshot(raw)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}
	return tree
}

func doneWhen(selector string) func(view.Node) view.Node {
	return func(root view.Node) view.Node {
		return root.Query(selector)
	}
}

func TestMaterializeAlreadyDone(t *testing.T) {
	tree := snapshot(t, `<div id="widget"><p class="ready">loaded</p></div>`)

	node, err := Materialize(context.Background(), tree, Spec{
		Root: tree.Subtree("#widget"),
		Done: doneWhen(".ready"),
	})
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	if node == nil {
		t.Fatal("Expected the completion node, got nil")
	}
	if node.Text() != "loaded" {
		t.Errorf("Completion node text = %q, want loaded", node.Text())
	}
	if len(tree.Activations()) != 0 {
		t.Errorf("Settled content must not be triggered, got %v", tree.Activations())
	}
}

func TestMaterializeEmptySubtree(t *testing.T) {
	tree := snapshot(t, `<div id="widget"></div>`)

	node, err := Materialize(context.Background(), tree, Spec{
		Root:    tree.Subtree("#widget"),
		Done:    doneWhen(".ready"),
		Timeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Expected the empty short-circuit, got error: %v", err)
	}
	if node != nil {
		t.Errorf("Expected nil node for an empty subtree, got %v", node)
	}
	if len(tree.Activations()) != 0 {
		t.Errorf("An empty subtree must not be triggered, got %v", tree.Activations())
	}
}

func TestMaterializeLoadMore(t *testing.T) {
	page := func(items int, more bool) string {
		body := `<div id="widget"><ul id="list">`
		for i := 0; i < items; i++ {
			body += fmt.Sprintf(`<li data-item="%d">item</li>`, i)
		}
		body += `</ul>`
		if more {
			body += `<button class="more">Show more</button>`
		}
		return body + `</div>`
	}

	tree := snapshot(t, page(2, true))
	loads := 0
	tree.OnActivate = func(selector string) {
		loads++
		if loads == 1 {
			tree.Replace(page(4, true))
			return
		}
		tree.Replace(page(6, false))
	}

	node, err := Materialize(context.Background(), tree, Spec{
		Root: tree.Subtree("#widget"),
		Done: func(root view.Node) view.Node {
			// Materialized once the control is gone and items remain.
			if root.Query(".more") != nil {
				return nil
			}
			return root.Query("#list")
		},
		Trigger: "#widget .more",
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	if node == nil {
		t.Fatal("Expected the completion node, got nil")
	}
	if got := len(node.QueryAll("[data-item]")); got != 6 {
		t.Errorf("Expected 6 items after loading, got %d", got)
	}
	if loads != 2 {
		t.Errorf("Expected 2 trigger activations, got %d", loads)
	}
}

func TestMaterializeTriggerGone(t *testing.T) {
	// The control is absent, so Activate must never fire even though a
	// trigger selector is configured.
	tree := snapshot(t, `<div id="widget"><ul><li>one</li></ul></div>`)

	go func() {
		time.Sleep(20 * time.Millisecond)
		tree.Replace(`<div id="widget"><ul><li>one</li><li class="ready">two</li></ul></div>`)
	}()

	node, err := Materialize(context.Background(), tree, Spec{
		Root:    tree.Subtree("#widget"),
		Done:    doneWhen(".ready"),
		Trigger: ".more",
		Timeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("Materialize returned error: %v", err)
	}
	if node == nil {
		t.Fatal("Expected the completion node, got nil")
	}
	if len(tree.Activations()) != 0 {
		t.Errorf("Expected no activations for a missing control, got %v", tree.Activations())
	}
}

func TestMaterializeTimeout(t *testing.T) {
	tree := snapshot(t, `<div id="widget"><p>loading</p></div>`)

	_, err := Materialize(context.Background(), tree, Spec{
		Root:    tree.Subtree("#widget"),
		Done:    doneWhen(".ready"),
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got %v", err)
	}
}

func TestMaterializeCancellation(t *testing.T) {
	tree := snapshot(t, `<div id="widget"><p>loading</p></div>`)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Materialize(ctx, tree, Spec{
		Root:    tree.Subtree("#widget"),
		Done:    doneWhen(".ready"),
		Timeout: 5 * time.Second,
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
