package cdp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/sizieks/parsers/internal/view"
)

// State implements view.StateProvider against a live tab. The page is
// expected to export its runtime state under window.__VIEW_STATE__ with a
// dispatch(name, payload) entry point; the engine never reaches into a
// framework's own object graph.
type State struct {
	ctx context.Context
}

// NewState wraps an active chromedp tab context.
func NewState(tabCtx context.Context) *State {
	return &State{ctx: tabCtx}
}

func (s *State) eval(expr string, out any) error {
	var raw json.RawMessage
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(expr, &raw)); err != nil {
		return fmt.Errorf("page state: %w", err)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("page state: %s yielded nothing", expr)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("page state: %w", err)
	}
	return nil
}

// Selection implements view.StateProvider.
func (s *State) Selection() (view.Category, error) {
	var sel struct {
		ID    int    `json:"id"`
		Level int    `json:"level"`
		Name  string `json:"name"`
	}
	err := s.eval(`JSON.parse(JSON.stringify(window.__VIEW_STATE__.selectedCategory))`, &sel)
	if err != nil {
		return view.Category{}, err
	}
	return view.Category{ID: sel.ID, Level: sel.Level, Name: sel.Name}, nil
}

// CategoryTree implements view.StateProvider. The flattening runs in the
// page so key order follows the page's own enumeration.
func (s *State) CategoryTree() ([]string, error) {
	const expr = `(function() {
		var tree = JSON.parse(JSON.stringify(window.__VIEW_STATE__.categoryTree));
		var list = [];
		Object.keys(tree).forEach(function(top) {
			list = list.concat(Object.keys(tree[top].nodes || {}));
		});
		return list;
	})()`

	var leaves []string
	if err := s.eval(expr, &leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}

// TrendsJSON implements view.StateProvider.
func (s *State) TrendsJSON() ([]byte, error) {
	var raw json.RawMessage
	err := s.eval(`JSON.parse(JSON.stringify(window.__VIEW_STATE__.trends))`, &raw)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// Dispatch implements view.StateProvider.
func (s *State) Dispatch(ctx context.Context, action string, payload map[string]string) error {
	actionJSON, err := json.Marshal(action)
	if err != nil {
		return err
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	expr := fmt.Sprintf(`window.__VIEW_STATE__.dispatch(%s, %s)`, actionJSON, payloadJSON)

	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(s.ctx, chromedp.Evaluate(expr, nil))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("dispatch %s: %w", action, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
