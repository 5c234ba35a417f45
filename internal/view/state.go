package view

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/rs/zerolog/log"
)

// stateGlobal is the page global the engine reads runtime state from.
const stateGlobal = "__VIEW_STATE__"

// ScriptState recovers page runtime state from a Snapshot by executing its
// inline scripts in an embedded JS VM and reading the exported state
// global. It implements StateProvider for snapshot-mode runs and tests.
type ScriptState struct {
	tree *Snapshot

	mu      sync.Mutex
	actions []DispatchedAction

	// OnDispatch, when set, is invoked for every Dispatch call. It may
	// call tree.Replace to simulate the re-render an action causes.
	OnDispatch func(action string, payload map[string]string)
}

// DispatchedAction records one Dispatch call for inspection.
type DispatchedAction struct {
	Action  string
	Payload map[string]string
}

// NewScriptState creates a state provider over the given snapshot.
func NewScriptState(tree *Snapshot) *ScriptState {
	return &ScriptState{tree: tree}
}

// state executes the snapshot's inline scripts and returns the exported
// state global as raw JSON. Scripts that fail are skipped; most page
// scripts cannot run without a full DOM and that is expected.
func (p *ScriptState) state() (json.RawMessage, error) {
	vm := goja.New()

	// Minimal browser shell, just enough for state-assignment scripts.
	vm.Set("window", vm.GlobalObject())
	vm.Set("self", vm.GlobalObject())
	vm.Set("console", map[string]any{
		"log":   func(call goja.FunctionCall) goja.Value { return nil },
		"error": func(call goja.FunctionCall) goja.Value { return nil },
	})

	for _, script := range p.tree.Scripts() {
		if _, err := vm.RunString(script); err != nil {
			log.Debug().Err(err).Msg("Inline script skipped")
		}
	}

	val := vm.Get(stateGlobal)
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil, fmt.Errorf("page state: %s not exported", stateGlobal)
	}

	raw, err := json.Marshal(val.Export())
	if err != nil {
		return nil, fmt.Errorf("page state: %w", err)
	}
	return raw, nil
}

// Selection implements StateProvider.
func (p *ScriptState) Selection() (Category, error) {
	raw, err := p.state()
	if err != nil {
		return Category{}, err
	}

	var state struct {
		Selected struct {
			ID    int    `json:"id"`
			Level int    `json:"level"`
			Name  string `json:"name"`
		} `json:"selectedCategory"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return Category{}, fmt.Errorf("page state: %w", err)
	}
	return Category{
		ID:    state.Selected.ID,
		Level: state.Selected.Level,
		Name:  state.Selected.Name,
	}, nil
}

// CategoryTree implements StateProvider. Leaf ids are the keys of each top
// category's nodes object, flattened in document order.
func (p *ScriptState) CategoryTree() ([]string, error) {
	raw, err := p.state()
	if err != nil {
		return nil, err
	}

	var state struct {
		CategoryTree json.RawMessage `json:"categoryTree"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("page state: %w", err)
	}
	if len(state.CategoryTree) == 0 {
		return nil, fmt.Errorf("page state: categoryTree not exported")
	}

	tops, err := objectKeys(state.CategoryTree)
	if err != nil {
		return nil, fmt.Errorf("page state: %w", err)
	}

	var tree map[string]struct {
		Nodes json.RawMessage `json:"nodes"`
	}
	if err := json.Unmarshal(state.CategoryTree, &tree); err != nil {
		return nil, fmt.Errorf("page state: %w", err)
	}

	var leaves []string
	for _, top := range tops {
		if len(tree[top].Nodes) == 0 {
			continue
		}
		keys, err := objectKeys(tree[top].Nodes)
		if err != nil {
			return nil, fmt.Errorf("page state: category %q: %w", top, err)
		}
		leaves = append(leaves, keys...)
	}
	return leaves, nil
}

// TrendsJSON implements StateProvider.
func (p *ScriptState) TrendsJSON() ([]byte, error) {
	raw, err := p.state()
	if err != nil {
		return nil, err
	}

	var state struct {
		Trends json.RawMessage `json:"trends"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("page state: %w", err)
	}
	if len(state.Trends) == 0 {
		return nil, fmt.Errorf("page state: trends not exported")
	}
	return state.Trends, nil
}

// Dispatch implements StateProvider. A snapshot has no runtime, so the
// action is recorded and handed to OnDispatch when configured.
func (p *ScriptState) Dispatch(_ context.Context, action string, payload map[string]string) error {
	p.mu.Lock()
	p.actions = append(p.actions, DispatchedAction{Action: action, Payload: payload})
	cb := p.OnDispatch
	p.mu.Unlock()

	if cb != nil {
		cb(action, payload)
	}
	return nil
}

// Dispatched returns every recorded Dispatch call, in order.
func (p *ScriptState) Dispatched() []DispatchedAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]DispatchedAction, len(p.actions))
	copy(out, p.actions)
	return out
}

// objectKeys returns the keys of a JSON object in source order. Go maps
// shuffle keys, and category iteration order must be stable.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)

		// Consume this key's value entirely.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
