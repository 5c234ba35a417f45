package proxy

import (
	"testing"
)

func TestPoolRotation(t *testing.T) {
	pool := NewPool([]string{"p1", "p2", "p3"})

	for _, want := range []string{"p1", "p2", "p3", "p1"} {
		if got := pool.GetNext(); got != want {
			t.Errorf("Expected %s, got %s", want, got)
		}
	}
}

func TestPoolFailureSkipping(t *testing.T) {
	pool := NewPool([]string{"p1", "p2", "p3"})

	if got := pool.GetNext(); got != "p1" {
		t.Fatalf("Expected p1, got %s", got)
	}

	pool.MarkFailed("p2")

	// p2 is cooling down, rotation skips it
	if got := pool.GetNext(); got != "p3" {
		t.Errorf("Expected p3 (skipping p2), got %s", got)
	}
	if got := pool.GetNext(); got != "p1" {
		t.Errorf("Expected p1, got %s", got)
	}
	if got := pool.GetNext(); got != "p3" {
		t.Errorf("Expected p3 (skipping p2), got %s", got)
	}

	pool.MarkHealthy("p2")

	if got := pool.GetNext(); got != "p1" {
		t.Errorf("Expected p1, got %s", got)
	}
	if got := pool.GetNext(); got != "p2" {
		t.Errorf("Expected p2 after recovery, got %s", got)
	}
}
