package assemble

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/sizieks/parsers/internal/view"
)

type record struct {
	ID   string
	Date string
}

func fixtureNodes(t *testing.T) []view.Node {
	t.Helper()
	snap, err := view.NewSnapshot(`
		<ul>
			<li data-id="a" data-date="2022.11.14"></li>
			<li data-id="b" data-date="2022.10.18"></li>
			<li data-id="c" data-date="2022.10.18"></li>
			<li data-id="broken"></li>
		</ul>`)
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	return snap.Root().QueryAll("li")
}

func build(n view.Node) (record, error) {
	id, _ := n.Attr("data-id")
	date, ok := n.Attr("data-date")
	if !ok {
		return record{}, fmt.Errorf("node %s has no date", id)
	}
	return record{ID: id, Date: date}, nil
}

func TestRecordsIsolatesFailures(t *testing.T) {
	records, errs := Records(fixtureNodes(t), build)

	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	// Document order, the failing node dropped
	want := []string{"a", "b", "c"}
	for i, r := range records {
		if r.ID != want[i] {
			t.Errorf("records[%d] = %s, want %s", i, r.ID, want[i])
		}
	}
}

func TestRecordsIdempotent(t *testing.T) {
	nodes := fixtureNodes(t)
	first, _ := Records(nodes, build)
	second, _ := Records(nodes, build)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Re-running over unchanged nodes changed output: %v vs %v", first, second)
	}
}

func TestSortByDate(t *testing.T) {
	records, _ := Records(fixtureNodes(t), build)
	SortByDate(records, func(r record) string { return r.Date })

	got := make([]string, len(records))
	for i, r := range records {
		got[i] = r.ID
	}
	// b and c share a date; stability keeps b before c
	want := []string{"b", "c", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sorted order = %v, want %v", got, want)
	}
}

func TestSortByDateIdempotent(t *testing.T) {
	records, _ := Records(fixtureNodes(t), build)
	SortByDate(records, func(r record) string { return r.Date })
	once := make([]record, len(records))
	copy(once, records)

	SortByDate(records, func(r record) string { return r.Date })
	if !reflect.DeepEqual(once, records) {
		t.Errorf("Second sort changed order: %v vs %v", once, records)
	}
}
