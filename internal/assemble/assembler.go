// Package assemble composes per-node extraction into ordered record lists.
package assemble

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/internal/view"
)

// Records maps build over every node in document order. A failing node is
// dropped and its error collected; one bad record never aborts the batch.
// Re-running over the same unchanged nodes yields identical output.
func Records[R any](nodes []view.Node, build func(view.Node) (R, error)) ([]R, []error) {
	records := make([]R, 0, len(nodes))
	var errs []error

	for i, node := range nodes {
		record, err := build(node)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("Record extraction failed")
			errs = append(errs, err)
			continue
		}
		records = append(records, record)
	}
	return records, errs
}

// SortByDate orders records ascending by their normalized date key. The
// sort is stable: equal dates keep their original document order. The
// canonical formats are fixed-width and zero-padded, so plain string
// comparison is a valid date comparison.
func SortByDate[R any](records []R, date func(R) string) {
	sort.SliceStable(records, func(i, j int) bool {
		return date(records[i]) < date(records[j])
	})
}
