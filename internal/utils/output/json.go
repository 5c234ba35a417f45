// Package output renders and persists result documents.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sizieks/parsers/pkg/models"
)

// Save writes the result document to filepath. The format follows the
// file extension: .md gets a markdown report, .csv a per-review table,
// anything else indented JSON.
func Save(v any, filepath string) error {
	switch {
	case strings.HasSuffix(filepath, ".md"):
		return SaveMarkdown(v, filepath)
	case strings.HasSuffix(filepath, ".csv"):
		reviews, err := reviewsOf(v)
		if err != nil {
			return err
		}
		return SaveReviewsCSV(reviews, filepath)
	}

	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, content, 0644)
}

// reviewsOf pulls the review list out of a result document.
func reviewsOf(v any) ([]models.Review, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Reviews []models.Review `json:"reviews"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Reviews == nil {
		return nil, fmt.Errorf("result document carries no reviews, CSV export needs the reviews handler")
	}
	return doc.Reviews, nil
}

// Print writes the result document to stdout as indented JSON.
func Print(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to render result: %w", err)
	}
	return nil
}
