package output

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/sizieks/parsers/pkg/models"
)

// SaveReviewsCSV writes extracted reviews to a CSV file, one row per
// review. The markdown content column is left empty when the review body
// was absent.
func SaveReviewsCSV(reviews []models.Review, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"id", "date", "author", "rating", "title", "helpful", "content"}); err != nil {
		return err
	}

	for _, r := range reviews {
		content := ""
		if r.Content != nil {
			content = *r.Content
		}
		row := []string{
			r.ID,
			r.Date,
			r.Author,
			strconv.FormatFloat(r.Rating, 'f', -1, 64),
			r.Title,
			strconv.Itoa(r.Helpful),
			content,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}
