package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

// months maps the localized genitive month names to zero-padded numbers.
// The table is exact: an unmapped month means malformed input, not a
// best-effort guess.
var months = map[string]string{
	"января":   "01",
	"февраля":  "02",
	"марта":    "03",
	"апреля":   "04",
	"мая":      "05",
	"июня":     "06",
	"июля":     "07",
	"августа":  "08",
	"сентября": "09",
	"октября":  "10",
	"ноября":   "11",
	"декабря":  "12",
}

var nonDigits = regexp.MustCompile(`\D`)

// Date normalizes "5 марта 2023" style day/month-name/year text to the
// canonical fixed-width "2023.03.05". The format sorts lexicographically.
func Date(raw string) (any, error) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed date %q", raw)
	}

	day, month, year := parts[0], parts[1], parts[2]
	num, ok := months[month]
	if !ok {
		return nil, fmt.Errorf("unknown month %q in date %q", month, raw)
	}
	if len(day) == 1 {
		day = "0" + day
	}
	return year + "." + num + "." + day, nil
}

// isoLayouts are the platform-native date spellings seen in review chrome.
var isoLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2006-01-02",
}

// DateISO normalizes a platform-native date string ("November 14, 2022",
// possibly prefixed with "Reviewed in ... on") to RFC 3339 UTC.
func DateISO(raw string) (any, error) {
	text := strings.TrimSpace(raw)
	if i := strings.LastIndex(text, " on "); i >= 0 {
		text = strings.TrimSpace(text[i+4:])
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return nil, fmt.Errorf("malformed date %q", raw)
}

// Int strips every non-digit character and parses the rest. Text with no
// digits at all normalizes to 0.
func Int(raw string) (any, error) {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil, fmt.Errorf("malformed count %q: %w", raw, err)
	}
	return n, nil
}

// Helpful parses "1,234 people found this helpful" style vote statements.
// The leading count is dropped entirely when exactly one person voted, so
// a missing number means 1, not 0.
func Helpful(raw string) (any, error) {
	first, _, _ := strings.Cut(strings.TrimSpace(raw), " ")
	n, err := strconv.Atoi(strings.ReplaceAll(first, ",", ""))
	if err != nil {
		return 1, nil
	}
	return n, nil
}

// Rating parses the leading float of "4.0 out of 5 stars".
func Rating(raw string) (any, error) {
	first, _, _ := strings.Cut(strings.TrimSpace(raw), " ")
	f, err := strconv.ParseFloat(first, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed rating %q: %w", raw, err)
	}
	return f, nil
}

// KeyValues normalizes "Color: Red" attribute strips: one entry per line,
// split on the first colon, key lower-cased, value trimmed. Lines without
// a colon are skipped. No ordering guarantee beyond source order of reads.
func KeyValues(raw string) (any, error) {
	kv := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		kv[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	if len(kv) == 0 {
		return nil, nil
	}
	return kv, nil
}

var (
	converterOnce sync.Once
	converter     *md.Converter
)

// Markdown normalizes a rich-text HTML fragment to markdown so line breaks
// and links survive extraction. Empty input normalizes to nil.
func Markdown(rawHTML string) (any, error) {
	if strings.TrimSpace(rawHTML) == "" {
		return nil, nil
	}

	converterOnce.Do(func() {
		converter = md.NewConverter("", true, nil)
		converter.Use(plugin.GitHubFlavored())
	})

	text, err := converter.ConvertString(rawHTML)
	if err != nil {
		return nil, fmt.Errorf("rich text: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	return text, nil
}
