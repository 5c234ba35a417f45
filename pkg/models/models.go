package models

// Question is one customer question together with its materialized answers.
// Answers is nil (not empty) when the question has no answers.
type Question struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	Date    string   `json:"date"`
	Author  string   `json:"author"`
	Likes   int      `json:"likes"`
	Answers []Answer `json:"answers"`
}

// Answer is one answer to a customer question.
type Answer struct {
	ID       string `json:"id"`
	Author   string `json:"author"`
	Date     string `json:"date"`
	Likes    int    `json:"likes"`
	Dislikes int    `json:"dislikes"`
	Content  string `json:"content"`
}

// Review is one product review. Product holds the "Color: Red" style
// variant attributes and is nil when the review has none. Content is nil
// when the review body is empty.
type Review struct {
	ID      string            `json:"id"`
	Author  string            `json:"author"`
	Rating  float64           `json:"rating"`
	Title   string            `json:"title"`
	Date    string            `json:"date"`
	Product map[string]string `json:"product"`
	Content *string           `json:"content"`
	Helpful int               `json:"helpful"`
}

// Metric is one measured series value with its change dynamics.
type Metric struct {
	Dynamics float64 `json:"dynamics"`
	Value    float64 `json:"value"`
}

// TrendPoint is one interval of a category trend series.
type TrendPoint struct {
	StartDate      string `json:"startDate"`
	EndDate        string `json:"endDate"`
	PlatformMetric Metric `json:"platformMetric"`
	SellerMetric   Metric `json:"sellerMetric"`
}

// Stats holds the aggregate counters read from page chrome. They feed the
// continuation planner and are never persisted.
type Stats struct {
	Ratings int `json:"ratings"`
	Reviews int `json:"reviews"`
	Pages   int `json:"pages"`
}

// WorkUnit describes one schedulable continuation task. Value must satisfy
// the input schema of the named handler. WorkUnits are write-only from the
// engine's perspective: handed off to the scheduler, never read back.
type WorkUnit struct {
	Handler string         `json:"handler"`
	Value   map[string]any `json:"value"`
}

// Cookie is one named session cookie in the shape the host injects.
// Expires is an RFC 3339 timestamp or the literal "Session".
type Cookie struct {
	Value   string `json:"value"`
	Domain  string `json:"domain"`
	Path    string `json:"path"`
	Expires string `json:"expires"`
}

// UnitContext carries the parameters of the current unit of work. It is
// read-only input to the pipelines and the planner; nothing in the engine
// mutates it.
type UnitContext struct {
	Handler string
	SKU     string
	Page    int
	SortBy  string
	// Only suppresses sub-expansion when false: a unit scheduled with
	// only=false fetches its own page and plans nothing further.
	Only bool
	// BoundaryDate is the previously seen cutoff (RFC 3339). Empty until a
	// boundary has been pinned.
	BoundaryDate string
	Category     string
	DateFrom     string
	DateTo       string
	Cookies      map[string]Cookie
	Session      string
}
