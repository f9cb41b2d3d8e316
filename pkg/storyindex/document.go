package storyindex

// Document is C7's IndexDocument: the stored, searchable representation of
// one story within a shard (spec.md §4.7).
type Document struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	URLNorm     string   `json:"url_norm"`
	URLNormHash int64    `json:"url_norm_hash"`
	Host        string   `json:"host"`
	Title       string   `json:"title"`
	Date        int64    `json:"date"`
	Score       float64  `json:"score"`
	Tags        []string `json:"tags"`
	ScrapeIDs   []string `json:"scrape_ids"`
}
