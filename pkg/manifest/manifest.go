package manifest

// SummaryManifest is the report file written next to a batch's output. It gives a
// lightweight overview of every URL, its status and top keywords without reading the
// full bundle.
type SummaryManifest struct {
	GeneratedAt       string       `json:"generated_at"`
	TotalURLs         int          `json:"total_urls"`
	Successful        int          `json:"successful"`
	Failed            int          `json:"failed"`
	TotalWords        int          `json:"total_words"`
	AverageReadTime   float64      `json:"average_read_time"`
	AggregateKeywords []string     `json:"aggregate_keywords"`
	Results           []URLSummary `json:"results"`
}

// URLSummary represents summary information for a single URL.
type URLSummary struct {
	ID           string   `json:"id"`
	URL          string   `json:"url"`
	Status       string   `json:"status"` // "completed" or "error"
	Title        string   `json:"title,omitempty"`
	ErrorCode    string   `json:"error_code,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	WordCount    int      `json:"word_count,omitempty"`
	ReadTime     int      `json:"read_time,omitempty"`
	Category     string   `json:"category,omitempty"`
	TopKeywords  []string `json:"top_keywords,omitempty"`
}
