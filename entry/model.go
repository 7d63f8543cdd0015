package entry

// Link points at a reference or nearby-spot resource for a find.
type Link struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// AIInsights is the oracle-generated commentary attached at save time.
// Generation is best-effort, so the field may be absent.
type AIInsights struct {
	Description string `json:"description"`
	Links       []Link `json:"links"`
}

// Entry is one logged insect observation. Timestamp is the semantic
// observation time in epoch milliseconds and drives monthly quota
// counting; it is independent of the row's insert time. Entries are
// immutable after creation apart from deletion.
type Entry struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Memo       string      `json:"memo"`
	ImageURL   string      `json:"imageUrl"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Timestamp  int64       `json:"timestamp"`
	UserID     string      `json:"userId,omitempty"`
	AIInsights *AIInsights `json:"aiInsights,omitempty"`
}
