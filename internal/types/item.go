package types

import (
	"strconv"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for HotItem.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// UnknownPlatform labels a ranking block whose name could not be extracted.
const UnknownPlatform = "未知平台"

// HotItem is a single entry of a platform's hot list.
type HotItem struct {
	// Platform is the display name of the ranking block.
	Platform string `json:"platform" bson:"platform"`

	// Ranking is the 1-based position within the platform's list.
	Ranking int `json:"ranking" bson:"ranking"`

	// Title is the trimmed headline text.
	Title string `json:"title" bson:"title"`

	// URL is the absolute link of the entry.
	URL string `json:"url" bson:"url"`

	// Heat is the normalized popularity count, nil when the page shows none.
	Heat *int64 `json:"heat" bson:"heat"`

	// Timestamp is the capture instant of the batch, formatted with TimestampLayout.
	Timestamp string `json:"timestamp" bson:"timestamp"`
}

// HeatString renders Heat for tabular output; absent heat is an empty string.
func (i HotItem) HeatString() string {
	if i.Heat == nil {
		return ""
	}
	return strconv.FormatInt(*i.Heat, 10)
}

// Batch is the result of one scrape pass, handed to storage sinks as a unit.
type Batch struct {
	CapturedAt time.Time
	Items      []HotItem
}

// NewBatch stamps every item with the batch capture time.
func NewBatch(capturedAt time.Time, items []HotItem) *Batch {
	stamp := capturedAt.Format(TimestampLayout)
	for i := range items {
		items[i].Timestamp = stamp
	}
	return &Batch{CapturedAt: capturedAt, Items: items}
}

// Len returns the number of items in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 {
	return &v
}
