// Package episode holds the catalog record for one published narration
// and the retention rules applied to the catalog.
package episode

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidKeepCount is returned when a retention count is not positive.
var ErrInvalidKeepCount = errors.New("keep count must be a positive integer")

// Record is one published episode as persisted in the catalog.
type Record struct {
	GUID           string `json:"guid"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	PubDateISO     string `json:"pubdate_iso"`
	MP3Key         string `json:"mp3_key"`
	MP3LengthBytes int64  `json:"mp3_length_bytes"`
	PageKey        string `json:"episode_page_key"`
}

// PubDate parses the stored ISO-8601 timestamp.
func (r Record) PubDate() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, r.PubDateISO)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad pubdate %q for %s: %w", r.PubDateISO, r.GUID, err)
	}
	return t, nil
}

// SortByPubDateDesc orders records most-recent-first. The sort is stable,
// records published within the same second keep their relative order.
func SortByPubDateDesc(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PubDateISO > records[j].PubDateISO
	})
}

// Partition splits a sorted catalog into the records kept in the feed and
// the records evicted by retention.
func Partition(records []Record, keepN int) (kept, evicted []Record, err error) {
	if keepN <= 0 {
		return nil, nil, fmt.Errorf("partition with keep %d: %w", keepN, ErrInvalidKeepCount)
	}
	if keepN >= len(records) {
		return records, nil, nil
	}
	return records[:keepN], records[keepN:], nil
}
