package rowstore

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/btree"
)

const maxScoreID = "_max_score"

// RosterEntry is a (display name, id) pair for a row that has a name and a timestamp.
type RosterEntry struct {
	Name string
	ID   string
}

// cache is the local copy of all rows keyed by id, plus the roster ordered by name and id.
type cache struct {
	rows   map[string]Object
	roster *btree.BTreeG[RosterEntry]
}

func lessRosterEntry(a, b RosterEntry) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}

	return a.ID < b.ID
}

// newCache builds the cache and roster from the complete set of rows and returns the row timestamps
// (in milliseconds since the epoch) of the roster rows.
func newCache(rows map[string]Object) (*cache, map[string]float64) {
	c := cache{
		rows:   map[string]Object{},
		roster: btree.NewG(8, lessRosterEntry),
	}

	timestamps := map[string]float64{}

	for id, row := range rows {
		c.rows[id] = clone(row)

		if id == "" || id == maxScoreID {
			continue
		}

		if !truthy(row[ColumnName]) || !truthy(row[ColumnTimestamp]) {
			continue
		}

		c.roster.ReplaceOrInsert(RosterEntry{Name: text(row[ColumnName]), ID: id})

		if ms, ok := EpochMillis(row[ColumnTimestamp]); ok {
			timestamps[id] = ms
		}
	}

	return &c, timestamps
}

func (c *cache) get(id string) (Object, bool) {
	row, ok := c.rows[id]

	return row, ok
}

func (c *cache) entries() []RosterEntry {
	roster := make([]RosterEntry, 0, c.roster.Len())

	c.roster.Ascend(func(e RosterEntry) bool {
		roster = append(roster, e)
		return true
	})

	return roster
}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// EpochMillis converts a Timestamp cell (a date string or a millisecond count) to milliseconds since
// the epoch.
func EpochMillis(v any) (float64, bool) {
	if ms, ok := number(v); ok {
		if _, isString := v.(string); !isString {
			return ms, true
		}
	}

	s, ok := v.(string)
	if !ok {
		return 0, false
	}

	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return float64(t.UnixMilli()), true
		}
	}

	if ms, ok := number(s); ok {
		return ms, true
	}

	return 0, false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false

	case string:
		return x != ""

	case bool:
		return x

	case float64:
		return x != 0

	case int:
		return x != 0
	}

	return true
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""

	case string:
		return x

	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)

	default:
		return fmt.Sprintf("%v", x)
	}
}
