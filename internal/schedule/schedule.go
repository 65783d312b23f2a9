package schedule

import (
	"sort"
	"time"
)

// Source identifies where an entry came from.
type Source string

const (
	SourceCMS       Source = "cms"
	SourceRadioCult Source = "radiocult"
)

// DefaultSlot is assumed when a source gives no end time.
const DefaultSlot = time.Hour

// Entry is one scheduled broadcast.
type Entry struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Title  string    `json:"title"`
	Href   string    `json:"href,omitempty"`
	Image  string    `json:"image,omitempty"`
	Hosts  []string  `json:"hosts,omitempty"`
	Source Source    `json:"source"`
}

// Key identifies the entry's slot: local date and HH:MM in loc.
func (e Entry) Key(loc *time.Location) string {
	return e.Start.In(loc).Format("2006-01-02 15:04")
}

// Live reports whether the entry is airing at now.
func (e Entry) Live(now time.Time) bool {
	return !now.Before(e.Start) && now.Before(e.End)
}

// Window is a run of whole local days.
type Window struct {
	Start    time.Time
	End      time.Time
	Days     int
	Location *time.Location
}

// NewWindow returns the window starting at local midnight of now's day and
// spanning days calendar days in loc. A window across a DST change is an hour
// shorter or longer than days*24h.
func NewWindow(now time.Time, loc *time.Location, days int) Window {
	if loc == nil {
		loc = time.UTC
	}
	if days <= 0 {
		days = 7
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+days, 0, 0, 0, 0, loc)
	return Window{Start: start, End: end, Days: days, Location: loc}
}

// Contains reports whether t falls in [Start, End).
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Merge combines CMS and external entries into one list with at most one entry
// per slot, ordered by start then title. Entries without a start or outside
// the window are dropped. For a contested slot an entry with an Href replaces
// one without; otherwise the entry seen first is kept, and CMS entries are
// seen before external ones.
func Merge(w Window, cms, external []Entry) []Entry {
	slots := make(map[string]int, len(cms)+len(external))
	merged := make([]Entry, 0, len(cms)+len(external))
	for _, batch := range [][]Entry{cms, external} {
		for _, entry := range batch {
			if entry.Start.IsZero() || !w.Contains(entry.Start) {
				continue
			}
			key := entry.Key(w.Location)
			idx, taken := slots[key]
			if !taken {
				slots[key] = len(merged)
				merged = append(merged, entry)
				continue
			}
			if entry.Href != "" && merged[idx].Href == "" {
				merged[idx] = entry
			}
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].Start.Equal(merged[j].Start) {
			return merged[i].Start.Before(merged[j].Start)
		}
		return merged[i].Title < merged[j].Title
	})
	return merged
}

// Day is one local calendar day of the schedule.
type Day struct {
	Date    time.Time `json:"date"`
	Entries []Entry   `json:"entries"`
}

// GroupByDay splits sorted entries into the window's days. Every day of the
// window is present, including days with no entries.
func (w Window) GroupByDay(entries []Entry) []Day {
	days := make([]Day, w.Days)
	index := make(map[string]int, w.Days)
	for i := range days {
		date := time.Date(w.Start.Year(), w.Start.Month(), w.Start.Day()+i, 0, 0, 0, 0, w.Location)
		days[i] = Day{Date: date, Entries: []Entry{}}
		index[date.Format("2006-01-02")] = i
	}
	for _, entry := range entries {
		i, ok := index[entry.Start.In(w.Location).Format("2006-01-02")]
		if !ok {
			continue
		}
		days[i].Entries = append(days[i].Entries, entry)
	}
	return days
}
