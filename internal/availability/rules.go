package availability

import (
	"sort"
	"time"
)

// NextWeekday returns the first calendar date on or after from that falls on
// the given weekday, at midnight in from's location. The arithmetic is
// anchored on the reference date itself, so it stays correct across month
// and year boundaries and for weeks other than the current one.
func NextWeekday(from time.Time, weekday time.Weekday) time.Time {
	y, m, d := from.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, from.Location())
	offset := (int(weekday) - int(from.Weekday()) + 7) % 7
	return midnight.AddDate(0, 0, offset)
}

// Materialize projects a weekday-anchored rule onto the first matching date
// on or after ref.
func Materialize(r Rule, ref time.Time) Window {
	day := NextWeekday(ref, r.Weekday)
	return Window{
		Start: day.Add(time.Duration(r.StartMinute) * time.Minute),
		End:   day.Add(time.Duration(r.EndMinute) * time.Minute),
	}
}

// windowsOn materializes every rule matching date's weekday onto that date
// and returns their union, merged and sorted. Overlapping and back-to-back
// rules collapse into a single window.
func windowsOn(rules []Rule, date time.Time) []Window {
	var windows []Window
	for _, r := range rules {
		if r.Weekday != date.Weekday() {
			continue
		}
		windows = append(windows, Materialize(r, date))
	}
	return mergeWindows(windows)
}

func mergeWindows(windows []Window) []Window {
	if len(windows) <= 1 {
		return windows
	}
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start.Before(windows[j].Start)
	})
	merged := windows[:1]
	for _, w := range windows[1:] {
		last := &merged[len(merged)-1]
		if !w.Start.After(last.End) {
			if w.End.After(last.End) {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}
