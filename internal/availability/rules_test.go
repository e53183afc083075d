package availability

import (
	"testing"
	"time"
)

func TestNextWeekday_SameDay(t *testing.T) {
	got := NextWeekday(monday, time.Monday)
	if !got.Equal(monday) {
		t.Fatalf("expected %s, got %s", monday, got)
	}
}

func TestNextWeekday_LaterInWeek(t *testing.T) {
	got := NextWeekday(monday, time.Thursday)
	want := monday.AddDate(0, 0, 3)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestNextWeekday_MonthBoundary(t *testing.T) {
	// 2026-01-31 is a Saturday; the next Monday is 2026-02-02.
	sat := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	got := NextWeekday(sat, time.Monday)
	want := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestNextWeekday_YearBoundary(t *testing.T) {
	// 2026-12-31 is a Thursday; the next Friday is 2027-01-01.
	nye := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	got := NextWeekday(nye, time.Friday)
	want := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestNextWeekday_DropsClock(t *testing.T) {
	late := at(monday, 23, 45)
	got := NextWeekday(late, time.Monday)
	if !got.Equal(monday) {
		t.Fatalf("expected midnight %s, got %s", monday, got)
	}
}

func TestMaterialize(t *testing.T) {
	rule := Rule{Weekday: time.Monday, StartMinute: 8 * 60, EndMinute: 12 * 60}
	win := Materialize(rule, monday)
	if !win.Start.Equal(at(monday, 8, 0)) || !win.End.Equal(at(monday, 12, 0)) {
		t.Fatalf("unexpected window %s - %s", win.Start, win.End)
	}

	// Materializing from a Saturday reference lands on the following Monday.
	sat := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	win = Materialize(rule, sat)
	if !win.Start.Equal(at(monday, 8, 0)) {
		t.Fatalf("expected window on %s, got start %s", monday, win.Start)
	}
}

func TestRuleValidate(t *testing.T) {
	valid := Rule{Weekday: time.Monday, StartMinute: 540, EndMinute: 1020}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	bad := []Rule{
		{Weekday: time.Monday, StartMinute: 600, EndMinute: 600},
		{Weekday: time.Monday, StartMinute: 700, EndMinute: 600},
		{Weekday: time.Monday, StartMinute: -1, EndMinute: 600},
		{Weekday: time.Monday, StartMinute: 600, EndMinute: 1440},
		{Weekday: 7, StartMinute: 540, EndMinute: 1020},
	}
	for i, r := range bad {
		if err := r.Validate(); err == nil {
			t.Fatalf("rule %d should have been rejected", i)
		}
	}
}

func TestMergeWindows_SplitShiftsUnion(t *testing.T) {
	rules := []Rule{
		{Weekday: time.Monday, StartMinute: 8 * 60, EndMinute: 12 * 60},
		{Weekday: time.Monday, StartMinute: 14 * 60, EndMinute: 18 * 60},
		{Weekday: time.Tuesday, StartMinute: 9 * 60, EndMinute: 17 * 60},
	}
	windows := windowsOn(rules, monday)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if !windows[0].Start.Equal(at(monday, 8, 0)) || !windows[1].Start.Equal(at(monday, 14, 0)) {
		t.Fatalf("unexpected windows %+v", windows)
	}
}

func TestMergeWindows_OverlapAndAdjacency(t *testing.T) {
	rules := []Rule{
		{Weekday: time.Monday, StartMinute: 8 * 60, EndMinute: 11 * 60},
		{Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 12 * 60},
		{Weekday: time.Monday, StartMinute: 12 * 60, EndMinute: 13 * 60},
	}
	windows := windowsOn(rules, monday)
	if len(windows) != 1 {
		t.Fatalf("expected 1 merged window, got %d", len(windows))
	}
	if !windows[0].Start.Equal(at(monday, 8, 0)) || !windows[0].End.Equal(at(monday, 13, 0)) {
		t.Fatalf("unexpected merged window %+v", windows[0])
	}
}
