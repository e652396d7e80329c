package client

import "time"

// Window is an inclusive range of calendar days
type Window struct {
	Start time.Time
	End   time.Time
}

// ScheduleWindows splits [start, end] into consecutive windows spanning at
// most days calendar days each. Times are truncated to their date.
func ScheduleWindows(start, end time.Time, days int) []Window {
	if days <= 0 {
		days = 1
	}
	start = dateOf(start)
	end = dateOf(end)

	var windows []Window
	for cur := start; !cur.After(end); {
		winEnd := cur.AddDate(0, 0, days-1)
		if winEnd.After(end) {
			winEnd = end
		}
		windows = append(windows, Window{Start: cur, End: winEnd})
		cur = winEnd.AddDate(0, 0, 1)
	}
	return windows
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
