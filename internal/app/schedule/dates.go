// internal/app/schedule/dates.go
package schedule

import "time"

// DateOnly truncates t to UTC midnight. Session dates are stored and compared
// at day granularity only.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ISOWeekday returns the day of week for t with Monday=1 … Sunday=7,
// matching the day_of_week stored on templates.
func ISOWeekday(t time.Time) int {
	wd := int(t.UTC().Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekdaysInRange returns the distinct ISO weekdays spanned by [start, end],
// so template fetches can skip days the range never touches. The result is
// capped at seven entries for ranges of a week or longer.
func WeekdaysInRange(start, end time.Time) []int {
	start, end = DateOnly(start), DateOnly(end)
	seen := make(map[int]struct{}, 7)
	var days []int
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		wd := ISOWeekday(d)
		if _, ok := seen[wd]; !ok {
			seen[wd] = struct{}{}
			days = append(days, wd)
		}
		if len(days) == 7 {
			break
		}
	}
	return days
}

// EachDate calls fn for every date in [start, end], inclusive, at UTC midnight.
func EachDate(start, end time.Time, fn func(time.Time)) {
	start, end = DateOnly(start), DateOnly(end)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}
