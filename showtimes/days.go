package showtimes

import (
	"fmt"
	"sort"
	"time"
	"unicode"
)

var shortWeekdays = [...]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}

// localDay maps a date key to midnight of the same calendar day in loc.
// Keys are UTC dates; reading them directly in a zone west of UTC would land
// on the previous day.
func localDay(key string, loc *time.Location) (time.Time, bool) {
	t, ok := parseDateKey(key)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// PartitionDays splits dates into today-or-later and strictly past, both
// ascending. Keys that do not parse count as past.
func PartitionDays(dates []string, now time.Time) (future []string, past []string) {
	today := truncateDate(now)
	for _, date := range dates {
		day, ok := localDay(date, now.Location())
		if ok && !day.Before(today) {
			future = append(future, date)
		} else {
			past = append(past, date)
		}
	}
	sortDateKeys(future)
	sortDateKeys(past)
	return future, past
}

// ComputeDefaultDay picks the day to show: preferred when it is still listed,
// else today, else the earliest upcoming day, else the latest past day.
func ComputeDefaultDay(dates []string, preferred string, now time.Time) (string, bool) {
	if len(dates) == 0 {
		return "", false
	}
	if preferred != "" {
		for _, date := range dates {
			if date == preferred {
				return preferred, true
			}
		}
	}

	future, past := PartitionDays(dates, now)
	today := truncateDate(now)
	for _, date := range future {
		if day, ok := localDay(date, now.Location()); ok && day.Equal(today) {
			return date, true
		}
	}
	if len(future) > 0 {
		return future[0], true
	}
	if len(past) > 0 {
		return past[len(past)-1], true
	}
	return "", false
}

type DayTab struct {
	Date   string `json:"date"`
	Label  string `json:"label"`
	Today  bool   `json:"today"`
	Past   bool   `json:"past"`
	Active bool   `json:"active"`
}

// BuildDayTabs lists upcoming days first, then past days, with active marked.
func BuildDayTabs(dates []string, active string, now time.Time) []DayTab {
	future, past := PartitionDays(dates, now)
	tabs := make([]DayTab, 0, len(dates))
	for _, date := range future {
		tabs = append(tabs, newDayTab(date, active, now, false))
	}
	for _, date := range past {
		tabs = append(tabs, newDayTab(date, active, now, true))
	}
	return tabs
}

func newDayTab(date string, active string, now time.Time, past bool) DayTab {
	day, ok := localDay(date, now.Location())
	return DayTab{
		Date:   date,
		Label:  DayLabel(date, now),
		Today:  ok && day.Equal(truncateDate(now)),
		Past:   past,
		Active: date == active,
	}
}

// SwitchDay returns a copy of tabs with only date active. An unknown date
// leaves the selection as it was.
func SwitchDay(tabs []DayTab, date string) []DayTab {
	out := append([]DayTab(nil), tabs...)
	found := false
	for _, tab := range out {
		if tab.Date == date {
			found = true
			break
		}
	}
	if !found {
		return out
	}
	for i := range out {
		out[i].Active = out[i].Date == date
	}
	return out
}

// ActiveDay returns the date of the active tab.
func ActiveDay(tabs []DayTab) (string, bool) {
	for _, tab := range tabs {
		if tab.Active {
			return tab.Date, true
		}
	}
	return "", false
}

// DayLabel renders "Hoy" for today and "Mie 17/1" style labels otherwise.
func DayLabel(date string, now time.Time) string {
	day, ok := localDay(date, now.Location())
	if !ok {
		return date
	}
	if day.Equal(truncateDate(now)) {
		return "Hoy"
	}
	name := []rune(stripMarks(shortWeekdays[day.Weekday()]))
	if len(name) > 0 {
		name[0] = unicode.ToUpper(name[0])
	}
	return fmt.Sprintf("%s %d/%d", string(name), day.Day(), int(day.Month()))
}

// PastBoundary is the index in tabs where past days start, or -1.
func PastBoundary(tabs []DayTab) int {
	idx := sort.Search(len(tabs), func(i int) bool { return tabs[i].Past })
	if idx == len(tabs) || idx == 0 {
		return -1
	}
	return idx
}
