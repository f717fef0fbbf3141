// Package showtimes turns the flat movie list into the date-indexed,
// filterable and dismissible state rendered by the terminal UI, the HTTP API
// and the table printer.
package showtimes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TimeStepMinutes is the granularity of the time range control.
const TimeStepMinutes = 30

var clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// ParseTime converts "H:MM" or "HH:MM" into minutes since midnight.
// The boolean is false for any other shape.
func ParseTime(text string) (int, bool) {
	match := clockPattern.FindStringSubmatch(strings.TrimSpace(text))
	if match == nil {
		return 0, false
	}
	hours, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	return hours*60 + minutes, true
}

// FormatTime renders minutes as zero-padded "HH:MM". Negative input is
// clamped to zero and hours are not wrapped at 24.
func FormatTime(totalMinutes int) string {
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	return fmt.Sprintf("%02d:%02d", totalMinutes/60, totalMinutes%60)
}

// TimeRange is an inclusive [Start, End] window in minutes since midnight.
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r TimeRange) Contains(minutes int) bool {
	return minutes >= r.Start && minutes <= r.End
}

// Clamp moves both ends inside bounds, keeping Start <= End.
func (r TimeRange) Clamp(bounds TimeRange) TimeRange {
	out := TimeRange{
		Start: min(max(r.Start, bounds.Start), bounds.End),
		End:   min(max(r.End, bounds.Start), bounds.End),
	}
	if out.Start > out.End {
		out.Start = out.End
	}
	return out
}

// Label is what the collapsed range control shows.
func (r TimeRange) Label(bounds TimeRange) string {
	if r.Covers(bounds) {
		return "Filtrar Hora"
	}
	return fmt.Sprintf("%s a %s", FormatTime(r.Start), FormatTime(r.End))
}

// Covers reports whether r spans bounds within half a step on each side.
func (r TimeRange) Covers(bounds TimeRange) bool {
	if bounds.Start == bounds.End {
		return true
	}
	tolerance := TimeStepMinutes / 2
	return abs(r.Start-bounds.Start) <= tolerance && abs(r.End-bounds.End) <= tolerance
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func floorToStep(minutes int) int {
	return (minutes / TimeStepMinutes) * TimeStepMinutes
}

func ceilToStep(minutes int) int {
	return ((minutes + TimeStepMinutes - 1) / TimeStepMinutes) * TimeStepMinutes
}
