package showtimes

import (
	"strings"
	"unicode"

	"cartelera-cli/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FilterDismissed drops dismissed showings and the days left empty by that.
func FilterDismissed(days DateMap, dismissed map[string]bool) DateMap {
	out := make(DateMap, 0, len(days))
	for _, day := range days {
		var kept []model.Movie
		for _, movie := range day.Movies {
			if dismissed[MovieID(day.Date, movie)] {
				continue
			}
			kept = append(kept, movie)
		}
		if len(kept) == 0 {
			continue
		}
		out = append(out, DayMovies{Date: day.Date, Movies: kept})
	}
	return out
}

type TimeSlot struct {
	Text    string `json:"text"`
	Minutes int    `json:"minutes"`
	Parsed  bool   `json:"parsed"`
	Visible bool   `json:"visible"`
}

type FormatVisibility struct {
	Format  string     `json:"format"`
	Visible bool       `json:"visible"`
	Times   []TimeSlot `json:"times"`
}

type MovieVisibility struct {
	Visible bool               `json:"visible"`
	Formats []FormatVisibility `json:"formats"`
}

// Visibility is the presentation of one day's movies under a time range.
// Movies is parallel to the input slice.
type Visibility struct {
	Movies        []MovieVisibility
	VisibleMovies int
}

// ApplyTimeRange decides which times, formats and movies of date are shown
// for [start, end]. Times that do not parse are always shown.
func ApplyTimeRange(movies []model.Movie, date string, start, end int) Visibility {
	window := TimeRange{Start: start, End: end}
	result := Visibility{Movies: make([]MovieVisibility, len(movies))}

	for i, movie := range movies {
		var mv MovieVisibility
		for _, format := range movie.ShowtimesOn(date) {
			fv := FormatVisibility{Format: format.Format, Times: make([]TimeSlot, 0, len(format.Times))}
			for _, text := range format.Times {
				minutes, ok := ParseTime(text)
				slot := TimeSlot{Text: text, Minutes: minutes, Parsed: ok}
				slot.Visible = !ok || window.Contains(minutes)
				if slot.Visible {
					fv.Visible = true
				}
				fv.Times = append(fv.Times, slot)
			}
			if fv.Visible {
				mv.Visible = true
			}
			mv.Formats = append(mv.Formats, fv)
		}
		if mv.Visible {
			result.VisibleMovies++
		}
		result.Movies[i] = mv
	}
	return result
}

// ApplyTextFilter reports, per movie, whether its title contains query once
// both are lowercased and stripped of diacritics.
func ApplyTextFilter(movies []model.Movie, query string) []bool {
	needle := NormalizeText(query)
	out := make([]bool, len(movies))
	for i, movie := range movies {
		out[i] = needle == "" || strings.Contains(NormalizeText(movie.Title), needle)
	}
	return out
}

// NormalizeText lowercases s and removes combining marks ("Amélie" -> "amelie").
func NormalizeText(s string) string {
	return cases.Lower(language.Und).String(stripMarks(s))
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return stripped
}

// DayTimeBounds is the observed showtime range of date widened to whole
// slider steps. It is false when no time of that day parses.
func DayTimeBounds(movies []model.Movie, date string) (TimeRange, bool) {
	found := false
	var lo, hi int
	for _, movie := range movies {
		for _, format := range movie.ShowtimesOn(date) {
			for _, text := range format.Times {
				minutes, ok := ParseTime(text)
				if !ok {
					continue
				}
				if !found {
					lo, hi, found = minutes, minutes, true
					continue
				}
				lo = min(lo, minutes)
				hi = max(hi, minutes)
			}
		}
	}
	if !found {
		return TimeRange{}, false
	}
	return TimeRange{Start: floorToStep(lo), End: ceilToStep(hi)}, true
}
