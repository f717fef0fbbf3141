package showtimes

import (
	"sort"
	"strings"
	"time"

	"cartelera-cli/model"
	"golang.org/x/exp/maps"
)

// MovieID is the identity of one showing: the same title on two dates gives two identities.
func MovieID(date string, movie model.Movie) string {
	return date + "|" + movie.Title + "|" + movie.Href
}

type DayMovies struct {
	Date   string
	Movies []model.Movie
}

// DateMap is the movie list grouped by date, dates in ascending calendar order.
type DateMap []DayMovies

func (d DateMap) Dates() []string {
	dates := make([]string, 0, len(d))
	for _, day := range d {
		dates = append(dates, day.Date)
	}
	return dates
}

// Movies returns the movies showing on date, or nil.
func (d DateMap) Movies(date string) []model.Movie {
	for _, day := range d {
		if day.Date == date {
			return day.Movies
		}
	}
	return nil
}

// Reorganize buckets every movie under each of its showing days. Input order
// is kept within a day.
func Reorganize(movies []model.Movie) DateMap {
	byDate := map[string][]model.Movie{}
	for _, movie := range movies {
		seen := make(map[string]bool, len(movie.ShowingDays))
		for _, day := range movie.ShowingDays {
			if strings.TrimSpace(day) == "" || seen[day] {
				continue
			}
			seen[day] = true
			byDate[day] = append(byDate[day], movie)
		}
	}

	dates := maps.Keys(byDate)
	sortDateKeys(dates)

	out := make(DateMap, 0, len(dates))
	for _, date := range dates {
		out = append(out, DayMovies{Date: date, Movies: byDate[date]})
	}
	return out
}

// sortDateKeys orders keys by calendar date; keys that do not parse go last.
func sortDateKeys(dates []string) {
	sort.SliceStable(dates, func(i, j int) bool {
		left, leftOK := parseDateKey(dates[i])
		right, rightOK := parseDateKey(dates[j])
		if leftOK && rightOK && !left.Equal(right) {
			return left.Before(right)
		}
		if leftOK != rightOK {
			return leftOK
		}
		return dates[i] < dates[j]
	})
}

// parseDateKey reads a date key the way the data file writes it
// ("2024-01-10"), falling back to full timestamps.
func parseDateKey(key string) (time.Time, bool) {
	key = strings.TrimSpace(key)
	for _, layout := range []string{time.DateOnly, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, key); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
