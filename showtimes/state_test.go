package showtimes

import (
	"testing"
	"time"

	"cartelera-cli/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() Snapshot {
	return NewSnapshot([]model.Movie{
		{
			Title:       "Amélie",
			Href:        "https://cine.example.com/amelie",
			Duration:    "122 min",
			ImdbURL:     "https://www.imdb.com/title/tt0211915/",
			ImdbRating:  "8.3",
			Metascore:   "69",
			ShowingDays: []string{"2024-01-10", "2024-01-20"},
			Showtimes: map[string]model.FormatShowtimes{
				"2024-01-10": {{Format: "2D", Times: []string{"18:00"}}},
				"2024-01-20": {{Format: "2D", Times: []string{"10:15", "22:40"}}},
			},
		},
		{
			Title:       "DUNE",
			Href:        "https://cine.example.com/dune",
			Duration:    "166 min",
			ShowingDays: []string{"2024-01-20"},
			Showtimes: map[string]model.FormatShowtimes{
				"2024-01-20": {{Format: "IMAX", Times: []string{"09:30"}}},
			},
		},
		{
			Title:       "Sin horario",
			Href:        "https://cine.example.com/sin-horario",
			ShowingDays: []string{"2024-01-25"},
			Showtimes: map[string]model.FormatShowtimes{
				"2024-01-25": {{Format: "2D", Times: []string{"pronto"}}},
			},
		},
	})
}

var sampleNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func TestState_ViewPicksUpcomingDay(t *testing.T) {
	state := NewState(sampleSnapshot(), nil, sampleNow)
	view := state.View()

	require.Len(t, view.Tabs, 2, "a day without parsable times is not listed")
	assert.Equal(t, "2024-01-20", view.Active)
	require.NotNil(t, view.Section)
	assert.Equal(t, TimeRange{Start: 570, End: 1380}, view.Section.Bounds)
	assert.Equal(t, "Filtrar Hora", view.Section.RangeLabel)
	assert.Equal(t, 2, view.Section.VisibleCount)

	first := view.Section.Cards[0]
	assert.Equal(t, "2024-01-20|Amélie|https://cine.example.com/amelie", first.ID)
	assert.Equal(t, "2h 2min", first.Duration)
	require.NotNil(t, first.Imdb)
	assert.Equal(t, "IMDb 8.3 / 69", first.Imdb.Label)
	assert.Equal(t, "Dune", view.Section.Cards[1].Title)
	assert.Nil(t, view.Section.Cards[1].Imdb)
}

func TestState_DismissKeepsDayAndIsImmutable(t *testing.T) {
	state := NewState(sampleSnapshot(), nil, sampleNow)
	id := MovieID("2024-01-20", state.Snapshot().Movies()[0])

	next := state.Update(Dismiss{ID: id})

	assert.Equal(t, "2024-01-20", next.ActiveDay())
	section, ok := next.Section("2024-01-20")
	require.True(t, ok)
	require.Len(t, section.Cards, 1)
	assert.Equal(t, "Dune", section.Cards[0].Title)

	assert.Empty(t, state.Dismissed(), "the previous state must not change")
	original, _ := state.Section("2024-01-20")
	assert.Len(t, original.Cards, 2)

	// Same movie on another date is a different showing.
	other, ok := next.Section("2024-01-10")
	require.True(t, ok)
	assert.Len(t, other.Cards, 1)
}

func TestState_DismissLastMovieDropsDay(t *testing.T) {
	state := NewState(sampleSnapshot(), nil, sampleNow)
	movies := state.Snapshot().Movies()

	state = state.Update(SelectDay{Date: "2024-01-10"})
	state = state.Update(Dismiss{ID: MovieID("2024-01-10", movies[0])})

	assert.Equal(t, []string{"2024-01-20"}, state.Days().Dates())
	assert.Equal(t, "2024-01-20", state.ActiveDay())
}

func TestState_DismissedSurvivesReload(t *testing.T) {
	state := NewState(sampleSnapshot(), nil, sampleNow)
	id := MovieID("2024-01-20", state.Snapshot().Movies()[1])
	saved := state.Update(Dismiss{ID: id}).Dismissed()

	reloaded := NewState(sampleSnapshot(), saved, sampleNow).Update(Reload{Snapshot: sampleSnapshot()})
	section, ok := reloaded.Section("2024-01-20")
	require.True(t, ok)
	require.Len(t, section.Cards, 1)
	assert.Equal(t, "Amélie", section.Cards[0].Title)

	cleared := reloaded.Update(SetDismissed{})
	section, _ = cleared.Section("2024-01-20")
	assert.Len(t, section.Cards, 2)
}

func TestState_TimeWindow(t *testing.T) {
	date := "2024-01-20"
	state := NewState(sampleSnapshot(), nil, sampleNow)

	state = state.Update(MoveHandle{Date: date, Handle: LowerHandle, Steps: 1})
	assert.Equal(t, TimeRange{Start: 600, End: 1380}, state.Range(date))

	state = state.Update(MoveHandle{Date: date, Handle: UpperHandle, Steps: -16})
	assert.Equal(t, TimeRange{Start: 600, End: 900}, state.Range(date))

	section, _ := state.Section(date)
	assert.Equal(t, "10:00 a 15:00", section.RangeLabel)
	assert.Equal(t, 1, section.VisibleCount, "09:30 is outside, 10:15 inside")
	assert.True(t, section.Cards[0].Visible)
	assert.False(t, section.Cards[1].Visible)

	state = state.Update(MoveHandle{Date: date, Handle: UpperHandle, Steps: -100})
	assert.Equal(t, TimeRange{Start: 570, End: 570}, state.Range(date))

	state = state.Update(SetRange{Date: date, Range: TimeRange{Start: 2000, End: 0}})
	assert.Equal(t, TimeRange{Start: 570, End: 1380}, state.Range(date))

	state = state.Update(MoveHandle{Date: "2030-01-01", Handle: LowerHandle, Steps: 1})
	assert.Equal(t, TimeRange{}, state.Range("2030-01-01"))
}

func TestState_QueryAndReset(t *testing.T) {
	date := "2024-01-20"
	state := NewState(sampleSnapshot(), nil, sampleNow)

	state = state.Update(SetQuery{Date: date, Query: "AMELIE"})
	section, _ := state.Section(date)
	assert.Equal(t, 1, section.VisibleCount)
	assert.Equal(t, "AMELIE", section.Query)

	other, _ := state.Section("2024-01-10")
	assert.Empty(t, other.Query, "queries are kept per day")

	state = state.Update(MoveHandle{Date: date, Handle: LowerHandle, Steps: 2})
	state = state.Update(ResetFilters{Date: date})
	section, _ = state.Section(date)
	assert.Equal(t, 2, section.VisibleCount)
	assert.Equal(t, "Filtrar Hora", section.RangeLabel)
}

func TestState_TickMovesToday(t *testing.T) {
	state := NewState(sampleSnapshot(), nil, sampleNow)
	state = state.Update(Tick{Now: time.Date(2024, 1, 20, 8, 0, 0, 0, time.UTC)})

	tabs := state.Tabs()
	require.Len(t, tabs, 2)
	assert.Equal(t, "Hoy", tabs[0].Label)
	assert.True(t, tabs[1].Past)
	assert.Equal(t, "2024-01-20", state.ActiveDay())
}

func TestState_SelectUnknownDayKeepsDefault(t *testing.T) {
	state := NewState(sampleSnapshot(), nil, sampleNow)

	state = state.Update(SelectDay{Date: "2024-01-10"})
	require.Equal(t, "2024-01-10", state.ActiveDay())

	state = state.Update(SelectDay{Date: "2030-01-01"})
	assert.Equal(t, "2024-01-20", state.ActiveDay())

	active := 0
	for _, tab := range state.Tabs() {
		if tab.Active {
			active++
		}
	}
	assert.Equal(t, 1, active)
}
