package showtimes

import (
	"time"

	"cartelera-cli/model"
)

// Snapshot is the fetched movie list grouped by date. It is built once per
// fetch and never mutated afterwards.
type Snapshot struct {
	movies []model.Movie
	byDate DateMap
}

func NewSnapshot(movies []model.Movie) Snapshot {
	return Snapshot{movies: movies, byDate: Reorganize(movies)}
}

func (s Snapshot) Movies() []model.Movie { return s.movies }

func (s Snapshot) ByDate() DateMap { return s.byDate }

// State is the presentation state derived from a snapshot. It is a value:
// Update returns a new State and leaves the receiver untouched.
type State struct {
	snapshot  Snapshot
	dismissed map[string]bool
	selected  string
	queries   map[string]string
	ranges    map[string]TimeRange
	now       time.Time
}

func NewState(snapshot Snapshot, dismissed map[string]bool, now time.Time) State {
	set := make(map[string]bool, len(dismissed))
	for id, ok := range dismissed {
		if ok {
			set[id] = true
		}
	}
	return State{
		snapshot:  snapshot,
		dismissed: set,
		queries:   map[string]string{},
		ranges:    map[string]TimeRange{},
		now:       now,
	}
}

// Action is a user or system event applied through State.Update.
type Action interface {
	apply(s *State)
}

// Update is the single entry point for state changes.
func (s State) Update(action Action) State {
	next := s.clone()
	if action != nil {
		action.apply(&next)
	}
	return next
}

func (s State) clone() State {
	out := s
	out.dismissed = make(map[string]bool, len(s.dismissed))
	for id := range s.dismissed {
		out.dismissed[id] = true
	}
	out.queries = make(map[string]string, len(s.queries))
	for date, query := range s.queries {
		out.queries[date] = query
	}
	out.ranges = make(map[string]TimeRange, len(s.ranges))
	for date, r := range s.ranges {
		out.ranges[date] = r
	}
	return out
}

type Reload struct{ Snapshot Snapshot }

func (a Reload) apply(s *State) { s.snapshot = a.Snapshot }

type SelectDay struct{ Date string }

func (a SelectDay) apply(s *State) { s.selected = a.Date }

// Dismiss hides one showing. The current day stays selected when it still
// has movies afterwards.
type Dismiss struct{ ID string }

func (a Dismiss) apply(s *State) {
	if a.ID == "" {
		return
	}
	if s.selected == "" {
		s.selected = s.ActiveDay()
	}
	s.dismissed[a.ID] = true
}

// SetDismissed replaces the dismissed set, e.g. after reloading it from storage.
type SetDismissed struct{ Set map[string]bool }

func (a SetDismissed) apply(s *State) {
	s.dismissed = make(map[string]bool, len(a.Set))
	for id, ok := range a.Set {
		if ok {
			s.dismissed[id] = true
		}
	}
}

type SetQuery struct {
	Date  string
	Query string
}

func (a SetQuery) apply(s *State) {
	if a.Query == "" {
		delete(s.queries, a.Date)
		return
	}
	s.queries[a.Date] = a.Query
}

// SetRange sets the time window of a day; it is clamped to the day's bounds.
type SetRange struct {
	Date  string
	Range TimeRange
}

func (a SetRange) apply(s *State) {
	bounds, ok := s.Bounds(a.Date)
	if !ok {
		return
	}
	r := a.Range
	if r.Start > r.End {
		r.Start, r.End = r.End, r.Start
	}
	s.ranges[a.Date] = r.Clamp(bounds)
}

type Handle int

const (
	LowerHandle Handle = iota
	UpperHandle
)

// MoveHandle moves one end of a day's time window by whole steps. Crossing
// the other end drags it along.
type MoveHandle struct {
	Date   string
	Handle Handle
	Steps  int
}

func (a MoveHandle) apply(s *State) {
	bounds, ok := s.Bounds(a.Date)
	if !ok {
		return
	}
	r := s.Range(a.Date)
	delta := a.Steps * TimeStepMinutes
	switch a.Handle {
	case LowerHandle:
		r.Start = min(max(r.Start+delta, bounds.Start), bounds.End)
		if r.Start > r.End {
			r.End = r.Start
		}
	case UpperHandle:
		r.End = min(max(r.End+delta, bounds.Start), bounds.End)
		if r.End < r.Start {
			r.Start = r.End
		}
	}
	s.ranges[a.Date] = r
}

// ResetFilters restores the full time window and clears the query of a day.
type ResetFilters struct{ Date string }

func (a ResetFilters) apply(s *State) {
	delete(s.ranges, a.Date)
	delete(s.queries, a.Date)
}

// Tick moves the clock used to tell today from past days.
type Tick struct{ Now time.Time }

func (a Tick) apply(s *State) { s.now = a.Now }

func (s State) Snapshot() Snapshot { return s.snapshot }

func (s State) Dismissed() map[string]bool {
	out := make(map[string]bool, len(s.dismissed))
	for id := range s.dismissed {
		out[id] = true
	}
	return out
}

// Days are the days left after dismissals that have at least one parsable showtime.
func (s State) Days() DateMap {
	filtered := FilterDismissed(s.snapshot.byDate, s.dismissed)
	out := make(DateMap, 0, len(filtered))
	for _, day := range filtered {
		if _, ok := DayTimeBounds(day.Movies, day.Date); !ok {
			continue
		}
		out = append(out, day)
	}
	return out
}

func (s State) ActiveDay() string {
	day, _ := ActiveDay(s.Tabs())
	return day
}

func (s State) Tabs() []DayTab {
	days := s.Days().Dates()
	active, _ := ComputeDefaultDay(days, s.selected, s.now)
	return SwitchDay(BuildDayTabs(days, "", s.now), active)
}

func (s State) Bounds(date string) (TimeRange, bool) {
	movies := FilterDismissed(s.snapshot.byDate, s.dismissed).Movies(date)
	return DayTimeBounds(movies, date)
}

// Range is the time window of date, the full bounds unless the user narrowed it.
func (s State) Range(date string) TimeRange {
	bounds, ok := s.Bounds(date)
	if !ok {
		return TimeRange{}
	}
	if r, ok := s.ranges[date]; ok {
		return r.Clamp(bounds)
	}
	return bounds
}

func (s State) Query(date string) string { return s.queries[date] }

type Section struct {
	Date         string    `json:"date"`
	Label        string    `json:"label"`
	Bounds       TimeRange `json:"bounds"`
	Range        TimeRange `json:"range"`
	RangeLabel   string    `json:"range_label"`
	Query        string    `json:"query"`
	Cards        []Card    `json:"cards"`
	VisibleCount int       `json:"visible_count"`
}

// Section renders the cards of date with the day's time window and query applied.
func (s State) Section(date string) (Section, bool) {
	movies := s.Days().Movies(date)
	if len(movies) == 0 {
		return Section{}, false
	}
	bounds, _ := DayTimeBounds(movies, date)
	window := s.Range(date)
	query := s.queries[date]

	timeVis := ApplyTimeRange(movies, date, window.Start, window.End)
	textVis := ApplyTextFilter(movies, query)

	section := Section{
		Date:       date,
		Label:      DayLabel(date, s.now),
		Bounds:     bounds,
		Range:      window,
		RangeLabel: window.Label(bounds),
		Query:      query,
		Cards:      make([]Card, 0, len(movies)),
	}
	for i, movie := range movies {
		card := Card{
			ID:       MovieID(date, movie),
			Title:    TitleCase(movie.Title),
			Duration: FormatDuration(movie.Duration),
			Poster:   movie.PosterURL,
			Href:     movie.Href,
			Formats:  timeVis.Movies[i].Formats,
			Visible:  timeVis.Movies[i].Visible && textVis[i],
			Movie:    movie,
		}
		if link, ok := NewImdbLink(movie); ok {
			card.Imdb = &link
		}
		if card.Visible {
			section.VisibleCount++
		}
		section.Cards = append(section.Cards, card)
	}
	return section, true
}

type View struct {
	Tabs    []DayTab `json:"days"`
	Active  string   `json:"active,omitempty"`
	Section *Section `json:"section,omitempty"`
}

// View is everything a render pass needs: the tab bar and the active day.
func (s State) View() View {
	tabs := s.Tabs()
	view := View{Tabs: tabs}
	if active, ok := ActiveDay(tabs); ok {
		view.Active = active
		if section, ok := s.Section(active); ok {
			view.Section = &section
		}
	}
	return view
}
