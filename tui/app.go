package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"cartelera-cli/model"
	"cartelera-cli/service"
	"cartelera-cli/showtimes"
	"cartelera-cli/store"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// debounceDelay coalesces bursts of resize events and search keystrokes.
const debounceDelay = 150 * time.Millisecond

type appState int

const (
	stateLoading appState = iota
	stateBrowse
	stateFilter
	stateError
)

// Options wires the program to its data source and session storage.
type Options struct {
	Client     *service.Client
	Source     string
	Cache      service.Cache
	Dismissals *store.DismissalStore
	Now        func() time.Time
}

type appModel struct {
	client     *service.Client
	source     string
	cache      service.Cache
	dismissals *store.DismissalStore
	now        func() time.Time

	state  appState
	err    error
	loaded bool
	// status is a one-line notice that lasts until the next key press.
	status string

	width  int
	height int

	view    showtimes.State
	current showtimes.View

	selected int
	spans    []cardSpan

	swipe *showtimes.SwipeTracker
	drag  dragState

	resizeSeq     int
	pendingWidth  int
	pendingHeight int
	querySeq      int

	keys     keyMap
	help     help.Model
	viewport viewport.Model
	filter   textinput.Model
	spinner  spinner.Model
}

type errMsg struct {
	err error
}

type moviesMsg struct {
	movies []model.Movie
	err    error
}

type resizeMsg struct {
	seq int
}

type queryMsg struct {
	seq   int
	date  string
	query string
}

func New(opts Options) tea.Model {
	if opts.Client == nil {
		opts.Client = service.NewClient(nil)
	}
	if strings.TrimSpace(opts.Source) == "" {
		opts.Source = service.DefaultSource
	}
	if opts.Dismissals == nil {
		opts.Dismissals = store.NewDismissalStore(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := appModel{
		client:     opts.Client,
		source:     opts.Source,
		cache:      opts.Cache,
		dismissals: opts.Dismissals,
		now:        opts.Now,
		state:      stateLoading,
		keys:       defaultKeyMap(),
		help:       help.New(),
		viewport:   viewport.New(0, 0),
		swipe:      showtimes.NewSwipeTracker(showtimes.CellSwipe),
		drag:       dragState{card: -1},
	}

	ti := textinput.New()
	ti.Prompt = "Buscar: "
	ti.Placeholder = "título de la película"
	ti.CharLimit = 64
	m.filter = ti

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	m.spinner = sp

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.loadMoviesCmd(), m.spinner.Tick)
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if m.width == 0 || m.height == 0 {
			m.applySize(msg.Width, msg.Height)
			return m, nil
		}
		m.resizeSeq++
		m.pendingWidth = msg.Width
		m.pendingHeight = msg.Height
		return m, debounceCmd(resizeMsg{seq: m.resizeSeq})

	case resizeMsg:
		if msg.seq == m.resizeSeq {
			m.applySize(m.pendingWidth, m.pendingHeight)
		}
		return m, nil

	case queryMsg:
		if msg.seq == m.querySeq {
			m.view = m.view.Update(showtimes.SetQuery{Date: msg.date, Query: msg.query})
			m.selected = 0
			m.viewport.GotoTop()
			m.refresh()
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != stateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case moviesMsg:
		if msg.err != nil {
			log.Printf("[data] load %s: %v", m.source, msg.err)
			if m.loaded {
				m.status = "No se pudo recargar: " + loadErrorText(msg.err, m.source)
				return m, nil
			}
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		snapshot := showtimes.NewSnapshot(msg.movies)
		if m.loaded {
			m.view = m.view.Update(showtimes.Reload{Snapshot: snapshot})
		} else {
			m.view = showtimes.NewState(snapshot, m.dismissals.Load(), m.now())
			m.loaded = true
		}
		if m.state != stateFilter {
			m.state = stateBrowse
		}
		m.status = ""
		m.layout()
		return m, nil

	case errMsg:
		if !m.loaded {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.status = msg.err.Error()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.handleFilterKey(msg)
		}
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m appModel) View() string {
	switch m.state {
	case stateLoading:
		return m.titleView() + "\n\n" + m.loadingView()
	case stateError:
		return m.titleView() + "\n\n" + errorStyle.Render(loadErrorText(m.err, m.source)) + "\n\n" + hint("Pulsa r para reintentar o q para salir.")
	}

	if len(m.current.Tabs) == 0 {
		body := emptyListMessage
		if len(m.view.Dismissed()) > 0 {
			body += "\n" + hint("Pulsa R para recuperar las películas descartadas.")
		}
		if m.status != "" {
			body += "\n" + errorStyle.Render(m.status)
		}
		return m.titleView() + "\n\n" + body + "\n\n" + m.help.View(m.keys)
	}
	return m.headerView() + "\n" + m.viewport.View() + "\n" + m.help.View(m.keys)
}

func (m appModel) titleView() string {
	title := lipgloss.NewStyle().Bold(true).Render("Cartelera")
	return title + "  " + hint(m.source)
}

func (m appModel) headerView() string {
	lines := []string{m.titleView(), renderTabs(m.current.Tabs, m.width)}
	lines = append(lines, renderRange(m.current.Section, m.width))
	switch {
	case m.state == stateFilter:
		lines = append(lines, m.filter.View())
	case m.status != "":
		lines = append(lines, errorStyle.Render(m.status))
	case m.current.Section != nil && m.current.Section.Query != "":
		lines = append(lines, hint("Buscar: "+m.current.Section.Query))
	default:
		lines = append(lines, hint("/ para buscar por título"))
	}
	return strings.Join(lines, "\n")
}

func (m appModel) loadingView() string {
	return fmt.Sprintf("%s Cargando cartelera\n\n%s", m.spinner.View(), hint("Leyendo "+m.source+"..."))
}

func loadErrorText(err error, source string) string {
	if service.IsNotFound(err) {
		return "No se encontró la cartelera en " + source + "."
	}
	return err.Error()
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit, true
	}

	switch m.state {
	case stateLoading:
		return m, nil, true
	case stateError:
		if key.Matches(msg, m.keys.Retry) {
			m.state = stateLoading
			m.err = nil
			return m, tea.Batch(m.loadMoviesCmd(), m.spinner.Tick), true
		}
		return m, nil, true
	}

	active := m.current.Active
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
	case key.Matches(msg, m.keys.PrevDay):
		m.switchDay(-1)
	case key.Matches(msg, m.keys.NextDay):
		m.switchDay(1)
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Filter):
		if active == "" {
			return m, nil, true
		}
		m.state = stateFilter
		m.filter.SetValue(m.view.Query(active))
		m.filter.CursorEnd()
		return m, m.filter.Focus(), true
	case key.Matches(msg, m.keys.StartEarlier):
		m.moveHandle(showtimes.LowerHandle, -1)
	case key.Matches(msg, m.keys.StartLater):
		m.moveHandle(showtimes.LowerHandle, 1)
	case key.Matches(msg, m.keys.EndEarlier):
		m.moveHandle(showtimes.UpperHandle, -1)
	case key.Matches(msg, m.keys.EndLater):
		m.moveHandle(showtimes.UpperHandle, 1)
	case key.Matches(msg, m.keys.ResetFilters):
		m.view = m.view.Update(showtimes.ResetFilters{Date: active})
		m.refresh()
	case key.Matches(msg, m.keys.Dismiss):
		if card, ok := m.selectedCard(); ok {
			m.dismiss(card.ID)
		}
	case key.Matches(msg, m.keys.Reload):
		return m, m.loadMoviesCmd(), true
	case key.Matches(msg, m.keys.Restore):
		m.dismissals.Clear()
		m.view = m.view.Update(showtimes.SetDismissed{})
		m.refresh()
	case key.Matches(msg, m.keys.OpenImdb):
		if card, ok := m.selectedCard(); ok && card.Imdb != nil {
			return m, openURLCmd(card.Imdb.WebURL), true
		}
	case key.Matches(msg, m.keys.OpenImdbApp):
		if card, ok := m.selectedCard(); ok && card.Imdb != nil {
			target := card.Imdb.AppURL
			if target == "" {
				target = card.Imdb.WebURL
			}
			return m, openURLCmd(target), true
		}
	case key.Matches(msg, m.keys.OpenMovie):
		if card, ok := m.selectedCard(); ok && card.Href != "" {
			return m, openURLCmd(card.Href), true
		}
	default:
		return m, nil, false
	}
	return m, nil, true
}

func (m appModel) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	active := m.current.Active
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter":
		m.querySeq++
		m.view = m.view.Update(showtimes.SetQuery{Date: active, Query: strings.TrimSpace(m.filter.Value())})
		m.filter.Blur()
		m.state = stateBrowse
		m.selected = 0
		m.viewport.GotoTop()
		m.refresh()
		return m, nil
	case "esc":
		m.querySeq++
		m.view = m.view.Update(showtimes.SetQuery{Date: active})
		m.filter.SetValue("")
		m.filter.Blur()
		m.state = stateBrowse
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.querySeq++
	query := queryMsg{seq: m.querySeq, date: active, query: strings.TrimSpace(m.filter.Value())}
	return m, tea.Batch(cmd, debounceCmd(query))
}

func (m appModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.state != stateBrowse {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	x, y := float64(msg.X), float64(msg.Y)
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		idx := m.cardAt(msg.Y)
		if idx < 0 {
			return m, nil
		}
		m.selected = idx
		m.drag = dragState{card: idx}
		m.swipe.Down(x, y, m.now())
		m.refresh()
	case tea.MouseActionMotion:
		if m.drag.card < 0 {
			return m, nil
		}
		m.swipe.Move(x, y)
		m.drag.offset = int(m.swipe.Offset())
		m.refresh()
	case tea.MouseActionRelease:
		if m.drag.card < 0 {
			return m, nil
		}
		idx := m.drag.card
		m.drag = dragState{card: -1}
		if m.swipe.Up(m.now()) && idx < len(m.spans) {
			m.dismiss(m.spans[idx].id)
			m.swipe.Reset()
			return m, nil
		}
		m.refresh()
	}
	return m, nil
}

// cardAt maps a screen row to the index of the visible card drawn there, or -1.
func (m appModel) cardAt(row int) int {
	top := lipgloss.Height(m.headerView())
	if row < top {
		return -1
	}
	line := row - top + m.viewport.YOffset
	for i, span := range m.spans {
		if line >= span.start && line <= span.end {
			return i
		}
	}
	return -1
}

func (m appModel) selectedCard() (showtimes.Card, bool) {
	cards := visibleCards(m.current.Section)
	if m.selected < 0 || m.selected >= len(cards) {
		return showtimes.Card{}, false
	}
	return cards[m.selected], true
}

func (m *appModel) switchDay(delta int) {
	tabs := m.current.Tabs
	idx := -1
	for i, tab := range tabs {
		if tab.Active {
			idx = i
			break
		}
	}
	next := idx + delta
	if idx < 0 || next < 0 || next >= len(tabs) {
		return
	}
	m.view = m.view.Update(showtimes.SelectDay{Date: tabs[next].Date})
	m.selected = 0
	m.viewport.GotoTop()
	m.refresh()
}

func (m *appModel) moveHandle(handle showtimes.Handle, steps int) {
	if m.current.Active == "" {
		return
	}
	m.view = m.view.Update(showtimes.MoveHandle{Date: m.current.Active, Handle: handle, Steps: steps})
	m.refresh()
}

func (m *appModel) moveSelection(delta int) {
	if len(m.spans) == 0 {
		return
	}
	m.selected = min(max(m.selected+delta, 0), len(m.spans)-1)
	m.refresh()

	span := m.spans[m.selected]
	if span.start < m.viewport.YOffset {
		m.viewport.SetYOffset(span.start)
	} else if bottom := m.viewport.YOffset + m.viewport.Height - 1; span.end > bottom {
		m.viewport.SetYOffset(span.end - m.viewport.Height + 1)
	}
}

// dismiss hides one showing and persists it. The day, the card position and
// the scroll offset are kept.
func (m *appModel) dismiss(id string) {
	if id == "" {
		return
	}
	m.view = m.view.Update(showtimes.Dismiss{ID: id})
	m.dismissals.Dismiss(id)
	m.refresh()
}

func (m *appModel) applySize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
	m.layout()
}

// layout sizes the viewport to what the header and help leave over.
func (m *appModel) layout() {
	m.refresh()
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.help.View(m.keys)) - 1
	m.viewport.Width = m.width
	m.viewport.Height = max(h, 3)
}

// refresh recomputes the view from the state and redraws the card list.
func (m *appModel) refresh() {
	if m.state == stateLoading || m.state == stateError {
		return
	}
	m.view = m.view.Update(showtimes.Tick{Now: m.now()})
	m.current = m.view.View()

	count := len(visibleCards(m.current.Section))
	m.selected = min(m.selected, count-1)
	m.selected = max(m.selected, 0)
	if m.drag.card >= count {
		m.drag = dragState{card: -1}
	}

	if m.current.Section == nil {
		m.spans = nil
		m.viewport.SetContent("")
		return
	}
	content, spans := renderSection(m.current.Section, m.width, m.selected, m.drag)
	m.spans = spans
	m.viewport.SetContent(content)
}

func (m appModel) loadMoviesCmd() tea.Cmd {
	return func() tea.Msg {
		movies, err := m.client.LoadMovies(context.Background(), m.source, m.cache)
		if err == nil && len(movies) == 0 {
			log.Printf("[data] %s has no movies", m.source)
		}
		if err == nil {
			if rememberErr := store.RememberSource(m.source); rememberErr != nil {
				log.Printf("[store] remember source: %v", rememberErr)
			}
		}
		return moviesMsg{movies: movies, err: err}
	}
}

func debounceCmd(msg tea.Msg) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg { return msg })
}

func hint(text string) string {
	return lipgloss.NewStyle().Faint(true).Render(text)
}

func openURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := openURL(url); err != nil {
			log.Printf("[tui] open %s: %v", url, err)
			return errMsg{err: fmt.Errorf("no se pudo abrir %s: %w", url, err)}
		}
		return nil
	}
}

func openURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("no hay enlace")
	}
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return fmt.Errorf("sistema no soportado: %s", runtime.GOOS)
	}
}
