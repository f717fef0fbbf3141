package tui

import (
	"fmt"
	"strings"

	"cartelera-cli/showtimes"
	"github.com/charmbracelet/lipgloss"
)

const (
	emptyListMessage  = "No hay películas para mostrar."
	emptyRangeMessage = "No hay funciones en el rango seleccionado."
	maxSliderWidth    = 48
	maxDragIndent     = 24
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)
	todayTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Padding(0, 1)
	tabStyle      = lipgloss.NewStyle().Padding(0, 1)
	pastTabStyle  = lipgloss.NewStyle().Faint(true).Padding(0, 1)

	cardTitleStyle = lipgloss.NewStyle().Bold(true)
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	imdbStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	sliderOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// cardSpan is the block of content lines occupied by one visible card.
type cardSpan struct {
	id    string
	start int
	end   int
}

type dragState struct {
	card   int
	offset int
}

// visibleCards are the cards of section that pass both filters, in order.
func visibleCards(section *showtimes.Section) []showtimes.Card {
	if section == nil {
		return nil
	}
	cards := make([]showtimes.Card, 0, section.VisibleCount)
	for _, card := range section.Cards {
		if card.Visible {
			cards = append(cards, card)
		}
	}
	return cards
}

// renderTabs draws the day tabs, keeping the active tab on screen when the
// row is wider than width.
func renderTabs(tabs []showtimes.DayTab, width int) string {
	if len(tabs) == 0 {
		return ""
	}
	boundary := showtimes.PastBoundary(tabs)
	parts := make([]string, 0, len(tabs)+1)
	active := 0
	for i, tab := range tabs {
		if i == boundary {
			parts = append(parts, hint("│"))
		}
		style := tabStyle
		switch {
		case tab.Active:
			style = activeTabStyle
		case tab.Today:
			style = todayTabStyle
		case tab.Past:
			style = pastTabStyle
		}
		if tab.Active {
			active = len(parts)
		}
		parts = append(parts, style.Render(tab.Label))
	}

	if width <= 0 || lipgloss.Width(strings.Join(parts, "")) <= width {
		return strings.Join(parts, "")
	}

	lo, hi := active, active
	used := lipgloss.Width(parts[active])
	for {
		grew := false
		if hi+1 < len(parts) && used+lipgloss.Width(parts[hi+1])+2 <= width {
			hi++
			used += lipgloss.Width(parts[hi])
			grew = true
		}
		if lo > 0 && used+lipgloss.Width(parts[lo-1])+2 <= width {
			lo--
			used += lipgloss.Width(parts[lo])
			grew = true
		}
		if !grew {
			break
		}
	}
	row := strings.Join(parts[lo:hi+1], "")
	if lo > 0 {
		row = hint("‹") + row
	}
	if hi < len(parts)-1 {
		row += hint("›")
	}
	return row
}

// renderRange draws the time window of a section as a slider with two handles.
func renderRange(section *showtimes.Section, width int) string {
	if section == nil {
		return ""
	}
	bounds := section.Bounds
	sliderWidth := min(maxSliderWidth, max(width-32, 8))
	label := section.RangeLabel
	if !section.Range.Covers(bounds) {
		label = sliderOnStyle.Render(label)
	}
	return fmt.Sprintf("%s %s %s  %s",
		hint(showtimes.FormatTime(bounds.Start)),
		slider(bounds, section.Range, sliderWidth),
		hint(showtimes.FormatTime(bounds.End)),
		label,
	)
}

func slider(bounds, window showtimes.TimeRange, width int) string {
	span := bounds.End - bounds.Start
	pos := func(minutes int) int {
		if span <= 0 {
			return 0
		}
		return (minutes - bounds.Start) * (width - 1) / span
	}
	lo, hi := pos(window.Start), pos(window.End)
	if span <= 0 {
		hi = width - 1
	}

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == lo || i == hi:
			b.WriteString(sliderOnStyle.Render("●"))
		case i > lo && i < hi:
			b.WriteString(sliderOnStyle.Render("━"))
		default:
			b.WriteString(hint("─"))
		}
	}
	return b.String()
}

// renderSection lays out the visible cards of section and reports where
// each one landed.
func renderSection(section *showtimes.Section, width int, selected int, drag dragState) (string, []cardSpan) {
	cards := visibleCards(section)
	if len(cards) == 0 {
		return hint(emptyRangeMessage), nil
	}

	var lines []string
	spans := make([]cardSpan, 0, len(cards))
	for i, card := range cards {
		block := renderCard(card, i == selected)
		if drag.card == i && drag.offset != 0 {
			indent := strings.Repeat(" ", min(abs(drag.offset), maxDragIndent))
			for j, line := range block {
				block[j] = indent + hint(line)
			}
		}
		spans = append(spans, cardSpan{id: card.ID, start: len(lines), end: len(lines) + len(block) - 1})
		lines = append(lines, block...)
		lines = append(lines, "")
	}

	if width > 0 {
		clip := lipgloss.NewStyle().MaxWidth(width)
		for i, line := range lines {
			lines[i] = clip.Render(line)
		}
	}
	return strings.Join(lines, "\n"), spans
}

func renderCard(card showtimes.Card, selected bool) []string {
	cursor := "  "
	if selected {
		cursor = cursorStyle.Render("▌ ")
	}
	title := cursor + cardTitleStyle.Render(card.Title)
	if card.Duration != "" {
		title += "  " + hint(card.Duration)
	}

	lines := []string{title}
	if card.Imdb != nil {
		lines = append(lines, "  "+imdbStyle.Render(card.Imdb.Label))
	}
	for _, format := range card.Formats {
		if !format.Visible {
			continue
		}
		times := make([]string, 0, len(format.Times))
		for _, slot := range format.Times {
			if slot.Visible {
				times = append(times, timeStyle.Render(slot.Text))
			}
		}
		lines = append(lines, fmt.Sprintf("  %s  %s", hint(format.Format), strings.Join(times, "  ")))
	}
	return lines
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
