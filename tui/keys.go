package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PrevDay      key.Binding
	NextDay      key.Binding
	Up           key.Binding
	Down         key.Binding
	Filter       key.Binding
	StartEarlier key.Binding
	StartLater   key.Binding
	EndEarlier   key.Binding
	EndLater     key.Binding
	ResetFilters key.Binding
	Dismiss      key.Binding
	Restore      key.Binding
	OpenImdb     key.Binding
	OpenImdbApp  key.Binding
	OpenMovie    key.Binding
	Retry        key.Binding
	Reload       key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PrevDay: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "día anterior"),
		),
		NextDay: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "día siguiente"),
		),
		Up: key.NewBinding(
			key.WithKeys("subir", "k"),
			key.WithHelp("↑/k", "subir"),
		),
		Down: key.NewBinding(
			key.WithKeys("bajar", "j"),
			key.WithHelp("↓/j", "bajar"),
		),
		Filter: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "buscar"),
		),
		StartEarlier: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "desde -30m"),
		),
		StartLater: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "desde +30m"),
		),
		EndEarlier: key.NewBinding(
			key.WithKeys("{"),
			key.WithHelp("{", "hasta -30m"),
		),
		EndLater: key.NewBinding(
			key.WithKeys("}"),
			key.WithHelp("}", "hasta +30m"),
		),
		ResetFilters: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "quitar filtros"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "descartar"),
		),
		Restore: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "recuperar todo"),
		),
		OpenImdb: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "imdb"),
		),
		OpenImdbApp: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "app imdb"),
		),
		OpenMovie: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "ficha"),
		),
		Retry: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reintentar"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "recargar"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "más teclas"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "salir"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevDay, k.NextDay, k.Filter, k.Dismiss, k.OpenImdb, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevDay, k.NextDay, k.Up, k.Down},
		{k.Filter, k.StartEarlier, k.StartLater, k.EndEarlier, k.EndLater, k.ResetFilters},
		{k.Dismiss, k.Restore, k.OpenImdb, k.OpenImdbApp, k.OpenMovie},
		{k.Reload},
		{k.Help, k.Quit},
	}
}
