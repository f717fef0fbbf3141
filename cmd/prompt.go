package cmd

import (
	"errors"
	"fmt"
	"os"

	"cartelera-cli/showtimes"
	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
)

// prompter asks the user when a command runs on a terminal.
type prompter interface {
	PickDay(tabs []showtimes.DayTab) (string, error)
	Confirm(label string) (bool, error)
}

type terminalPrompter struct{}

func (terminalPrompter) PickDay(tabs []showtimes.DayTab) (string, error) {
	items := make([]string, len(tabs))
	cursor := 0
	for i, tab := range tabs {
		items[i] = fmt.Sprintf("%-10s %s", tab.Label, tab.Date)
		if tab.Past {
			items[i] += " (pasado)"
		}
		if tab.Active {
			cursor = i
		}
	}

	selectDay := promptui.Select{
		Label:     "Día",
		Items:     items,
		Size:      10,
		CursorPos: cursor,
	}
	index, _, err := selectDay.Run()
	if err != nil {
		return "", err
	}
	return tabs[index].Date, nil
}

func (terminalPrompter) Confirm(label string) (bool, error) {
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// terminalPrompt returns nil when stdin or stdout is not a terminal, so
// scripts never block on a question.
func terminalPrompt() prompter {
	if !isatty.IsTerminal(os.Stdin.Fd()) || !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	return terminalPrompter{}
}
