package ui

import (
	"os"

	"github.com/charmbracelet/huh"
)

// Confirm asks a yes/no question. It returns assumeYes without prompting
// when set, and false when stdin is not a terminal.
func Confirm(title, description string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if !IsTerminal(os.Stdin) {
		return false, nil
	}
	var proceed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&proceed),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return proceed, nil
}
