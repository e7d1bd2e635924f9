package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// isInteractive is indirected for tests.
var isInteractive = func() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// runSelectForm is indirected for tests.
var runSelectForm = func(title string, options []huh.Option[string], value *string) error {
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Options(options...).
			Value(value),
	))
	return form.Run()
}

// SelectProfile resolves which profile a run targets. An explicit name wins
// (matched case-insensitively); a single configured profile is implicit; with
// several profiles and a terminal the operator picks one interactively.
func SelectProfile(f *File, name string) (*Profile, error) {
	if name != "" {
		for i := range f.Profiles {
			if strings.EqualFold(f.Profiles[i].Name, name) {
				return &f.Profiles[i], nil
			}
		}
		return nil, fmt.Errorf("profile %q not found", name)
	}

	if len(f.Profiles) == 1 {
		return &f.Profiles[0], nil
	}

	if !isInteractive() {
		return nil, fmt.Errorf("multiple profiles configured; pass --profile to select one")
	}

	options := make([]huh.Option[string], len(f.Profiles))
	for i, p := range f.Profiles {
		options[i] = huh.NewOption(fmt.Sprintf("%s (%s)", p.Name, p.Connection.APIBaseURL), p.Name)
	}
	var chosen string
	if err := runSelectForm("Select firewall profile", options, &chosen); err != nil {
		return nil, fmt.Errorf("profile selection: %w", err)
	}
	for i := range f.Profiles {
		if f.Profiles[i].Name == chosen {
			return &f.Profiles[i], nil
		}
	}
	return nil, fmt.Errorf("profile %q not found", chosen)
}
