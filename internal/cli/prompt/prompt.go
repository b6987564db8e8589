// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, ErrAborted)
}

// Confirm prompts the user for yes/no confirmation. A plain Enter picks
// defaultYes. Returns ErrAborted if the user presses Ctrl+C.
func Confirm(label string, defaultYes bool) (bool, error) {
	hint := "y/N"
	if defaultYes {
		hint = "Y/n"
	}

	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [%s]", label, hint),
		IsConfirm: true,
	}

	result, err := p.Run()
	switch {
	case err == nil:
	case errors.Is(err, promptui.ErrAbort):
		// promptui reports anything but "y" as ErrAbort
		if strings.TrimSpace(result) == "" {
			return defaultYes, nil
		}
		return false, nil
	case IsAborted(err):
		return false, ErrAborted
	default:
		return false, err
	}

	answer := strings.ToLower(strings.TrimSpace(result))
	return answer == "y" || answer == "yes", nil
}

// ConfirmWithForce returns true immediately if force is true,
// otherwise prompts for confirmation.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}

// SelectString prompts the user to pick one of items, starting on current
// when it is present.
func SelectString(label string, items []string, current string) (string, error) {
	p := promptui.Select{
		Label: label,
		Items: items,
		Size:  len(items),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "* {{ . | green }}",
		},
	}
	for i, it := range items {
		if strings.EqualFold(it, current) {
			p.CursorPos = i
			break
		}
	}

	_, result, err := p.Run()
	if err != nil {
		if IsAborted(err) {
			return "", ErrAborted
		}
		return "", err
	}
	return result, nil
}
