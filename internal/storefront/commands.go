package storefront

import (
	"errors"
	"fmt"
	"strings"

	domain "github.com/pawmart/api/internal/domain"
)

// CommandKind names a browsing state transition.
type CommandKind string

const (
	CommandSetKeyword         CommandKind = "set_keyword"
	CommandSetShowUnavailable CommandKind = "set_show_unavailable"
	CommandSetPage            CommandKind = "set_page"
	CommandNextPage           CommandKind = "next_page"
	CommandPrevPage           CommandKind = "prev_page"
)

// ErrUnknownCommand is returned when a command kind is not recognized.
var ErrUnknownCommand = errors.New("storefront: unknown command")

// Command is one reducer input. Only the field matching the kind is read.
type Command struct {
	Kind            CommandKind
	Keyword         string
	ShowUnavailable bool
	Page            int
}

// Reduce applies a command to the browsing state and returns the next state.
// Changing the filter predicate resets the page cursor to 1; page moves are
// applied raw and clamped by Normalize once the filtered result size is known.
func Reduce(state domain.StorefrontState, cmd Command) (domain.StorefrontState, error) {
	switch cmd.Kind {
	case CommandSetKeyword:
		keyword := strings.TrimSpace(cmd.Keyword)
		if keyword != state.Keyword {
			state.Keyword = keyword
			state.Page = 1
		}
	case CommandSetShowUnavailable:
		if cmd.ShowUnavailable != state.ShowUnavailable {
			state.ShowUnavailable = cmd.ShowUnavailable
			state.Page = 1
		}
	case CommandSetPage:
		state.Page = cmd.Page
	case CommandNextPage:
		state.Page++
	case CommandPrevPage:
		state.Page--
	default:
		return state, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	return state, nil
}

// Normalize clamps the page cursor against the current number of pages.
func Normalize(state domain.StorefrontState, totalPages int) domain.StorefrontState {
	state.Page = ClampPage(state.Page, totalPages)
	return state
}
