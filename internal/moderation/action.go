package moderation

import "strings"

// Action is the remedial operation dispatched for a violation.
type Action uint8

const (
	ActionWarn Action = iota
	ActionDelete
	ActionTimeout
	ActionKick
)

func (a Action) String() string {
	switch a {
	case ActionDelete:
		return "delete"
	case ActionTimeout:
		return "timeout"
	case ActionKick:
		return "kick"
	default:
		return "warn"
	}
}

// ParseAction maps a stored action name to an Action. ok is false for
// names outside the closed set.
func ParseAction(value string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "delete":
		return ActionDelete, true
	case "warn":
		return ActionWarn, true
	case "timeout":
		return ActionTimeout, true
	case "kick":
		return ActionKick, true
	default:
		return ActionWarn, false
	}
}

// ResolveAction returns fallback for an empty value and Warn for any value
// that is not a known action.
func ResolveAction(value string, fallback Action) Action {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	action, _ := ParseAction(value)
	return action
}
