package checkin

import (
	"errors"
	"strings"

	"github.com/bloomhealth/bloom/models"
)

var (
	// ErrNotActionable means the record is already dismissed or completed.
	ErrNotActionable = errors.New("check-in is not actionable")
	// ErrUnknownAction is returned for an Action with an unset kind.
	ErrUnknownAction = errors.New("unknown check-in action")
	// ErrNotFound is returned by a Store when no record exists for the user and day.
	ErrNotFound = errors.New("check-in not found")
)

// ActionKind enumerates the mutations a pending check-in accepts.
type ActionKind int

const (
	ActionDismiss ActionKind = iota + 1
	ActionComplete
	ActionRefresh
)

// Action is one requested mutation. Response is used by ActionComplete, Prompt by ActionRefresh.
type Action struct {
	Kind     ActionKind
	Response string
	Prompt   string
}

// Visible reports whether the prompt should still be shown.
func Visible(rec *models.CheckIn) bool {
	return rec != nil && rec.Status == models.CheckInPending
}

// Transition applies act to rec and returns the resulting record. rec itself is not modified.
func Transition(rec models.CheckIn, act Action) (models.CheckIn, error) {
	if !Visible(&rec) {
		return rec, ErrNotActionable
	}

	switch act.Kind {
	case ActionDismiss:
		rec.Status = models.CheckInDismissed
	case ActionComplete:
		rec.Status = models.CheckInCompleted
		rec.ResponseText = strings.TrimSpace(act.Response)
	case ActionRefresh:
		rec.PromptText = act.Prompt
	default:
		return rec, ErrUnknownAction
	}
	return rec, nil
}
