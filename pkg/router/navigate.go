package router

import (
	"github.com/google/uuid"
)

// NavigateOptions configures a single navigation.
type NavigateOptions struct {
	// Replace replaces the current history entry instead of pushing.
	Replace bool
}

// NavigateOption is a functional option for Push.
type NavigateOption func(*NavigateOptions)

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *NavigateOptions) {
		o.Replace = true
	}
}

// Trigger records what started a navigation.
type Trigger string

const (
	// TriggerPush is a caller-initiated navigation.
	TriggerPush Trigger = "push"
	// TriggerReplace is a caller-initiated navigation with replace semantics.
	TriggerReplace Trigger = "replace"
	// TriggerStore is a back/forward event reported by the location store.
	TriggerStore Trigger = "store"
	// TriggerRedirect is a navigation started by a guard's Redirect.
	TriggerRedirect Trigger = "redirect"
)

// Navigation describes one navigation attempt as seen by middleware.
type Navigation struct {
	// ID is unique per attempt.
	ID string

	// Seq is the router-wide attempt number. Only the attempt holding the
	// latest number may commit.
	Seq uint64

	// Target is the path as requested.
	Target string

	// Trigger is what started the attempt.
	Trigger Trigger

	// Replace reports whether replace semantics were requested. The commit
	// also replaces when From is StartLocation.
	Replace bool

	// From is the current route when the attempt started.
	From *Location

	// To is the resolved target. It is nil until resolution and stays nil
	// for invalid targets.
	To *Location

	// Redirects counts the redirects that led to this attempt.
	Redirects int

	// Redirect is set when a guard redirected this attempt elsewhere.
	Redirect string
}

func newNavigation(seq uint64, raw RawLocation, trigger Trigger, from *Location) *Navigation {
	return &Navigation{
		ID:      uuid.NewString(),
		Seq:     seq,
		Target:  raw.Path,
		Trigger: trigger,
		Replace: raw.Replace,
		From:    from,
	}
}
