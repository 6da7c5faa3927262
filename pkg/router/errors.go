package router

import (
	"errors"
	"fmt"
)

// Navigation failure sentinels. Every failure returned by Push matches
// exactly one of them with errors.Is.
var (
	ErrAborted       = errors.New("navigation aborted")
	ErrCancelled     = errors.New("navigation cancelled by a newer navigation")
	ErrRedirectLoop  = errors.New("too many navigation redirects")
	ErrHistory       = errors.New("location store rejected navigation")
	ErrInvalidTarget = errors.New("invalid navigation target")
)

// FailureKind classifies a NavigationFailure.
type FailureKind int

const (
	// FailureAborted means a guard returned Abort or the context ended.
	FailureAborted FailureKind = iota
	// FailureCancelled means a newer navigation started before this one
	// could commit.
	FailureCancelled
	// FailureRedirectLoop means guards redirected more than maxRedirects times.
	FailureRedirectLoop
	// FailureHistory means the location store returned an error on push or
	// replace.
	FailureHistory
	// FailureInvalidTarget means the target path could not be canonicalized.
	FailureInvalidTarget
)

// String returns the failure kind name.
func (k FailureKind) String() string {
	switch k {
	case FailureAborted:
		return "aborted"
	case FailureCancelled:
		return "cancelled"
	case FailureRedirectLoop:
		return "redirect_loop"
	case FailureHistory:
		return "history"
	case FailureInvalidTarget:
		return "invalid_target"
	default:
		return "unknown"
	}
}

func (k FailureKind) sentinel() error {
	switch k {
	case FailureAborted:
		return ErrAborted
	case FailureCancelled:
		return ErrCancelled
	case FailureRedirectLoop:
		return ErrRedirectLoop
	case FailureHistory:
		return ErrHistory
	default:
		return ErrInvalidTarget
	}
}

// NavigationFailure describes a navigation that did not commit. The current
// route and the location store are unchanged when one is returned.
type NavigationFailure struct {
	Kind FailureKind

	// From is the current route when the navigation started.
	From *Location

	// To is the resolved target, or nil when the target was invalid.
	To *Location

	// Target is the path that was requested.
	Target string

	// Reason is the underlying cause, if any (a guard's abort reason, a
	// context error, a store error).
	Reason error
}

func (f *NavigationFailure) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Kind.sentinel(), f.Target)
	if f.Reason != nil {
		msg += ": " + f.Reason.Error()
	}
	return msg
}

// Is matches the sentinel for the failure's kind.
func (f *NavigationFailure) Is(target error) bool {
	return target == f.Kind.sentinel()
}

// Unwrap returns the underlying reason.
func (f *NavigationFailure) Unwrap() error {
	return f.Reason
}

// IsNavigationFailure reports whether err is a NavigationFailure of one of
// the given kinds (any kind when none are given).
func IsNavigationFailure(err error, kinds ...FailureKind) bool {
	var f *NavigationFailure
	if !errors.As(err, &f) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if f.Kind == k {
			return true
		}
	}
	return false
}
