package router

import (
	"context"
	"fmt"
)

// Guard is a hook run before a navigation commits. The zero Decision lets
// the navigation continue. Guards may block; they should honor ctx.
type Guard func(ctx context.Context, to, from *Location) Decision

// AfterHook runs after a navigation commits.
type AfterHook func(to, from *Location)

// Verdict is the outcome a guard chooses.
type Verdict int

const (
	// VerdictContinue lets the pipeline move on to the next guard.
	VerdictContinue Verdict = iota
	// VerdictAbort stops the navigation.
	VerdictAbort
	// VerdictRedirect stops the navigation and starts a new one.
	VerdictRedirect
)

// Decision is a guard's result.
type Decision struct {
	Verdict Verdict

	// Reason explains an abort. Optional.
	Reason error

	// Target is the redirect destination.
	Target string
}

// Continue lets the navigation proceed.
func Continue() Decision {
	return Decision{}
}

// Abort stops the navigation. reason may be nil.
func Abort(reason error) Decision {
	return Decision{Verdict: VerdictAbort, Reason: reason}
}

// Redirect stops the navigation and navigates to target instead.
func Redirect(target string) Decision {
	return Decision{Verdict: VerdictRedirect, Target: target}
}

// guardPhase names a step of the pipeline, for logs and failures.
type guardPhase string

const (
	phaseBeforeEach    guardPhase = "beforeEach"
	phaseBeforeEnter   guardPhase = "beforeEnter"
	phaseBeforeResolve guardPhase = "beforeResolve"
)

// runGuards evaluates guards in order and returns the first decision that
// is not Continue. A cancelled context aborts before the next guard runs.
func runGuards(ctx context.Context, phase guardPhase, guards []Guard, to, from *Location) Decision {
	for _, g := range guards {
		if err := ctx.Err(); err != nil {
			return Abort(err)
		}
		d := callGuard(ctx, phase, g, to, from)
		if d.Verdict != VerdictContinue {
			return d
		}
	}
	return Continue()
}

// callGuard runs one guard, turning a panic into an abort.
func callGuard(ctx context.Context, phase guardPhase, g Guard, to, from *Location) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = Abort(fmt.Errorf("%s guard panicked: %v", phase, r))
		}
	}()
	return g(ctx, to, from)
}

// enteredGuards returns the BeforeEnter guards of records in to that are
// not already active in from, outermost first.
func enteredGuards(to, from *Location) []Guard {
	active := make(map[*MatchRecord]bool, len(from.Matched))
	for _, rec := range from.Matched {
		active[rec] = true
	}
	var guards []Guard
	for _, rec := range to.Matched {
		if rec.BeforeEnter != nil && !active[rec] {
			guards = append(guards, rec.BeforeEnter)
		}
	}
	return guards
}

// Chain combines guards into one that runs them in order and stops at the
// first non-Continue decision.
func Chain(guards ...Guard) Guard {
	return func(ctx context.Context, to, from *Location) Decision {
		return runGuards(ctx, phaseBeforeEach, guards, to, from)
	}
}

// Skip runs g unless condition holds for the navigation.
func Skip(condition func(to, from *Location) bool, g Guard) Guard {
	return func(ctx context.Context, to, from *Location) Decision {
		if condition(to, from) {
			return Continue()
		}
		return g(ctx, to, from)
	}
}

// Only runs g when condition holds for the navigation.
func Only(condition func(to, from *Location) bool, g Guard) Guard {
	return func(ctx context.Context, to, from *Location) Decision {
		if !condition(to, from) {
			return Continue()
		}
		return g(ctx, to, from)
	}
}

// RequireMeta builds a condition matching targets whose merged meta has key
// set to a truthy value.
func RequireMeta(key string) func(to, from *Location) bool {
	return func(to, _ *Location) bool {
		v, ok := to.Meta()[key]
		if !ok {
			return false
		}
		b, isBool := v.(bool)
		return !isBool || b
	}
}
