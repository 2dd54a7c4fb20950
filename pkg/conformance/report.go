package conformance

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/funvibe/polyglot/pkg/trait"
)

// General is the Failure.Trait of checks that apply to every value.
const General = "GENERAL"

// Failure is one violated assertion.
type Failure struct {
	// Path locates the checked value relative to the root: "$" for the root,
	// "$[2]" for an element, "$.name" for a member, "$()" for a call result.
	Path    string
	Trait   string
	Check   string
	Message string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s [%s] %s: %s", f.Path, f.Trait, f.Check, f.Message)
}

// Report is the outcome of one conformance check.
type Report struct {
	ID       uuid.UUID
	Subject  string
	Declared trait.Set
	Detected trait.Set
	Checks   int
	Failures []Failure
	Started  time.Time
	Duration time.Duration
}

// OK reports whether no assertion failed.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

// Err joins all failures, or returns nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

func (r *Report) String() string {
	var sb strings.Builder
	status := "ok"
	if !r.OK() {
		status = fmt.Sprintf("%d failure(s)", len(r.Failures))
	}
	fmt.Fprintf(&sb, "%s %s: %d checks, %s", r.Subject, r.Declared, r.Checks, status)
	for _, f := range r.Failures {
		sb.WriteString("\n  ")
		sb.WriteString(f.Error())
	}
	return sb.String()
}
