package conformance

import (
	"testing"

	"github.com/funvibe/polyglot/pkg/polyglot"
	"github.com/funvibe/polyglot/pkg/trait"
)

// AssertValue checks val and reports every failure through t. With no
// traits the detected ones are used.
func AssertValue(t testing.TB, val *polyglot.Value, args []any, traits ...trait.Trait) *Report {
	t.Helper()
	r := New().Check(val, args, traits...)
	for _, f := range r.Failures {
		t.Errorf("%s: %s", r.Subject, f)
	}
	return r
}

// AssertSample checks s against its expected traits. It also fails when the
// detected traits differ from the expected ones.
func AssertSample(t testing.TB, s Sample) *Report {
	t.Helper()
	if got := Detect(s.Value); !got.Equal(s.Traits) {
		t.Errorf("%s: detected traits %s, want %s", s.Name, got, s.Traits)
	}
	r := New().CheckSet(s.Value, s.Args, s.Traits)
	for _, f := range r.Failures {
		t.Errorf("%s: %s", s.Name, f)
	}
	return r
}
