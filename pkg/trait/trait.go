// Package trait defines the closed vocabulary of capabilities a foreign
// value may expose, and Set, an immutable snapshot of those capabilities.
package trait

import (
	"fmt"
	"strings"
)

// Trait is one independently testable facet of a foreign value.
type Trait uint8

const (
	Null Trait = iota
	HostObject
	ProxyObject
	Number
	String
	Boolean
	NativePointer
	Executable
	Instantiable
	Members
	ArrayElements

	count
)

var names = [count]string{
	Null:          "NULL",
	HostObject:    "HOST_OBJECT",
	ProxyObject:   "PROXY_OBJECT",
	Number:        "NUMBER",
	String:        "STRING",
	Boolean:       "BOOLEAN",
	NativePointer: "NATIVE",
	Executable:    "EXECUTABLE",
	Instantiable:  "INSTANTIABLE",
	Members:       "MEMBERS",
	ArrayElements: "ARRAY_ELEMENTS",
}

func (t Trait) String() string {
	if t < count {
		return names[t]
	}
	return fmt.Sprintf("Trait(%d)", uint8(t))
}

// Valid reports whether t is one of the declared traits.
func (t Trait) Valid() bool {
	return t < count
}

// All returns every trait in declaration order.
func All() []Trait {
	out := make([]Trait, 0, count)
	for t := Trait(0); t < count; t++ {
		out = append(out, t)
	}
	return out
}

// Parse looks a trait up by name. Matching ignores case, and "-" and "_"
// are interchangeable.
func Parse(name string) (Trait, error) {
	n := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
	for t := Trait(0); t < count; t++ {
		if names[t] == n {
			return t, nil
		}
	}
	if n == "NATIVE_POINTER" {
		return NativePointer, nil
	}
	return 0, fmt.Errorf("unknown trait %q", name)
}

// Set is a capability set. The zero value is the empty set.
type Set uint16

// NewSet returns the set containing ts.
func NewSet(ts ...Trait) Set {
	var s Set
	for _, t := range ts {
		s = s.With(t)
	}
	return s
}

// Universe is the set of all traits.
func Universe() Set {
	return Set(1<<count - 1)
}

func (s Set) Has(t Trait) bool     { return t < count && s&(1<<t) != 0 }
func (s Set) With(t Trait) Set     { return s | 1<<t }
func (s Set) Without(t Trait) Set  { return s &^ (1 << t) }
func (s Set) Union(o Set) Set      { return s | o }
func (s Set) Diff(o Set) Set       { return s &^ o }
func (s Set) Empty() bool          { return s == 0 }
func (s Set) Complement() Set      { return Universe() &^ s }
func (s Set) Equal(o Set) bool     { return s == o }
func (s Set) HasAny(ts ...Trait) bool {
	for _, t := range ts {
		if s.Has(t) {
			return true
		}
	}
	return false
}

// Len returns the number of traits in s.
func (s Set) Len() int {
	n := 0
	for t := Trait(0); t < count; t++ {
		if s.Has(t) {
			n++
		}
	}
	return n
}

// Slice returns the members of s in declaration order.
func (s Set) Slice() []Trait {
	out := make([]Trait, 0, s.Len())
	for t := Trait(0); t < count; t++ {
		if s.Has(t) {
			out = append(out, t)
		}
	}
	return out
}

func (s Set) String() string {
	parts := make([]string, 0, s.Len())
	for _, t := range s.Slice() {
		parts = append(parts, t.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// ParseSet parses a comma separated list of trait names.
func ParseSet(list string) (Set, error) {
	var s Set
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		t, err := Parse(part)
		if err != nil {
			return 0, err
		}
		s = s.With(t)
	}
	return s, nil
}
