// Package hostaccess decides which host members (fields, methods,
// constructors) guest code may reach.
//
// A Policy is immutable once built. Decisions are evaluated in a fixed
// order: type exclusions first, then the global allow-public flag, then the
// explicit member allow-list, then marker tags. Anything left is denied.
package hostaccess

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// Predefined policies. They are built with the public Builder at package
// initialization and shared for the lifetime of the process.
var (
	// Explicit allows members carrying the Export tag.
	Explicit = mustBuild(NewBuilder().Name("hostaccess.Explicit"), func(b *Builder) error {
		return b.AllowAccessTagged(Export)
	})

	// All allows every exported member and both array and list access.
	All = NewBuilder().
		AllowPublicAccess(true).
		AllowArrayAccess(true).
		AllowListAccess(true).
		Name("hostaccess.All").
		Build()

	// None denies every member.
	None = NewBuilder().Name("hostaccess.None").Build()
)

type exclusion struct {
	typ             Type
	includeSubtypes bool
}

// Policy is an immutable host access decision set.
type Policy struct {
	name             string
	tags             []Tag
	excludes         []exclusion
	members          map[memberKey]struct{}
	allowPublic      bool
	allowArrayAccess bool
	allowListAccess  bool

	// index is derived from the fields above on first use. Concurrent first
	// use may compute it more than once; every result is equivalent.
	index atomic.Pointer[memberIndex]
}

// Allows reports whether guest code may reach m.
func (p *Policy) Allows(m Member) bool {
	if p.excluded(m.Owner) {
		return false
	}
	if p.allowPublic {
		return true
	}
	if _, ok := p.members[m.key()]; ok {
		return true
	}
	for _, tag := range p.tags {
		if m.HasTag(tag) {
			return true
		}
	}
	return false
}

func (p *Policy) excluded(owner Type) bool {
	if owner == nil {
		return false
	}
	for _, ex := range p.excludes {
		if ex.includeSubtypes {
			if owner.SubtypeOf(ex.typ) {
				return true
			}
		} else if owner.ID() == ex.typ.ID() {
			return true
		}
	}
	return false
}

// Excludes reports whether members declared by t are denied regardless of
// any allow rule.
func (p *Policy) Excludes(t Type) bool {
	return p.excluded(t)
}

// AllowsArrayAccess reports whether host Go arrays expose array elements.
func (p *Policy) AllowsArrayAccess() bool { return p.allowArrayAccess }

// AllowsListAccess reports whether host Go slices expose array elements.
func (p *Policy) AllowsListAccess() bool { return p.allowListAccess }

// AllowsPublicAccess reports whether the global allow-public flag is set.
func (p *Policy) AllowsPublicAccess() bool { return p.allowPublic }

// Tags returns the marker tags the policy accepts.
func (p *Policy) Tags() []Tag {
	return append([]Tag(nil), p.tags...)
}

// Name returns the display name, which may be empty.
func (p *Policy) Name() string { return p.name }

func (p *Policy) String() string {
	if p.name == "" {
		return "hostaccess.Policy"
	}
	return p.name
}

// Members returns the members of t that the policy allows, in the order
// of MembersOf. Results are memoized per type.
func (p *Policy) Members(t reflect.Type) []Member {
	return p.resolve().visible(t)
}

// Lookup returns the allowed member of t with the given name. A member
// that exists but is denied is reported exactly like a missing one.
func (p *Policy) Lookup(t reflect.Type, name string) (Member, bool) {
	for _, m := range p.Members(t) {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// AllowsConstructor reports whether the constructor of t is reachable.
func (p *Policy) AllowsConstructor(t reflect.Type) bool {
	return p.resolve().constructor(t)
}

func (p *Policy) resolve() *memberIndex {
	if idx := p.index.Load(); idx != nil {
		return idx
	}
	p.index.CompareAndSwap(nil, newMemberIndex(p))
	return p.index.Load()
}

// memberIndex memoizes policy decisions per host type.
type memberIndex struct {
	policy       *Policy
	visibleByTyp sync.Map // reflect.Type -> []Member
	ctorByTyp    sync.Map // reflect.Type -> bool
}

func newMemberIndex(p *Policy) *memberIndex {
	return &memberIndex{policy: p}
}

func (idx *memberIndex) visible(t reflect.Type) []Member {
	if cached, ok := idx.visibleByTyp.Load(t); ok {
		return cached.([]Member)
	}
	all := MembersOf(t)
	allowed := make([]Member, 0, len(all))
	for _, m := range all {
		if idx.policy.Allows(m) {
			allowed = append(allowed, m)
		}
	}
	actual, _ := idx.visibleByTyp.LoadOrStore(t, allowed)
	return actual.([]Member)
}

func (idx *memberIndex) constructor(t reflect.Type) bool {
	if cached, ok := idx.ctorByTyp.Load(t); ok {
		return cached.(bool)
	}
	ok := idx.policy.Allows(ConstructorOf(t))
	idx.ctorByTyp.Store(t, ok)
	return ok
}

func mustBuild(b *Builder, configure func(*Builder) error) *Policy {
	if err := configure(b); err != nil {
		panic(err)
	}
	return b.Build()
}
