package hostaccess

import "strings"

// Builder accumulates rules for a Policy. Rules are additive; nothing can
// be removed once added.
//
// Flag setters (AllowPublicAccess, AllowArrayAccess, AllowListAccess,
// Name) cannot fail and return the builder for chaining. Rule adders
// (AllowAccessTagged, AllowAccess, DenyAccess, DenyAccessOf) validate their
// input immediately and return an error instead, so a bad rule is reported
// where it is added rather than at Build.
type Builder struct {
	name             string
	tags             []Tag
	excludes         []exclusion
	members          map[memberKey]struct{}
	allowPublic      bool
	allowArrayAccess bool
	allowListAccess  bool
}

// NewBuilder returns an empty builder. Building it unchanged yields a
// policy equivalent to None.
func NewBuilder() *Builder {
	return &Builder{members: make(map[memberKey]struct{})}
}

// AllowAccessTagged allows members that carry tag.
func (b *Builder) AllowAccessTagged(tag Tag) error {
	if strings.TrimSpace(string(tag)) == "" {
		return invalidArgument("AllowAccessTagged", "tag must not be empty")
	}
	for _, t := range b.tags {
		if t == tag {
			return nil
		}
	}
	b.tags = append(b.tags, tag)
	return nil
}

// AllowPublicAccess allows every exported member of every type that is not
// excluded.
func (b *Builder) AllowPublicAccess(allow bool) *Builder {
	b.allowPublic = allow
	return b
}

// AllowAccess allows one specific member.
func (b *Builder) AllowAccess(m Member) error {
	if m.Owner == nil {
		return invalidArgument("AllowAccess", "member %q has no declaring type", m.Name)
	}
	if m.Kind > Constructor {
		return invalidArgument("AllowAccess", "invalid member kind %d", m.Kind)
	}
	if m.Kind != Constructor && m.Name == "" {
		return invalidArgument("AllowAccess", "%s name must not be empty", m.Kind)
	}
	if m.Kind == Constructor {
		m.Name = ConstructorName
	}
	b.members[m.key()] = struct{}{}
	return nil
}

// DenyAccess denies every member declared by t or by any subtype of t.
func (b *Builder) DenyAccess(t Type) error {
	return b.DenyAccessOf(t, true)
}

// DenyAccessOf denies every member declared by t, and by its subtypes when
// includeSubtypes is set. Denying the same type again replaces the flag.
func (b *Builder) DenyAccessOf(t Type, includeSubtypes bool) error {
	if t == nil || t.ID() == "" {
		return invalidArgument("DenyAccess", "type must not be nil")
	}
	for i := range b.excludes {
		if b.excludes[i].typ.ID() == t.ID() {
			b.excludes[i] = exclusion{typ: t, includeSubtypes: includeSubtypes}
			return nil
		}
	}
	b.excludes = append(b.excludes, exclusion{typ: t, includeSubtypes: includeSubtypes})
	return nil
}

// AllowArrayAccess lets host Go arrays expose array elements.
func (b *Builder) AllowArrayAccess(allow bool) *Builder {
	b.allowArrayAccess = allow
	return b
}

// AllowListAccess lets host Go slices expose array elements.
func (b *Builder) AllowListAccess(allow bool) *Builder {
	b.allowListAccess = allow
	return b
}

// Name sets the display name.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Build freezes the accumulated rules into a Policy. The builder can be
// used further; later changes do not affect policies already built.
func (b *Builder) Build() *Policy {
	members := make(map[memberKey]struct{}, len(b.members))
	for k := range b.members {
		members[k] = struct{}{}
	}
	return &Policy{
		name:             b.name,
		tags:             append([]Tag(nil), b.tags...),
		excludes:         append([]exclusion(nil), b.excludes...),
		members:          members,
		allowPublic:      b.allowPublic,
		allowArrayAccess: b.allowArrayAccess,
		allowListAccess:  b.allowListAccess,
	}
}
