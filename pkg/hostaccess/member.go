package hostaccess

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// Tag is a declarative marker attached to a member by the host binding
// layer. Policies match tags by equality.
type Tag string

// Export is the default marker tag used by the Explicit policy.
const Export Tag = "export"

// StructTagKey is the struct tag key carrying marker tags for fields, e.g.
// `polyglot:"export"`. Several tags are separated by commas.
const StructTagKey = "polyglot"

// ConstructorName is the member name used for constructors.
const ConstructorName = "new"

// Exporter is implemented by host types that attach marker tags to their
// methods and constructor. Keys are method names or ConstructorName.
// The method is called on a zero *T, so it must not depend on state.
type Exporter interface {
	PolyglotTags() map[string][]Tag
}

// MemberKind distinguishes fields, methods and constructors.
type MemberKind uint8

const (
	Field MemberKind = iota
	Method
	Constructor
)

func (k MemberKind) String() string {
	switch k {
	case Field:
		return "field"
	case Method:
		return "method"
	case Constructor:
		return "constructor"
	default:
		return fmt.Sprintf("MemberKind(%d)", uint8(k))
	}
}

// ParseMemberKind is the inverse of MemberKind.String.
func ParseMemberKind(s string) (MemberKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "field":
		return Field, nil
	case "method":
		return Method, nil
	case "constructor":
		return Constructor, nil
	}
	return 0, fmt.Errorf("unknown member kind %q", s)
}

// Member describes one host member a guest may try to reach.
type Member struct {
	Kind  MemberKind
	Owner Type
	Name  string
	Tags  []Tag

	// Index is the reflect field index path for fields discovered through
	// reflection. It is nil for members built by hand.
	Index []int
}

type memberKey struct {
	owner string
	kind  MemberKind
	name  string
}

func (m Member) key() memberKey {
	owner := ""
	if m.Owner != nil {
		owner = m.Owner.ID()
	}
	return memberKey{owner: owner, kind: m.Kind, name: m.Name}
}

// HasTag reports whether m carries tag.
func (m Member) HasTag(tag Tag) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (m Member) String() string {
	owner := "?"
	if m.Owner != nil {
		owner = m.Owner.ID()
	}
	if m.Kind == Constructor {
		return fmt.Sprintf("%s %s", m.Kind, owner)
	}
	return fmt.Sprintf("%s %s.%s", m.Kind, owner, m.Name)
}

// FieldOf describes the exported field name of struct type t.
func FieldOf(t reflect.Type, name string) (Member, error) {
	base := indirect(t)
	if base.Kind() != reflect.Struct {
		return Member{}, invalidArgument("FieldOf", "%s is not a struct type", base)
	}
	for _, f := range reflect.VisibleFields(base) {
		if f.Name == name && exportedPath(base, f.Index) {
			return fieldMember(base, f), nil
		}
	}
	return Member{}, invalidArgument("FieldOf", "%s has no exported field %q", base, name)
}

// MethodOf describes the exported method name of t (or *t).
func MethodOf(t reflect.Type, name string) (Member, error) {
	base := indirect(t)
	if _, ok := methodSet(base).MethodByName(name); !ok {
		return Member{}, invalidArgument("MethodOf", "%s has no exported method %q", base, name)
	}
	return methodMember(base, name), nil
}

// ConstructorOf describes the constructor of t.
func ConstructorOf(t reflect.Type) Member {
	base := indirect(t)
	return Member{Kind: Constructor, Owner: TypeOf(base), Name: ConstructorName, Tags: exportedTags(base)[ConstructorName]}
}

// MembersOf enumerates the exported fields and methods of t, fields first
// in declaration order followed by methods in name order.
func MembersOf(t reflect.Type) []Member {
	base := indirect(t)
	var out []Member
	if base.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(base) {
			if !exportedPath(base, f.Index) {
				continue
			}
			out = append(out, fieldMember(base, f))
		}
	}
	ms := methodSet(base)
	for i := 0; i < ms.NumMethod(); i++ {
		m := ms.Method(i)
		if m.Name == "PolyglotTags" {
			continue
		}
		out = append(out, methodMember(base, m.Name))
	}
	return out
}

// ParseTags splits a struct tag value into marker tags.
func ParseTags(value string) []Tag {
	var tags []Tag
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, Tag(part))
		}
	}
	return tags
}

func fieldMember(base reflect.Type, f reflect.StructField) Member {
	owner := base
	for _, i := range f.Index[:len(f.Index)-1] {
		owner = indirect(owner.Field(i).Type)
	}
	return Member{
		Kind:  Field,
		Owner: TypeOf(owner),
		Name:  f.Name,
		Tags:  ParseTags(f.Tag.Get(StructTagKey)),
		Index: f.Index,
	}
}

func methodMember(base reflect.Type, name string) Member {
	owner := methodOwner(base, name)
	return Member{Kind: Method, Owner: TypeOf(owner), Name: name, Tags: exportedTags(owner)[name]}
}

// methodOwner returns the type declaring method name of base. A promoted
// method belongs to the shallowest embedded type that declares it.
func methodOwner(base reflect.Type, name string) reflect.Type {
	if base.Kind() != reflect.Struct || declares(base, name) {
		return base
	}
	owner, depth := base, 0
	for _, f := range reflect.VisibleFields(base) {
		if !f.Anonymous || (depth > 0 && len(f.Index) >= depth) {
			continue
		}
		if t := indirect(f.Type); declares(t, name) {
			owner, depth = t, len(f.Index)
		}
	}
	return owner
}

// declares reports whether t itself declares method name rather than
// promoting it from an embedded field.
func declares(t reflect.Type, name string) bool {
	if t.Kind() == reflect.Interface {
		_, ok := t.MethodByName(name)
		return ok
	}
	for _, mt := range []reflect.Type{t, reflect.PointerTo(t)} {
		if m, ok := mt.MethodByName(name); ok {
			return declaredBy(t, m)
		}
	}
	return false
}

// declaredBy inspects the code behind m. Promotion goes through a
// compiler generated wrapper, or through the embedded method's body when
// the wrapper inlines it. Either way the symbol does not belong to t.
func declaredBy(t reflect.Type, m reflect.Method) bool {
	fn := runtime.FuncForPC(m.Func.Pointer())
	if fn == nil {
		return true
	}
	if file, _ := fn.FileLine(fn.Entry()); file == "<autogenerated>" {
		return false
	}
	recv, ok := strings.CutPrefix(strings.TrimSuffix(fn.Name(), "."+m.Name), t.PkgPath()+".")
	if !ok {
		return false
	}
	recv = strings.TrimSuffix(strings.TrimPrefix(recv, "(*"), ")")
	return stripTypeArgs(recv) == stripTypeArgs(t.Name())
}

func stripTypeArgs(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

// exportedPath reports whether every field along index is exported, so
// that the promoted field can be read through reflection.
func exportedPath(base reflect.Type, index []int) bool {
	t := base
	for _, i := range index {
		t = indirect(t)
		f := t.Field(i)
		if !f.IsExported() {
			return false
		}
		t = f.Type
	}
	return true
}

func exportedTags(base reflect.Type) map[string][]Tag {
	if base.Kind() == reflect.Interface {
		return nil
	}
	if e, ok := reflect.New(base).Interface().(Exporter); ok {
		return e.PolyglotTags()
	}
	return nil
}

func methodSet(base reflect.Type) reflect.Type {
	if base.Kind() == reflect.Interface {
		return base
	}
	return reflect.PointerTo(base)
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
