package hostaccess

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// Type identifies the declaring type of a host member.
//
// ID is the fully qualified name ("import/path.Name"). SubtypeOf reports
// whether the type is ban itself, embeds ban (directly or transitively), or
// implements ban when ban is an interface.
type Type interface {
	ID() string
	SubtypeOf(ban Type) bool
}

// TypeOf returns the Type for t. Unnamed pointer types are reduced to their
// element type so that members declared on *T and T share an owner.
func TypeOf(t reflect.Type) Type {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	return reflectType{t: t}
}

// TypeFor returns the Type of T.
func TypeFor[T any]() Type {
	return TypeOf(reflect.TypeFor[T]())
}

// Nominal returns a Type that knows only its ID. Subtype checks against a
// nominal type match on ID along the embedding chain; interface
// implementation cannot be decided for it.
func Nominal(id string) Type {
	return nominalType(id)
}

// ReflectType returns the reflect.Type behind t, if any.
func ReflectType(t Type) (reflect.Type, bool) {
	rt, ok := t.(reflectType)
	if !ok {
		return nil, false
	}
	return rt.t, true
}

type nominalType string

func (n nominalType) ID() string { return string(n) }

func (n nominalType) SubtypeOf(ban Type) bool {
	return ban != nil && ban.ID() == string(n)
}

func (n nominalType) String() string { return string(n) }

type reflectType struct {
	t reflect.Type
}

func (r reflectType) ID() string {
	return typeID(r.t)
}

func (r reflectType) String() string {
	return r.ID()
}

func (r reflectType) SubtypeOf(ban Type) bool {
	if ban == nil {
		return false
	}
	b, structural := ban.(reflectType)
	return embeds(r.t, ban.ID(), b.t, structural, make(map[reflect.Type]bool))
}

func embeds(t reflect.Type, banID string, ban reflect.Type, structural bool, seen map[reflect.Type]bool) bool {
	for t.Kind() == reflect.Pointer && t.Name() == "" {
		t = t.Elem()
	}
	if seen[t] {
		return false
	}
	seen[t] = true

	if typeID(t) == banID {
		return true
	}
	if structural {
		if t == ban {
			return true
		}
		if ban.Kind() == reflect.Interface {
			if t.Implements(ban) || (t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(ban)) {
				return true
			}
		}
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.Anonymous {
			continue
		}
		if embeds(f.Type, banID, ban, structural, seen) {
			return true
		}
	}
	return false
}

func typeID(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// Resolver maps type IDs found in policy files to Types.
type Resolver interface {
	Resolve(id string) (Type, error)
}

// Registry is a Resolver over explicitly registered host types.
//
// Thread-safe: registration usually happens at startup, resolution may
// happen from any goroutine.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]Type)}
}

// Register adds the dynamic types of the given sample values. To register
// an interface type pass a nil pointer to it, e.g. (*io.Reader)(nil).
func (r *Registry) Register(samples ...any) {
	for _, s := range samples {
		t := reflect.TypeOf(s)
		if t == nil {
			continue
		}
		if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Interface {
			t = t.Elem()
		}
		r.RegisterType(t)
	}
}

// RegisterType adds t.
func (r *Registry) RegisterType(t reflect.Type) {
	typ := TypeOf(t)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typ.ID()] = typ
}

// Resolve returns the registered type with the given ID.
func (r *Registry) Resolve(id string) (Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.types[id]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("type %q is not registered", id)
}

// IDs returns the registered type IDs in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
