package polyglot

import (
	"fmt"
	"reflect"

	"github.com/funvibe/polyglot/pkg/trait"
)

// Value is a handle to a foreign datum. The object behind it is owned by
// whichever runtime produced it; Value only observes it.
//
// Value is not safe for concurrent use when the underlying object is
// mutated concurrently.
type Value struct {
	ctx *Context
	obj Object
}

// Context returns the context the value belongs to.
func (v *Value) Context() *Context { return v.ctx }

// Object returns the object behind the handle.
func (v *Value) Object() Object { return v.obj }

func (v *Value) String() string { return v.obj.Inspect() }

// MetaName names the type of the underlying datum: the Go type for host
// objects and proxies, the object type otherwise.
func (v *Value) MetaName() string {
	switch o := v.obj.(type) {
	case *HostObject:
		return o.rv.Type().String()
	case *Proxy:
		return fmt.Sprintf("%T", o.Target)
	}
	return string(v.obj.Type())
}

// Same reports whether v and other observe the same object.
func (v *Value) Same(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if sameObject(v.obj, other.obj) {
		return true
	}
	id := v.Identity()
	return id != nil && id == other.Identity()
}

// Identity returns a comparable key that is equal for handles observing the
// same underlying datum, or nil when the datum has no stable identity.
func (v *Value) Identity() any {
	switch o := v.obj.(type) {
	case *Nil, *Boolean, *String, *Integer, *Float:
		return nil
	case *HostObject:
		switch o.rv.Kind() {
		case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
			return hostIdentity{typ: o.rv.Type(), ptr: o.rv.Pointer()}
		case reflect.Slice:
			if o.rv.Len() > 0 {
				return hostIdentity{typ: o.rv.Type(), ptr: o.rv.Pointer()}
			}
		}
		return nil
	case *Proxy:
		return identityOf(o.Target)
	}
	return identityOf(v.obj)
}

// identityOf keys pointer-shaped values by address and other values by
// themselves, provided they can be hashed.
func identityOf(x any) any {
	if x == nil {
		return nil
	}
	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return hostIdentity{typ: rv.Type(), ptr: rv.Pointer()}
	}
	if hashable(rv) {
		return x
	}
	return nil
}

// hashable reports whether == on rv succeeds at run time. A comparable
// static type is not enough once an interface holds a slice or map.
func hashable(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func:
		return false
	case reflect.Interface:
		return rv.IsNil() || hashable(rv.Elem())
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			if !hashable(rv.Field(i)) {
				return false
			}
		}
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !hashable(rv.Index(i)) {
				return false
			}
		}
	}
	return true
}

type hostIdentity struct {
	typ reflect.Type
	ptr uintptr
}

// Traits computes the capability set. The result is a snapshot; callers
// that need a stable view for a sequence of checks should compute it once.
func (v *Value) Traits() trait.Set {
	var s trait.Set
	add := func(ok bool, t trait.Trait) {
		if ok {
			s = s.With(t)
		}
	}
	add(v.IsNull(), trait.Null)
	add(v.IsHostObject(), trait.HostObject)
	add(v.IsProxyObject(), trait.ProxyObject)
	add(v.IsNumber(), trait.Number)
	add(v.IsString(), trait.String)
	add(v.IsBoolean(), trait.Boolean)
	add(v.IsNativePointer(), trait.NativePointer)
	add(v.CanExecute(), trait.Executable)
	add(v.CanInstantiate(), trait.Instantiable)
	add(v.HasMembers(), trait.Members)
	add(v.HasArrayElements(), trait.ArrayElements)
	return s
}

func (v *Value) IsNull() bool {
	_, ok := v.obj.(*Nil)
	return ok
}

func (v *Value) IsBoolean() bool {
	_, ok := v.obj.(*Boolean)
	return ok
}

func (v *Value) IsString() bool {
	_, ok := v.obj.(*String)
	return ok
}

func (v *Value) IsNumber() bool {
	_, ok := numberOf(v.obj)
	return ok
}

func (v *Value) HasMembers() bool {
	a, ok := v.obj.(MemberAccessor)
	return ok && a.HasMembers()
}

func (v *Value) HasArrayElements() bool {
	a, ok := v.obj.(ArrayAccessor)
	return ok && a.HasArrayElements()
}

func (v *Value) CanExecute() bool {
	e, ok := v.obj.(Executor)
	return ok && e.CanExecute()
}

func (v *Value) CanInstantiate() bool {
	i, ok := v.obj.(Instantiator)
	return ok && i.CanInstantiate()
}

func (v *Value) IsHostObject() bool {
	_, ok := v.obj.(hostBacked)
	return ok
}

func (v *Value) IsProxyObject() bool {
	_, ok := v.obj.(*Proxy)
	return ok
}

func (v *Value) IsNativePointer() bool {
	p, ok := v.obj.(Pointer)
	return ok && p.IsPointer()
}

func (v *Value) AsBoolean() (bool, error) {
	if b, ok := v.obj.(*Boolean); ok {
		return b.Value, nil
	}
	return false, castError(v.obj, "bool", "not a boolean")
}

func (v *Value) AsString() (string, error) {
	if s, ok := v.obj.(*String); ok {
		return s.Value, nil
	}
	return "", castError(v.obj, "string", "not a string")
}

// AsHostObject returns the Go value behind a host object.
func (v *Value) AsHostObject() (any, error) {
	if h, ok := v.obj.(hostBacked); ok {
		return h.Host(), nil
	}
	return nil, castError(v.obj, "host object", "not a host object")
}

// AsProxyObject returns the Go value behind a proxy.
func (v *Value) AsProxyObject() (any, error) {
	if p, ok := v.obj.(*Proxy); ok {
		return p.Target, nil
	}
	return nil, castError(v.obj, "proxy object", "not a proxy")
}

func (v *Value) AsNativePointer() (uintptr, error) {
	if p, ok := v.obj.(Pointer); ok && p.IsPointer() {
		return p.AsPointer()
	}
	return 0, castError(v.obj, "native pointer", "not a native pointer")
}

func (v *Value) members(op string) (MemberAccessor, error) {
	a, ok := v.obj.(MemberAccessor)
	if !ok || !a.HasMembers() {
		return nil, unsupported(v.obj, op, "no members")
	}
	return a, nil
}

// HasMember reports whether key is a visible member. It fails when the
// value has no members at all.
func (v *Value) HasMember(key string) (bool, error) {
	a, err := v.members("has member")
	if err != nil {
		return false, err
	}
	return a.HasMember(key), nil
}

func (v *Value) GetMember(key string) (*Value, error) {
	a, err := v.members("get member")
	if err != nil {
		return nil, err
	}
	obj, err := a.ReadMember(key)
	if err != nil {
		return nil, err
	}
	return v.ctx.Wrap(obj), nil
}

func (v *Value) PutMember(key string, x any) error {
	a, err := v.members("put member")
	if err != nil {
		return err
	}
	obj, err := v.ctx.marshaller.ToObject(x)
	if err != nil {
		return err
	}
	return a.WriteMember(key, obj)
}

func (v *Value) GetMemberKeys() ([]string, error) {
	a, err := v.members("get member keys")
	if err != nil {
		return nil, err
	}
	return a.MemberKeys(), nil
}

func (v *Value) elements(op string) (ArrayAccessor, error) {
	a, ok := v.obj.(ArrayAccessor)
	if !ok || !a.HasArrayElements() {
		return nil, unsupported(v.obj, op, "no array elements")
	}
	return a, nil
}

func (v *Value) GetArrayElement(index int64) (*Value, error) {
	a, err := v.elements("get array element")
	if err != nil {
		return nil, err
	}
	obj, err := a.ReadElement(index)
	if err != nil {
		return nil, err
	}
	return v.ctx.Wrap(obj), nil
}

func (v *Value) SetArrayElement(index int64, x any) error {
	a, err := v.elements("set array element")
	if err != nil {
		return err
	}
	obj, err := v.ctx.marshaller.ToObject(x)
	if err != nil {
		return err
	}
	return a.WriteElement(index, obj)
}

func (v *Value) GetArraySize() (int64, error) {
	a, err := v.elements("get array size")
	if err != nil {
		return 0, err
	}
	return a.ArraySize(), nil
}

func (v *Value) toObjects(args []any) ([]Object, error) {
	objs := make([]Object, len(args))
	for i, a := range args {
		obj, err := v.ctx.marshaller.ToObject(a)
		if err != nil {
			return nil, err
		}
		objs[i] = obj
	}
	return objs, nil
}

// Execute calls the value with args.
func (v *Value) Execute(args ...any) (*Value, error) {
	e, ok := v.obj.(Executor)
	if !ok || !e.CanExecute() {
		return nil, unsupported(v.obj, "execute", "not executable")
	}
	objs, err := v.toObjects(args)
	if err != nil {
		return nil, err
	}
	res, err := e.Execute(objs)
	if err != nil {
		return nil, err
	}
	return v.ctx.Wrap(res), nil
}

// NewInstance instantiates the value with args.
func (v *Value) NewInstance(args ...any) (*Value, error) {
	i, ok := v.obj.(Instantiator)
	if !ok || !i.CanInstantiate() {
		return nil, unsupported(v.obj, "instantiate", "not instantiable")
	}
	objs, err := v.toObjects(args)
	if err != nil {
		return nil, err
	}
	res, err := i.Instantiate(objs)
	if err != nil {
		return nil, err
	}
	return v.ctx.Wrap(res), nil
}

// Foreign is the generic representation of a guest value that has no
// natural Go counterpart: lists, records, functions, composites and native
// pointers. It keeps the underlying object, so converting it back with
// Context.AsValue observes the same datum.
type Foreign struct {
	ctx *Context
	obj Object
}

// Value returns a handle on the viewed object.
func (f *Foreign) Value() *Value { return &Value{ctx: f.ctx, obj: f.obj} }

// Same reports whether f and other view the same object.
func (f *Foreign) Same(other *Foreign) bool {
	if f == nil || other == nil {
		return f == other
	}
	return sameObject(f.obj, other.obj)
}

func (f *Foreign) String() string { return f.obj.Inspect() }

// Entries returns the object keyed map projection: array positions as
// int64 keys followed by member names.
func (f *Foreign) Entries() (map[any]any, error) {
	m, err := f.Value().As(MapOf(KeyObject))
	if err != nil {
		return nil, err
	}
	out, _ := m.(map[any]any)
	return out, nil
}

// Apply calls the viewed object with one argument; a []any argument is
// spread into several.
func (f *Foreign) Apply(arg any) (any, error) {
	return f.Value().invoke(spread(arg))
}

// Call calls the viewed object with args.
func (f *Foreign) Call(args ...any) (any, error) {
	return f.Value().invoke(args)
}

func sameObject(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	ia := identityOf(a)
	return ia != nil && ia == identityOf(b)
}

// generic returns the generic representation of obj: Go primitives for
// guest primitives, the Go value for host objects and proxies, and a
// *Foreign for everything else.
func (c *Context) generic(obj Object) any {
	switch o := obj.(type) {
	case *Nil:
		return nil
	case *Boolean:
		return o.Value
	case *String:
		return o.Value
	case *Integer:
		return o.Value
	case *Float:
		return o.Value
	case *Proxy:
		return o.Target
	case hostBacked:
		return o.Host()
	}
	return &Foreign{ctx: c, obj: obj}
}
