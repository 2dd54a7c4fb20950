package polyglot

import (
	"fmt"
	"reflect"

	"github.com/funvibe/polyglot/pkg/hostaccess"
)

// HostObject wraps a Go value for use by guest code.
// Fields and methods are reached through reflection and are only visible
// when the context policy allows them. Go arrays and slices expose array
// elements when the policy enables array or list access respectively; Go
// functions are executable.
type HostObject struct {
	rv reflect.Value
	m  *Marshaller
}

func (h *HostObject) Type() ObjectType { return HOST_OBJ }

func (h *HostObject) Inspect() string {
	return fmt.Sprintf("<HostObject: %s %+v>", h.rv.Type(), h.Host())
}

// Host returns the wrapped Go value. Structs and arrays wrapped by value
// return the current state of their copy.
func (h *HostObject) Host() any { return h.rv.Interface() }

func (h *HostObject) policy() *hostaccess.Policy { return h.m.ctx.policy }

// receiver is the value methods are looked up on. Addressable copies use
// their address so pointer receiver methods are reachable.
func (h *HostObject) receiver() reflect.Value {
	if h.rv.Kind() != reflect.Pointer && h.rv.CanAddr() {
		return h.rv.Addr()
	}
	return h.rv
}

func (h *HostObject) lookup(op, key string) (hostaccess.Member, error) {
	m, ok := h.policy().Lookup(h.rv.Type(), key)
	if !ok {
		h.m.ctx.logger.Debug().
			Str("type", h.rv.Type().String()).
			Str("member", key).
			Str("op", op).
			Msg("host member not visible")
		return m, unsupported(h, op, "no member %q", key)
	}
	return m, nil
}

func (h *HostObject) field(m hostaccess.Member, op string) (reflect.Value, error) {
	f, err := reflect.Indirect(h.rv).FieldByIndexErr(m.Index)
	if err != nil {
		return reflect.Value{}, unsupported(h, op, "field %s: %v", m.Name, err)
	}
	if !f.CanInterface() {
		return reflect.Value{}, unsupported(h, op, "field %s is not accessible", m.Name)
	}
	return f, nil
}

func (h *HostObject) HasMembers() bool { return true }

func (h *HostObject) MemberKeys() []string {
	members := h.policy().Members(h.rv.Type())
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = m.Name
	}
	return keys
}

func (h *HostObject) HasMember(key string) bool {
	_, ok := h.policy().Lookup(h.rv.Type(), key)
	return ok
}

func (h *HostObject) ReadMember(key string) (Object, error) {
	m, err := h.lookup("read member", key)
	if err != nil {
		return nil, err
	}
	switch m.Kind {
	case hostaccess.Field:
		f, err := h.field(m, "read member")
		if err != nil {
			return nil, err
		}
		return h.m.ToObject(f.Interface())
	case hostaccess.Method:
		fn := h.receiver().MethodByName(key)
		if !fn.IsValid() {
			return nil, unsupported(h, "read member", "method %s needs an addressable receiver", key)
		}
		return h.m.ToObject(fn.Interface())
	}
	return nil, unsupported(h, "read member", "no member %q", key)
}

func (h *HostObject) WriteMember(key string, val Object) error {
	m, err := h.lookup("write member", key)
	if err != nil {
		return err
	}
	if m.Kind != hostaccess.Field {
		return unsupported(h, "write member", "%s %s is not writable", m.Kind, key)
	}
	f, err := h.field(m, "write member")
	if err != nil {
		return err
	}
	if !f.CanSet() {
		return unsupported(h, "write member", "field %s is not settable", key)
	}
	rv, err := h.m.convert(val, f.Type())
	if err != nil {
		return err
	}
	f.Set(rv)
	return nil
}

func (h *HostObject) HasArrayElements() bool {
	switch h.rv.Kind() {
	case reflect.Array:
		return h.policy().AllowsArrayAccess()
	case reflect.Slice:
		return h.policy().AllowsListAccess()
	}
	return false
}

func (h *HostObject) ArraySize() int64 {
	if !h.HasArrayElements() {
		return 0
	}
	return int64(h.rv.Len())
}

func (h *HostObject) ReadElement(index int64) (Object, error) {
	if !h.HasArrayElements() {
		return nil, unsupported(h, "read element", "no array elements")
	}
	if err := checkIndex(index, int64(h.rv.Len())); err != nil {
		return nil, err
	}
	return h.m.ToObject(h.rv.Index(int(index)).Interface())
}

func (h *HostObject) WriteElement(index int64, val Object) error {
	if !h.HasArrayElements() {
		return unsupported(h, "write element", "no array elements")
	}
	if err := checkIndex(index, int64(h.rv.Len())); err != nil {
		return err
	}
	el := h.rv.Index(int(index))
	if !el.CanSet() {
		return unsupported(h, "write element", "element %d is not settable", index)
	}
	rv, err := h.m.convert(val, el.Type())
	if err != nil {
		return err
	}
	el.Set(rv)
	return nil
}

func (h *HostObject) CanExecute() bool { return h.rv.Kind() == reflect.Func }

func (h *HostObject) Execute(args []Object) (Object, error) {
	if !h.CanExecute() {
		return nil, unsupported(h, "execute", "not a function")
	}
	return h.m.call(h.rv, args)
}

// HostType exposes a Go type as an instantiable host object.
type HostType struct {
	T    reflect.Type
	ctor reflect.Value
	m    *Marshaller
}

func (h *HostType) Type() ObjectType { return HOST_TYPE_OBJ }
func (h *HostType) Inspect() string  { return fmt.Sprintf("<HostType: %s>", h.T) }

// Host returns the reflect.Type.
func (h *HostType) Host() any { return h.T }

func (h *HostType) CanInstantiate() bool {
	return h.m.ctx.policy.AllowsConstructor(h.T)
}

func (h *HostType) Instantiate(args []Object) (Object, error) {
	if !h.CanInstantiate() {
		h.m.ctx.logger.Debug().Str("type", h.T.String()).Msg("host constructor not visible")
		return nil, unsupported(h, "instantiate", "not instantiable")
	}
	if h.ctor.IsValid() {
		return h.m.call(h.ctor, args)
	}
	if len(args) != 0 {
		return nil, fmt.Errorf("expected 0 arguments, got %d", len(args))
	}
	return h.m.ToObject(reflect.New(h.T).Interface())
}
