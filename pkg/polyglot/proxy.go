package polyglot

import (
	"fmt"
	"strings"
)

// ProxyObject lets a Go value expose named members to guest code.
type ProxyObject interface {
	GetMember(key string) any
	GetMemberKeys() []string
	HasMember(key string) bool
	PutMember(key string, value *Value) error
}

// ProxyArray lets a Go value expose array elements to guest code. Indices
// are checked against Size before Get and Set are called.
type ProxyArray interface {
	Get(index int64) (any, error)
	Set(index int64, value *Value) error
	Size() int64
}

// ProxyExecutable lets a Go value be executed by guest code.
type ProxyExecutable interface {
	Execute(args ...*Value) (any, error)
}

// ProxyInstantiable lets a Go value be instantiated by guest code.
type ProxyInstantiable interface {
	NewInstance(args ...*Value) (any, error)
}

// ProxyNativeObject lets a Go value pose as a native pointer.
type ProxyNativeObject interface {
	AsPointer() uintptr
}

// IsProxy reports whether x implements at least one proxy interface.
func IsProxy(x any) bool {
	switch x.(type) {
	case ProxyObject, ProxyArray, ProxyExecutable, ProxyInstantiable, ProxyNativeObject:
		return true
	}
	return false
}

// Proxy is the object form of a Go value implementing proxy interfaces.
// Capabilities follow the interfaces the target implements.
type Proxy struct {
	Target any
	ctx    *Context
}

func (p *Proxy) Type() ObjectType { return PROXY_OBJ }

func (p *Proxy) Inspect() string {
	var kinds []string
	if _, ok := p.Target.(ProxyObject); ok {
		kinds = append(kinds, "object")
	}
	if _, ok := p.Target.(ProxyArray); ok {
		kinds = append(kinds, "array")
	}
	if _, ok := p.Target.(ProxyExecutable); ok {
		kinds = append(kinds, "executable")
	}
	if _, ok := p.Target.(ProxyInstantiable); ok {
		kinds = append(kinds, "instantiable")
	}
	if _, ok := p.Target.(ProxyNativeObject); ok {
		kinds = append(kinds, "native")
	}
	return fmt.Sprintf("<Proxy %T (%s)>", p.Target, strings.Join(kinds, ", "))
}

func (p *Proxy) wrapAll(args []Object) []*Value {
	out := make([]*Value, len(args))
	for i, a := range args {
		out[i] = p.ctx.Wrap(a)
	}
	return out
}

func (p *Proxy) HasMembers() bool {
	_, ok := p.Target.(ProxyObject)
	return ok
}

func (p *Proxy) MemberKeys() []string {
	if po, ok := p.Target.(ProxyObject); ok {
		return po.GetMemberKeys()
	}
	return nil
}

func (p *Proxy) HasMember(key string) bool {
	po, ok := p.Target.(ProxyObject)
	return ok && po.HasMember(key)
}

func (p *Proxy) ReadMember(key string) (Object, error) {
	po, ok := p.Target.(ProxyObject)
	if !ok {
		return nil, unsupported(p, "read member", "no members")
	}
	if !po.HasMember(key) {
		return nil, unsupported(p, "read member", "no member %q", key)
	}
	return p.ctx.marshaller.ToObject(po.GetMember(key))
}

func (p *Proxy) WriteMember(key string, val Object) error {
	po, ok := p.Target.(ProxyObject)
	if !ok {
		return unsupported(p, "write member", "no members")
	}
	return po.PutMember(key, p.ctx.Wrap(val))
}

func (p *Proxy) HasArrayElements() bool {
	_, ok := p.Target.(ProxyArray)
	return ok
}

func (p *Proxy) ArraySize() int64 {
	if pa, ok := p.Target.(ProxyArray); ok {
		return pa.Size()
	}
	return 0
}

func (p *Proxy) ReadElement(index int64) (Object, error) {
	pa, ok := p.Target.(ProxyArray)
	if !ok {
		return nil, unsupported(p, "read element", "no array elements")
	}
	if err := checkIndex(index, pa.Size()); err != nil {
		return nil, err
	}
	x, err := pa.Get(index)
	if err != nil {
		return nil, err
	}
	return p.ctx.marshaller.ToObject(x)
}

func (p *Proxy) WriteElement(index int64, val Object) error {
	pa, ok := p.Target.(ProxyArray)
	if !ok {
		return unsupported(p, "write element", "no array elements")
	}
	if err := checkIndex(index, pa.Size()); err != nil {
		return err
	}
	return pa.Set(index, p.ctx.Wrap(val))
}

func (p *Proxy) CanExecute() bool {
	_, ok := p.Target.(ProxyExecutable)
	return ok
}

func (p *Proxy) Execute(args []Object) (Object, error) {
	pe, ok := p.Target.(ProxyExecutable)
	if !ok {
		return nil, unsupported(p, "execute", "not executable")
	}
	res, err := pe.Execute(p.wrapAll(args)...)
	if err != nil {
		return nil, err
	}
	return p.ctx.marshaller.ToObject(res)
}

func (p *Proxy) CanInstantiate() bool {
	_, ok := p.Target.(ProxyInstantiable)
	return ok
}

func (p *Proxy) Instantiate(args []Object) (Object, error) {
	pi, ok := p.Target.(ProxyInstantiable)
	if !ok {
		return nil, unsupported(p, "instantiate", "not instantiable")
	}
	res, err := pi.NewInstance(p.wrapAll(args)...)
	if err != nil {
		return nil, err
	}
	return p.ctx.marshaller.ToObject(res)
}

func (p *Proxy) IsPointer() bool {
	_, ok := p.Target.(ProxyNativeObject)
	return ok
}

func (p *Proxy) AsPointer() (uintptr, error) {
	pn, ok := p.Target.(ProxyNativeObject)
	if !ok {
		return 0, castError(p, "native pointer", "not a native object")
	}
	return pn.AsPointer(), nil
}
