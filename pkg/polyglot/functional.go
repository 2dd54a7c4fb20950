package polyglot

import (
	"fmt"
)

// VarArgs is the named vararg call shape returned for ShapeVarArgs.
type VarArgs interface {
	Invoke(args ...any) (any, error)
}

// CallKind is the capability a functional interface needs.
type CallKind uint8

const (
	// CallAny executes when possible and instantiates otherwise.
	CallAny CallKind = iota
	CallExecute
	CallInstantiate
)

// Interface describes an interface shape a value can be adapted to.
// Functional interfaces have a single method backed by the value's call
// capability. Other interfaces are backed by the value's members.
type Interface struct {
	Name       string
	Methods    []string
	Functional bool
	Call       CallKind
}

var (
	// EmptyInterface has no methods.
	EmptyInterface = &Interface{Name: "EmptyInterface"}
	// NonFunctionalInterface has one method that must come from a member.
	NonFunctionalInterface = &Interface{Name: "NonFunctionalInterface", Methods: []string{"Foobarbaz"}}
	// VarArgsInterface is the descriptor behind ShapeVarArgs.
	VarArgsInterface = &Interface{Name: "VarArgs", Methods: []string{"Invoke"}, Functional: true}
	// CallableInterface is functional and needs the value to execute.
	CallableInterface = &Interface{Name: "Callable", Methods: []string{"Call"}, Functional: true, Call: CallExecute}
	// FactoryInterface is functional and needs the value to instantiate.
	FactoryInterface = &Interface{Name: "Factory", Methods: []string{"Create"}, Functional: true, Call: CallInstantiate}
)

func (i *Interface) hasMethod(name string) bool {
	for _, m := range i.Methods {
		if m == name {
			return true
		}
	}
	return false
}

// Implementation is the result of adapting a value to an Interface.
type Implementation interface {
	Interface() *Interface
	Invoke(method string, args ...any) (any, error)
}

func spread(arg any) []any {
	if args, ok := arg.([]any); ok {
		return args
	}
	return []any{arg}
}

// invoke forwards to execute, or to instantiate when the value cannot be
// executed, and returns the generic representation of the result.
func (v *Value) invoke(args []any) (any, error) {
	var (
		res *Value
		err error
	)
	if v.CanExecute() {
		res, err = v.Execute(args...)
	} else {
		res, err = v.NewInstance(args...)
	}
	if err != nil {
		return nil, err
	}
	return res.As(ShapeObject)
}

func (v *Value) asFunctional(shape Shape) (any, error) {
	if !v.CanExecute() && !v.CanInstantiate() {
		return nil, castError(v.obj, shape.String(), "not executable or instantiable")
	}
	switch shape.kind {
	case shapeFunc:
		return func(arg any) (any, error) { return v.invoke(spread(arg)) }, nil
	case shapeVarArgsFunc:
		return func(args []any) (any, error) { return v.invoke(args) }, nil
	case shapeVarArgs:
		return varArgs{v: v}, nil
	}
	return nil, castError(v.obj, shape.String(), "not a functional shape")
}

func (v *Value) asInterface(iface *Interface) (any, error) {
	if iface == nil {
		return nil, castError(v.obj, "interface", "nil interface descriptor")
	}
	target := "interface " + iface.Name
	if iface.Functional {
		switch iface.Call {
		case CallExecute:
			if !v.CanExecute() {
				return nil, castError(v.obj, target, "not executable")
			}
		case CallInstantiate:
			if !v.CanInstantiate() {
				return nil, castError(v.obj, target, "not instantiable")
			}
		default:
			if !v.CanExecute() && !v.CanInstantiate() {
				return nil, castError(v.obj, target, "not executable or instantiable")
			}
		}
		return &functionalImpl{iface: iface, v: v}, nil
	}
	if !v.HasMembers() {
		return nil, castError(v.obj, target, "no members")
	}
	return &memberImpl{iface: iface, v: v}, nil
}

// functionalImpl backs a functional interface with the value's call
// capability.
type functionalImpl struct {
	iface *Interface
	v     *Value
}

func (f *functionalImpl) Interface() *Interface { return f.iface }

func (f *functionalImpl) Invoke(method string, args ...any) (any, error) {
	if len(f.iface.Methods) > 0 && !f.iface.hasMethod(method) {
		return nil, unsupported(f.v.obj, "invoke", "%s has no method %s", f.iface.Name, method)
	}
	switch f.iface.Call {
	case CallExecute:
		res, err := f.v.Execute(args...)
		if err != nil {
			return nil, err
		}
		return res.As(ShapeObject)
	case CallInstantiate:
		res, err := f.v.NewInstance(args...)
		if err != nil {
			return nil, err
		}
		return res.As(ShapeObject)
	}
	return f.v.invoke(args)
}

func (f *functionalImpl) String() string {
	return fmt.Sprintf("%s(%s)", f.iface.Name, f.v)
}

// varArgs is the VarArgs returned for ShapeVarArgs.
type varArgs struct {
	v *Value
}

func (a varArgs) Invoke(args ...any) (any, error) { return a.v.invoke(args) }

func (a varArgs) String() string { return fmt.Sprintf("VarArgs(%s)", a.v) }

// memberImpl backs a non-functional interface with the value's members.
type memberImpl struct {
	iface *Interface
	v     *Value
}

func (m *memberImpl) Interface() *Interface { return m.iface }

func (m *memberImpl) Invoke(method string, args ...any) (any, error) {
	member, err := m.v.GetMember(method)
	if err != nil {
		return nil, err
	}
	res, err := member.Execute(args...)
	if err != nil {
		return nil, err
	}
	return res.As(ShapeObject)
}

func (m *memberImpl) String() string {
	return fmt.Sprintf("%s(%s)", m.iface.Name, m.v)
}
