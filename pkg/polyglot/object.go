package polyglot

type ObjectType string

const (
	NIL_OBJ         = "NIL"
	BOOLEAN_OBJ     = "BOOLEAN"
	STRING_OBJ      = "STRING"
	INTEGER_OBJ     = "INTEGER"
	FLOAT_OBJ       = "FLOAT"
	LIST_OBJ        = "LIST"
	RECORD_OBJ      = "RECORD"
	BUILTIN_OBJ     = "BUILTIN"
	CONSTRUCTOR_OBJ = "CONSTRUCTOR"
	COMPOSITE_OBJ   = "COMPOSITE"
	NATIVE_OBJ      = "NATIVE"
	HOST_OBJ        = "HOST"
	HOST_TYPE_OBJ   = "HOST_TYPE"
	PROXY_OBJ       = "PROXY"
)

// Object is the runtime representation behind a Value. Capabilities are
// expressed by the optional interfaces below; an object that implements an
// interface but reports false from its Has/Can method lacks the capability.
type Object interface {
	Type() ObjectType
	Inspect() string
}

// MemberAccessor exposes named members.
type MemberAccessor interface {
	HasMembers() bool
	MemberKeys() []string
	HasMember(key string) bool
	ReadMember(key string) (Object, error)
	WriteMember(key string, val Object) error
}

// ArrayAccessor exposes indexed elements.
type ArrayAccessor interface {
	HasArrayElements() bool
	ArraySize() int64
	ReadElement(index int64) (Object, error)
	WriteElement(index int64, val Object) error
}

// Executor can be called.
type Executor interface {
	CanExecute() bool
	Execute(args []Object) (Object, error)
}

// Instantiator can create new instances.
type Instantiator interface {
	CanInstantiate() bool
	Instantiate(args []Object) (Object, error)
}

// Pointer exposes a native address.
type Pointer interface {
	IsPointer() bool
	AsPointer() (uintptr, error)
}

// hostBacked is implemented by objects that wrap a Go value reached through
// the host bridge.
type hostBacked interface {
	Object
	Host() any
}

func checkIndex(index, size int64) error {
	if index < 0 || index >= size {
		return &IndexError{Index: index, Size: size}
	}
	return nil
}
