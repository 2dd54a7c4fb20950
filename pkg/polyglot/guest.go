package polyglot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Nil
type Nil struct{}

func (n *Nil) Type() ObjectType { return NIL_OBJ }
func (n *Nil) Inspect() string  { return "nil" }

// Boolean
type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }

// String
type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return strconv.Quote(s.Value) }

// Integer
type Integer struct {
	Value int64
}

func (i *Integer) Type() ObjectType { return INTEGER_OBJ }
func (i *Integer) Inspect() string  { return strconv.FormatInt(i.Value, 10) }

// Float
type Float struct {
	Value float64
}

func (f *Float) Type() ObjectType { return FLOAT_OBJ }
func (f *Float) Inspect() string  { return strconv.FormatFloat(f.Value, 'g', -1, 64) }

// List is a fixed-size, mutable sequence of guest objects.
type List struct {
	Elements []Object
}

// NewList creates a list over elements. The slice is used as is.
func NewList(elements ...Object) *List {
	return &List{Elements: elements}
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string  { return inspectObject(l, make(map[Object]bool)) }

func (l *List) inspect(seen map[Object]bool) string {
	parts := make([]string, len(l.Elements))
	for i, el := range l.Elements {
		parts[i] = inspectObject(el, seen)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (l *List) HasArrayElements() bool { return true }
func (l *List) ArraySize() int64       { return int64(len(l.Elements)) }

func (l *List) ReadElement(index int64) (Object, error) {
	if err := checkIndex(index, l.ArraySize()); err != nil {
		return nil, err
	}
	return l.Elements[index], nil
}

func (l *List) WriteElement(index int64, val Object) error {
	if err := checkIndex(index, l.ArraySize()); err != nil {
		return err
	}
	l.Elements[index] = val
	return nil
}

// container is implemented by objects that print other objects.
type container interface {
	inspect(seen map[Object]bool) string
}

// inspectObject prints obj, replacing containers already being printed
// with "...".
func inspectObject(obj Object, seen map[Object]bool) string {
	c, ok := obj.(container)
	if !ok {
		return obj.Inspect()
	}
	if seen[obj] {
		return "..."
	}
	seen[obj] = true
	defer delete(seen, obj)
	return c.inspect(seen)
}

// RecordField is one named member of a Record.
type RecordField struct {
	Key   string
	Value Object
}

// Record is a mutable set of named members kept sorted by key.
type Record struct {
	Fields []RecordField
}

// NewRecord creates a Record from a map of fields.
// It converts the map to a sorted slice.
func NewRecord(fieldMap map[string]Object) *Record {
	fields := make([]RecordField, 0, len(fieldMap))
	for k, v := range fieldMap {
		fields = append(fields, RecordField{Key: k, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	return &Record{Fields: fields}
}

func (r *Record) Type() ObjectType { return RECORD_OBJ }
func (r *Record) Inspect() string  { return inspectObject(r, make(map[Object]bool)) }

func (r *Record) inspect(seen map[Object]bool) string {
	parts := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		parts[i] = f.Key + ": " + inspectObject(f.Value, seen)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (r *Record) find(key string) int {
	return sort.Search(len(r.Fields), func(i int) bool { return r.Fields[i].Key >= key })
}

func (r *Record) HasMembers() bool { return true }

func (r *Record) MemberKeys() []string {
	keys := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		keys[i] = f.Key
	}
	return keys
}

func (r *Record) HasMember(key string) bool {
	i := r.find(key)
	return i < len(r.Fields) && r.Fields[i].Key == key
}

func (r *Record) ReadMember(key string) (Object, error) {
	i := r.find(key)
	if i < len(r.Fields) && r.Fields[i].Key == key {
		return r.Fields[i].Value, nil
	}
	return nil, unsupported(r, "read member", "no member %q", key)
}

// WriteMember replaces an existing member or inserts a new one.
func (r *Record) WriteMember(key string, val Object) error {
	i := r.find(key)
	if i < len(r.Fields) && r.Fields[i].Key == key {
		r.Fields[i].Value = val
		return nil
	}
	r.Fields = append(r.Fields, RecordField{})
	copy(r.Fields[i+1:], r.Fields[i:])
	r.Fields[i] = RecordField{Key: key, Value: val}
	return nil
}

// BuiltinFunction is the Go implementation of a guest callable.
type BuiltinFunction func(args ...Object) (Object, error)

// Builtin is an executable guest function.
type Builtin struct {
	Name string
	Fn   BuiltinFunction
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "builtin " + b.Name }

func (b *Builtin) CanExecute() bool { return b.Fn != nil }

func (b *Builtin) Execute(args []Object) (Object, error) {
	if b.Fn == nil {
		return nil, unsupported(b, "execute", "builtin %s has no body", b.Name)
	}
	return b.Fn(args...)
}

// Constructor is an instantiable guest type.
type Constructor struct {
	Name string
	New  BuiltinFunction
}

func (c *Constructor) Type() ObjectType { return CONSTRUCTOR_OBJ }
func (c *Constructor) Inspect() string  { return "constructor " + c.Name }

func (c *Constructor) CanInstantiate() bool { return c.New != nil }

func (c *Constructor) Instantiate(args []Object) (Object, error) {
	if c.New == nil {
		return nil, unsupported(c, "instantiate", "constructor %s has no body", c.Name)
	}
	return c.New(args...)
}

// Composite combines independent capabilities in one object. A nil part
// means the capability is absent.
type Composite struct {
	Name     string
	Members  *Record
	Elements *List
	Exec     BuiltinFunction
	New      BuiltinFunction
}

func (c *Composite) Type() ObjectType { return COMPOSITE_OBJ }
func (c *Composite) Inspect() string  { return inspectObject(c, make(map[Object]bool)) }

func (c *Composite) inspect(seen map[Object]bool) string {
	var caps []string
	if c.Members != nil {
		caps = append(caps, "members="+inspectObject(c.Members, seen))
	}
	if c.Elements != nil {
		caps = append(caps, "elements="+inspectObject(c.Elements, seen))
	}
	if c.Exec != nil {
		caps = append(caps, "executable")
	}
	if c.New != nil {
		caps = append(caps, "instantiable")
	}
	return fmt.Sprintf("composite %s(%s)", c.Name, strings.Join(caps, ", "))
}

func (c *Composite) HasMembers() bool { return c.Members != nil }

func (c *Composite) MemberKeys() []string {
	if c.Members == nil {
		return nil
	}
	return c.Members.MemberKeys()
}

func (c *Composite) HasMember(key string) bool {
	return c.Members != nil && c.Members.HasMember(key)
}

func (c *Composite) ReadMember(key string) (Object, error) {
	if c.Members == nil {
		return nil, unsupported(c, "read member", "no members")
	}
	return c.Members.ReadMember(key)
}

func (c *Composite) WriteMember(key string, val Object) error {
	if c.Members == nil {
		return unsupported(c, "write member", "no members")
	}
	return c.Members.WriteMember(key, val)
}

func (c *Composite) HasArrayElements() bool { return c.Elements != nil }

func (c *Composite) ArraySize() int64 {
	if c.Elements == nil {
		return 0
	}
	return c.Elements.ArraySize()
}

func (c *Composite) ReadElement(index int64) (Object, error) {
	if c.Elements == nil {
		return nil, unsupported(c, "read element", "no array elements")
	}
	return c.Elements.ReadElement(index)
}

func (c *Composite) WriteElement(index int64, val Object) error {
	if c.Elements == nil {
		return unsupported(c, "write element", "no array elements")
	}
	return c.Elements.WriteElement(index, val)
}

func (c *Composite) CanExecute() bool { return c.Exec != nil }

func (c *Composite) Execute(args []Object) (Object, error) {
	if c.Exec == nil {
		return nil, unsupported(c, "execute", "not executable")
	}
	return c.Exec(args...)
}

func (c *Composite) CanInstantiate() bool { return c.New != nil }

func (c *Composite) Instantiate(args []Object) (Object, error) {
	if c.New == nil {
		return nil, unsupported(c, "instantiate", "not instantiable")
	}
	return c.New(args...)
}

// NativePointer is an opaque native address.
type NativePointer struct {
	Address uintptr
}

func (p *NativePointer) Type() ObjectType { return NATIVE_OBJ }
func (p *NativePointer) Inspect() string  { return fmt.Sprintf("native@%#x", p.Address) }

func (p *NativePointer) IsPointer() bool             { return true }
func (p *NativePointer) AsPointer() (uintptr, error) { return p.Address, nil }
