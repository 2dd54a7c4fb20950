package protovalue

import (
	"fmt"
	"math"
	"sort"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/funvibe/polyglot/pkg/polyglot"
)

const (
	MESSAGE_OBJ  polyglot.ObjectType = "PROTO_MESSAGE"
	REPEATED_OBJ polyglot.ObjectType = "PROTO_REPEATED"
)

// Wrap returns msg as a foreign value of ctx.
func Wrap(ctx *polyglot.Context, msg *dynamic.Message) *polyglot.Value {
	return ctx.Wrap(Message{msg: msg})
}

// Message is a dynamic message seen as an object with one member per field.
// Handles over the same message compare equal.
type Message struct {
	msg *dynamic.Message
}

// Proto returns the underlying message.
func (m Message) Proto() *dynamic.Message { return m.msg }

func (m Message) Type() polyglot.ObjectType { return MESSAGE_OBJ }

func (m Message) Inspect() string {
	return fmt.Sprintf("<%s %s>", m.msg.GetMessageDescriptor().GetFullyQualifiedName(), m.msg.String())
}

func (m Message) field(op, key string) (*desc.FieldDescriptor, error) {
	fd := m.msg.GetMessageDescriptor().FindFieldByName(key)
	if fd == nil {
		return nil, &polyglot.UnsupportedError{Op: op, Value: string(MESSAGE_OBJ), Reason: fmt.Sprintf("no field %q", key)}
	}
	return fd, nil
}

func (m Message) HasMembers() bool { return true }

func (m Message) MemberKeys() []string {
	fields := m.msg.GetMessageDescriptor().GetFields()
	keys := make([]string, len(fields))
	for i, fd := range fields {
		keys[i] = fd.GetName()
	}
	return keys
}

func (m Message) HasMember(key string) bool {
	return m.msg.GetMessageDescriptor().FindFieldByName(key) != nil
}

func (m Message) ReadMember(key string) (polyglot.Object, error) {
	fd, err := m.field("read member", key)
	if err != nil {
		return nil, err
	}
	switch {
	case fd.IsMap():
		return mapToRecord(m.msg.GetField(fd), fd), nil
	case fd.IsRepeated():
		return Repeated{msg: m.msg, fd: fd}, nil
	}
	return fromProto(m.msg.GetField(fd)), nil
}

func (m Message) WriteMember(key string, val polyglot.Object) error {
	fd, err := m.field("write member", key)
	if err != nil {
		return err
	}
	if _, ok := val.(*polyglot.Nil); ok {
		m.msg.ClearField(fd)
		return nil
	}
	if fd.IsRepeated() || fd.IsMap() {
		return m.writeRepeated(fd, val)
	}
	v, err := toProto(val, fd)
	if err != nil {
		return err
	}
	return m.msg.TrySetField(fd, v)
}

// writeRepeated replaces a repeated field with the elements of val.
func (m Message) writeRepeated(fd *desc.FieldDescriptor, val polyglot.Object) error {
	if fd.IsMap() {
		return &polyglot.UnsupportedError{Op: "write member", Value: string(MESSAGE_OBJ), Reason: fmt.Sprintf("map field %s is read only", fd.GetName())}
	}
	if r, ok := val.(Repeated); ok && r == (Repeated{msg: m.msg, fd: fd}) {
		return nil
	}
	arr, ok := val.(polyglot.ArrayAccessor)
	if !ok || !arr.HasArrayElements() {
		return castError(val, fd, "no array elements")
	}
	items := make([]any, 0, arr.ArraySize())
	for i := int64(0); i < arr.ArraySize(); i++ {
		el, err := arr.ReadElement(i)
		if err != nil {
			return err
		}
		v, err := toProto(el, fd)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, v)
	}
	return m.msg.TrySetField(fd, items)
}

// Repeated is a repeated field seen as array elements. Writes go through to
// the message.
type Repeated struct {
	msg *dynamic.Message
	fd  *desc.FieldDescriptor
}

func (r Repeated) Type() polyglot.ObjectType { return REPEATED_OBJ }

func (r Repeated) Inspect() string {
	return fmt.Sprintf("<repeated %s, %d elements>", r.fd.GetFullyQualifiedName(), r.ArraySize())
}

func (r Repeated) HasArrayElements() bool { return true }

func (r Repeated) ArraySize() int64 { return int64(r.msg.FieldLength(r.fd)) }

func (r Repeated) checkIndex(index int64) error {
	if size := r.ArraySize(); index < 0 || index >= size {
		return &polyglot.IndexError{Index: index, Size: size}
	}
	return nil
}

func (r Repeated) ReadElement(index int64) (polyglot.Object, error) {
	if err := r.checkIndex(index); err != nil {
		return nil, err
	}
	return fromProto(r.msg.GetRepeatedField(r.fd, int(index))), nil
}

func (r Repeated) WriteElement(index int64, val polyglot.Object) error {
	if err := r.checkIndex(index); err != nil {
		return err
	}
	v, err := toProto(val, r.fd)
	if err != nil {
		return err
	}
	return r.msg.TrySetRepeatedField(r.fd, int(index), v)
}

func fromProto(val any) polyglot.Object {
	switch v := val.(type) {
	case nil:
		return &polyglot.Nil{}
	case int32:
		return &polyglot.Integer{Value: int64(v)}
	case int64:
		return &polyglot.Integer{Value: v}
	case uint32:
		return &polyglot.Integer{Value: int64(v)}
	case uint64:
		if v > math.MaxInt64 {
			return &polyglot.Float{Value: float64(v)}
		}
		return &polyglot.Integer{Value: int64(v)}
	case float32:
		return &polyglot.Float{Value: float64(v)}
	case float64:
		return &polyglot.Float{Value: v}
	case bool:
		return &polyglot.Boolean{Value: v}
	case string:
		return &polyglot.String{Value: v}
	case []byte:
		return &polyglot.String{Value: string(v)}
	case *dynamic.Message:
		if v == nil {
			return &polyglot.Nil{}
		}
		return Message{msg: v}
	}
	return &polyglot.String{Value: fmt.Sprint(val)}
}

// mapToRecord copies a map field. Keys are printed with fmt.
func mapToRecord(val any, fd *desc.FieldDescriptor) polyglot.Object {
	m, _ := val.(map[any]any)
	fields := make(map[string]polyglot.Object, len(m))
	for k, v := range m {
		fields[fmt.Sprint(k)] = fromProto(v)
	}
	return polyglot.NewRecord(fields)
}

func castError(val polyglot.Object, fd *desc.FieldDescriptor, reason string) error {
	return &polyglot.CastError{
		Value:  string(val.Type()),
		Target: fmt.Sprintf("%s (%s)", fd.GetName(), fd.GetType()),
		Reason: reason,
	}
}

func toProto(val polyglot.Object, fd *desc.FieldDescriptor) (any, error) {
	switch fd.GetType() {
	case descriptorpb.FieldDescriptorProto_TYPE_INT32, descriptorpb.FieldDescriptorProto_TYPE_SINT32, descriptorpb.FieldDescriptorProto_TYPE_SFIXED32:
		if i, ok := integral(val); ok && i >= math.MinInt32 && i <= math.MaxInt32 {
			return int32(i), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_INT64, descriptorpb.FieldDescriptorProto_TYPE_SINT64, descriptorpb.FieldDescriptorProto_TYPE_SFIXED64:
		if i, ok := integral(val); ok {
			return i, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_UINT32, descriptorpb.FieldDescriptorProto_TYPE_FIXED32:
		if i, ok := integral(val); ok && i >= 0 && i <= math.MaxUint32 {
			return uint32(i), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_UINT64, descriptorpb.FieldDescriptorProto_TYPE_FIXED64:
		if i, ok := integral(val); ok && i >= 0 {
			return uint64(i), nil
		}
		if f, ok := val.(*polyglot.Float); ok && f.Value >= 1<<63 && f.Value < 1<<64 && f.Value == math.Trunc(f.Value) {
			return uint64(f.Value), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_FLOAT:
		switch v := val.(type) {
		case *polyglot.Float:
			return float32(v.Value), nil
		case *polyglot.Integer:
			return float32(v.Value), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_DOUBLE:
		switch v := val.(type) {
		case *polyglot.Float:
			return v.Value, nil
		case *polyglot.Integer:
			return float64(v.Value), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BOOL:
		if b, ok := val.(*polyglot.Boolean); ok {
			return b.Value, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_STRING:
		if s, ok := val.(*polyglot.String); ok {
			return s.Value, nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_BYTES:
		if s, ok := val.(*polyglot.String); ok {
			return []byte(s.Value), nil
		}
	case descriptorpb.FieldDescriptorProto_TYPE_ENUM:
		if i, ok := integral(val); ok && i >= math.MinInt32 && i <= math.MaxInt32 {
			return int32(i), nil
		}
		if s, ok := val.(*polyglot.String); ok {
			if ev := fd.GetEnumType().FindValueByName(s.Value); ev != nil {
				return ev.GetNumber(), nil
			}
		}
	case descriptorpb.FieldDescriptorProto_TYPE_MESSAGE:
		return toMessage(val, fd)
	}
	return nil, castError(val, fd, "incompatible value")
}

func integral(val polyglot.Object) (int64, bool) {
	switch v := val.(type) {
	case *polyglot.Integer:
		return v.Value, true
	case *polyglot.Float:
		if v.Value == math.Trunc(v.Value) && v.Value >= -(1<<63) && v.Value < 1<<63 {
			return int64(v.Value), true
		}
	}
	return 0, false
}

// toMessage accepts a message of the field's type or any object with
// members, whose members populate a new message.
func toMessage(val polyglot.Object, fd *desc.FieldDescriptor) (any, error) {
	md := fd.GetMessageType()
	if m, ok := val.(Message); ok {
		if m.msg.GetMessageDescriptor().GetFullyQualifiedName() != md.GetFullyQualifiedName() {
			return nil, castError(val, fd, "message type "+m.msg.GetMessageDescriptor().GetFullyQualifiedName())
		}
		return m.msg, nil
	}
	src, ok := val.(polyglot.MemberAccessor)
	if !ok || !src.HasMembers() {
		return nil, castError(val, fd, "no members")
	}
	out := Message{msg: dynamic.NewMessage(md)}
	keys := src.MemberKeys()
	sort.Strings(keys)
	for _, k := range keys {
		if !out.HasMember(k) {
			continue
		}
		v, err := src.ReadMember(k)
		if err != nil {
			return nil, err
		}
		if err := out.WriteMember(k, v); err != nil {
			return nil, fmt.Errorf("%s.%s: %w", md.GetName(), k, err)
		}
	}
	return out.msg, nil
}
