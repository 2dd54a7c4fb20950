package polyglot

import (
	"fmt"
	"math"
	"reflect"
)

// KeyKind selects the key type of a map projection.
type KeyKind uint8

const (
	KeyObject KeyKind = iota
	KeyString
	KeyNumber
	KeyInt8
	KeyInt16
	KeyInt32
	KeyInt64
	KeyFloat32
	KeyFloat64
	KeyCharSequence
)

var keyNames = [...]string{
	KeyObject:       "any",
	KeyString:       "string",
	KeyNumber:       "number",
	KeyInt8:         "int8",
	KeyInt16:        "int16",
	KeyInt32:        "int32",
	KeyInt64:        "int64",
	KeyFloat32:      "float32",
	KeyFloat64:      "float64",
	KeyCharSequence: "fmt.Stringer",
}

var (
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
	stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

func (k KeyKind) String() string {
	if int(k) < len(keyNames) {
		return keyNames[k]
	}
	return fmt.Sprintf("KeyKind(%d)", uint8(k))
}

// Excluded reports whether map projections with this key kind are never
// available for guest values: int8, int16, float32, float64 and character
// sequence keys.
func (k KeyKind) Excluded() bool {
	switch k {
	case KeyInt8, KeyInt16, KeyFloat32, KeyFloat64, KeyCharSequence:
		return true
	}
	return false
}

// ExcludedKeys lists the key kinds for which Excluded is true.
func ExcludedKeys() []KeyKind {
	return []KeyKind{KeyInt8, KeyInt16, KeyFloat32, KeyFloat64, KeyCharSequence}
}

// GoType returns the Go key type of the projection.
func (k KeyKind) GoType() reflect.Type {
	switch k {
	case KeyString:
		return reflect.TypeOf("")
	case KeyNumber, KeyInt64:
		return reflect.TypeOf(int64(0))
	case KeyInt8:
		return reflect.TypeOf(int8(0))
	case KeyInt16:
		return reflect.TypeOf(int16(0))
	case KeyInt32:
		return reflect.TypeOf(int32(0))
	case KeyFloat32:
		return reflect.TypeOf(float32(0))
	case KeyFloat64:
		return reflect.TypeOf(float64(0))
	case KeyCharSequence:
		return stringerType
	}
	return anyType
}

// ListView is a live list projection over array elements. Reads return
// generic representations; writes go through SetArrayElement.
type ListView struct {
	v *Value
}

// Value returns the viewed value.
func (l *ListView) Value() *Value { return l.v }

func (l *ListView) Len() int {
	n, err := l.v.GetArraySize()
	if err != nil {
		return 0
	}
	return int(n)
}

func (l *ListView) Get(i int) (any, error) {
	el, err := l.v.GetArrayElement(int64(i))
	if err != nil {
		return nil, err
	}
	return el.As(ShapeObject)
}

func (l *ListView) Set(i int, x any) error {
	return l.v.SetArrayElement(int64(i), x)
}

// Slice copies the current elements.
func (l *ListView) Slice() ([]any, error) {
	n := l.Len()
	out := make([]any, n)
	for i := 0; i < n; i++ {
		x, err := l.Get(i)
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (v *Value) asList() (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.HasArrayElements() {
		return nil, castError(v.obj, ShapeList.String(), "no array elements")
	}
	return &ListView{v: v}, nil
}

func (v *Value) asSlice() (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if !v.HasArrayElements() {
		return nil, castError(v.obj, ShapeSlice.String(), "no array elements")
	}
	return (&ListView{v: v}).Slice()
}

func (v *Value) asMap(key KeyKind) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	if h, ok := v.obj.(*HostObject); ok && h.rv.Kind() == reflect.Map {
		return h.projectMap(key)
	}
	target := MapOf(key).String()
	if key.Excluded() {
		return nil, castError(v.obj, target, "%s keys are not supported", key)
	}

	switch key {
	case KeyObject:
		if !v.HasArrayElements() && !v.HasMembers() {
			return nil, castError(v.obj, target, "no array elements or members")
		}
		out := make(map[any]any)
		if v.HasArrayElements() {
			err := v.eachElement(func(i int64, x any) { out[i] = x })
			if err != nil {
				return nil, err
			}
		}
		if v.HasMembers() {
			err := v.eachMember(func(k string, x any) { out[k] = x })
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	case KeyNumber, KeyInt64:
		if !v.HasArrayElements() {
			return nil, castError(v.obj, target, "no array elements")
		}
		out := make(map[int64]any)
		if err := v.eachElement(func(i int64, x any) { out[i] = x }); err != nil {
			return nil, err
		}
		return out, nil
	case KeyInt32:
		if !v.HasArrayElements() {
			return nil, castError(v.obj, target, "no array elements")
		}
		if size, _ := v.GetArraySize(); size > math.MaxInt32 {
			return nil, castError(v.obj, target, "size %d exceeds int32 keys", size)
		}
		out := make(map[int32]any)
		if err := v.eachElement(func(i int64, x any) { out[int32(i)] = x }); err != nil {
			return nil, err
		}
		return out, nil
	case KeyString:
		if !v.HasMembers() {
			return nil, castError(v.obj, target, "no members")
		}
		out := make(map[string]any)
		if err := v.eachMember(func(k string, x any) { out[k] = x }); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, castError(v.obj, target, "unknown key kind")
}

func (v *Value) eachElement(fn func(i int64, x any)) error {
	size, err := v.GetArraySize()
	if err != nil {
		return err
	}
	for i := int64(0); i < size; i++ {
		el, err := v.GetArrayElement(i)
		if err != nil {
			return err
		}
		fn(i, v.ctx.generic(el.obj))
	}
	return nil
}

func (v *Value) eachMember(fn func(key string, x any)) error {
	keys, err := v.GetMemberKeys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		m, err := v.GetMember(k)
		if err != nil {
			return err
		}
		fn(k, v.ctx.generic(m.obj))
	}
	return nil
}

// projectMap applies host semantics: the Go map is returned as is when its
// type already matches, or copied when its keys convert to the requested
// key type. Other key kinds fail.
func (h *HostObject) projectMap(key KeyKind) (any, error) {
	kt := key.GoType()
	target := reflect.MapOf(kt, anyType)
	if h.rv.Type() == target {
		return h.Host(), nil
	}
	srcKey := h.rv.Type().Key()
	convertible := srcKey.AssignableTo(kt) ||
		(kt.Kind() != reflect.Interface && srcKey.Kind() == kt.Kind() && srcKey.ConvertibleTo(kt))
	if !convertible {
		return nil, castError(h, target.String(), "key type %s", srcKey)
	}

	out := reflect.MakeMapWithSize(target, h.rv.Len())
	iter := h.rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		if !srcKey.AssignableTo(kt) {
			k = k.Convert(kt)
		}
		obj, err := h.m.ToObject(iter.Value().Interface())
		if err != nil {
			return nil, fmt.Errorf("map value: %w", err)
		}
		val := reflect.New(anyType).Elem()
		if g := h.m.ctx.generic(obj); g != nil {
			val.Set(reflect.ValueOf(g))
		}
		out.SetMapIndex(k, val)
	}
	return out.Interface(), nil
}
