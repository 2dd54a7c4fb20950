package polyglot

import (
	"fmt"
	"math"
	"reflect"
)

var (
	objectType   = reflect.TypeOf((*Object)(nil)).Elem()
	valuePtrType = reflect.TypeOf((*Value)(nil))
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
)

// Marshaller handles conversion between Go values and Objects.
type Marshaller struct {
	ctx *Context
}

func NewMarshaller(ctx *Context) *Marshaller {
	return &Marshaller{ctx: ctx}
}

// ToObject converts a Go value to an Object.
//
// Numbers, booleans and strings become guest primitives. Values that
// implement a proxy interface become proxies. reflect.Type values become
// host types. Everything else is reached through the host bridge; structs
// and arrays held by value are copied so they can be addressed.
func (m *Marshaller) ToObject(val any) (Object, error) {
	switch x := val.(type) {
	case nil:
		return &Nil{}, nil
	case *Value:
		if x == nil {
			return &Nil{}, nil
		}
		return x.obj, nil
	case *Foreign:
		if x == nil {
			return &Nil{}, nil
		}
		return x.obj, nil
	case Object:
		return x, nil
	case reflect.Type:
		return m.hostType(x, nil)
	}
	if IsProxy(val) {
		return &Proxy{Target: val, ctx: m.ctx}, nil
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return &Integer{Value: v.Int()}, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := v.Uint()
		if u > math.MaxInt64 {
			return &Float{Value: float64(u)}, nil
		}
		return &Integer{Value: int64(u)}, nil
	case reflect.Float32, reflect.Float64:
		return &Float{Value: v.Float()}, nil
	case reflect.Bool:
		return &Boolean{Value: v.Bool()}, nil
	case reflect.String:
		return &String{Value: v.String()}, nil
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		if v.IsNil() {
			return &Nil{}, nil
		}
		return &HostObject{rv: v, m: m}, nil
	case reflect.Struct, reflect.Array:
		// By value: copy into addressable storage.
		p := reflect.New(v.Type()).Elem()
		p.Set(v)
		return &HostObject{rv: p, m: m}, nil
	default:
		return &HostObject{rv: v, m: m}, nil
	}
}

// FromObject converts an Object to a Go value.
// targetType is optional; if provided, tries to convert to that type.
// Without it the generic representation is returned.
func (m *Marshaller) FromObject(obj Object, targetType reflect.Type) (any, error) {
	if obj == nil {
		return nil, nil
	}
	if targetType == nil {
		return m.ctx.generic(obj), nil
	}
	rv, err := m.convert(obj, targetType)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func (m *Marshaller) convert(obj Object, target reflect.Type) (reflect.Value, error) {
	switch target {
	case objectType:
		return reflect.ValueOf(&obj).Elem(), nil
	case valuePtrType:
		return reflect.ValueOf(m.ctx.Wrap(obj)), nil
	}

	switch o := obj.(type) {
	case *Nil:
		switch target.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(target), nil
		}
		return reflect.Value{}, castError(obj, target.String(), "nil")
	case *Integer:
		if rv, ok := convertInt(o.Value, target); ok {
			return rv, nil
		}
	case *Float:
		if rv, ok := convertFloat(o.Value, target); ok {
			return rv, nil
		}
	case *Boolean:
		if target.Kind() == reflect.Bool {
			return reflect.ValueOf(o.Value).Convert(target), nil
		}
	case *String:
		if target.Kind() == reflect.String {
			return reflect.ValueOf(o.Value).Convert(target), nil
		}
	case *List:
		if target.Kind() == reflect.Slice {
			return m.listToSlice(o, target)
		}
	case *Record:
		switch target.Kind() {
		case reflect.Map:
			if target.Key().Kind() == reflect.String {
				return m.recordToMap(o, target)
			}
		case reflect.Struct:
			return m.recordToStruct(o, target)
		}
	case hostBacked:
		if rv, ok := assign(reflect.ValueOf(o.Host()), target); ok {
			return rv, nil
		}
	case *Proxy:
		if rv, ok := assign(reflect.ValueOf(o.Target), target); ok {
			return rv, nil
		}
	}

	// Fall back to the generic representation, e.g. *Foreign into any.
	if g := m.ctx.generic(obj); g != nil {
		if rv, ok := assign(reflect.ValueOf(g), target); ok {
			return rv, nil
		}
	}
	return reflect.Value{}, castError(obj, target.String(), "no conversion")
}

func assign(rv reflect.Value, target reflect.Type) (reflect.Value, bool) {
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	if rv.Type().AssignableTo(target) {
		out := reflect.New(target).Elem()
		out.Set(rv)
		return out, true
	}
	if rv.Kind() == target.Kind() && rv.Type().ConvertibleTo(target) {
		return rv.Convert(target), true
	}
	return reflect.Value{}, false
}

func convertInt(i int64, target reflect.Type) (reflect.Value, bool) {
	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if out.OverflowInt(i) {
			return reflect.Value{}, false
		}
		out.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if i < 0 || out.OverflowUint(uint64(i)) {
			return reflect.Value{}, false
		}
		out.SetUint(uint64(i))
	case reflect.Float32, reflect.Float64:
		out.SetFloat(float64(i))
	case reflect.Interface:
		if !reflect.TypeOf(i).AssignableTo(target) {
			return reflect.Value{}, false
		}
		out.Set(reflect.ValueOf(i))
	default:
		return reflect.Value{}, false
	}
	return out, true
}

func convertFloat(f float64, target reflect.Type) (reflect.Value, bool) {
	out := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.Float32, reflect.Float64:
		out.SetFloat(f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !fitsInLongFloat(f) || out.OverflowInt(int64(f)) {
			return reflect.Value{}, false
		}
		out.SetInt(int64(f))
	case reflect.Interface:
		if !reflect.TypeOf(f).AssignableTo(target) {
			return reflect.Value{}, false
		}
		out.Set(reflect.ValueOf(f))
	default:
		return reflect.Value{}, false
	}
	return out, true
}

func (m *Marshaller) listToSlice(l *List, targetType reflect.Type) (reflect.Value, error) {
	elemType := targetType.Elem()
	slice := reflect.MakeSlice(targetType, 0, len(l.Elements))
	for i, el := range l.Elements {
		rv, err := m.convert(el, elemType)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
		}
		slice = reflect.Append(slice, rv)
	}
	return slice, nil
}

func (m *Marshaller) recordToMap(r *Record, targetType reflect.Type) (reflect.Value, error) {
	result := reflect.MakeMapWithSize(targetType, len(r.Fields))
	for _, f := range r.Fields {
		val, err := m.convert(f.Value, targetType.Elem())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("member %s: %w", f.Key, err)
		}
		result.SetMapIndex(reflect.ValueOf(f.Key).Convert(targetType.Key()), val)
	}
	return result, nil
}

func (m *Marshaller) recordToStruct(r *Record, targetType reflect.Type) (reflect.Value, error) {
	out := reflect.New(targetType).Elem()
	for _, f := range r.Fields {
		field, ok := targetType.FieldByName(f.Key)
		if !ok || !field.IsExported() {
			continue
		}
		val, err := m.convert(f.Value, field.Type)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("member %s: %w", f.Key, err)
		}
		dst, err := out.FieldByIndexErr(field.Index)
		if err != nil || !dst.CanSet() {
			continue
		}
		dst.Set(val)
	}
	return out, nil
}

// call invokes a Go function with guest arguments. A trailing error result
// is returned as the call error; several remaining results become a List.
func (m *Marshaller) call(fn reflect.Value, args []Object) (Object, error) {
	fnType := fn.Type()
	numIn := fnType.NumIn()
	isVariadic := fnType.IsVariadic()

	if isVariadic {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("expected at least %d arguments, got %d", numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("expected %d arguments, got %d", numIn, len(args))
	}

	goArgs := make([]reflect.Value, len(args))
	for i, arg := range args {
		var targetType reflect.Type
		if isVariadic && i >= numIn-1 {
			targetType = fnType.In(numIn - 1).Elem()
		} else {
			targetType = fnType.In(i)
		}
		rv, err := m.convert(arg, targetType)
		if err != nil {
			return nil, fmt.Errorf("argument %d conversion failed: %w", i, err)
		}
		goArgs[i] = rv
	}

	results := fn.Call(goArgs)

	if n := len(results); n > 0 && fnType.Out(n-1) == errorType {
		if err, _ := results[n-1].Interface().(error); err != nil {
			return nil, err
		}
		results = results[:n-1]
	}

	switch len(results) {
	case 0:
		return &Nil{}, nil
	case 1:
		return m.ToObject(results[0].Interface())
	}
	elements := make([]Object, len(results))
	for i, res := range results {
		obj, err := m.ToObject(res.Interface())
		if err != nil {
			return nil, err
		}
		elements[i] = obj
	}
	return NewList(elements...), nil
}

func (m *Marshaller) hostType(t reflect.Type, ctor any) (*HostType, error) {
	if t == nil {
		return nil, fmt.Errorf("host type must not be nil")
	}
	ht := &HostType{T: t, m: m}
	if ctor == nil {
		return ht, nil
	}
	fn := reflect.ValueOf(ctor)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, fmt.Errorf("constructor for %s must be a function, got %T", t, ctor)
	}
	ft := fn.Type()
	if ft.NumOut() == 0 || (ft.Out(0) != t && ft.Out(0) != reflect.PointerTo(t)) {
		return nil, fmt.Errorf("constructor for %s must return %s or *%s", t, t, t)
	}
	ht.ctor = fn
	return ht, nil
}
