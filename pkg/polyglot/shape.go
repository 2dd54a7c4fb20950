package polyglot

import (
	"fmt"
	"unicode/utf8"
)

type shapeKind uint8

const (
	shapeValue shapeKind = iota
	shapeObject
	shapeBool
	shapeString
	shapeRune
	shapeNumber
	shapeInt8
	shapeInt16
	shapeInt32
	shapeInt64
	shapeFloat32
	shapeFloat64
	shapeList
	shapeSlice
	shapeMap
	shapeFunc
	shapeVarArgsFunc
	shapeVarArgs
	shapeInterface
)

// Shape is a conversion target for Value.As.
type Shape struct {
	kind  shapeKind
	key   KeyKind
	iface *Interface
}

var (
	// ShapeValue returns the *Value itself.
	ShapeValue = Shape{kind: shapeValue}
	// ShapeObject returns the generic representation: nil, bool, string,
	// int64, float64, the Go value of host objects and proxies, or a
	// *Foreign.
	ShapeObject = Shape{kind: shapeObject}

	ShapeBool   = Shape{kind: shapeBool}
	ShapeString = Shape{kind: shapeString}
	// ShapeRune converts strings of exactly one rune.
	ShapeRune = Shape{kind: shapeRune}
	// ShapeNumber returns int64 or float64.
	ShapeNumber  = Shape{kind: shapeNumber}
	ShapeInt8    = Shape{kind: shapeInt8}
	ShapeInt16   = Shape{kind: shapeInt16}
	ShapeInt32   = Shape{kind: shapeInt32}
	ShapeInt64   = Shape{kind: shapeInt64}
	ShapeFloat32 = Shape{kind: shapeFloat32}
	ShapeFloat64 = Shape{kind: shapeFloat64}

	// ShapeList returns a live *ListView over array elements.
	ShapeList = Shape{kind: shapeList}
	// ShapeSlice returns a []any copy of array elements.
	ShapeSlice = Shape{kind: shapeSlice}

	// ShapeFunc returns func(any) (any, error).
	ShapeFunc = Shape{kind: shapeFunc}
	// ShapeVarArgsFunc returns func([]any) (any, error).
	ShapeVarArgsFunc = Shape{kind: shapeVarArgsFunc}
	// ShapeVarArgs returns a VarArgs.
	ShapeVarArgs = Shape{kind: shapeVarArgs}
)

// MapOf returns the map projection shape with the given key kind.
func MapOf(key KeyKind) Shape {
	return Shape{kind: shapeMap, key: key}
}

// InterfaceOf returns the shape implementing iface. The result is an
// Implementation.
func InterfaceOf(iface *Interface) Shape {
	return Shape{kind: shapeInterface, iface: iface}
}

func (s Shape) String() string {
	switch s.kind {
	case shapeValue:
		return "*polyglot.Value"
	case shapeObject:
		return "any"
	case shapeBool:
		return "bool"
	case shapeString:
		return "string"
	case shapeRune:
		return "rune"
	case shapeNumber:
		return "number"
	case shapeInt8:
		return "int8"
	case shapeInt16:
		return "int16"
	case shapeInt32:
		return "int32"
	case shapeInt64:
		return "int64"
	case shapeFloat32:
		return "float32"
	case shapeFloat64:
		return "float64"
	case shapeList:
		return "*polyglot.ListView"
	case shapeSlice:
		return "[]any"
	case shapeMap:
		return fmt.Sprintf("map[%s]any", s.key)
	case shapeFunc:
		return "func(any) (any, error)"
	case shapeVarArgsFunc:
		return "func([]any) (any, error)"
	case shapeVarArgs:
		return "polyglot.VarArgs"
	case shapeInterface:
		if s.iface == nil {
			return "interface(nil)"
		}
		return "interface " + s.iface.Name
	}
	return fmt.Sprintf("Shape(%d)", s.kind)
}

// As converts the value to shape. Conversions the value's capabilities do
// not support fail with *CastError.
func (v *Value) As(shape Shape) (any, error) {
	switch shape.kind {
	case shapeValue:
		return v, nil
	case shapeObject:
		return v.ctx.generic(v.obj), nil
	case shapeBool:
		return v.AsBoolean()
	case shapeString:
		return v.AsString()
	case shapeRune:
		s, err := v.AsString()
		if err != nil {
			return nil, castError(v.obj, "rune", "not a string")
		}
		if utf8.RuneCountInString(s) != 1 {
			return nil, castError(v.obj, "rune", "string of length %d", utf8.RuneCountInString(s))
		}
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	case shapeNumber:
		return v.asNumber()
	case shapeInt8:
		return v.AsByte()
	case shapeInt16:
		return v.AsShort()
	case shapeInt32:
		return v.AsInt()
	case shapeInt64:
		return v.AsLong()
	case shapeFloat32:
		return v.AsFloat()
	case shapeFloat64:
		return v.AsDouble()
	case shapeList:
		return v.asList()
	case shapeSlice:
		return v.asSlice()
	case shapeMap:
		return v.asMap(shape.key)
	case shapeFunc, shapeVarArgsFunc, shapeVarArgs:
		return v.asFunctional(shape)
	case shapeInterface:
		return v.asInterface(shape.iface)
	}
	return nil, castError(v.obj, shape.String(), "unknown shape")
}
