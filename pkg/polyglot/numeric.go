package polyglot

import (
	"math"
)

// number is the numeric payload of a guest Integer or Float.
type number struct {
	i        int64
	f        float64
	integral bool
}

func numberOf(obj Object) (number, bool) {
	switch o := obj.(type) {
	case *Integer:
		return number{i: o.Value, integral: true}, true
	case *Float:
		return number{f: o.Value}, true
	}
	return number{}, false
}

// fitsInLongFloat reports whether f is finite, integral, not negative zero
// and within int64 range.
func fitsInLongFloat(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return false
	}
	if f == 0 && math.Signbit(f) {
		return false
	}
	return f >= -(1<<63) && f < 1<<63
}

func (n number) fitsInLong() bool {
	return n.integral || fitsInLongFloat(n.f)
}

func (n number) long() int64 {
	if n.integral {
		return n.i
	}
	return int64(n.f)
}

func (n number) fitsInInt() bool {
	if !n.fitsInLong() {
		return false
	}
	l := n.long()
	return l >= math.MinInt32 && l <= math.MaxInt32
}

func (n number) fitsInShort() bool {
	if !n.fitsInLong() {
		return false
	}
	l := n.long()
	return l >= math.MinInt16 && l <= math.MaxInt16
}

func (n number) fitsInByte() bool {
	if !n.fitsInLong() {
		return false
	}
	l := n.long()
	return l >= math.MinInt8 && l <= math.MaxInt8
}

func (n number) fitsInDouble() bool {
	if !n.integral {
		return true
	}
	d := float64(n.i)
	if d >= 1<<63 {
		return false
	}
	return int64(d) == n.i
}

func (n number) double() float64 {
	if n.integral {
		return float64(n.i)
	}
	return n.f
}

// fitsInFloat holds for every int32 even when float32 would round it,
// otherwise for doubles that survive narrowing to float32. NaN survives.
func (n number) fitsInFloat() bool {
	if n.fitsInInt() {
		return true
	}
	if !n.fitsInDouble() {
		return false
	}
	d := n.double()
	if math.IsNaN(d) {
		return true
	}
	return float64(float32(d)) == d
}

func (v *Value) number(target string) (number, error) {
	n, ok := numberOf(v.obj)
	if !ok {
		return number{}, castError(v.obj, target, "not a number")
	}
	return n, nil
}

func (v *Value) FitsInByte() bool {
	n, ok := numberOf(v.obj)
	return ok && n.fitsInByte()
}

func (v *Value) FitsInShort() bool {
	n, ok := numberOf(v.obj)
	return ok && n.fitsInShort()
}

func (v *Value) FitsInInt() bool {
	n, ok := numberOf(v.obj)
	return ok && n.fitsInInt()
}

func (v *Value) FitsInLong() bool {
	n, ok := numberOf(v.obj)
	return ok && n.fitsInLong()
}

func (v *Value) FitsInFloat() bool {
	n, ok := numberOf(v.obj)
	return ok && n.fitsInFloat()
}

func (v *Value) FitsInDouble() bool {
	n, ok := numberOf(v.obj)
	return ok && n.fitsInDouble()
}

func (v *Value) AsByte() (int8, error) {
	n, err := v.number("int8")
	if err != nil {
		return 0, err
	}
	if !n.fitsInByte() {
		return 0, castError(v.obj, "int8", "%s out of range", v.obj.Inspect())
	}
	return int8(n.long()), nil
}

func (v *Value) AsShort() (int16, error) {
	n, err := v.number("int16")
	if err != nil {
		return 0, err
	}
	if !n.fitsInShort() {
		return 0, castError(v.obj, "int16", "%s out of range", v.obj.Inspect())
	}
	return int16(n.long()), nil
}

func (v *Value) AsInt() (int32, error) {
	n, err := v.number("int32")
	if err != nil {
		return 0, err
	}
	if !n.fitsInInt() {
		return 0, castError(v.obj, "int32", "%s out of range", v.obj.Inspect())
	}
	return int32(n.long()), nil
}

func (v *Value) AsLong() (int64, error) {
	n, err := v.number("int64")
	if err != nil {
		return 0, err
	}
	if !n.fitsInLong() {
		return 0, castError(v.obj, "int64", "%s out of range", v.obj.Inspect())
	}
	return n.long(), nil
}

func (v *Value) AsFloat() (float32, error) {
	n, err := v.number("float32")
	if err != nil {
		return 0, err
	}
	if !n.fitsInFloat() {
		return 0, castError(v.obj, "float32", "%s is not representable", v.obj.Inspect())
	}
	return float32(n.double()), nil
}

func (v *Value) AsDouble() (float64, error) {
	n, err := v.number("float64")
	if err != nil {
		return 0, err
	}
	if !n.fitsInDouble() {
		return 0, castError(v.obj, "float64", "%s is not representable", v.obj.Inspect())
	}
	return n.double(), nil
}

// asNumber is the generic numeric representation: int64 for integers and
// float64 for floats.
func (v *Value) asNumber() (any, error) {
	n, err := v.number("number")
	if err != nil {
		return nil, err
	}
	if n.integral {
		return n.i, nil
	}
	return n.f, nil
}
