package polyglot

import (
	"errors"
	"math"
	"testing"
)

func TestFitsIn(t *testing.T) {
	ctx := NewContext()
	tests := []struct {
		obj                                Object
		byte_, short, int_, long, flt, dbl bool
	}{
		{&Integer{Value: 0}, true, true, true, true, true, true},
		{&Integer{Value: 127}, true, true, true, true, true, true},
		{&Integer{Value: 128}, false, true, true, true, true, true},
		{&Integer{Value: -129}, false, true, true, true, true, true},
		{&Integer{Value: 32768}, false, false, true, true, true, true},
		{&Integer{Value: math.MaxInt32}, false, false, true, true, true, true},
		{&Integer{Value: math.MaxInt32 + 1}, false, false, false, true, true, true},
		{&Integer{Value: 1<<24 + 1}, false, false, true, true, true, true},
		{&Integer{Value: 1<<40 + 1}, false, false, false, true, false, true},
		{&Integer{Value: 1<<53 + 1}, false, false, false, true, false, false},
		{&Integer{Value: math.MaxInt64}, false, false, false, true, false, false},
		{&Integer{Value: math.MinInt64}, false, false, false, true, true, true},
		{&Float{Value: 1}, true, true, true, true, true, true},
		{&Float{Value: 0.5}, false, false, false, false, true, true},
		{&Float{Value: math.Copysign(0, -1)}, false, false, false, false, true, true},
		{&Float{Value: math.MaxInt32}, false, false, true, true, true, true},
		{&Float{Value: 1 << 63}, false, false, false, false, true, true},
		{&Float{Value: -(1 << 63)}, false, false, false, true, true, true},
		{&Float{Value: math.MaxFloat64}, false, false, false, false, false, true},
		{&Float{Value: math.SmallestNonzeroFloat64}, false, false, false, false, false, true},
		{&Float{Value: math.Inf(-1)}, false, false, false, false, true, true},
		{&Float{Value: math.NaN()}, false, false, false, false, true, true},
		{&String{Value: "1"}, false, false, false, false, false, false},
		{&Nil{}, false, false, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.obj.Inspect(), func(t *testing.T) {
			v := ctx.Wrap(tt.obj)
			got := [6]bool{v.FitsInByte(), v.FitsInShort(), v.FitsInInt(), v.FitsInLong(), v.FitsInFloat(), v.FitsInDouble()}
			want := [6]bool{tt.byte_, tt.short, tt.int_, tt.long, tt.flt, tt.dbl}
			if got != want {
				t.Errorf("fits = %v, want %v", got, want)
			}
		})
	}
}

func TestIntMaxFitsInFloat(t *testing.T) {
	v := NewContext().Wrap(&Integer{Value: math.MaxInt32})
	if !v.FitsInFloat() {
		t.Fatal("int32 max must fit in float32")
	}
	f, err := v.AsFloat()
	if err != nil {
		t.Fatalf("AsFloat: %v", err)
	}
	if f != float32(math.MaxInt32) {
		t.Errorf("AsFloat = %v", f)
	}
}

func TestAsNarrowing(t *testing.T) {
	ctx := NewContext()

	b, err := ctx.Wrap(&Float{Value: -128}).AsByte()
	if err != nil || b != -128 {
		t.Errorf("AsByte = %d, %v", b, err)
	}
	if _, err := ctx.Wrap(&Integer{Value: 300}).AsByte(); !errors.Is(err, ErrCast) {
		t.Errorf("AsByte(300) err = %v", err)
	}
	if _, err := ctx.Wrap(&Float{Value: 1.5}).AsLong(); !errors.Is(err, ErrCast) {
		t.Errorf("AsLong(1.5) err = %v", err)
	}
	if _, err := ctx.Wrap(&Integer{Value: 1<<53 + 1}).AsDouble(); !errors.Is(err, ErrCast) {
		t.Errorf("AsDouble(2^53+1) err = %v", err)
	}
	var ce *CastError
	if _, err := ctx.Wrap(&Boolean{Value: true}).AsInt(); !errors.As(err, &ce) {
		t.Errorf("AsInt(true) err = %v", err)
	} else if ce.Target != "int32" {
		t.Errorf("target = %q", ce.Target)
	}

	n, err := ctx.Wrap(&Integer{Value: 7}).As(ShapeNumber)
	if err != nil || n != int64(7) {
		t.Errorf("As(number) = %v, %v", n, err)
	}
	n, err = ctx.Wrap(&Float{Value: 2.5}).As(ShapeNumber)
	if err != nil || n != 2.5 {
		t.Errorf("As(number) = %v, %v", n, err)
	}
}
