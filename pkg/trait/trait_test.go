package trait

import "testing"

func TestTraitNamesAreDistinct(t *testing.T) {
	seen := make(map[string]Trait)
	for _, tr := range All() {
		name := tr.String()
		if prev, ok := seen[name]; ok {
			t.Fatalf("%v and %v share name %q", prev, tr, name)
		}
		seen[name] = tr
	}
	if len(seen) != 11 {
		t.Fatalf("expected 11 traits, got %d", len(seen))
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Trait
	}{
		{"null", Null},
		{"HOST_OBJECT", HostObject},
		{"host-object", HostObject},
		{" array_elements ", ArrayElements},
		{"native", NativePointer},
		{"native_pointer", NativePointer},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := Parse("bogus"); err == nil {
		t.Error("expected error for unknown trait")
	}
}

func TestSetAlgebra(t *testing.T) {
	s := NewSet(Executable, Instantiable)
	if !s.Has(Executable) || !s.Has(Instantiable) {
		t.Fatalf("set %v missing members", s)
	}
	if s.Has(Members) {
		t.Fatalf("set %v has unexpected member", s)
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if got := s.Without(Executable); got.Has(Executable) || !got.Has(Instantiable) {
		t.Errorf("Without = %v", got)
	}
	if s.Complement().Has(Executable) || !s.Complement().Has(Null) {
		t.Errorf("Complement = %v", s.Complement())
	}
	if s.Union(NewSet(Null)).Len() != 3 {
		t.Errorf("Union = %v", s.Union(NewSet(Null)))
	}
	if Universe().Len() != 11 {
		t.Errorf("Universe().Len() = %d", Universe().Len())
	}
	if got := s.String(); got != "{EXECUTABLE, INSTANTIABLE}" {
		t.Errorf("String = %q", got)
	}
}

func TestParseSet(t *testing.T) {
	s, err := ParseSet("members, array_elements,")
	if err != nil {
		t.Fatalf("ParseSet: %v", err)
	}
	if !s.Equal(NewSet(Members, ArrayElements)) {
		t.Errorf("ParseSet = %v", s)
	}
	if _, err := ParseSet("members,nope"); err == nil {
		t.Error("expected error")
	}
}
