package protovalue

import (
	"errors"
	"reflect"
	"testing"

	"github.com/funvibe/polyglot/pkg/conformance"
	"github.com/funvibe/polyglot/pkg/polyglot"
	"github.com/funvibe/polyglot/pkg/trait"
)

const personProto = `
syntax = "proto3";
package demo;

enum Kind {
  KIND_UNKNOWN = 0;
  KIND_ADMIN = 1;
}

message Person {
  message Address {
    string city = 1;
    uint32 zip = 2;
  }
  string name = 1;
  int32 age = 2;
  repeated string tags = 3;
  Address home = 4;
  repeated Address past = 5;
  map<string, int64> scores = 6;
  Kind kind = 7;
  double ratio = 8;
  bytes blob = 9;
  bool active = 10;
}
`

const personJSON = `{
  "name": "Ada",
  "age": 36,
  "tags": ["math", "engines"],
  "home": {"city": "London", "zip": 1815},
  "past": [{"city": "Marylebone"}],
  "scores": {"notes": 7},
  "kind": "KIND_ADMIN",
  "ratio": 0.5,
  "blob": "aGk=",
  "active": true
}`

func loadPerson(t *testing.T) (*polyglot.Context, *polyglot.Value) {
	t.Helper()
	schema, err := ParseSource("person.proto", personProto)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := schema.FromJSON("demo.Person", []byte(personJSON))
	if err != nil {
		t.Fatal(err)
	}
	ctx := polyglot.NewContext()
	return ctx, Wrap(ctx, msg)
}

func TestMessages(t *testing.T) {
	schema, err := ParseSource("person.proto", personProto)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"demo.Person", "demo.Person.Address"}
	if got := schema.Messages(); !reflect.DeepEqual(got, want) {
		t.Errorf("Messages() = %v, want %v", got, want)
	}
	if _, err := schema.New("demo.Missing"); err == nil {
		t.Error("expected an error for an unknown message")
	}
	if _, err := ParseSource("bad.proto", "message {"); err == nil {
		t.Error("expected a parse error")
	}
}

func TestMessageMembers(t *testing.T) {
	_, v := loadPerson(t)
	if got := v.Traits(); !got.Equal(trait.NewSet(trait.Members)) {
		t.Fatalf("traits = %s", got)
	}
	keys, err := v.GetMemberKeys()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"name", "age", "tags", "home", "past", "scores", "kind", "ratio", "blob", "active"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("keys = %v", keys)
	}

	tests := []struct {
		key  string
		want any
	}{
		{"name", "Ada"},
		{"age", int64(36)},
		{"kind", int64(1)},
		{"ratio", 0.5},
		{"blob", "hi"},
		{"active", true},
	}
	for _, tt := range tests {
		m, err := v.GetMember(tt.key)
		if err != nil {
			t.Errorf("GetMember(%s): %v", tt.key, err)
			continue
		}
		if g, _ := m.As(polyglot.ShapeObject); g != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.key, g, tt.want)
		}
	}

	home, _ := v.GetMember("home")
	city, err := home.GetMember("city")
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := city.AsString(); s != "London" {
		t.Errorf("home.city = %q", s)
	}
	scores, _ := v.GetMember("scores")
	if n, _ := scores.GetMember("notes"); n == nil {
		t.Error("scores.notes missing")
	}
	if _, err := v.GetMember("nope"); !errors.Is(err, polyglot.ErrUnsupported) {
		t.Errorf("GetMember(nope) err = %v", err)
	}
}

func TestRepeatedFields(t *testing.T) {
	_, v := loadPerson(t)
	tags, err := v.GetMember("tags")
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := tags.GetArraySize(); n != 2 {
		t.Fatalf("len(tags) = %d", n)
	}
	if err := tags.SetArrayElement(1, "looms"); err != nil {
		t.Fatal(err)
	}
	again, _ := v.GetMember("tags")
	el, _ := again.GetArrayElement(1)
	if s, _ := el.AsString(); s != "looms" {
		t.Errorf("tags[1] = %q", s)
	}
	if _, err := tags.GetArrayElement(2); !errors.Is(err, polyglot.ErrIndex) {
		t.Errorf("tags[2] err = %v", err)
	}
	if err := tags.SetArrayElement(0, int64(1)); !errors.Is(err, polyglot.ErrCast) {
		t.Errorf("int into string field: err = %v", err)
	}
	if !tags.Same(again) {
		t.Error("two reads of one repeated field are not the same value")
	}
}

func TestWriteMembers(t *testing.T) {
	ctx, v := loadPerson(t)
	if err := v.PutMember("age", int64(37)); err != nil {
		t.Fatal(err)
	}
	if err := v.PutMember("age", int64(1)<<40); !errors.Is(err, polyglot.ErrCast) {
		t.Errorf("int32 overflow: err = %v", err)
	}
	if err := v.PutMember("kind", "KIND_UNKNOWN"); err != nil {
		t.Errorf("enum by name: %v", err)
	}
	if err := v.PutMember("home", ctx.Wrap(polyglot.NewRecord(map[string]polyglot.Object{
		"city": &polyglot.String{Value: "Paris"},
	}))); err != nil {
		t.Fatal(err)
	}
	home, _ := v.GetMember("home")
	city, _ := home.GetMember("city")
	if s, _ := city.AsString(); s != "Paris" {
		t.Errorf("home.city = %q", s)
	}
	if err := v.PutMember("tags", polyglot.NewList(&polyglot.String{Value: "a"})); err != nil {
		t.Fatal(err)
	}
	tags, _ := v.GetMember("tags")
	if n, _ := tags.GetArraySize(); n != 1 {
		t.Errorf("len(tags) = %d", n)
	}
	if err := v.PutMember("home", nil); err != nil {
		t.Fatal(err)
	}
	if home, _ := v.GetMember("home"); !home.IsNull() {
		t.Error("cleared message field is not null")
	}
	if err := v.PutMember("scores", polyglot.NewRecord(nil)); !errors.Is(err, polyglot.ErrUnsupported) {
		t.Errorf("map field write: err = %v", err)
	}
}

func TestMessageConforms(t *testing.T) {
	_, v := loadPerson(t)
	conformance.AssertValue(t, v, nil)
	tags, _ := v.GetMember("tags")
	conformance.AssertValue(t, tags, nil, trait.ArrayElements)
	past, _ := v.GetMember("past")
	conformance.AssertValue(t, past, nil, trait.ArrayElements)
}
