package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/funvibe/polyglot/pkg/conformance"
	"github.com/funvibe/polyglot/pkg/trait"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "db", "reports.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func report(subject string, failures ...conformance.Failure) *conformance.Report {
	return &conformance.Report{
		Subject:  subject,
		Declared: trait.NewSet(trait.Members),
		Detected: trait.NewSet(trait.Members, trait.HostObject),
		Checks:   12,
		Failures: failures,
		Started:  time.Unix(1700000000, 42),
		Duration: 3 * time.Millisecond,
	}
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	want := report("point", conformance.Failure{Path: "$.x", Trait: "MEMBERS", Check: "get member", Message: "boom"})
	if err := s.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	if want.ID == uuid.Nil {
		t.Fatal("Save did not assign an ID")
	}
	got, err := s.Get(ctx, want.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Started.UnixNano() != want.Started.UnixNano() {
		t.Errorf("started = %v", got.Started)
	}
	got.Started = want.Started
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v\nwant %+v", got, want)
	}
	if _, err := s.Get(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(unknown) err = %v", err)
	}
}

func TestListCreationOrder(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	names := []string{"c", "a", "b"}
	for _, n := range names {
		var fs []conformance.Failure
		if n == "a" {
			fs = append(fs, conformance.Failure{Path: "$", Trait: conformance.General, Check: "string", Message: "empty"})
		}
		if err := s.Save(ctx, report(n, fs...)); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range all {
		got = append(got, r.Subject)
	}
	if !reflect.DeepEqual(got, names) {
		t.Errorf("order = %v", got)
	}

	recent, err := s.List(ctx, Filter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].Subject != "a" || recent[1].Subject != "b" {
		t.Errorf("limit 2 = %v", recent)
	}

	failed, err := s.List(ctx, Filter{FailedOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].Subject != "a" || len(failed[0].Failures) != 1 {
		t.Errorf("failed only = %v", failed)
	}
}

func TestDeleteRemovesFailures(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	r := report("x", conformance.Failure{Path: "$[0]", Trait: "ARRAY_ELEMENTS", Check: "read", Message: "gone"})
	if err := s.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	fs, err := s.Failures(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(fs) != 0 {
		t.Errorf("failures left after delete: %v", fs)
	}
	if err := s.Delete(ctx, r.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	r := report("dup")
	if err := s.Save(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, r); err == nil {
		t.Error("saving the same report twice should fail")
	}
	all, _ := s.List(ctx, Filter{})
	if len(all) != 1 {
		t.Errorf("reports = %d", len(all))
	}
}

func TestMemoryDatabase(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Save(ctx, report("mem")); err != nil {
		t.Fatal(err)
	}
	all, err := s.List(ctx, Filter{})
	if err != nil || len(all) != 1 {
		t.Errorf("List = %v, %v", all, err)
	}
}
