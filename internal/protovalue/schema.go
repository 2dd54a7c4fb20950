// Package protovalue exposes protobuf messages, parsed from .proto sources
// at run time, as foreign values: messages have members, repeated fields
// have array elements and scalars map to guest primitives.
package protovalue

import (
	"fmt"
	"sort"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/desc/protoparse"
	"github.com/jhump/protoreflect/dynamic"
)

// Schema is a set of parsed .proto files.
type Schema struct {
	files []*desc.FileDescriptor
}

// Parse parses the given .proto files. Imports are resolved against
// importPaths, or the current directory when none are given.
func Parse(paths []string, importPaths ...string) (*Schema, error) {
	if len(importPaths) == 0 {
		importPaths = []string{"."}
	}
	parser := protoparse.Parser{ImportPaths: importPaths}
	fds, err := parser.ParseFiles(paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proto: %w", err)
	}
	return &Schema{files: fds}, nil
}

// ParseSource parses a single in-memory .proto file.
func ParseSource(name, src string) (*Schema, error) {
	parser := protoparse.Parser{
		Accessor: protoparse.FileContentsFromMap(map[string]string{name: src}),
	}
	fds, err := parser.ParseFiles(name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse proto: %w", err)
	}
	return &Schema{files: fds}, nil
}

// Messages lists the fully qualified names of all top level and nested
// message types.
func (s *Schema) Messages() []string {
	var names []string
	var walk func(mds []*desc.MessageDescriptor)
	walk = func(mds []*desc.MessageDescriptor) {
		for _, md := range mds {
			if md.IsMapEntry() {
				continue
			}
			names = append(names, md.GetFullyQualifiedName())
			walk(md.GetNestedMessageTypes())
		}
	}
	for _, fd := range s.files {
		walk(fd.GetMessageTypes())
	}
	sort.Strings(names)
	return names
}

func (s *Schema) find(name string) (*desc.MessageDescriptor, error) {
	for _, fd := range s.files {
		if md := fd.FindMessage(name); md != nil {
			return md, nil
		}
	}
	return nil, fmt.Errorf("message type %q not found", name)
}

// New returns an empty message of the named type.
func (s *Schema) New(name string) (*dynamic.Message, error) {
	md, err := s.find(name)
	if err != nil {
		return nil, err
	}
	return dynamic.NewMessage(md), nil
}

// FromJSON returns a message of the named type populated from its JSON
// encoding.
func (s *Schema) FromJSON(name string, data []byte) (*dynamic.Message, error) {
	msg, err := s.New(name)
	if err != nil {
		return nil, err
	}
	if err := msg.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return msg, nil
}
