// Package knowledge defines the closed set of knowledge categories and the
// static schema each one maps to. A category plus a tenant/namespace pair
// selects a physically distinct vector collection.
package knowledge

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidType = errors.New("invalid knowledge type")

type Type int

const (
	// General is prose knowledge split along markdown structure.
	General Type = iota
	// Tool is callable-tool knowledge split along example groups.
	Tool
)

func (t Type) String() string {
	switch t {
	case General:
		return "general_knowledge"
	case Tool:
		return "tool_knowledge"
	default:
		return fmt.Sprintf("knowledge.Type(%d)", int(t))
	}
}

// ParseType maps the wire representation to a Type. The empty string
// defaults to General so callers that never deal in tool knowledge can omit
// the field.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "general", "general_knowledge":
		return General, nil
	case "tool", "tool_knowledge":
		return Tool, nil
	default:
		return General, fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// Field describes one attribute of a collection schema. DataType uses the
// vector store's primitive names (text, string, int).
type Field struct {
	Name     string
	DataType string
}

// Schema returns the attribute schema for the type. Tool knowledge carries
// the tool descriptor fields on top of the common set.
func (t Type) Schema() []Field {
	common := []Field{
		{Name: "content", DataType: "text"},
		{Name: "documentId", DataType: "string"},
		{Name: "tenant", DataType: "string"},
		{Name: "namespace", DataType: "string"},
		{Name: "title", DataType: "text"},
		{Name: "owner", DataType: "string"},
		{Name: "source", DataType: "string"},
		{Name: "headerPath", DataType: "text"},
	}
	if t != Tool {
		return common
	}
	return append(common,
		Field{Name: "toolName", DataType: "string"},
		Field{Name: "toolDescription", DataType: "text"},
		Field{Name: "inputSchema", DataType: "text"},
		Field{Name: "selectedExamples", DataType: "text"},
		Field{Name: "renderTemplate", DataType: "text"},
	)
}

// Collection identifies one physical index partition.
type Collection struct {
	Type      Type
	Tenant    string
	Namespace string
}

func NewCollection(t Type, tenant, namespace string) (Collection, error) {
	if t != General && t != Tool {
		return Collection{}, fmt.Errorf("%w: %d", ErrInvalidType, int(t))
	}
	if tenant == "" || namespace == "" {
		return Collection{}, fmt.Errorf("%w: tenant and namespace are required", ErrInvalidType)
	}
	return Collection{Type: t, Tenant: tenant, Namespace: namespace}, nil
}

// Name is the logical partition name: {knowledge_type}_{tenant}_{namespace}.
func (c Collection) Name() string {
	return fmt.Sprintf("%s_%s_%s", c.Type, sanitize(c.Tenant), sanitize(c.Namespace))
}

// Class is the Weaviate class name for the partition. Class names must be
// GraphQL identifiers starting with an upper-case letter.
func (c Collection) Class() string {
	name := c.Name()
	return strings.ToUpper(name[:1]) + name[1:]
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
