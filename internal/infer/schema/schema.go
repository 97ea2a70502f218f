// Package schema defines the closed set of response shapes the inference
// service may be asked to produce: a primitive, a list of primitives, a named
// record, or a list of named records. The schema travels with each request and
// the returned payload is structurally validated against it before any caller
// sees it; a non-conforming payload is a fatal error, never coerced.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	infererrors "github.com/newspulse/enrich/internal/infer/errors"
)

// Kind identifies one variant of the response shape union.
type Kind string

const (
	// KindString is a bare string value.
	KindString Kind = "string"

	// KindInteger is a whole-number value.
	KindInteger Kind = "integer"

	// KindNumber is a floating-point value.
	KindNumber Kind = "number"

	// KindBoolean is a true/false value.
	KindBoolean Kind = "boolean"

	// KindList is an ordered sequence of a single element shape.
	KindList Kind = "list"

	// KindRecord is a named record with a fixed field set.
	KindRecord Kind = "record"
)

// Schema is a structural contract for an inference response. A Schema is
// immutable after construction; the same value may be shared across requests.
type Schema struct {
	kind   Kind
	elem   *Schema
	name   string
	fields []Field
}

// Field pairs a record field name with its shape. Field order is preserved
// and carried through to the service-side response schema.
type Field struct {
	Name   string
	Schema *Schema
}

// String returns the bare string schema.
func String() *Schema { return &Schema{kind: KindString} }

// Integer returns the whole-number schema.
func Integer() *Schema { return &Schema{kind: KindInteger} }

// Number returns the floating-point schema.
func Number() *Schema { return &Schema{kind: KindNumber} }

// Boolean returns the true/false schema.
func Boolean() *Schema { return &Schema{kind: KindBoolean} }

// ListOf returns the schema for an ordered sequence of elem.
func ListOf(elem *Schema) *Schema { return &Schema{kind: KindList, elem: elem} }

// Record returns the schema for a named record with the given fields.
func Record(name string, fields ...Field) *Schema {
	return &Schema{kind: KindRecord, name: name, fields: fields}
}

// Kind returns the variant of this schema.
func (s *Schema) Kind() Kind { return s.kind }

// Elem returns the element schema of a list, or nil for non-lists.
func (s *Schema) Elem() *Schema { return s.elem }

// Describe returns a compact human-readable rendering used in error messages
// and cache keys, e.g. "list<Theme{rownum:integer,kw:string}>".
func (s *Schema) Describe() string {
	switch s.kind {
	case KindList:
		return "list<" + s.elem.Describe() + ">"
	case KindRecord:
		parts := make([]string, len(s.fields))
		for i, f := range s.fields {
			parts[i] = f.Name + ":" + f.Schema.Describe()
		}
		return s.name + "{" + strings.Join(parts, ",") + "}"
	default:
		return string(s.kind)
	}
}

// ServiceSchema renders the schema in the generateContent responseSchema
// format (OpenAPI-style type names, explicit property ordering).
func (s *Schema) ServiceSchema() map[string]any {
	switch s.kind {
	case KindString:
		return map[string]any{"type": "STRING"}
	case KindInteger:
		return map[string]any{"type": "INTEGER"}
	case KindNumber:
		return map[string]any{"type": "NUMBER"}
	case KindBoolean:
		return map[string]any{"type": "BOOLEAN"}
	case KindList:
		return map[string]any{"type": "ARRAY", "items": s.elem.ServiceSchema()}
	case KindRecord:
		props := make(map[string]any, len(s.fields))
		required := make([]string, 0, len(s.fields))
		ordering := make([]string, 0, len(s.fields))
		for _, f := range s.fields {
			props[f.Name] = f.Schema.ServiceSchema()
			required = append(required, f.Name)
			ordering = append(ordering, f.Name)
		}
		return map[string]any{
			"type":             "OBJECT",
			"properties":       props,
			"required":         required,
			"propertyOrdering": ordering,
		}
	default:
		return map[string]any{"type": "STRING"}
	}
}

// Validate checks that raw structurally conforms to the schema. A mismatch is
// returned as a *ValidationError so the client classifies it as fatal.
func (s *Schema) Validate(raw json.RawMessage) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return &infererrors.ValidationError{
			Path:    "$",
			Message: fmt.Sprintf("payload is not valid JSON: %v", err),
			Schema:  s.Describe(),
		}
	}
	return s.validate(value, "$")
}

func (s *Schema) validate(value any, path string) error {
	fail := func(msg string) error {
		return &infererrors.ValidationError{Path: path, Message: msg, Schema: s.Describe()}
	}

	if value == nil {
		return fail("value is null")
	}

	switch s.kind {
	case KindString:
		if _, ok := value.(string); !ok {
			return fail(fmt.Sprintf("expected string, got %T", value))
		}
	case KindInteger:
		num, ok := value.(json.Number)
		if !ok {
			return fail(fmt.Sprintf("expected integer, got %T", value))
		}
		if _, err := num.Int64(); err != nil {
			return fail(fmt.Sprintf("expected integer, got %s", num.String()))
		}
	case KindNumber:
		if _, ok := value.(json.Number); !ok {
			return fail(fmt.Sprintf("expected number, got %T", value))
		}
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return fail(fmt.Sprintf("expected boolean, got %T", value))
		}
	case KindList:
		items, ok := value.([]any)
		if !ok {
			return fail(fmt.Sprintf("expected list, got %T", value))
		}
		for i, item := range items {
			if err := s.elem.validate(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case KindRecord:
		obj, ok := value.(map[string]any)
		if !ok {
			return fail(fmt.Sprintf("expected %s record, got %T", s.name, value))
		}
		for _, f := range s.fields {
			fieldValue, present := obj[f.Name]
			if !present {
				return fail(fmt.Sprintf("missing field %q", f.Name))
			}
			if err := f.Schema.validate(fieldValue, path+"."+f.Name); err != nil {
				return err
			}
		}
	default:
		return fail(fmt.Sprintf("unknown schema kind %q", s.kind))
	}

	return nil
}
