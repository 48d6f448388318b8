// Package main generates the run-report JSON schema embedded in
// internal/report. Run it from the repository root after changing the
// report types:
//
//	go run ./tools/schemagen -o internal/report/schema.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/protoforge/internal/report"
)

// Schema is the subset of JSON Schema draft-07 the generator emits.
type Schema struct {
	Schema      string             `json:"$schema,omitempty"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	Type        string             `json:"type,omitempty"`
	Format      string             `json:"format,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Ref         string             `json:"$ref,omitempty"`
	Definitions map[string]*Schema `json:"definitions,omitempty"`
}

func main() {
	var outputPath string

	flag.StringVar(&outputPath, "o", "internal/report/schema.json", "Output path for the run report schema")
	flag.Parse()

	err := writeSchema(outputPath, runReportSchema())
	if err != nil {
		fmt.Fprintf(os.Stderr, "schemagen: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outputPath)
}

// runReportSchema builds the document schema for report.RunReport, with
// nested struct types collected under definitions.
func runReportSchema() *Schema {
	defs := make(map[string]*Schema)
	props, required := structProperties(reflect.TypeFor[report.RunReport](), defs)

	schema := &Schema{
		Schema:      "https://json-schema.org/draft-07/schema#",
		Title:       "Protoforge Run Report",
		Description: "JSON schema for the protoforge run report",
		Type:        "object",
		Properties:  props,
		Required:    required,
	}

	if len(defs) > 0 {
		schema.Definitions = defs
	}

	return schema
}

// structProperties maps a struct's JSON-tagged fields to property
// schemas. Fields without omitempty are required, in declaration order.
func structProperties(t reflect.Type, defs map[string]*Schema) (map[string]*Schema, []string) {
	props := make(map[string]*Schema)

	var required []string

	for _, field := range reflect.VisibleFields(t) {
		name, opts, ok := jsonName(field)
		if !ok {
			continue
		}

		props[name] = fieldSchema(field.Type, defs)

		if !strings.Contains(opts, "omitempty") {
			required = append(required, name)
		}
	}

	return props, required
}

// jsonName extracts the field's JSON property name and tag options.
// Untagged and excluded fields return ok false.
func jsonName(field reflect.StructField) (name, opts string, ok bool) {
	tag := field.Tag.Get("json")
	if tag == "" || tag == "-" {
		return "", "", false
	}

	name, opts, _ = strings.Cut(tag, ",")

	return name, opts, name != ""
}

func fieldSchema(t reflect.Type, defs map[string]*Schema) *Schema {
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t == reflect.TypeFor[time.Duration]() {
			return &Schema{Type: "integer", Description: "Duration in nanoseconds"}
		}

		return &Schema{Type: "integer"}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}

	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}

	case reflect.Bool:
		return &Schema{Type: "boolean"}

	case reflect.Slice:
		return &Schema{Type: "array", Items: fieldSchema(t.Elem(), defs)}

	case reflect.Struct:
		return structSchema(t, defs)

	case reflect.Ptr:
		return fieldSchema(t.Elem(), defs)

	default:
		return &Schema{Type: "object"}
	}
}

// structSchema returns a $ref to a named definition, creating the
// definition on first use. Anonymous structs are inlined; time.Time is
// an RFC 3339 string.
func structSchema(t reflect.Type, defs map[string]*Schema) *Schema {
	if t == reflect.TypeFor[time.Time]() {
		return &Schema{Type: "string", Format: "date-time"}
	}

	name := t.Name()
	if name == "" {
		props, required := structProperties(t, defs)

		return &Schema{Type: "object", Properties: props, Required: required}
	}

	if _, exists := defs[name]; !exists {
		props, required := structProperties(t, defs)
		defs[name] = &Schema{Type: "object", Properties: props, Required: required}
	}

	return &Schema{Ref: "#/definitions/" + name}
}

func writeSchema(path string, schema *Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	err = os.WriteFile(path, append(data, '\n'), 0o644)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}
