package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xeipuuv/gojsonschema"
)

// schemaFile is the embedded schema filename, regenerated by
// tools/schemagen.
const schemaFile = "schema.json"

//go:embed schema.json
var schemaFS embed.FS

// Schema returns the embedded run-report JSON schema.
func Schema() ([]byte, error) {
	data, err := schemaFS.ReadFile(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}

	return data, nil
}

// Violation describes one schema rule a report document breaks.
type Violation struct {
	Field       string
	Description string
}

// ValidateJSON checks a run-report JSON document against the embedded
// schema. An empty violation slice means the document conforms; a non-nil
// error means the check itself could not run.
func ValidateJSON(data []byte) ([]Violation, error) {
	schemaBytes, err := Schema()
	if err != nil {
		return nil, err
	}

	var doc any

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	err = dec.Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("parse report json: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("validate report: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		violations = append(violations, Violation{
			Field:       verr.Field(),
			Description: verr.Description(),
		})
	}

	return violations, nil
}

// ValidateFile runs ValidateJSON over the contents of path.
func ValidateFile(path string) ([]Violation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report file: %w", err)
	}

	return ValidateJSON(data)
}
