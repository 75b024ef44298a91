package analytics

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const analysisSchemaName = "analysis_result.schema.json"

//go:embed fixtures/analysis_result.schema.json
var analysisSchemaJSON []byte

// PayloadValidator checks webhook payloads against the AnalysisResult schema.
type PayloadValidator struct {
	schema *jsonschema.Schema
}

// NewPayloadValidator compiles the embedded schema.
func NewPayloadValidator() (*PayloadValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(analysisSchemaName, bytes.NewReader(analysisSchemaJSON)); err != nil {
		return nil, fmt.Errorf("analytics: load schema: %w", err)
	}
	schema, err := compiler.Compile(analysisSchemaName)
	if err != nil {
		return nil, fmt.Errorf("analytics: compile schema: %w", err)
	}
	return &PayloadValidator{schema: schema}, nil
}

// Validate checks a raw JSON document.
func (v *PayloadValidator) Validate(body []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("payload failed schema validation: %w", err)
	}
	return nil
}
