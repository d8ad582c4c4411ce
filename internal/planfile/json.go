// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file implements the JSON front end for plan loading.
//
// Why validate against a JSON Schema before decoding?
//
// encoding/json is forgiving by design: unknown fields are dropped and type
// mismatches surface as vague mid-decode errors. JSON plans come from other
// programs, and when a generator has a bug the author needs to hear exactly
// which part of the document is wrong. Validating the raw document against
// the schema first produces path-addressed errors, and it means the decode
// into Go structs below only ever sees documents of the right shape.
package planfile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/vk/queryplango/internal/plan"
)

// planSchema is the JSON Schema every .json plan file must satisfy. The
// `kind` field is deliberately a free string here; its allowed spellings are
// the plan package's business, not the document shape's.
const planSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "Query plan",
  "type": "object",
  "required": ["queries"],
  "additionalProperties": false,
  "properties": {
    "queries": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "text"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "integer"},
          "text": {"type": "string", "minLength": 1},
          "kind": {"type": "string"},
          "depends_on": {"type": "array", "items": {"type": "integer"}},
          "answer": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// planFileSchema compiles the embedded schema once per process.
func planFileSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("plan.schema.json", strings.NewReader(planSchema)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile("plan.schema.json")
	})
	return schema, schemaErr
}

// jsonPlanFile mirrors the schema's top-level document.
type jsonPlanFile struct {
	Queries []jsonQuery `json:"queries"`
}

// jsonQuery represents a single entry of the "queries" array.
type jsonQuery struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	Kind      string `json:"kind"`
	DependsOn []int  `json:"depends_on"`
	Answer    string `json:"answer"`
}

// loadJSONFile parses a single JSON plan file and returns the nodes found in it.
func loadJSONFile(path string) ([]plan.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}

	fileSchema, err := planFileSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile plan schema: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}
	if err := fileSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("plan file %s is not a valid plan: %w", path, err)
	}

	var parsedFile jsonPlanFile
	if err := json.Unmarshal(data, &parsedFile); err != nil {
		return nil, fmt.Errorf("failed to decode plan file %s: %w", path, err)
	}

	nodes := make([]plan.Node, 0, len(parsedFile.Queries))
	for _, q := range parsedFile.Queries {
		kind, err := plan.ParseKind(q.Kind)
		if err != nil {
			return nil, fmt.Errorf("error parsing query %d in file %s: %w", q.ID, path, err)
		}
		nodes = append(nodes, plan.Node{
			ID:           q.ID,
			Text:         q.Text,
			Dependencies: q.DependsOn,
			Kind:         kind,
			Stub:         q.Answer,
		})
	}

	return nodes, nil
}
