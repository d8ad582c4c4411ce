// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file implements the HCL front end for plan loading.
//
// Why is the query id a block label?
//
// The id is the one field every other part of a plan refers to, so it should
// read as the query's name rather than hide among its attributes. Making it
// the label, `query "3" { ... }`, puts it in the position HCL readers scan
// for, and it means a file simply cannot contain an id-less query: the parser
// rejects a `query` block without a label before we ever look at its body.
//
// Why evaluate attributes statically?
//
// A plan is data, not a program. Every attribute is evaluated with a nil
// EvalContext, so references to variables or other queries fail at load time
// with a pointed diagnostic instead of resolving to something surprising.
// Whatever a plan file means, it means it on its own.
package planfile

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/queryplango/internal/plan"
)

// hclPlanFile represents the top-level structure of a plan file for decoding.
type hclPlanFile struct {
	Queries []*hclQuery `hcl:"query,block"`
}

// hclQuery represents a single 'query' block for initial decoding.
type hclQuery struct {
	ID   string   `hcl:"id,label"`
	Body hcl.Body `hcl:",remain"`
}

// queryBodySchema defines the expected structure of a `query` block's body.
// Content() rejects anything outside it, so a typo like `depends = [...]`
// surfaces at load time rather than silently producing a dependency-free node.
var queryBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "text", Required: true},
		{Name: "kind"},
		{Name: "depends_on"},
		{Name: "answer"},
	},
}

// loadHCLFile parses a single HCL plan file and returns the nodes found in it.
func loadHCLFile(path string, parser *hclparse.Parser) ([]plan.Node, error) {
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, diags)
	}

	var parsedFile hclPlanFile
	diags = gohcl.DecodeBody(hclFile.Body, nil, &parsedFile)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode plan file %s: %w", path, diags)
	}

	nodes := make([]plan.Node, 0, len(parsedFile.Queries))
	for _, parsedQuery := range parsedFile.Queries {
		node, nodeDiags := newNodeFromHCL(parsedQuery)
		if nodeDiags.HasErrors() {
			return nil, fmt.Errorf("error parsing query in file %s: %w", path, nodeDiags)
		}
		nodes = append(nodes, node)
	}

	return nodes, nil
}

// newNodeFromHCL converts one decoded `query` block into a plan node.
func newNodeFromHCL(parsedQuery *hclQuery) (plan.Node, hcl.Diagnostics) {
	var node plan.Node
	var allDiags hcl.Diagnostics

	id, err := strconv.Atoi(parsedQuery.ID)
	if err != nil {
		rng := parsedQuery.Body.MissingItemRange()
		allDiags = append(allDiags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid query id",
			Detail:   fmt.Sprintf("The query label %q must be an integer id.", parsedQuery.ID),
			Subject:  &rng,
		})
		return node, allDiags
	}
	node.ID = id

	bodyContent, contentDiags := parsedQuery.Body.Content(queryBodySchema)
	allDiags = append(allDiags, contentDiags...)
	if contentDiags.HasErrors() {
		return node, allDiags
	}

	text, textDiags := stringAttr(bodyContent.Attributes, "text")
	allDiags = append(allDiags, textDiags...)
	node.Text = text

	kindRaw, kindDiags := stringAttr(bodyContent.Attributes, "kind")
	allDiags = append(allDiags, kindDiags...)
	if !kindDiags.HasErrors() {
		kind, kindErr := plan.ParseKind(kindRaw)
		if kindErr != nil {
			allDiags = append(allDiags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid query kind",
				Detail:   kindErr.Error(),
				Subject:  bodyContent.Attributes["kind"].Expr.Range().Ptr(),
			})
		} else {
			node.Kind = kind
		}
	}

	stub, stubDiags := stringAttr(bodyContent.Attributes, "answer")
	allDiags = append(allDiags, stubDiags...)
	node.Stub = stub

	deps, depDiags := parseDependsOn(bodyContent.Attributes)
	allDiags = append(allDiags, depDiags...)
	node.Dependencies = deps

	return node, allDiags
}

// stringAttr statically evaluates an optional string attribute. An absent
// attribute yields the empty string.
func stringAttr(attrs hcl.Attributes, name string) (string, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	attr, exists := attrs[name]
	if !exists {
		return "", diags
	}

	if len(attr.Expr.Variables()) != 0 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid plan expression",
			Detail:   fmt.Sprintf("The '%s' attribute must be a literal value; plan files cannot reference variables.", name),
			Subject:  attr.Expr.Range().Ptr(),
		})
		return "", diags
	}

	val, valDiags := attr.Expr.Value(nil)
	diags = append(diags, valDiags...)
	if valDiags.HasErrors() {
		return "", diags
	}

	converted, err := convert.Convert(val, cty.String)
	if err != nil || converted.IsNull() {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Invalid %s value", name),
			Detail:   fmt.Sprintf("The '%s' attribute must be a string.", name),
			Subject:  attr.Expr.Range().Ptr(),
		})
		return "", diags
	}

	return converted.AsString(), diags
}

// parseDependsOn evaluates the "depends_on" attribute into query ids. The
// attribute is optional; when present it must be a list literal whose
// elements are ids, written either as numbers or as digit strings.
func parseDependsOn(attrs hcl.Attributes) ([]int, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	attr, exists := attrs["depends_on"]
	if !exists {
		return nil, diags
	}
	expr := attr.Expr

	// The expression must be a tuple constructor, i.e. a list literal like `[...]`.
	if syntaxExpr, ok := expr.(hclsyntax.Expression); ok {
		if _, isTuple := syntaxExpr.(*hclsyntax.TupleConsExpr); !isTuple {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid depends_on value",
				Detail:   "The 'depends_on' attribute must be a list of query ids.",
				Subject:  expr.Range().Ptr(),
			})
			return nil, diags
		}
	}

	if len(expr.Variables()) != 0 {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid depends_on value",
			Detail:   "The 'depends_on' attribute must be a literal list; plan files cannot reference variables.",
			Subject:  expr.Range().Ptr(),
		})
		return nil, diags
	}

	val, valDiags := expr.Value(nil)
	diags = append(diags, valDiags...)
	if valDiags.HasErrors() {
		return nil, diags
	}

	var deps []int
	it := val.ElementIterator()
	for it.Next() {
		_, elem := it.Element()

		converted, err := convert.Convert(elem, cty.Number)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid depends_on value",
				Detail:   "Each depends_on element must be a query id.",
				Subject:  expr.Range().Ptr(),
			})
			return nil, diags
		}

		var id int
		if err := gocty.FromCtyValue(converted, &id); err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid depends_on value",
				Detail:   "Each depends_on element must be a whole-number query id.",
				Subject:  expr.Range().Ptr(),
			})
			return nil, diags
		}
		deps = append(deps, id)
	}

	return deps, diags
}
