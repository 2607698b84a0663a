// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// Types that subgraphs declare for the federation runtime. They never appear
// in the supergraph.
var federationTypeNames = map[string]bool{
	"_Any":      true,
	"_Entity":   true,
	"_Service":  true,
	"FieldSet":  true,
	"_FieldSet": true,
}

// Fields that subgraphs add to their query root for the federation runtime.
var federationQueryFields = map[string]bool{
	"_service":  true,
	"_entities": true,
}

// Directives that survive into the API schema.
var builtinDirectiveNames = map[string]bool{
	"deprecated":  true,
	"specifiedBy": true,
}

var canonicalRootNames = map[ast.Operation]string{
	ast.Query:        "Query",
	ast.Mutation:     "Mutation",
	ast.Subscription: "Subscription",
}

const federationV2LinkPrefix = "https://specs.apollo.dev/federation/v2"

type contribution struct {
	def         *ast.Definition
	isExtension bool
}

// Reduces a subgraph document to the type definitions it contributes to the
// supergraph. The result contains copies, the original document is not
// modified.
func normalizeSubgraph(doc *ast.SchemaDocument) []contribution {
	if doc == nil {
		return nil
	}

	renames := make(map[string]string)
	for _, list := range []ast.SchemaDefinitionList{doc.Schema, doc.SchemaExtension} {
		for _, schemaDef := range list {
			for _, opType := range schemaDef.OperationTypes {
				canonical := canonicalRootNames[opType.Operation]
				if canonical != "" && opType.Type != canonical {
					renames[opType.Type] = canonical
				}
			}
		}
	}

	var result []contribution
	add := func(defs ast.DefinitionList, isExtension bool) {
		for _, def := range defs {
			if isFederationTypeName(def.Name) {
				continue
			}
			result = append(result, contribution{
				def:         copyDefinition(def, renames),
				isExtension: isExtension || hasDirective(def.Directives, "extends"),
			})
		}
	}
	add(doc.Definitions, false)
	add(doc.Extensions, true)
	return result
}

// Reports whether the subgraph opted into federation v2 via @link.
func isFederationV2(doc *ast.SchemaDocument) bool {
	if doc == nil {
		return false
	}
	for _, list := range []ast.SchemaDefinitionList{doc.Schema, doc.SchemaExtension} {
		for _, schemaDef := range list {
			for _, d := range schemaDef.Directives {
				if d.Name != "link" {
					continue
				}
				url, ok := stringArgument(d, "url")
				if ok && strings.HasPrefix(url, federationV2LinkPrefix) {
					return true
				}
			}
		}
	}
	return false
}

func isFederationTypeName(name string) bool {
	return federationTypeNames[name] ||
		strings.HasPrefix(name, "link__") ||
		strings.HasPrefix(name, "federation__") ||
		strings.HasPrefix(name, "join__")
}

func copyDefinition(def *ast.Definition, renames map[string]string) *ast.Definition {
	result := *def
	result.Name = renamed(def.Name, renames)
	result.Interfaces = renamedAll(def.Interfaces, renames)
	result.Types = renamedAll(def.Types, renames)

	result.Fields = make(ast.FieldList, 0, len(def.Fields))
	for _, field := range def.Fields {
		if result.Name == "Query" && federationQueryFields[field.Name] {
			continue
		}
		fieldCopy := *field
		fieldCopy.Type = renamedType(field.Type, renames)
		fieldCopy.Arguments = make(ast.ArgumentDefinitionList, len(field.Arguments))
		for idx, arg := range field.Arguments {
			argCopy := *arg
			argCopy.Type = renamedType(arg.Type, renames)
			fieldCopy.Arguments[idx] = &argCopy
		}
		result.Fields = append(result.Fields, &fieldCopy)
	}
	return &result
}

func renamed(name string, renames map[string]string) string {
	if newName, ok := renames[name]; ok {
		return newName
	}
	return name
}

func renamedAll(names []string, renames map[string]string) []string {
	if names == nil {
		return nil
	}
	result := make([]string, len(names))
	for idx, name := range names {
		result[idx] = renamed(name, renames)
	}
	return result
}

func renamedType(t *ast.Type, renames map[string]string) *ast.Type {
	if t == nil {
		return nil
	}
	result := *t
	if t.Elem != nil {
		result.Elem = renamedType(t.Elem, renames)
	} else {
		result.NamedType = renamed(t.NamedType, renames)
	}
	return &result
}

////////////////////////////////////////////////////////////////////////////////
// directive helpers

// Strips the namespace that federation v2 subgraphs may use for federation
// directives, e.g. "@federation__key" instead of "@key".
func directiveName(d *ast.Directive) string {
	return strings.TrimPrefix(d.Name, "federation__")
}

func hasDirective(list ast.DirectiveList, name string) bool {
	return findDirective(list, name) != nil
}

func findDirective(list ast.DirectiveList, name string) *ast.Directive {
	for _, d := range list {
		if directiveName(d) == name {
			return d
		}
	}
	return nil
}

func findDirectives(list ast.DirectiveList, name string) []*ast.Directive {
	var result []*ast.Directive
	for _, d := range list {
		if directiveName(d) == name {
			result = append(result, d)
		}
	}
	return result
}

func stringArgument(d *ast.Directive, name string) (string, bool) {
	if d == nil {
		return "", false
	}
	arg := d.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return "", false
	}
	switch arg.Value.Kind {
	case ast.StringValue, ast.BlockValue:
		return arg.Value.Raw, true
	default:
		return "", false
	}
}

// Drops all directive usages except for those that GraphQL itself defines.
func builtinDirectivesOnly(list ast.DirectiveList) ast.DirectiveList {
	var result ast.DirectiveList
	for _, d := range list {
		if builtinDirectiveNames[d.Name] {
			result = append(result, d)
		}
	}
	return result
}

// Returns the names of the top-level fields in a field set like "id
// organization { id }", which would be ["id", "organization"].
func topLevelFields(fieldSet string) []string {
	var (
		result []string
		depth  int
	)
	for idx := 0; idx < len(fieldSet); {
		c := fieldSet[idx]
		switch {
		case c == '{':
			depth++
			idx++
		case c == '}':
			depth--
			idx++
		case isNameStart(c):
			start := idx
			for idx < len(fieldSet) && isNameContinue(fieldSet[idx]) {
				idx++
			}
			if depth == 0 {
				result = append(result, fieldSet[start:idx])
			}
		default:
			idx++
		}
	}
	return result
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameContinue(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}
