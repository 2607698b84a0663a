// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

const (
	linkSpecURL         = "https://specs.apollo.dev/link/v1.0"
	joinSpecURL         = "https://specs.apollo.dev/join/v0.3"
	inaccessibleSpecURL = "https://specs.apollo.dev/inaccessible/v0.2"
)

// Definitions from the link and join specifications that every supergraph
// carries.
const joinDefinitions = `
directive @join__enumValue(graph: join__Graph!) repeatable on ENUM_VALUE

directive @join__field(graph: join__Graph, requires: join__FieldSet, provides: join__FieldSet, type: String, external: Boolean, override: String, usedOverridden: Boolean) repeatable on FIELD_DEFINITION | INPUT_FIELD_DEFINITION

directive @join__graph(name: String!, url: String!) on ENUM_VALUE

directive @join__implements(graph: join__Graph!, interface: String!) repeatable on OBJECT | INTERFACE

directive @join__type(graph: join__Graph!, key: join__FieldSet, extension: Boolean! = false, resolvable: Boolean! = true, isInterfaceObject: Boolean! = false) repeatable on OBJECT | INTERFACE | UNION | ENUM | INPUT_OBJECT | SCALAR

directive @join__unionMember(graph: join__Graph!, member: String!) repeatable on UNION

directive @link(url: String, as: String, for: link__Purpose, import: [link__Import]) repeatable on SCHEMA

scalar join__FieldSet

scalar link__Import

enum link__Purpose {
	"""
	` + "`SECURITY`" + ` features provide metadata necessary to securely resolve fields.
	"""
	SECURITY

	"""
	` + "`EXECUTION`" + ` features provide metadata necessary for operation execution.
	"""
	EXECUTION
}
`

const inaccessibleDefinition = `
directive @inaccessible on FIELD_DEFINITION | OBJECT | INTERFACE | UNION | ARGUMENT_DEFINITION | SCALAR | ENUM | ENUM_VALUE | INPUT_OBJECT | INPUT_FIELD_DEFINITION
`

// Position for AST nodes that do not originate from any subgraph.
var blankPos = &ast.Position{Src: &ast.Source{Name: "supergraph"}}

func printDocument(doc *ast.SchemaDocument) string {
	var buf strings.Builder
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String()
}

////////////////////////////////////////////////////////////////////////////////
// API schema

// Renders the client-facing part of the merged schema. The result is not
// validated yet.
func (m *merger) buildAPISchemaDocument() *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}
	for _, mt := range m.types {
		if mt.inaccessible {
			continue
		}
		def := mt.newDefinition()
		def.Directives = mt.directives
		def.Interfaces = m.filterAccessible(def.Interfaces)
		def.Types = m.filterAccessible(def.Types)
		for _, mf := range mt.fields {
			if !mf.inaccessible {
				def.Fields = append(def.Fields, mf.def)
			}
		}
		for _, mev := range mt.enumValues {
			if !mev.inaccessible {
				def.EnumValues = append(def.EnumValues, mev.def)
			}
		}
		doc.Definitions = append(doc.Definitions, def)
	}
	return doc
}

func (mt *mergedType) newDefinition() *ast.Definition {
	def := &ast.Definition{
		Kind:        mt.kind,
		Name:        mt.name,
		Description: mt.description,
		Position:    mt.position,
	}
	switch mt.kind {
	case ast.Object, ast.Interface:
		def.Interfaces = mt.interfaces
	case ast.Union:
		def.Types = mt.members
	}
	return def
}

func (m *merger) filterAccessible(names []string) []string {
	var result []string
	for _, name := range names {
		if m.isAccessibleType(name) {
			result = append(result, name)
		}
	}
	return result
}

////////////////////////////////////////////////////////////////////////////////
// supergraph

func (m *merger) usesInaccessible() bool {
	for _, mt := range m.types {
		if mt.inaccessible {
			return true
		}
		for _, mf := range mt.fields {
			if mf.inaccessible {
				return true
			}
		}
		for _, mev := range mt.enumValues {
			if mev.inaccessible {
				return true
			}
		}
	}
	return false
}

// Renders the supergraph SDL. The output only depends on the order of the
// subgraphs and of the definitions within them.
func (m *merger) buildSupergraph() string {
	withInaccessible := m.usesInaccessible()

	definitions := joinDefinitions
	if withInaccessible {
		definitions = inaccessibleDefinition + definitions
	}
	doc, err := parser.ParseSchema(&ast.Source{Name: "supergraph", Input: definitions})
	if err != nil {
		panic(fmt.Sprintf("cannot parse supergraph definitions: %s", err.Error()))
	}

	doc.Definitions = append(doc.Definitions, m.buildGraphEnum())
	for _, mt := range m.types {
		doc.Definitions = append(doc.Definitions, m.buildSupergraphType(mt))
	}

	// the schema definition is rendered manually since the formatter cannot
	// put directives on it
	var buf strings.Builder
	buf.WriteString("schema\n")
	fmt.Fprintf(&buf, "\t@link(url: %s)\n", strconv.Quote(linkSpecURL))
	fmt.Fprintf(&buf, "\t@link(url: %s, for: EXECUTION)\n", strconv.Quote(joinSpecURL))
	if withInaccessible {
		fmt.Fprintf(&buf, "\t@link(url: %s, for: SECURITY)\n", strconv.Quote(inaccessibleSpecURL))
	}
	buf.WriteString("{\n")
	for _, op := range []ast.Operation{ast.Query, ast.Mutation, ast.Subscription} {
		name := canonicalRootNames[op]
		if mt := m.typesByName[name]; mt != nil && mt.kind == ast.Object {
			fmt.Fprintf(&buf, "\t%s: %s\n", op, name)
		}
	}
	buf.WriteString("}\n\n")
	buf.WriteString(printDocument(doc))
	return buf.String()
}

func (m *merger) buildGraphEnum() *ast.Definition {
	def := &ast.Definition{
		Kind:     ast.Enum,
		Name:     "join__Graph",
		Position: blankPos,
	}
	for _, g := range m.graphs {
		def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
			Name:     g.enumValue,
			Position: blankPos,
			Directives: ast.DirectiveList{
				newDirective("join__graph",
					newArgument("name", stringValue(g.name)),
					newArgument("url", stringValue(g.url)),
				),
			},
		})
	}
	return def
}

func (m *merger) buildSupergraphType(mt *mergedType) *ast.Definition {
	def := mt.newDefinition()

	for _, owner := range mt.owners {
		graphArg := newArgument("graph", enumValue(owner.graph.enumValue))
		if len(owner.keys) == 0 {
			args := ast.ArgumentList{graphArg}
			if owner.isExtension {
				args = append(args, newArgument("extension", booleanValue(true)))
			}
			def.Directives = append(def.Directives, newDirective("join__type", args...))
			continue
		}
		for _, key := range owner.keys {
			args := ast.ArgumentList{graphArg, newArgument("key", stringValue(key))}
			if owner.isExtension {
				args = append(args, newArgument("extension", booleanValue(true)))
			}
			def.Directives = append(def.Directives, newDirective("join__type", args...))
		}
	}
	for _, owner := range mt.owners {
		for _, iface := range owner.interfaces {
			def.Directives = append(def.Directives, newDirective("join__implements",
				newArgument("graph", enumValue(owner.graph.enumValue)),
				newArgument("interface", stringValue(iface)),
			))
		}
		for _, member := range owner.members {
			def.Directives = append(def.Directives, newDirective("join__unionMember",
				newArgument("graph", enumValue(owner.graph.enumValue)),
				newArgument("member", stringValue(member)),
			))
		}
	}
	if mt.inaccessible {
		def.Directives = append(def.Directives, newDirective("inaccessible"))
	}
	def.Directives = append(def.Directives, mt.directives...)

	for _, mf := range mt.fields {
		field := *mf.def
		field.Directives = append(m.joinFieldDirectives(mt, mf), mf.def.Directives...)
		if mf.inaccessible {
			field.Directives = append(field.Directives, newDirective("inaccessible"))
		}
		def.Fields = append(def.Fields, &field)
	}

	for _, mev := range mt.enumValues {
		value := *mev.def
		value.Directives = nil
		for _, g := range mev.graphs {
			value.Directives = append(value.Directives,
				newDirective("join__enumValue", newArgument("graph", enumValue(g.enumValue))))
		}
		if mev.inaccessible {
			value.Directives = append(value.Directives, newDirective("inaccessible"))
		}
		value.Directives = append(value.Directives, mev.def.Directives...)
		def.EnumValues = append(def.EnumValues, &value)
	}

	return def
}

// A field needs @join__field annotations unless it is resolved in the same way
// by every subgraph that defines its parent type.
func (m *merger) joinFieldDirectives(mt *mergedType, mf *mergedField) ast.DirectiveList {
	needed := len(mf.owners) != len(mt.owners)
	for _, fo := range mf.owners {
		if fo.external || fo.requires != "" || fo.provides != "" || fo.override != "" ||
			fo.def.Type.String() != mf.def.Type.String() {
			needed = true
		}
	}
	if !needed {
		return nil
	}

	var result ast.DirectiveList
	for _, fo := range mf.owners {
		args := ast.ArgumentList{newArgument("graph", enumValue(fo.graph.enumValue))}
		if fo.requires != "" {
			args = append(args, newArgument("requires", stringValue(fo.requires)))
		}
		if fo.provides != "" {
			args = append(args, newArgument("provides", stringValue(fo.provides)))
		}
		if fo.def.Type.String() != mf.def.Type.String() {
			args = append(args, newArgument("type", stringValue(fo.def.Type.String())))
		}
		if fo.external {
			args = append(args, newArgument("external", booleanValue(true)))
		}
		if fo.override != "" {
			args = append(args, newArgument("override", stringValue(fo.override)))
		}
		result = append(result, newDirective("join__field", args...))
	}
	return result
}

////////////////////////////////////////////////////////////////////////////////
// AST constructors

func newDirective(name string, args ...*ast.Argument) *ast.Directive {
	return &ast.Directive{Name: name, Arguments: args, Position: blankPos}
}

func newArgument(name string, value *ast.Value) *ast.Argument {
	return &ast.Argument{Name: name, Value: value, Position: blankPos}
}

func stringValue(s string) *ast.Value {
	return &ast.Value{Kind: ast.StringValue, Raw: s, Position: blankPos}
}

func enumValue(s string) *ast.Value {
	return &ast.Value{Kind: ast.EnumValue, Raw: s, Position: blankPos}
}

func booleanValue(b bool) *ast.Value {
	return &ast.Value{Kind: ast.BooleanValue, Raw: strconv.FormatBool(b), Position: blankPos}
}
