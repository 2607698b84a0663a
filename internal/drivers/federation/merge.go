// SPDX-FileCopyrightText: 2026 SAP SE or an SAP affiliate company
// SPDX-License-Identifier: Apache-2.0

package federation

import (
	"slices"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/sapcc/compositor/internal/compositor"
)

type graph struct {
	name      string
	url       string
	enumValue string // the name of this graph in the join__Graph enum
	isFed2    bool
}

func (g *graph) federationVersion() int {
	if g.isFed2 {
		return 2
	}
	return 1
}

type mergedType struct {
	name         string
	kind         ast.DefinitionKind
	description  string
	position     *ast.Position
	directives   ast.DirectiveList // only those that go into the API schema
	inaccessible bool

	owners       []*typeOwner
	interfaces   []string
	members      []string
	enumValues   []*mergedEnumValue
	fields       []*mergedField
	fieldsByName map[string]*mergedField
}

// One subgraph's view of a mergedType.
type typeOwner struct {
	graph       *graph
	isExtension bool
	shareable   bool
	keys        []string
	interfaces  []string
	members     []string
}

type mergedField struct {
	// Type is the merged type, directives are only those for the API schema
	def          *ast.FieldDefinition
	owners       []*fieldOwner
	argOrigins   map[string]*graph
	inaccessible bool
	mismatched   bool
}

// One subgraph's view of a mergedField.
type fieldOwner struct {
	graph     *graph
	def       *ast.FieldDefinition
	external  bool
	shareable bool
	requires  string
	provides  string
	override  string
}

type mergedEnumValue struct {
	def          *ast.EnumValueDefinition
	graphs       []*graph
	inaccessible bool
}

type merger struct {
	graphs      []*graph
	enumValues  map[string]bool
	types       []*mergedType
	typesByName map[string]*mergedType
	errs        gqlerror.List
}

func newMerger() *merger {
	return &merger{
		enumValues:  make(map[string]bool),
		typesByName: make(map[string]*mergedType),
	}
}

func (m *merger) addGraph(sg compositor.Subgraph) *graph {
	base := graphEnumValue(sg.Name)
	value := base
	for suffix := 1; m.enumValues[value]; suffix++ {
		value = base + "_" + strconv.Itoa(suffix)
	}
	m.enumValues[value] = true

	g := &graph{
		name:      sg.Name,
		url:       sg.URL,
		enumValue: value,
		isFed2:    isFederationV2(sg.TypeDefs),
	}
	m.graphs = append(m.graphs, g)
	return g
}

// Converts a subgraph name into a valid GraphQL enum value, e.g.
// "product-catalog" into "PRODUCT_CATALOG".
func graphEnumValue(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	result := b.String()
	if result == "" || (result[0] >= '0' && result[0] <= '9') {
		result = "_" + result
	}
	return result
}

func (m *merger) addDefinition(g *graph, def *ast.Definition, isExtension bool) {
	mt := m.typesByName[def.Name]
	if mt == nil {
		mt = &mergedType{
			name:         def.Name,
			kind:         def.Kind,
			position:     def.Position,
			fieldsByName: make(map[string]*mergedField),
		}
		m.types = append(m.types, mt)
		m.typesByName[def.Name] = mt
	} else if mt.kind != def.Kind {
		m.errs = append(m.errs, compositionError("TYPE_KIND_MISMATCH",
			`Type "%s" has mismatched kind: it is defined as %s in %s but %s in %s`,
			def.Name, describeKind(mt.kind), describeGraphs(mt.graphNames()),
			describeKind(def.Kind), describeGraphs([]string{g.name}),
		))
		return
	}

	if mt.description == "" {
		mt.description = def.Description
	}
	for _, d := range builtinDirectivesOnly(def.Directives) {
		if mt.directives.ForName(d.Name) == nil {
			mt.directives = append(mt.directives, d)
		}
	}
	if hasDirective(def.Directives, "inaccessible") {
		mt.inaccessible = true
	}

	owner := mt.ownerFor(g)
	if owner == nil {
		owner = &typeOwner{graph: g, isExtension: isExtension}
		mt.owners = append(mt.owners, owner)
	} else if !isExtension {
		owner.isExtension = false
	}
	if hasDirective(def.Directives, "shareable") {
		owner.shareable = true
	}
	for _, key := range findDirectives(def.Directives, "key") {
		fieldSet, ok := stringArgument(key, "fields")
		if ok && !slices.Contains(owner.keys, fieldSet) {
			owner.keys = append(owner.keys, fieldSet)
		}
	}
	owner.interfaces = appendUnique(owner.interfaces, def.Interfaces...)
	owner.members = appendUnique(owner.members, def.Types...)
	mt.interfaces = appendUnique(mt.interfaces, def.Interfaces...)
	mt.members = appendUnique(mt.members, def.Types...)

	for _, value := range def.EnumValues {
		mt.addEnumValue(g, value)
	}
	for _, field := range def.Fields {
		m.addField(mt, g, field)
	}
}

func (mt *mergedType) ownerFor(g *graph) *typeOwner {
	for _, owner := range mt.owners {
		if owner.graph == g {
			return owner
		}
	}
	return nil
}

func (mt *mergedType) graphNames() []string {
	names := make([]string, len(mt.owners))
	for idx, owner := range mt.owners {
		names[idx] = owner.graph.name
	}
	return names
}

func (mt *mergedType) addEnumValue(g *graph, value *ast.EnumValueDefinition) {
	var mev *mergedEnumValue
	for _, existing := range mt.enumValues {
		if existing.def.Name == value.Name {
			mev = existing
			break
		}
	}
	if mev == nil {
		valueCopy := *value
		valueCopy.Directives = builtinDirectivesOnly(value.Directives)
		mev = &mergedEnumValue{def: &valueCopy}
		mt.enumValues = append(mt.enumValues, mev)
	}
	if !slices.Contains(mev.graphs, g) {
		mev.graphs = append(mev.graphs, g)
	}
	if hasDirective(value.Directives, "inaccessible") {
		mev.inaccessible = true
	}
}

func (m *merger) addField(mt *mergedType, g *graph, field *ast.FieldDefinition) {
	fo := &fieldOwner{
		graph:     g,
		def:       field,
		external:  hasDirective(field.Directives, "external"),
		shareable: hasDirective(field.Directives, "shareable") || !g.isFed2,
	}
	fo.requires, _ = stringArgument(findDirective(field.Directives, "requires"), "fields")
	fo.provides, _ = stringArgument(findDirective(field.Directives, "provides"), "fields")
	fo.override, _ = stringArgument(findDirective(field.Directives, "override"), "from")

	mf := mt.fieldsByName[field.Name]
	if mf == nil {
		defCopy := *field
		defCopy.Directives = builtinDirectivesOnly(field.Directives)
		defCopy.Arguments = nil
		mf = &mergedField{def: &defCopy, argOrigins: make(map[string]*graph)}
		mt.fields = append(mt.fields, mf)
		mt.fieldsByName[field.Name] = mf
	} else {
		if mf.ownerFor(g) != nil {
			// within one subgraph, the first declaration wins
			return
		}
		m.mergeFieldType(mt, mf, fo)
		if mf.def.Description == "" {
			mf.def.Description = field.Description
		}
		for _, d := range builtinDirectivesOnly(field.Directives) {
			if mf.def.Directives.ForName(d.Name) == nil {
				mf.def.Directives = append(mf.def.Directives, d)
			}
		}
	}
	m.mergeArguments(mt, mf, fo)

	if hasDirective(field.Directives, "inaccessible") {
		mf.inaccessible = true
	}
	mf.owners = append(mf.owners, fo)
}

func (mf *mergedField) ownerFor(g *graph) *fieldOwner {
	for _, fo := range mf.owners {
		if fo.graph == g {
			return fo
		}
	}
	return nil
}

func (mf *mergedField) graphNames() []string {
	names := make([]string, len(mf.owners))
	for idx, fo := range mf.owners {
		names[idx] = fo.graph.name
	}
	return names
}

// Output fields may differ in nullability between subgraphs. The merged field
// is then nullable. Input fields must agree exactly.
func (m *merger) mergeFieldType(mt *mergedType, mf *mergedField, fo *fieldOwner) {
	if mf.mismatched {
		return
	}
	first := mf.owners[0]
	var compatible bool
	if mt.kind == ast.InputObject {
		compatible = first.def.Type.String() == fo.def.Type.String()
	} else {
		compatible = sameShape(mf.def.Type, fo.def.Type)
	}
	if !compatible {
		mf.mismatched = true
		m.errs = append(m.errs, compositionError("FIELD_TYPE_MISMATCH",
			`Type of field "%s.%s" is incompatible across subgraphs: it has type "%s" in %s but type "%s" in %s`,
			mt.name, mf.def.Name,
			first.def.Type.String(), describeGraphs([]string{first.graph.name}),
			fo.def.Type.String(), describeGraphs([]string{fo.graph.name}),
		))
		return
	}
	if mt.kind != ast.InputObject {
		mf.def.Type = mergeNullability(mf.def.Type, fo.def.Type)
	}
}

func (m *merger) mergeArguments(mt *mergedType, mf *mergedField, fo *fieldOwner) {
	for _, arg := range fo.def.Arguments {
		existing := mf.def.Arguments.ForName(arg.Name)
		if existing == nil {
			argCopy := *arg
			argCopy.Directives = builtinDirectivesOnly(arg.Directives)
			mf.def.Arguments = append(mf.def.Arguments, &argCopy)
			mf.argOrigins[arg.Name] = fo.graph
			continue
		}
		if existing.Type.String() != arg.Type.String() {
			m.errs = append(m.errs, compositionError("FIELD_ARGUMENT_TYPE_MISMATCH",
				`Type of argument "%s.%s(%s:)" is incompatible across subgraphs: it has type "%s" in %s but type "%s" in %s`,
				mt.name, mf.def.Name, arg.Name,
				existing.Type.String(), describeGraphs([]string{mf.argOrigins[arg.Name].name}),
				arg.Type.String(), describeGraphs([]string{fo.graph.name}),
			))
		}
	}
}

// Reports whether both types are equal when ignoring nullability.
func sameShape(a, b *ast.Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if (a.Elem == nil) != (b.Elem == nil) {
		return false
	}
	if a.Elem != nil {
		return sameShape(a.Elem, b.Elem)
	}
	return a.NamedType == b.NamedType
}

// Returns a type that is non-null only where both inputs are. Both inputs
// must have the same shape.
func mergeNullability(a, b *ast.Type) *ast.Type {
	result := *a
	result.NonNull = a.NonNull && b.NonNull
	if a.Elem != nil {
		result.Elem = mergeNullability(a.Elem, b.Elem)
	}
	return &result
}

////////////////////////////////////////////////////////////////////////////////
// checks on the fully merged schema

func (m *merger) checkFields() {
	for _, mt := range m.types {
		if mt.kind != ast.Object {
			continue
		}
		for _, mf := range mt.fields {
			m.checkFieldResolution(mt, mf)
		}
	}
}

// Checks that the field is resolved by exactly one subgraph, or that all
// resolving subgraphs agree to share it.
func (m *merger) checkFieldResolution(mt *mergedType, mf *mergedField) {
	overridden := make(map[string]bool)
	for _, fo := range mf.owners {
		if fo.override != "" && !fo.external {
			overridden[fo.override] = true
		}
	}

	var resolving []*fieldOwner
	for _, fo := range mf.owners {
		if !fo.external && !overridden[fo.graph.name] {
			resolving = append(resolving, fo)
		}
	}

	if len(resolving) == 0 {
		m.errs = append(m.errs, compositionError("EXTERNAL_MISSING_ON_BASE",
			`Field "%s.%s" is marked @external on all the subgraphs in which it is listed (%s).`,
			mt.name, mf.def.Name, describeGraphs(mf.graphNames()),
		))
		return
	}
	if len(resolving) < 2 {
		return
	}

	var (
		resolvingNames    []string
		nonShareableNames []string
	)
	for _, fo := range resolving {
		resolvingNames = append(resolvingNames, fo.graph.name)
		if !mt.isShareableIn(mf, fo) {
			nonShareableNames = append(nonShareableNames, fo.graph.name)
		}
	}
	if len(nonShareableNames) == 0 {
		return
	}
	where := "all of them"
	if len(nonShareableNames) < len(resolvingNames) {
		where = describeGraphs(nonShareableNames)
	}
	m.errs = append(m.errs, compositionError("INVALID_FIELD_SHARING",
		`Non-shareable field "%s.%s" is resolved from multiple subgraphs: it is resolved from %s and defined as non-shareable in %s`,
		mt.name, mf.def.Name, describeGraphs(resolvingNames), where,
	))
}

func (mt *mergedType) isShareableIn(mf *mergedField, fo *fieldOwner) bool {
	if fo.shareable {
		return true
	}
	owner := mt.ownerFor(fo.graph)
	if owner == nil {
		return false
	}
	if owner.shareable {
		return true
	}
	for _, key := range owner.keys {
		if slices.Contains(topLevelFields(key), mf.def.Name) {
			return true
		}
	}
	return false
}

func (m *merger) checkQueryRoot() {
	query := m.typesByName["Query"]
	if query != nil && query.kind == ast.Object {
		for _, mf := range query.fields {
			if !mf.inaccessible {
				return
			}
		}
	}
	m.errs = append(m.errs, compositionError("NO_QUERIES",
		"No queries found in any subgraph: a supergraph must have a query root type."))
}

func (m *merger) isAccessibleType(name string) bool {
	mt := m.typesByName[name]
	return mt != nil && !mt.inaccessible
}

func appendUnique(list []string, values ...string) []string {
	for _, value := range values {
		if !slices.Contains(list, value) {
			list = append(list, value)
		}
	}
	return list
}
