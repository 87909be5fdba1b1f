// Package schemadoc implements the Schema Parser (spec §4.3): it walks a
// schema document, compiling every embedded `$evaluation`, validation
// `rules` entry, and `dependents` declaration through package expr, and
// builds the read and write dependency graphs the topological scheduler and
// the orchestrator's selective re-evaluation rely on. Grounded on the
// teacher's schema.go field catalogue (Properties, Items, Required, rules-
// like keyword fields) and struct_tags.go's recursive tree-walking style,
// generalized from "validation keywords" to "evaluation + rule + dependents"
// node kinds.
package schemadoc

import (
	"fmt"

	"github.com/kaptinlin/formlogic/expr"
	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/path"
	"github.com/kaptinlin/formlogic/scheduler"
)

// EvaluationNode is one schema path's compiled `$evaluation`.
type EvaluationNode struct {
	Path     path.Path
	Compiled expr.Compiled
}

// RuleDecl is one compiled validation rule attached to a schema path.
type RuleDecl struct {
	Path     path.Path
	Kind     string
	Compiled expr.Compiled
	Message  string
}

// DependentAction is one entry of a node's `dependents` list: either a
// value-write ("value") or a clear ("clear"), optionally gated by a compiled
// expression for conditional clears.
type DependentAction struct {
	Source   path.Path
	Target   path.Path
	Kind     string // "value" or "clear"
	Compiled expr.Compiled
	HasGate  bool
}

const (
	ActionValue = "value"
	ActionClear = "clear"
)

// ParsedSchema is the immutable result of parsing a schema document (spec
// §3 "Parsed Schema"): shareable across evaluator instances and threads
// once constructed.
type ParsedSchema struct {
	Raw    jsonvalue.Value
	Table  *expr.Table
	Params jsonvalue.Value
	Layout jsonvalue.Value

	Evaluations map[string]EvaluationNode
	EvalOrder   []string
	Rules       []RuleDecl
	Dependents  map[string][]DependentAction

	ReadGraph  *scheduler.Graph
	WriteGraph *scheduler.Graph
	Batches    [][]string

	Subforms []path.Path
}

// Parse walks raw and returns its ParsedSchema, or an error wrapping
// ErrInvalidSchema, an *expr compilation error, or a *scheduler.CycleError
// (on a read-graph cycle — callers translate this to CyclicReadDependency,
// spec §7).
func Parse(raw jsonvalue.Value) (*ParsedSchema, error) {
	if !raw.IsObject() {
		return nil, fmt.Errorf("%w: schema root must be an object, got %s", ErrInvalidSchema, raw.Kind())
	}

	ps := &ParsedSchema{
		Raw:         raw,
		Table:       expr.NewTable(),
		Params:      jsonvalue.Null(),
		Layout:      jsonvalue.Null(),
		Evaluations: make(map[string]EvaluationNode),
		Dependents:  make(map[string][]DependentAction),
		ReadGraph:   scheduler.New(),
		WriteGraph:  scheduler.New(),
	}

	obj := raw.AsObject()
	if v, ok := obj.Get("$params"); ok {
		ps.Params = v
	}
	if v, ok := obj.Get("layout"); ok {
		ps.Layout = v
	}

	if err := ps.walk(raw, path.Root()); err != nil {
		return nil, err
	}

	// Only evaluated paths are scheduled: a read of a plain data field is not
	// an edge of the read graph.
	readGraph := scheduler.New()
	for _, key := range ps.EvalOrder {
		readGraph.AddNode(key)
		for _, dep := range ps.ReadGraph.Dependencies(key) {
			if _, evaluated := ps.Evaluations[dep]; evaluated {
				readGraph.AddEdge(key, dep)
			}
		}
	}
	ps.ReadGraph = readGraph

	batches, err := ps.ReadGraph.Batches()
	if err != nil {
		return nil, err
	}
	ps.Batches = batches

	return ps, nil
}

func (ps *ParsedSchema) walk(node jsonvalue.Value, p path.Path) error {
	if !node.IsObject() {
		return nil
	}
	obj := node.AsObject()

	if v, ok := obj.Get("subform"); ok && v.Truthy() {
		ps.Subforms = append(ps.Subforms, p)
	}

	if v, ok := obj.Get("$evaluation"); ok {
		if err := ps.addEvaluation(p, v); err != nil {
			return err
		}
	}

	if v, ok := obj.Get("rules"); ok && v.IsObject() {
		rulesObj := v.AsObject()
		for _, kind := range rulesObj.Keys() {
			spec, _ := rulesObj.Get(kind)
			decl, err := ps.compileRule(p, kind, spec)
			if err != nil {
				return err
			}
			ps.Rules = append(ps.Rules, decl)
		}
	}

	if v, ok := obj.Get("dependents"); ok && v.IsArray() {
		for _, entry := range v.AsArray() {
			action, err := ps.compileDependent(p, entry)
			if err != nil {
				return err
			}
			key := p.String()
			ps.Dependents[key] = append(ps.Dependents[key], action)
			ps.WriteGraph.AddEdge(key, action.Target.String())
		}
	}

	if v, ok := obj.Get("properties"); ok && v.IsObject() {
		propsObj := v.AsObject()
		for _, key := range propsObj.Keys() {
			child, _ := propsObj.Get(key)
			if err := ps.walk(child, p.Child(key)); err != nil {
				return err
			}
		}
	}

	if v, ok := obj.Get("items"); ok {
		// The item schema is shared by every element of the array; its
		// $evaluation/rules are parsed once against a synthetic "items"
		// segment rather than per concrete index (spec is silent on
		// per-element template evaluation; concrete indices are a data-view
		// concern, not a schema-parse one).
		if err := ps.walk(v, p.Child("items")); err != nil {
			return err
		}
	}

	return nil
}

func (ps *ParsedSchema) addEvaluation(p path.Path, evalExpr jsonvalue.Value) error {
	compiled, err := expr.Compile(ps.Table, evalExpr)
	if err != nil {
		return fmt.Errorf("schema path %q: %w", p.String(), err)
	}
	key := p.String()
	ps.Evaluations[key] = EvaluationNode{Path: p, Compiled: compiled}
	ps.EvalOrder = append(ps.EvalOrder, key)
	ps.ReadGraph.AddNode(key)

	for _, r := range compiled.ReadSet {
		if r.Kind != expr.ReadData && r.Kind != expr.ReadSchemaValue {
			continue
		}
		dep := r.Path.String()
		if dep != key {
			ps.ReadGraph.AddEdge(key, dep)
		}
	}
	return nil
}

func (ps *ParsedSchema) compileRule(fieldPath path.Path, kind string, spec jsonvalue.Value) (RuleDecl, error) {
	valueExpr := spec
	message := defaultRuleMessage(kind)

	if spec.IsObject() {
		obj := spec.AsObject()
		if v, ok := obj.Get("value"); ok {
			valueExpr = v
		}
		if v, ok := obj.Get("message"); ok && v.IsString() {
			message = v.AsString()
		}
	}

	compiled, err := expr.Compile(ps.Table, valueExpr)
	if err != nil {
		return RuleDecl{}, fmt.Errorf("schema path %q rule %q: %w", fieldPath.String(), kind, err)
	}
	return RuleDecl{Path: fieldPath, Kind: kind, Compiled: compiled, Message: message}, nil
}

func (ps *ParsedSchema) compileDependent(source path.Path, entry jsonvalue.Value) (DependentAction, error) {
	if !entry.IsObject() {
		return DependentAction{}, fmt.Errorf("%w: dependents entry at %q must be an object", ErrInvalidSchema, source.String())
	}
	obj := entry.AsObject()

	refVal, ok := obj.Get("ref")
	if !ok || !refVal.IsString() {
		return DependentAction{}, fmt.Errorf("%w: dependents entry at %q missing string ref", ErrInvalidSchema, source.String())
	}
	target := path.Parse(refVal.AsString())

	if clearVal, ok := obj.Get("clear"); ok {
		if clearVal.IsBool() {
			return DependentAction{Source: source, Target: target, Kind: ActionClear}, nil
		}
		compiled, err := expr.Compile(ps.Table, clearVal)
		if err != nil {
			return DependentAction{}, fmt.Errorf("dependents entry at %q: %w", source.String(), err)
		}
		return DependentAction{Source: source, Target: target, Kind: ActionClear, Compiled: compiled, HasGate: true}, nil
	}

	if valueVal, ok := obj.Get("value"); ok {
		compiled, err := expr.Compile(ps.Table, valueVal)
		if err != nil {
			return DependentAction{}, fmt.Errorf("dependents entry at %q: %w", source.String(), err)
		}
		return DependentAction{Source: source, Target: target, Kind: ActionValue, Compiled: compiled}, nil
	}

	return DependentAction{}, fmt.Errorf("%w: dependents entry at %q needs value or clear", ErrInvalidSchema, source.String())
}

// ListSubforms returns the subform-rooted paths declared in the schema, in
// tree-walk order, so a caller can drive subform operations without
// re-walking the schema (supplemented feature beyond spec.md's §4.7 mention
// of "subforms" without an enumeration accessor).
func (ps *ParsedSchema) ListSubforms() []path.Path {
	out := make([]path.Path, len(ps.Subforms))
	copy(out, ps.Subforms)
	return out
}

// GetReadSet returns the direct read-set of an evaluation at schemaPath, and
// whether one exists there. Read-only introspection for host-wrapper tooling
// (diagnostics, dependency visualizers).
func (ps *ParsedSchema) GetReadSet(schemaPath string) ([]expr.ReadRef, bool) {
	node, ok := ps.Evaluations[schemaPath]
	if !ok {
		return nil, false
	}
	return node.Compiled.ReadSet, true
}

// GetDependents returns the declared dependent actions for schemaPath, in
// declaration order (spec §9 Open Question 3: dependent order is part of
// the external contract).
func (ps *ParsedSchema) GetDependents(schemaPath string) []DependentAction {
	return ps.Dependents[schemaPath]
}
