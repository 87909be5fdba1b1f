package formlogic

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kaptinlin/formlogic/cache"
	"github.com/kaptinlin/formlogic/dataview"
	"github.com/kaptinlin/formlogic/eval"
	"github.com/kaptinlin/formlogic/expr"
	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/path"
	"github.com/kaptinlin/formlogic/schemadoc"
	"github.com/kaptinlin/formlogic/scheduler"
)

// EvaluateRequest carries evaluate's optional arguments (spec §4.7
// "evaluate(data, context?, paths?)"). A nil Data/Context leaves the
// instance's current document in place; a non-nil one replaces it before
// evaluation runs, exactly like calling SetData/SetContext first.
type EvaluateRequest struct {
	Data    *jsonvalue.Value
	Context *jsonvalue.Value
	Paths   []string
}

// Evaluate runs every batch in dependency order (or, when req.Paths is
// given, the transitive closure of those paths in the read graph),
// writing computed values into both the evaluated-schema-value store and
// the data overlay (spec §4.7). Independent evaluations within a batch run
// concurrently via errgroup; a strict barrier separates batches (spec §5).
func (in *Instance) Evaluate(ctx context.Context, req EvaluateRequest) (jsonvalue.Value, error) {
	in.applyRequestInputs(req.Data, req.Context)

	gen := in.beginCall()
	now := time.Now()

	batches := in.schema.Batches
	if len(req.Paths) > 0 {
		batches = restrictBatches(batches, in.schema.ReadGraph, req.Paths)
	}

	if err := in.runBatches(ctx, gen, batches, now); err != nil {
		return jsonvalue.Value{}, err
	}
	return in.buildEvaluatedSchema(false)
}

func (in *Instance) applyRequestInputs(data, extCtx *jsonvalue.Value) {
	if data != nil {
		in.SetData(*data)
	}
	if extCtx != nil {
		in.SetContext(*extCtx)
	}
}

// runBatches drives the given batches against the instance's current data
// view, checking for cancellation/supersession between each one (spec §5
// "the orchestrator yields between batches to allow cancellation checks").
func (in *Instance) runBatches(ctx context.Context, gen int64, batches [][]string, now time.Time) error {
	for _, batch := range batches {
		if in.isCancelled() || in.superseded(gen) {
			return &CancelledError{}
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, key := range batch {
			key := key
			node, ok := in.schema.Evaluations[key]
			if !ok {
				continue
			}
			g.Go(func() error { return in.evalAndStore(gctx, node, now) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// evalAndStore evaluates one schema node's $evaluation, consulting and
// populating the result cache, then writes the result into both the
// evaluated-schema-value store and the data overlay (spec §4.7 "writes the
// computed values into both the output schema and the output data
// overlay").
func (in *Instance) evalAndStore(ctx context.Context, node schemadoc.EvaluationNode, now time.Time) error {
	ectx := in.newEvalContext(now)

	key := cache.Key{ID: node.Compiled.Root, Fingerprint: in.captureFingerprint(node.Compiled.ReadSet)}
	if cached, ok := in.cache.Get(key); ok {
		in.writeResult(node.Path, cached)
		return nil
	}

	result, err := in.evaluator.Eval(ctx, ectx, node.Compiled.Root)
	if err != nil {
		return fmt.Errorf("evaluate %q: %w", node.Path.String(), err)
	}
	in.cache.Set(key, result)
	in.writeResult(node.Path, result)
	return nil
}

func (in *Instance) writeResult(p path.Path, v jsonvalue.Value) {
	in.schemaValues.Write(p, v)
	in.data.Write(p, v)
}

// captureFingerprint hashes the current values of a read-set in its
// canonical order (spec §4.6): schema-value reads are resolved against the
// evaluated-value store, data reads against the data view.
func (in *Instance) captureFingerprint(readSet []expr.ReadRef) uint64 {
	values := make([]jsonvalue.Value, len(readSet))
	for i, r := range readSet {
		var v jsonvalue.Value
		var ok bool
		switch r.Kind {
		case expr.ReadSchemaValue:
			v, ok = in.schemaValues.Read(r.Path)
		case expr.ReadParams:
			v, ok = in.params.Read(r.Path)
		default:
			v, ok = in.data.Read(r.Path)
		}
		if ok {
			values[i] = v
		} else {
			values[i] = jsonvalue.Null()
		}
	}
	return cache.Fingerprint(values)
}

// newEvalContext builds a fresh eval.Context snapshotted at now, per the
// "NOW()/TODAY() snapshot per call" resolution of spec §9 Open Question 1.
func (in *Instance) newEvalContext(now time.Time) *eval.Context {
	var extReader eval.Reader
	if !in.externalCtx.IsNull() {
		extReader = eval.NewDocReader(in.externalCtx)
	}
	return eval.NewContext(in.data, in.schemaValues, in.params, extReader, now, in.tzOffsetMinutes)
}

// restrictBatches filters batches down to the transitive closure (in the
// read graph) of the requested seed paths, preserving relative batch order
// and dropping batches left empty by the restriction.
func restrictBatches(batches [][]string, graph *scheduler.Graph, seeds []string) [][]string {
	closure := transitiveClosure(graph, seeds)
	out := make([][]string, 0, len(batches))
	for _, batch := range batches {
		var filtered []string
		for _, key := range batch {
			if closure[key] {
				filtered = append(filtered, key)
			}
		}
		if len(filtered) > 0 {
			out = append(out, filtered)
		}
	}
	return out
}

func transitiveClosure(graph *scheduler.Graph, seeds []string) map[string]bool {
	visited := make(map[string]bool)
	stack := make([]string, 0, len(seeds))
	for _, s := range seeds {
		stack = append(stack, path.Parse(s).String())
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, d := range graph.Dependencies(n) {
			if !visited[d] {
				stack = append(stack, d)
			}
		}
	}
	return visited
}

// === Validation (spec §4.7 validate/validatePaths) ===

// ValidateRequest carries validate/validatePaths's optional arguments.
type ValidateRequest struct {
	Data    *jsonvalue.Value
	Context *jsonvalue.Value
	Paths   []string
}

// Validate runs every declared rule (or, when req.Paths is given, only
// rules at those paths) against the current data view, collecting failures
// into a ValidationReport keyed by path (spec §4.7, §8 Scenario 5). A rule
// whose value expression itself errors is recorded as a validation failure
// for that rule rather than as a fatal call error (spec §4.7, §7).
func (in *Instance) Validate(ctx context.Context, req ValidateRequest) (*ValidationReport, error) {
	in.applyRequestInputs(req.Data, req.Context)

	var scope map[string]bool
	if len(req.Paths) > 0 {
		scope = make(map[string]bool, len(req.Paths))
		for _, p := range req.Paths {
			scope[path.Parse(p).String()] = true
		}
	}

	now := time.Now()
	ectx := in.newEvalContext(now)
	report := NewValidationReport()

	for _, rule := range in.schema.Rules {
		key := rule.Path.String()
		if scope != nil && !scope[key] {
			continue
		}
		if err := in.checkOneRule(ctx, ectx, rule, report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// ValidatePaths is Validate scoped to an explicit path list (spec §4.7
// "validatePaths(data, context?, paths?)").
func (in *Instance) ValidatePaths(ctx context.Context, paths []string, req ValidateRequest) (*ValidationReport, error) {
	req.Paths = paths
	return in.Validate(ctx, req)
}

func (in *Instance) checkOneRule(ctx context.Context, ectx *eval.Context, rule schemadoc.RuleDecl, report *ValidationReport) error {
	ruleValue, err := in.evaluator.Eval(ctx, ectx, rule.Compiled.Root)
	if err != nil {
		report.AddError(rule.Path.String(), NewRuleError(rule.Path.String(), rule.Kind, "rule_evaluation_failed", rule.Message, map[string]any{
			"path":  rule.Path.String(),
			"error": err.Error(),
		}))
		return nil
	}

	fieldValue, _ := in.data.Read(rule.Path)
	failure, err := schemadoc.CheckRule(rule.Kind, ruleValue, fieldValue)
	if err != nil {
		return fmt.Errorf("validate %q rule %q: %w", rule.Path.String(), rule.Kind, err)
	}
	if failure == nil {
		return nil
	}

	params := map[string]any{"path": rule.Path.String()}
	for k, v := range failure.Params {
		params[k] = v
	}
	report.AddError(rule.Path.String(), NewRuleError(rule.Path.String(), rule.Kind, failure.Code, rule.Message, params))
	return nil
}

// === Selective re-evaluation (spec §4.7 evaluateDependents) ===

// DependentChange is one entry of evaluateDependents's ordered change list
// (spec §4.7 "{ref, value|clear, transitive: bool}").
type DependentChange struct {
	Ref        string
	Value      jsonvalue.Value
	Cleared    bool
	Transitive bool

	// Err holds the evaluation failure message when this target's action
	// errored; siblings still ran (spec §7 "a failure on one dependent
	// target is recorded against that target's change record").
	Err string
}

// EvaluateDependentsRequest carries evaluateDependents's arguments.
type EvaluateDependentsRequest struct {
	ChangedPaths []string
	Data         *jsonvalue.Value
	Context      *jsonvalue.Value
	ReEvaluate   bool
}

// EvaluateDependents chases the write graph's out-edges from the changed
// paths to fixpoint, applying clears and value-writes and recording each as
// a DependentChange (spec §4.7, §8 Scenarios 1-3). Exceeding the instance's
// depth cap (default 32) raises DependencyChainTooDeepError.
func (in *Instance) EvaluateDependents(ctx context.Context, req EvaluateDependentsRequest) ([]DependentChange, error) {
	in.applyRequestInputs(req.Data, req.Context)

	now := time.Now()
	ectx := in.newEvalContext(now)

	var changes []DependentChange
	frontier := append([]string(nil), req.ChangedPaths...)
	transitive := false

	for depth := 0; len(frontier) > 0; depth++ {
		if depth >= in.depthCap {
			return changes, &DependencyChainTooDeepError{Initial: req.ChangedPaths, Depth: depth}
		}

		var next []string
		for _, changed := range frontier {
			key := path.Parse(changed).String()
			for _, action := range in.schema.GetDependents(key) {
				change, fired, err := in.applyDependentAction(ctx, ectx, action)
				if err != nil {
					// Per spec §7: a failure on one dependent target is
					// recorded against that target's change record;
					// siblings still run.
					changes = append(changes, DependentChange{Ref: action.Target.String(), Transitive: transitive, Err: err.Error()})
					continue
				}
				if !fired {
					continue
				}
				change.Transitive = transitive
				changes = append(changes, change)
				next = append(next, action.Target.String())
			}
		}
		frontier = next
		transitive = true
	}

	if req.ReEvaluate {
		if _, err := in.Evaluate(ctx, EvaluateRequest{}); err != nil {
			return changes, err
		}
	}
	return changes, nil
}

func (in *Instance) applyDependentAction(ctx context.Context, ectx *eval.Context, action schemadoc.DependentAction) (DependentChange, bool, error) {
	if action.Kind == schemadoc.ActionClear {
		if action.HasGate {
			gate, err := in.evaluator.Eval(ctx, ectx, action.Compiled.Root)
			if err != nil {
				return DependentChange{}, false, err
			}
			if !gate.Truthy() {
				return DependentChange{}, false, nil
			}
		}
		in.data.Write(action.Target, jsonvalue.Null())
		in.schemaValues.Write(action.Target, jsonvalue.Null())
		return DependentChange{Ref: action.Target.String(), Cleared: true}, true, nil
	}

	self, _ := in.data.Read(action.Source)
	scopedCtx := ectx.WithSelf(self)
	value, err := in.evaluator.Eval(ctx, scopedCtx, action.Compiled.Root)
	if err != nil {
		return DependentChange{}, false, err
	}
	in.writeResult(action.Target, value)
	return DependentChange{Ref: action.Target.String(), Value: value}, true, nil
}

// === Schema reload (spec §4.7 reloadSchema/reloadSchemaFromCache) ===

// ReloadSchema replaces the instance's ParsedSchema, flushing the result
// cache and evaluated-value store (spec §4.7). The data view is reset to
// data if provided, else kept materialized across the reload.
func (in *Instance) ReloadSchema(raw jsonvalue.Value, opts ...Option) error {
	ps, err := schemadoc.Parse(raw)
	if err != nil {
		return translateParseError(err)
	}
	in.applyReload(ps, opts...)
	return nil
}

// ReloadSchemaFromCache is ReloadSchema sourced from a SchemaCache entry.
func (in *Instance) ReloadSchemaFromCache(sc *SchemaCache, key string, opts ...Option) error {
	ps, ok := sc.Get(key)
	if !ok {
		return &SchemaNotFoundError{Key: key}
	}
	in.applyReload(ps, opts...)
	return nil
}

func (in *Instance) applyReload(ps *schemadoc.ParsedSchema, opts ...Option) {
	in.mu.Lock()
	currentData := in.data.Materialize()
	in.schema = ps
	in.params = eval.NewDocReader(ps.Params)
	in.evaluator = eval.New(ps.Table)
	in.schemaValues = newSchemaValueStore()
	in.cache.InvalidateAll()
	in.data = dataview.New(currentData)
	in.mu.Unlock()

	for _, opt := range opts {
		opt(in)
	}
	in.beginCall()
}

// === Layout resolution (spec §4.7 resolveLayout) ===

// ResolveLayout splices every `$ref` node in the layout subtree with the
// referenced schema subtree (spec §4.7, SPEC_FULL.md supplemented feature
// 2: "a structural copy-and-splice, never evaluates the referenced node's
// rules"). When runEvaluateFirst is true, a full Evaluate precedes
// resolution so referenced nodes carry their current computed values.
func (in *Instance) ResolveLayout(ctx context.Context, runEvaluateFirst bool) (jsonvalue.Value, error) {
	if runEvaluateFirst {
		if _, err := in.Evaluate(ctx, EvaluateRequest{}); err != nil {
			return jsonvalue.Value{}, err
		}
	}
	in.mu.RLock()
	layout := in.schema.Layout
	raw := in.schema.Raw
	in.mu.RUnlock()
	return resolveLayoutNode(layout, raw), nil
}

func resolveLayoutNode(node, raw jsonvalue.Value) jsonvalue.Value {
	switch {
	case node.IsObject():
		obj := node.AsObject()
		if refVal, ok := obj.Get("$ref"); ok && refVal.IsString() {
			if sub, found := schemaNodeAt(raw, path.Parse(refVal.AsString())); found {
				return sub
			}
			return node
		}
		out := jsonvalue.NewObject()
		for _, k := range obj.Keys() {
			v, _ := obj.Get(k)
			out.Set(k, resolveLayoutNode(v, raw))
		}
		return jsonvalue.Obj(out)
	case node.IsArray():
		items := node.AsArray()
		resolved := make([]jsonvalue.Value, len(items))
		for i, item := range items {
			resolved[i] = resolveLayoutNode(item, raw)
		}
		return jsonvalue.Array(resolved)
	default:
		return node
	}
}

// === Subform scoping (spec §4.7 "Subforms") ===

// ListSubforms returns the declared subform-rooted paths in dotted form.
func (in *Instance) ListSubforms() []string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	subforms := in.schema.ListSubforms()
	out := make([]string, len(subforms))
	for i, p := range subforms {
		out[i] = p.String()
	}
	return out
}

// BatchCount reports how many topological batches the read graph produced
// (spec §4.4), a cheap diagnostic for host-wrapper tooling.
func (in *Instance) BatchCount() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.schema.Batches)
}

// RuleCount reports how many validation rules the schema declares.
func (in *Instance) RuleCount() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.schema.Rules)
}

// EvaluationCount reports how many `$evaluation` nodes the schema declares.
func (in *Instance) EvaluationCount() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.schema.EvalOrder)
}

// EvaluateSubform runs Evaluate scoped to a declared subform's subtree
// (spec §4.7 "Subform operations take a subform path plus the normal
// arguments and operate only on that subtree"). Evaluation is restricted to
// schema paths under subformPath; cross-subform reads outside the subtree
// are permitted read-only since they resolve through the shared data view
// exactly as any other read would (spec: "cross-subform references are
// permitted only if they target the enclosing parent and are treated as
// read-only inputs").
func (in *Instance) EvaluateSubform(ctx context.Context, subformPath string, req EvaluateRequest) (jsonvalue.Value, error) {
	if !in.hasSubform(subformPath) {
		return jsonvalue.Value{}, &SubformNotFoundError{Path: subformPath}
	}
	scoped := req
	scoped.Paths = in.pathsUnderSubform(subformPath, req.Paths)
	return in.Evaluate(ctx, scoped)
}

// ValidateSubform runs Validate scoped to a declared subform's subtree.
func (in *Instance) ValidateSubform(ctx context.Context, subformPath string, req ValidateRequest) (*ValidationReport, error) {
	if !in.hasSubform(subformPath) {
		return nil, &SubformNotFoundError{Path: subformPath}
	}
	scoped := req
	scoped.Paths = in.pathsUnderSubform(subformPath, req.Paths)
	return in.Validate(ctx, scoped)
}

func (in *Instance) hasSubform(subformPath string) bool {
	key := path.Parse(subformPath).String()
	for _, p := range in.schema.ListSubforms() {
		if p.String() == key {
			return true
		}
	}
	return false
}

// pathsUnderSubform restricts requested (or, absent any, every evaluated)
// paths to those rooted at subformPath.
func (in *Instance) pathsUnderSubform(subformPath string, requested []string) []string {
	root := path.Parse(subformPath)
	var candidates []string
	if len(requested) > 0 {
		candidates = requested
	} else {
		candidates = in.schema.EvalOrder
	}

	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if path.Parse(c).HasPrefix(root) {
			out = append(out, c)
		}
	}
	return out
}

// === Raw compile/run service (spec §4.7 compileLogic/runLogic) ===

// CompileLogic compiles e against this instance's shared expression table,
// exposing the compiler as a standalone service (spec §4.7).
func (in *Instance) CompileLogic(e jsonvalue.Value) (expr.Compiled, error) {
	return expr.Compile(in.schema.Table, e)
}

// RunLogic evaluates a previously compiled expression id against ad hoc
// data/context documents, independent of the schema's own data view (spec
// §4.7 "runLogic(id, data, context)").
func (in *Instance) RunLogic(ctx context.Context, id expr.ID, data, extCtx jsonvalue.Value) (jsonvalue.Value, error) {
	var ctxReader eval.Reader
	if !extCtx.IsNull() {
		ctxReader = eval.NewDocReader(extCtx)
	}
	in.mu.RLock()
	params := in.params
	tz := in.tzOffsetMinutes
	in.mu.RUnlock()

	ectx := eval.NewContext(eval.NewDocReader(data), in.schemaValues, params, ctxReader, time.Now(), tz)
	return in.evaluator.Eval(ctx, ectx, id)
}

// === Read-only schema views (spec §4.7) ===

// Format selects the return shape for multi-path reads (spec §6).
type Format string

const (
	FormatNested Format = "nested"
	FormatFlat   Format = "flat"
	FormatArray  Format = "array"
)

// GetEvaluatedSchema returns a copy of the schema tree with every evaluated
// node's current value spliced in as a "value" field. When skipLayout is
// true the top-level "layout" key is omitted.
func (in *Instance) GetEvaluatedSchema(skipLayout bool) (jsonvalue.Value, error) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.buildEvaluatedSchema(skipLayout)
}

func (in *Instance) buildEvaluatedSchema(skipLayout bool) (jsonvalue.Value, error) {
	out := spliceEvaluatedValues(in.schema.Raw, path.Root(), in.schemaValues)
	if skipLayout && out.IsObject() {
		obj := out.AsObject().Clone()
		obj.Delete("layout")
		return jsonvalue.Obj(obj), nil
	}
	return out, nil
}

func spliceEvaluatedValues(node jsonvalue.Value, p path.Path, values *schemaValueStore) jsonvalue.Value {
	if !node.IsObject() {
		return node
	}
	src := node.AsObject()
	out := jsonvalue.NewObject()
	for _, k := range src.Keys() {
		v, _ := src.Get(k)
		switch k {
		case "properties":
			if v.IsObject() {
				propsObj := v.AsObject()
				newProps := jsonvalue.NewObject()
				for _, propKey := range propsObj.Keys() {
					child, _ := propsObj.Get(propKey)
					newProps.Set(propKey, spliceEvaluatedValues(child, p.Child(propKey), values))
				}
				out.Set(k, jsonvalue.Obj(newProps))
				continue
			}
		case "items":
			out.Set(k, spliceEvaluatedValues(v, p.Child("items"), values))
			continue
		}
		out.Set(k, v)
	}
	if val, ok := values.Read(p); ok {
		out.Set("value", val)
	}
	return jsonvalue.Obj(out)
}

// GetSchemaByPath returns the schema node declared at schemaPath, taken from
// the evaluated schema so an evaluated node carries its current "value".
func (in *Instance) GetSchemaByPath(schemaPath string) (jsonvalue.Value, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	evaluated, _ := in.buildEvaluatedSchema(false)
	return schemaNodeAt(evaluated, path.Parse(schemaPath))
}

// GetSchemaByPaths returns the schema nodes at paths, shaped per format
// (spec §6, §8 Scenario 6). Missing paths are skipped except in array mode,
// where they produce explicit null slots preserving positional alignment.
func (in *Instance) GetSchemaByPaths(paths []string, format Format) (jsonvalue.Value, error) {
	in.mu.RLock()
	raw := in.schema.Raw
	in.mu.RUnlock()

	switch format {
	case FormatFlat, "":
		out := jsonvalue.NewObject()
		for _, p := range paths {
			if v, ok := schemaNodeAt(raw, path.Parse(p)); ok {
				out.Set(p, v)
			}
		}
		return jsonvalue.Obj(out), nil

	case FormatArray:
		arr := make([]jsonvalue.Value, len(paths))
		for i, p := range paths {
			if v, ok := schemaNodeAt(raw, path.Parse(p)); ok {
				arr[i] = v
			} else {
				arr[i] = jsonvalue.Null()
			}
		}
		return jsonvalue.Array(arr), nil

	case FormatNested:
		root := jsonvalue.NewObject()
		for _, p := range paths {
			v, ok := schemaNodeAt(raw, path.Parse(p))
			if !ok {
				continue
			}
			nestSchemaValue(root, path.Parse(p), v)
		}
		return jsonvalue.Obj(root), nil

	default:
		return jsonvalue.Value{}, fmt.Errorf("unknown format %q", format)
	}
}

func nestSchemaValue(root *jsonvalue.Object, p path.Path, v jsonvalue.Value) {
	segs := p.Segments()
	cur := root
	for i, seg := range segs {
		if i == len(segs)-1 {
			cur.Set(seg, v)
			return
		}
		child, ok := cur.Get(seg)
		var childObj *jsonvalue.Object
		if ok && child.IsObject() {
			childObj = child.AsObject()
		} else {
			childObj = jsonvalue.NewObject()
			cur.Set(seg, jsonvalue.Obj(childObj))
		}
		cur = childObj
	}
}

// schemaNodeAt walks raw following the same properties/items convention
// schemadoc.Parse uses to assign schema paths (a path segment either names
// a key under the current node's "properties" object, or is the literal
// segment "items" naming the current node's "items" schema).
func schemaNodeAt(raw jsonvalue.Value, p path.Path) (jsonvalue.Value, bool) {
	cur := raw
	for _, seg := range p.Segments() {
		if !cur.IsObject() {
			return jsonvalue.Value{}, false
		}
		obj := cur.AsObject()
		if seg == "items" {
			if items, ok := obj.Get("items"); ok {
				cur = items
				continue
			}
		}
		if propsVal, ok := obj.Get("properties"); ok && propsVal.IsObject() {
			if child, ok := propsVal.AsObject().Get(seg); ok {
				cur = child
				continue
			}
		}
		return jsonvalue.Value{}, false
	}
	return cur, true
}
