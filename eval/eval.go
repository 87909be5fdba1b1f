package eval

import (
	"context"
	"strconv"
	"strings"

	"github.com/kaptinlin/formlogic/expr"
	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/opimpl"
)

// Evaluator interprets compiled expressions against a Context. It holds no
// per-call mutable state itself (that lives on Context), so one Evaluator
// can safely run concurrently across the workers of a topological batch
// (spec §5).
type Evaluator struct {
	table *expr.Table
}

// New returns an Evaluator bound to a compiled-node Table.
func New(table *expr.Table) *Evaluator {
	return &Evaluator{table: table}
}

// Eval interprets the expression rooted at id against ectx, checking ctx for
// cancellation before doing any work.
func (e *Evaluator) Eval(ctx context.Context, ectx *Context, id expr.ID) (jsonvalue.Value, error) {
	select {
	case <-ctx.Done():
		return jsonvalue.Value{}, ErrCancelled
	default:
	}
	return e.eval(ctx, ectx, id)
}

func (e *Evaluator) eval(ctx context.Context, ectx *Context, id expr.ID) (jsonvalue.Value, error) {
	node := e.table.Node(id)

	switch node.Kind {
	case expr.NodeLiteral:
		return node.Literal, nil

	case expr.NodeReadData:
		v, ok := ectx.resolveVar(node.Path)
		if !ok {
			return jsonvalue.Null(), nil
		}
		return v, nil

	case expr.NodeReadSchemaValue:
		v, ok := ectx.SchemaValues.Read(node.Path)
		if !ok {
			return jsonvalue.Null(), nil
		}
		return v, nil

	case expr.NodeReadSelf:
		if ectx.HasSelf {
			return ectx.Self, nil
		}
		return jsonvalue.Null(), nil

	case expr.NodeReadParams:
		if ectx.Params == nil {
			return jsonvalue.Null(), nil
		}
		v, ok := ectx.Params.Read(node.Path)
		if !ok {
			return jsonvalue.Null(), nil
		}
		return v, nil

	case expr.NodeOperator:
		return e.evalOperator(ctx, ectx, node)
	}

	return jsonvalue.Value{}, &TypeMismatchError{Op: "?", Expected: "known node kind", Got: "unknown"}
}

func (e *Evaluator) evalArgs(ctx context.Context, ectx *Context, operands []int) ([]jsonvalue.Value, error) {
	args := make([]jsonvalue.Value, len(operands))
	for i, opID := range operands {
		v, err := e.eval(ctx, ectx, expr.ID(opID))
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

//nolint:gocyclo // the operator dispatch table is inherently a flat switch; see spec §9 "operator registry"
func (e *Evaluator) evalOperator(ctx context.Context, ectx *Context, node expr.Node) (jsonvalue.Value, error) {
	select {
	case <-ctx.Done():
		return jsonvalue.Value{}, ErrCancelled
	default:
	}

	switch node.Op {
	case expr.OpMap:
		return e.evalMap(ctx, ectx, expr.ID(node.Operands[0]), expr.ID(node.Operands[1]))
	case expr.OpFilter:
		return e.evalFilter(ctx, ectx, expr.ID(node.Operands[0]), expr.ID(node.Operands[1]))
	case expr.OpReduce:
		return e.evalReduce(ctx, ectx, node.Operands)
	case expr.OpSome:
		return e.evalSome(ctx, ectx, expr.ID(node.Operands[0]), expr.ID(node.Operands[1]))
	case expr.OpAll:
		return e.evalAll(ctx, ectx, expr.ID(node.Operands[0]), expr.ID(node.Operands[1]))
	case expr.OpIf:
		// if/and/or short-circuit: operands are evaluated lazily.
		return e.evalIf(ctx, ectx, node.Operands)
	case expr.OpAnd:
		return e.evalAndOr(ctx, ectx, node.Operands, true)
	case expr.OpOr:
		return e.evalAndOr(ctx, ectx, node.Operands, false)
	case expr.OpCoalesce:
		return e.evalCoalesce(ctx, ectx, node.Operands)
	}

	args, err := e.evalArgs(ctx, ectx, node.Operands)
	if err != nil {
		return jsonvalue.Value{}, err
	}

	switch node.Op {
	case expr.OpAdd:
		return opimpl.Add(args)
	case expr.OpSub:
		return opimpl.Sub(args)
	case expr.OpMul:
		return opimpl.Mul(args)
	case expr.OpDiv:
		return opimpl.Div(args)
	case expr.OpMod:
		return opimpl.Mod(args)
	case expr.OpMin:
		return opimpl.Min(args)
	case expr.OpMax:
		return opimpl.Max(args)
	case expr.OpAbs:
		return opimpl.Abs(args)
	case expr.OpRound:
		return opimpl.Round(args)
	case expr.OpCeil:
		return opimpl.Ceil(args)
	case expr.OpFloor:
		return opimpl.Floor(args)
	case expr.OpPow:
		return opimpl.Pow(args)
	case expr.OpEq, expr.OpNeq, expr.OpStrictEq, expr.OpLt, expr.OpLte, expr.OpGt, expr.OpGte:
		return opimpl.Compare(string(node.Op), args[0], args[1])
	case expr.OpNot:
		return opimpl.Not(args[0]), nil
	case expr.OpConcat:
		return opimpl.Concat(args)
	case expr.OpSubstr:
		return opSubstring(args)
	case expr.OpUpper:
		return opimpl.Upper(args[0])
	case expr.OpLower:
		return opimpl.Lower(args[0])
	case expr.OpTrim:
		return opimpl.Trim(args[0])
	case expr.OpSplit:
		return opSplit(args[0], args[1])
	case expr.OpJoin:
		return opJoin(args[0], args[1])
	case expr.OpRegex:
		return opRegexMatch(args[0], args[1])
	case expr.OpLength:
		return opLength(args[0])
	case expr.OpAt:
		return opAt(args[0], args[1])
	case expr.OpSlice:
		return opSlice(args)
	case expr.OpContains:
		return opContains(args[0], args[1])
	case expr.OpToday:
		return today(ectx), nil
	case expr.OpNow:
		return now(ectx), nil
	case expr.OpDatedif:
		return datedif(args[0], args[1], args[2])
	case expr.OpLookup:
		if !args[0].IsArray() || !args[1].IsString() || !args[3].IsString() {
			return jsonvalue.Value{}, &TypeMismatchError{Op: "LOOKUP", Expected: "(array, string, any, string)", Got: "mismatched operand"}
		}
		v, found := ectx.lookup.Lookup(args[0].AsArray(), args[1].AsString(), args[3].AsString(), args[2])
		if !found {
			return jsonvalue.Null(), nil
		}
		return v, nil
	case expr.OpToNumber:
		return toNumber(args[0])
	case expr.OpToString:
		return jsonvalue.String(stringify(args[0])), nil
	case expr.OpToBool:
		return jsonvalue.Bool(args[0].Truthy()), nil
	case expr.OpExists:
		return jsonvalue.Bool(!args[0].IsNull()), nil
	}

	return jsonvalue.Value{}, &TypeMismatchError{Op: string(node.Op), Expected: "known operator", Got: "unregistered"}
}

func (e *Evaluator) evalIf(ctx context.Context, ectx *Context, operands []int) (jsonvalue.Value, error) {
	cond, err := e.eval(ctx, ectx, expr.ID(operands[0]))
	if err != nil {
		return jsonvalue.Value{}, err
	}
	if cond.Truthy() {
		return e.eval(ctx, ectx, expr.ID(operands[1]))
	}
	if len(operands) == 3 {
		return e.eval(ctx, ectx, expr.ID(operands[2]))
	}
	return jsonvalue.Null(), nil
}

func (e *Evaluator) evalAndOr(ctx context.Context, ectx *Context, operands []int, wantAllTruthy bool) (jsonvalue.Value, error) {
	var last jsonvalue.Value
	for _, opID := range operands {
		v, err := e.eval(ctx, ectx, expr.ID(opID))
		if err != nil {
			return jsonvalue.Value{}, err
		}
		last = v
		if wantAllTruthy && !v.Truthy() {
			return v, nil
		}
		if !wantAllTruthy && v.Truthy() {
			return v, nil
		}
	}
	return last, nil
}

func (e *Evaluator) evalCoalesce(ctx context.Context, ectx *Context, operands []int) (jsonvalue.Value, error) {
	for _, opID := range operands {
		v, err := e.eval(ctx, ectx, expr.ID(opID))
		if err != nil {
			return jsonvalue.Value{}, err
		}
		if !v.IsNull() {
			return v, nil
		}
	}
	return jsonvalue.Null(), nil
}

func toNumber(v jsonvalue.Value) (jsonvalue.Value, error) {
	switch {
	case v.IsNumber():
		return v, nil
	case v.IsBool():
		if v.AsBool() {
			return jsonvalue.Int(1), nil
		}
		return jsonvalue.Int(0), nil
	case v.IsString():
		return parseNumberString(v.AsString())
	default:
		return jsonvalue.Value{}, &TypeMismatchError{Op: "toNumber", Expected: "number, bool, or numeric string", Got: v.Kind().String()}
	}
}

// parseNumberString converts a trimmed numeric string to an Int or Float
// Value, preferring Int when the text has no fractional or exponent part so
// toNumber("5") yields integral 5, not 5.0 (spec §4.1 integer-preservation).
func parseNumberString(s string) (jsonvalue.Value, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return jsonvalue.Int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return jsonvalue.Value{}, &TypeMismatchError{Op: "toNumber", Expected: "numeric string", Got: s}
	}
	return jsonvalue.Float(f), nil
}
