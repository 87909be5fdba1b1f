package eval

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/formlogic/expr"
	"github.com/kaptinlin/formlogic/jsonvalue"
)

func strconvItoa(i int64) string   { return strconv.FormatInt(i, 10) }
func strconvFtoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// evalMap implements "map": [arrayExpr, elementExpr]. elementExpr is
// evaluated once per element with $item/$index bound in a fresh iteration
// frame.
func (e *Evaluator) evalMap(ctx context.Context, ectx *Context, source, elem expr.ID) (jsonvalue.Value, error) {
	arr, err := e.evalArrayOperand(ctx, ectx, source, "map")
	if err != nil {
		return jsonvalue.Value{}, err
	}
	out := make([]jsonvalue.Value, len(arr))
	for i, item := range arr {
		ectx.pushFrame(iterFrame{iterItem: item, iterIndex: jsonvalue.Int(int64(i))})
		v, err := e.eval(ctx, ectx, elem)
		ectx.popFrame()
		if err != nil {
			return jsonvalue.Value{}, err
		}
		out[i] = v
	}
	return jsonvalue.Array(out), nil
}

// evalFilter implements "filter": [arrayExpr, predicateExpr].
func (e *Evaluator) evalFilter(ctx context.Context, ectx *Context, source, pred expr.ID) (jsonvalue.Value, error) {
	arr, err := e.evalArrayOperand(ctx, ectx, source, "filter")
	if err != nil {
		return jsonvalue.Value{}, err
	}
	out := make([]jsonvalue.Value, 0, len(arr))
	for i, item := range arr {
		ectx.pushFrame(iterFrame{iterItem: item, iterIndex: jsonvalue.Int(int64(i))})
		v, err := e.eval(ctx, ectx, pred)
		ectx.popFrame()
		if err != nil {
			return jsonvalue.Value{}, err
		}
		if v.Truthy() {
			out = append(out, item)
		}
	}
	return jsonvalue.Array(out), nil
}

// evalReduce implements "reduce": [arrayExpr, combineExpr[, initialExpr]].
// combineExpr sees $acc and $item bound for each step; $acc starts at the
// initial value (default null) and becomes combineExpr's result each step.
func (e *Evaluator) evalReduce(ctx context.Context, ectx *Context, operands []int) (jsonvalue.Value, error) {
	arr, err := e.evalArrayOperand(ctx, ectx, expr.ID(operands[0]), "reduce")
	if err != nil {
		return jsonvalue.Value{}, err
	}
	acc := jsonvalue.Null()
	if len(operands) == 3 {
		acc, err = e.eval(ctx, ectx, expr.ID(operands[2]))
		if err != nil {
			return jsonvalue.Value{}, err
		}
	}
	combine := expr.ID(operands[1])
	for i, item := range arr {
		ectx.pushFrame(iterFrame{iterItem: item, iterIndex: jsonvalue.Int(int64(i)), iterAcc: acc})
		acc, err = e.eval(ctx, ectx, combine)
		ectx.popFrame()
		if err != nil {
			return jsonvalue.Value{}, err
		}
	}
	return acc, nil
}

func (e *Evaluator) evalArrayOperand(ctx context.Context, ectx *Context, id expr.ID, op string) ([]jsonvalue.Value, error) {
	v, err := e.eval(ctx, ectx, id)
	if err != nil {
		return nil, err
	}
	if !v.IsArray() {
		return nil, &TypeMismatchError{Op: op, Expected: "array", Got: v.Kind().String()}
	}
	return v.AsArray(), nil
}

func opLength(v jsonvalue.Value) (jsonvalue.Value, error) {
	switch {
	case v.IsArray():
		return jsonvalue.Int(int64(len(v.AsArray()))), nil
	case v.IsString():
		return jsonvalue.Int(int64(len([]rune(v.AsString())))), nil
	case v.IsObject():
		return jsonvalue.Int(int64(v.AsObject().Len())), nil
	default:
		return jsonvalue.Value{}, &TypeMismatchError{Op: "length", Expected: "array, string, or object", Got: v.Kind().String()}
	}
}

func opAt(arr, idx jsonvalue.Value) (jsonvalue.Value, error) {
	if !arr.IsArray() {
		return jsonvalue.Value{}, &TypeMismatchError{Op: "at", Expected: "array", Got: arr.Kind().String()}
	}
	if !idx.IsNumber() {
		return jsonvalue.Value{}, &TypeMismatchError{Op: "at", Expected: "number", Got: idx.Kind().String()}
	}
	items := arr.AsArray()
	i := int(idx.AsInt())
	if i < 0 {
		i += len(items)
	}
	if i < 0 || i >= len(items) {
		return jsonvalue.Null(), nil
	}
	return items[i], nil
}

func opSlice(args []jsonvalue.Value) (jsonvalue.Value, error) {
	arr := args[0]
	if !arr.IsArray() {
		return jsonvalue.Value{}, &TypeMismatchError{Op: "slice", Expected: "array", Got: arr.Kind().String()}
	}
	items := arr.AsArray()
	start := 0
	end := len(items)
	if len(args) >= 2 && args[1].IsNumber() {
		start = clampIndex(int(args[1].AsInt()), len(items))
	}
	if len(args) == 3 && args[2].IsNumber() {
		end = clampIndex(int(args[2].AsInt()), len(items))
	}
	if start > end {
		start = end
	}
	out := make([]jsonvalue.Value, end-start)
	copy(out, items[start:end])
	return jsonvalue.Array(out), nil
}

func clampIndex(i, length int) int {
	if i < 0 {
		i += length
	}
	if i < 0 {
		return 0
	}
	if i > length {
		return length
	}
	return i
}

func opContains(container, needle jsonvalue.Value) (jsonvalue.Value, error) {
	switch {
	case container.IsArray():
		for _, item := range container.AsArray() {
			if jsonvalue.Equal(item, needle) {
				return jsonvalue.Bool(true), nil
			}
		}
		return jsonvalue.Bool(false), nil
	case container.IsString():
		if !needle.IsString() {
			return jsonvalue.Value{}, &TypeMismatchError{Op: "contains", Expected: "string", Got: needle.Kind().String()}
		}
		return jsonvalue.Bool(strings.Contains(container.AsString(), needle.AsString())), nil
	default:
		return jsonvalue.Value{}, &TypeMismatchError{Op: "contains", Expected: "array or string", Got: container.Kind().String()}
	}
}

func (e *Evaluator) evalSome(ctx context.Context, ectx *Context, source, pred expr.ID) (jsonvalue.Value, error) {
	arr, err := e.evalArrayOperand(ctx, ectx, source, "some")
	if err != nil {
		return jsonvalue.Value{}, err
	}
	for i, item := range arr {
		ectx.pushFrame(iterFrame{iterItem: item, iterIndex: jsonvalue.Int(int64(i))})
		v, err := e.eval(ctx, ectx, pred)
		ectx.popFrame()
		if err != nil {
			return jsonvalue.Value{}, err
		}
		if v.Truthy() {
			return jsonvalue.Bool(true), nil
		}
	}
	return jsonvalue.Bool(false), nil
}

func (e *Evaluator) evalAll(ctx context.Context, ectx *Context, source, pred expr.ID) (jsonvalue.Value, error) {
	arr, err := e.evalArrayOperand(ctx, ectx, source, "all")
	if err != nil {
		return jsonvalue.Value{}, err
	}
	for i, item := range arr {
		ectx.pushFrame(iterFrame{iterItem: item, iterIndex: jsonvalue.Int(int64(i))})
		v, err := e.eval(ctx, ectx, pred)
		ectx.popFrame()
		if err != nil {
			return jsonvalue.Value{}, err
		}
		if !v.Truthy() {
			return jsonvalue.Bool(false), nil
		}
	}
	return jsonvalue.Bool(true), nil
}

func opSubstring(args []jsonvalue.Value) (jsonvalue.Value, error) {
	if !args[0].IsString() {
		return jsonvalue.Value{}, &TypeMismatchError{Op: "substring", Expected: "string", Got: args[0].Kind().String()}
	}
	runes := []rune(args[0].AsString())
	start := 0
	if len(args) >= 2 && args[1].IsNumber() {
		start = clampIndex(int(args[1].AsInt()), len(runes))
	}
	end := len(runes)
	if len(args) == 3 && args[2].IsNumber() {
		end = clampIndex(int(args[2].AsInt()), len(runes))
	}
	if start > end {
		start = end
	}
	return jsonvalue.String(string(runes[start:end])), nil
}

func opSplit(s, sep jsonvalue.Value) (jsonvalue.Value, error) {
	if !s.IsString() || !sep.IsString() {
		return jsonvalue.Value{}, &TypeMismatchError{Op: "split", Expected: "string", Got: s.Kind().String()}
	}
	parts := strings.Split(s.AsString(), sep.AsString())
	out := make([]jsonvalue.Value, len(parts))
	for i, p := range parts {
		out[i] = jsonvalue.String(p)
	}
	return jsonvalue.Array(out), nil
}

func opJoin(arr, sep jsonvalue.Value) (jsonvalue.Value, error) {
	if !arr.IsArray() || !sep.IsString() {
		return jsonvalue.Value{}, &TypeMismatchError{Op: "join", Expected: "array, string", Got: arr.Kind().String()}
	}
	parts := make([]string, len(arr.AsArray()))
	for i, v := range arr.AsArray() {
		parts[i] = stringify(v)
	}
	return jsonvalue.String(strings.Join(parts, sep.AsString())), nil
}

func stringify(v jsonvalue.Value) string {
	switch {
	case v.IsString():
		return v.AsString()
	case v.IsInt():
		return strconvItoa(v.AsInt())
	case v.IsFloat():
		return strconvFtoa(v.AsFloat())
	case v.IsBool():
		if v.AsBool() {
			return "true"
		}
		return "false"
	case v.IsNull():
		return ""
	default:
		b, _ := v.MarshalJSON()
		return string(b)
	}
}

func opRegexMatch(s, pattern jsonvalue.Value) (jsonvalue.Value, error) {
	if !s.IsString() || !pattern.IsString() {
		return jsonvalue.Value{}, &TypeMismatchError{Op: "regex-match", Expected: "string", Got: s.Kind().String()}
	}
	re, err := regexp.Compile(pattern.AsString())
	if err != nil {
		return jsonvalue.Value{}, err
	}
	return jsonvalue.Bool(re.MatchString(s.AsString())), nil
}
