// Package opimpl implements the pure, data-independent half of the operator
// registry: arithmetic, comparison, boolean, and basic string operators that
// never need to read the data view or evaluation context. Both the compiler's
// constant folder (package expr) and the runtime evaluator (package eval)
// call into this package for these opcodes, so a folded literal and its
// unfolded counterpart are guaranteed to evaluate through the identical code
// path (spec §4.1's "bit-identical modulo float canonicalization" promise).
// The exception is and/or/if/??: the evaluator runs its own lazy versions of
// these, which pick the same operand as And/Or/If/Coalesce here.
package opimpl

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kaptinlin/formlogic/jsonvalue"
)

// ErrTypeMismatch is returned when an operand has a type the operator cannot
// work with; it is the sentinel behind the engine's TypeMismatch error kind.
var ErrTypeMismatch = errors.New("type mismatch")

func typeErr(op string, expected string, got jsonvalue.Value) error {
	return fmt.Errorf("%w: operator %s expected %s, got %s", ErrTypeMismatch, op, expected, got.Kind())
}

// Add implements "+". Two or more Int operands stay Int; any Float operand
// promotes the whole computation to Float, canonicalized at the boundary.
func Add(args []jsonvalue.Value) (jsonvalue.Value, error) {
	allInt := true
	var isum int64
	var fsum float64
	for _, a := range args {
		if !a.IsNumber() {
			return jsonvalue.Value{}, typeErr("+", "number", a)
		}
		if a.IsFloat() {
			allInt = false
		}
		fsum += a.AsFloat()
		if a.IsInt() {
			isum += a.AsInt()
		}
	}
	if allInt {
		return jsonvalue.Int(isum), nil
	}
	return jsonvalue.CanonicalToValue(fsum), nil
}

// Sub implements "-": unary negation with one operand, subtraction with two.
func Sub(args []jsonvalue.Value) (jsonvalue.Value, error) {
	for _, a := range args {
		if !a.IsNumber() {
			return jsonvalue.Value{}, typeErr("-", "number", a)
		}
	}
	if len(args) == 1 {
		if args[0].IsInt() {
			return jsonvalue.Int(-args[0].AsInt()), nil
		}
		return jsonvalue.CanonicalToValue(-args[0].AsFloat()), nil
	}
	if args[0].IsInt() && args[1].IsInt() {
		return jsonvalue.Int(args[0].AsInt() - args[1].AsInt()), nil
	}
	return jsonvalue.CanonicalToValue(args[0].AsFloat() - args[1].AsFloat()), nil
}

// Mul implements "*" over two or more operands, integral-preserving as Add.
func Mul(args []jsonvalue.Value) (jsonvalue.Value, error) {
	allInt := true
	iprod := int64(1)
	fprod := 1.0
	for _, a := range args {
		if !a.IsNumber() {
			return jsonvalue.Value{}, typeErr("*", "number", a)
		}
		if a.IsFloat() {
			allInt = false
		}
		fprod *= a.AsFloat()
		if a.IsInt() {
			iprod *= a.AsInt()
		}
	}
	if allInt {
		return jsonvalue.Int(iprod), nil
	}
	return jsonvalue.CanonicalToValue(fprod), nil
}

// Div implements "/": always floating, per spec §4.2.
func Div(args []jsonvalue.Value) (jsonvalue.Value, error) {
	a, b := args[0], args[1]
	if !a.IsNumber() || !b.IsNumber() {
		return jsonvalue.Value{}, typeErr("/", "number", a)
	}
	return jsonvalue.Float(a.AsFloat() / b.AsFloat()), nil
}

// Mod implements "%". Integer operands stay integral (Go truncating %);
// any float operand promotes to math.Mod.
func Mod(args []jsonvalue.Value) (jsonvalue.Value, error) {
	a, b := args[0], args[1]
	if !a.IsNumber() || !b.IsNumber() {
		return jsonvalue.Value{}, typeErr("%", "number", a)
	}
	if a.IsInt() && b.IsInt() {
		if b.AsInt() == 0 {
			return jsonvalue.Value{}, fmt.Errorf("%w: modulo by zero", ErrTypeMismatch)
		}
		return jsonvalue.Int(a.AsInt() % b.AsInt()), nil
	}
	return jsonvalue.CanonicalToValue(math.Mod(a.AsFloat(), b.AsFloat())), nil
}

// Min returns the smallest of one or more numeric operands.
func Min(args []jsonvalue.Value) (jsonvalue.Value, error) {
	return minMax(args, "min", false)
}

// Max returns the largest of one or more numeric operands.
func Max(args []jsonvalue.Value) (jsonvalue.Value, error) {
	return minMax(args, "max", true)
}

func minMax(args []jsonvalue.Value, op string, wantMax bool) (jsonvalue.Value, error) {
	allInt := true
	best := args[0]
	if !best.IsNumber() {
		return jsonvalue.Value{}, typeErr(op, "number", best)
	}
	if best.IsFloat() {
		allInt = false
	}
	for _, a := range args[1:] {
		if !a.IsNumber() {
			return jsonvalue.Value{}, typeErr(op, "number", a)
		}
		if a.IsFloat() {
			allInt = false
		}
		if (wantMax && a.AsFloat() > best.AsFloat()) || (!wantMax && a.AsFloat() < best.AsFloat()) {
			best = a
		}
	}
	if allInt {
		return jsonvalue.Int(best.AsInt()), nil
	}
	return jsonvalue.CanonicalToValue(best.AsFloat()), nil
}

// Abs implements "abs", preserving Int vs Float.
func Abs(args []jsonvalue.Value) (jsonvalue.Value, error) {
	a := args[0]
	if !a.IsNumber() {
		return jsonvalue.Value{}, typeErr("abs", "number", a)
	}
	if a.IsInt() {
		v := a.AsInt()
		if v < 0 {
			v = -v
		}
		return jsonvalue.Int(v), nil
	}
	return jsonvalue.CanonicalToValue(math.Abs(a.AsFloat())), nil
}

// Round implements "round" with an optional precision second argument.
func Round(args []jsonvalue.Value) (jsonvalue.Value, error) {
	a := args[0]
	if !a.IsNumber() {
		return jsonvalue.Value{}, typeErr("round", "number", a)
	}
	precision := 0
	if len(args) == 2 {
		if !args[1].IsNumber() {
			return jsonvalue.Value{}, typeErr("round", "number", args[1])
		}
		precision = int(args[1].AsInt())
	}
	scale := math.Pow(10, float64(precision))
	result := math.Round(a.AsFloat()*scale) / scale
	if precision <= 0 {
		return jsonvalue.Int(int64(result)), nil
	}
	return jsonvalue.CanonicalToValue(result), nil
}

// Ceil implements "ceil".
func Ceil(args []jsonvalue.Value) (jsonvalue.Value, error) {
	a := args[0]
	if !a.IsNumber() {
		return jsonvalue.Value{}, typeErr("ceil", "number", a)
	}
	return jsonvalue.Int(int64(math.Ceil(a.AsFloat()))), nil
}

// Floor implements "floor".
func Floor(args []jsonvalue.Value) (jsonvalue.Value, error) {
	a := args[0]
	if !a.IsNumber() {
		return jsonvalue.Value{}, typeErr("floor", "number", a)
	}
	return jsonvalue.Int(int64(math.Floor(a.AsFloat()))), nil
}

// Pow implements "pow": always floating, per spec §4.2.
func Pow(args []jsonvalue.Value) (jsonvalue.Value, error) {
	a, b := args[0], args[1]
	if !a.IsNumber() || !b.IsNumber() {
		return jsonvalue.Value{}, typeErr("pow", "number", a)
	}
	return jsonvalue.Float(math.Pow(a.AsFloat(), b.AsFloat())), nil
}

// Compare implements the comparison family (<, <=, >, >=) plus ==, !=, ===.
func Compare(op string, a, b jsonvalue.Value) (jsonvalue.Value, error) {
	switch op {
	case "==":
		return jsonvalue.Bool(jsonvalue.Equal(a, b)), nil
	case "!=":
		return jsonvalue.Bool(!jsonvalue.Equal(a, b)), nil
	case "===":
		return jsonvalue.Bool(jsonvalue.StrictEqual(a, b)), nil
	}
	if a.IsNumber() && b.IsNumber() {
		af, bf := a.AsFloat(), b.AsFloat()
		switch op {
		case "<":
			return jsonvalue.Bool(af < bf), nil
		case "<=":
			return jsonvalue.Bool(af <= bf), nil
		case ">":
			return jsonvalue.Bool(af > bf), nil
		case ">=":
			return jsonvalue.Bool(af >= bf), nil
		}
	}
	if a.IsString() && b.IsString() {
		as, bs := a.AsString(), b.AsString()
		switch op {
		case "<":
			return jsonvalue.Bool(as < bs), nil
		case "<=":
			return jsonvalue.Bool(as <= bs), nil
		case ">":
			return jsonvalue.Bool(as > bs), nil
		case ">=":
			return jsonvalue.Bool(as >= bs), nil
		}
	}
	return jsonvalue.Value{}, typeErr(op, "comparable operands", a)
}

// And implements short-circuit-free "and" over N operands, returning the
// first falsy operand or the last operand if all are truthy (JSON-logic
// convention: returns a value, not necessarily a bool).
func And(args []jsonvalue.Value) jsonvalue.Value {
	var last jsonvalue.Value = jsonvalue.Bool(true)
	for _, a := range args {
		last = a
		if !a.Truthy() {
			return a
		}
	}
	return last
}

// Or implements "or" over N operands: first truthy operand, else the last.
func Or(args []jsonvalue.Value) jsonvalue.Value {
	var last jsonvalue.Value = jsonvalue.Bool(false)
	for _, a := range args {
		last = a
		if a.Truthy() {
			return a
		}
	}
	return last
}

// Not implements "not".
func Not(a jsonvalue.Value) jsonvalue.Value {
	return jsonvalue.Bool(!a.Truthy())
}

// If implements the ternary "if": cond, then[, else]. A missing else yields
// null.
func If(args []jsonvalue.Value) jsonvalue.Value {
	if args[0].Truthy() {
		return args[1]
	}
	if len(args) == 3 {
		return args[2]
	}
	return jsonvalue.Null()
}

// Coalesce implements "??": the first non-null operand, or null.
func Coalesce(args []jsonvalue.Value) jsonvalue.Value {
	for _, a := range args {
		if !a.IsNull() {
			return a
		}
	}
	return jsonvalue.Null()
}

// Concat implements string "concat" over N operands.
func Concat(args []jsonvalue.Value) (jsonvalue.Value, error) {
	var b strings.Builder
	for _, a := range args {
		if !a.IsString() {
			return jsonvalue.Value{}, typeErr("concat", "string", a)
		}
		b.WriteString(a.AsString())
	}
	return jsonvalue.String(b.String()), nil
}

// Upper implements "upper".
func Upper(a jsonvalue.Value) (jsonvalue.Value, error) {
	if !a.IsString() {
		return jsonvalue.Value{}, typeErr("upper", "string", a)
	}
	return jsonvalue.String(strings.ToUpper(a.AsString())), nil
}

// Lower implements "lower".
func Lower(a jsonvalue.Value) (jsonvalue.Value, error) {
	if !a.IsString() {
		return jsonvalue.Value{}, typeErr("lower", "string", a)
	}
	return jsonvalue.String(strings.ToLower(a.AsString())), nil
}

// Trim implements "trim".
func Trim(a jsonvalue.Value) (jsonvalue.Value, error) {
	if !a.IsString() {
		return jsonvalue.Value{}, typeErr("trim", "string", a)
	}
	return jsonvalue.String(strings.TrimSpace(a.AsString())), nil
}
