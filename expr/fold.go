package expr

import (
	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/opimpl"
)

// foldableOps is the subset of opcodes that are pure functions of their
// operands (no data view, context, or clock access), and therefore safe to
// evaluate once at compile time when every operand is itself a literal
// (spec §4.1 "const folding"). Operators that read the data view, the
// evaluation context, the wall clock, or a lookup table are deliberately
// excluded: folding them would bake a call-time-dependent value into the
// compiled table forever.
var foldableOps = map[Opcode]bool{
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true, OpMod: true,
	OpMin: true, OpMax: true, OpAbs: true, OpRound: true, OpCeil: true, OpFloor: true, OpPow: true,
	OpEq: true, OpNeq: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true, OpStrictEq: true,
	OpAnd: true, OpOr: true, OpNot: true, OpIf: true, OpCoalesce: true,
	OpConcat: true, OpUpper: true, OpLower: true, OpTrim: true,
}

func foldable(op Opcode) bool { return foldableOps[op] }

// tryFold evaluates an operator node whose operands are all literals,
// calling the exact same opimpl functions the runtime evaluator uses for
// these opcodes so a folded and an unfolded copy are bit-identical. For
// and/or/if/?? the evaluator uses its own lazy versions (package eval), which
// pick the same operand as opimpl.And/Or/If/Coalesce.
func tryFold(table *Table, op Opcode, operandIDs []int) (jsonvalue.Value, bool) {
	args := make([]jsonvalue.Value, len(operandIDs))
	for i, id := range operandIDs {
		args[i] = table.Node(ID(id)).Literal
	}

	var (
		v   jsonvalue.Value
		err error
	)
	switch op {
	case OpAdd:
		v, err = opimpl.Add(args)
	case OpSub:
		v, err = opimpl.Sub(args)
	case OpMul:
		v, err = opimpl.Mul(args)
	case OpDiv:
		v, err = opimpl.Div(args)
	case OpMod:
		v, err = opimpl.Mod(args)
	case OpMin:
		v, err = opimpl.Min(args)
	case OpMax:
		v, err = opimpl.Max(args)
	case OpAbs:
		v, err = opimpl.Abs(args)
	case OpRound:
		v, err = opimpl.Round(args)
	case OpCeil:
		v, err = opimpl.Ceil(args)
	case OpFloor:
		v, err = opimpl.Floor(args)
	case OpPow:
		v, err = opimpl.Pow(args)
	case OpEq, OpNeq, OpStrictEq, OpLt, OpLte, OpGt, OpGte:
		v, err = opimpl.Compare(string(op), args[0], args[1])
	case OpAnd:
		v = opimpl.And(args)
	case OpOr:
		v = opimpl.Or(args)
	case OpNot:
		v = opimpl.Not(args[0])
	case OpIf:
		v = opimpl.If(args)
	case OpCoalesce:
		v = opimpl.Coalesce(args)
	case OpConcat:
		v, err = opimpl.Concat(args)
	case OpUpper:
		v, err = opimpl.Upper(args[0])
	case OpLower:
		v, err = opimpl.Lower(args[0])
	case OpTrim:
		v, err = opimpl.Trim(args[0])
	default:
		return jsonvalue.Value{}, false
	}
	if err != nil {
		return jsonvalue.Value{}, false
	}
	return v, true
}
