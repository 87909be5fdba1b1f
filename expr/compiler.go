package expr

import (
	"strings"

	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/path"
)

const paramsPrefix = "$params"

// Compile lowers an expression value into the table, returning its root node
// id and its direct read-set (spec §4.1). Compilation is deterministic and
// interning-aware: compiling the same structural expression twice against the
// same table returns the same ID.
func Compile(table *Table, e jsonvalue.Value) (Compiled, error) {
	root, reads, err := compileNode(table, e)
	if err != nil {
		return Compiled{}, err
	}
	return Compiled{Root: root, ReadSet: dedupeReads(reads)}, nil
}

func compileNode(table *Table, e jsonvalue.Value) (ID, []ReadRef, error) {
	if e.IsObject() && e.AsObject().Len() == 1 {
		key := e.AsObject().Keys()[0]
		val, _ := e.AsObject().Get(key)

		switch key {
		case "var":
			return compileVar(table, val)
		case "$ref":
			return compileRef(table, val)
		case "$evaluation":
			return compileNode(table, val)
		default:
			return compileOperator(table, Opcode(key), val)
		}
	}
	return compileLiteral(table, e), nil, nil
}

func compileLiteral(table *Table, e jsonvalue.Value) ID {
	return table.internNode(Node{Kind: NodeLiteral, Literal: e})
}

// reservedIterHead matches the lambda-bound names map/filter/reduce bind
// inside their element expression ($item, $index, $acc). Reads of these are
// resolved purely at runtime against the innermost iteration frame, so they
// are deliberately excluded from the compiled read-set: they name no
// external data dependency.
func reservedIterHead(head string) bool {
	switch head {
	case "$item", "$index", "$acc":
		return true
	default:
		return false
	}
}

func compileVar(table *Table, val jsonvalue.Value) (ID, []ReadRef, error) {
	if !val.IsString() {
		return 0, nil, ErrInvalidExpression
	}
	p := path.Parse(val.AsString())
	id := table.internNode(Node{Kind: NodeReadData, Path: p})
	if head, _, ok := p.Head(); ok && reservedIterHead(head) {
		return id, nil, nil
	}
	return id, []ReadRef{{Kind: ReadData, Path: p}}, nil
}

func compileRef(table *Table, val jsonvalue.Value) (ID, []ReadRef, error) {
	if !val.IsString() {
		return 0, nil, ErrInvalidExpression
	}
	s := val.AsString()
	switch {
	case s == "$value":
		id := table.internNode(Node{Kind: NodeReadSelf})
		return id, nil, nil
	case strings.HasPrefix(s, paramsPrefix):
		rest := strings.TrimPrefix(s, paramsPrefix)
		rest = strings.TrimPrefix(rest, ".")
		p := path.Parse(rest)
		id := table.internNode(Node{Kind: NodeReadParams, Path: p})
		return id, []ReadRef{{Kind: ReadParams, Path: p}}, nil
	default:
		p := path.Parse(s)
		id := table.internNode(Node{Kind: NodeReadSchemaValue, Path: p})
		return id, []ReadRef{{Kind: ReadSchemaValue, Path: p}}, nil
	}
}

func compileOperator(table *Table, op Opcode, args jsonvalue.Value) (ID, []ReadRef, error) {
	arity, known := LookupArity(op)
	if !known {
		return 0, nil, &UnknownOperatorError{Name: string(op)}
	}

	var argList []jsonvalue.Value
	if args.IsArray() {
		argList = args.AsArray()
	} else {
		// Single-argument sugar: {"not": {"var":"x"}} instead of
		// {"not": [{"var":"x"}]}.
		argList = []jsonvalue.Value{args}
	}

	if !arity.Check(len(argList)) {
		return 0, nil, &ArityMismatchError{Op: op, Got: len(argList), Expected: arity}
	}

	operands := make([]int, len(argList))
	var reads []ReadRef
	allLiteral := true
	for i, arg := range argList {
		id, r, err := compileNode(table, arg)
		if err != nil {
			return 0, nil, err
		}
		operands[i] = int(id)
		reads = append(reads, r...)
		if table.Node(id).Kind != NodeLiteral {
			allLiteral = false
		}
	}

	node := Node{Kind: NodeOperator, Op: op, Operands: operands}
	if allLiteral && foldable(op) {
		if litVal, ok := tryFold(table, op, operands); ok {
			return compileLiteral(table, litVal), reads, nil
		}
	}

	return table.internNode(node), reads, nil
}

func dedupeReads(reads []ReadRef) []ReadRef {
	if len(reads) < 2 {
		return reads
	}
	seen := make(map[string]bool, len(reads))
	out := make([]ReadRef, 0, len(reads))
	for _, r := range reads {
		key := string(rune(r.Kind)) + "|" + r.Path.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}
