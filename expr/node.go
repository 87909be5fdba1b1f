package expr

import (
	"github.com/kaptinlin/formlogic/jsonvalue"
	"github.com/kaptinlin/formlogic/path"
)

// NodeKind tags the shape of a compiled node.
type NodeKind uint8

const (
	NodeLiteral NodeKind = iota
	NodeReadData
	NodeReadSchemaValue
	NodeReadSelf   // {$ref: "$value"}: the current field's own value
	NodeReadParams // {$ref: "$params...."}: schema-level parameter block
	NodeOperator
)

// Node is one entry of a compiled expression's flat node array. Operand
// indices refer to other entries in the same Table.
type Node struct {
	Kind     NodeKind
	Op       Opcode
	Literal  jsonvalue.Value
	Path     path.Path
	Operands []int
}

// ReadKind tags what a ReadRef points at.
type ReadKind uint8

const (
	ReadData ReadKind = iota
	ReadSchemaValue
	ReadParams
)

// ReadRef is one entry of a compiled expression's direct read-set (spec
// §4.1): a concrete path the expression reads from at the top level.
type ReadRef struct {
	Kind ReadKind
	Path path.Path
}

// ID identifies a compiled expression within its owning Table. Stable for
// the lifetime of the table (spec §3 invariants).
type ID int

// Compiled is the result of compiling one expression: its root node id
// within the table plus its extracted direct read-set.
type Compiled struct {
	Root    ID
	ReadSet []ReadRef
}
