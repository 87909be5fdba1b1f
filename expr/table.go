package expr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

// Table is a process- or instance-wide, append-only store of compiled nodes.
// Structurally identical subtrees intern to the same ID (spec §3, §4.1): this
// is what lets the result cache and the schema cache treat (compiled-id,
// fingerprint) as a stable key. A Table is safe for concurrent Compile calls;
// nodes are frozen once appended (spec §9 "arena storage with integer ids").
type Table struct {
	mu     sync.RWMutex
	nodes  []Node
	intern map[string]ID
}

// NewTable returns an empty, ready-to-use compiled-node table.
func NewTable() *Table {
	return &Table{intern: make(map[string]ID)}
}

// Node returns the node stored at id. Panics if id is out of range, which
// would indicate a bug in the compiler producing a dangling reference.
func (t *Table) Node(id ID) Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[id]
}

// Len returns the number of distinct interned nodes.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes)
}

// internNode appends n if no structurally-identical node is already present,
// returning the (possibly pre-existing) ID.
func (t *Table) internNode(n Node) ID {
	key := structuralKey(n)

	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.intern[key]; ok {
		return id
	}
	id := ID(len(t.nodes))
	t.nodes = append(t.nodes, n)
	t.intern[key] = id
	return id
}

// structuralKey produces a string that is identical for two nodes iff they
// describe the same node graph: operand IDs are already-interned table
// indices, so structural (not textual) equality of subtrees naturally
// collapses to pointer/index equality here.
func structuralKey(n Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%s|", n.Kind, n.Op)
	switch n.Kind {
	case NodeLiteral:
		lit, _ := json.Marshal(n.Literal)
		b.Write(lit)
	case NodeReadData, NodeReadSchemaValue, NodeReadParams:
		b.WriteString(n.Path.String())
	case NodeReadSelf:
		// no payload
	case NodeOperator:
		for i, op := range n.Operands {
			if i > 0 {
				b.WriteByte(',')
			}
			fmt.Fprintf(&b, "%d", op)
		}
	}
	return b.String()
}
