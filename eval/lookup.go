package eval

import (
	"fmt"
	"sync"

	"github.com/kaptinlin/formlogic/jsonvalue"
)

// lookupIndexThreshold is the number of LOOKUP calls against the same
// (table, keyCol) pair within a single evaluation after which the evaluator
// builds a transient hash index instead of continuing the O(n) scan
// (spec §4.2 "table/lookup").
const lookupIndexThreshold = 3

// lookupScratch tracks per-evaluation LOOKUP call counts and any transient
// indices built as a result. It lives for the lifetime of one Context (one
// node evaluation in Evaluate, one whole Validate or EvaluateDependents
// call), never persisted to the result cache.
type lookupScratch struct {
	mu      sync.Mutex
	counts  map[string]int
	indices map[string]map[string]int // fingerprint -> keyValue(formatted) -> row index
}

func newLookupScratch() *lookupScratch {
	return &lookupScratch{counts: make(map[string]int), indices: make(map[string]map[string]int)}
}

func lookupFingerprint(table []jsonvalue.Value, keyCol string) string {
	return fmt.Sprintf("%p|%d|%s", &table, len(table), keyCol)
}

// Lookup implements LOOKUP(table, keyCol, keyValue, valueCol): an O(n) scan
// over table for the first row whose keyCol column equals keyValue, unless
// this (table, keyCol) pair has been looked up more than lookupIndexThreshold
// times in this evaluation, in which case a transient hash index is built
// and reused.
func (s *lookupScratch) Lookup(table []jsonvalue.Value, keyCol, valueCol string, keyValue jsonvalue.Value) (jsonvalue.Value, bool) {
	fp := lookupFingerprint(table, keyCol)

	s.mu.Lock()
	s.counts[fp]++
	count := s.counts[fp]
	idx, hasIdx := s.indices[fp]
	s.mu.Unlock()

	if hasIdx {
		rowIdx, found := idx[scalarKey(keyValue)]
		if !found {
			return jsonvalue.Null(), false
		}
		return columnValue(table[rowIdx], valueCol)
	}

	if count > lookupIndexThreshold {
		built := make(map[string]int, len(table))
		for i, row := range table {
			if !row.IsObject() {
				continue
			}
			if kv, ok := row.AsObject().Get(keyCol); ok {
				built[scalarKey(kv)] = i
			}
		}
		s.mu.Lock()
		s.indices[fp] = built
		s.mu.Unlock()
		rowIdx, found := built[scalarKey(keyValue)]
		if !found {
			return jsonvalue.Null(), false
		}
		return columnValue(table[rowIdx], valueCol)
	}

	for _, row := range table {
		if !row.IsObject() {
			continue
		}
		kv, ok := row.AsObject().Get(keyCol)
		if ok && jsonvalue.Equal(kv, keyValue) {
			return columnValue(row, valueCol)
		}
	}
	return jsonvalue.Null(), false
}

func columnValue(row jsonvalue.Value, col string) (jsonvalue.Value, bool) {
	return row.AsObject().Get(col)
}

func scalarKey(v jsonvalue.Value) string {
	if v.IsNumber() {
		return fmt.Sprintf("n:%g", v.AsFloat())
	}
	return fmt.Sprintf("%d:%s", v.Kind(), v.AsString())
}
