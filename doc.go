// Package formlogic implements an evaluation engine for JSON-shaped form
// schemas: schemas embed executable logic expressions, field-level
// validation rules, and inter-field dependency declarations. Given a schema
// document and an input data document, an Instance computes every embedded
// expression, propagates results back into the schema and the data,
// validates the data against the declared rules, and supports selective
// re-evaluation of dependents when a subset of input paths changes.
package formlogic
