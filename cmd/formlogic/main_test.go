package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sumSchema = `{
	"properties": {
		"a": {"type": "number"},
		"b": {"type": "number"},
		"sum": {"$evaluation": {"+": [{"var": "a"}, {"var": "b"}]}}
	}
}`

const ruleSchema = `{
	"properties": {
		"name": {
			"rules": {
				"required": {"value": true, "message": "Name is required"}
			}
		}
	}
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadDocumentJSON(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "schema.json", sumSchema)

	v, err := loadDocument(p)
	require.NoError(t, err)
	assert.True(t, v.IsObject())
}

func TestLoadDocumentYAML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "data.yaml", "a: 1\nb: 2\n")

	v, err := loadDocument(p)
	require.NoError(t, err)
	av, ok := v.AsObject().Get("a")
	require.True(t, ok)
	assert.Equal(t, float64(1), av.AsFloat())
}

func TestLoadDocumentMissingFile(t *testing.T) {
	_, err := loadDocument(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestIsYAMLPath(t *testing.T) {
	assert.True(t, isYAMLPath("foo.yaml"))
	assert.True(t, isYAMLPath("FOO.YML"))
	assert.False(t, isYAMLPath("foo.json"))
}

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", sumSchema)
	dataPath := writeFile(t, dir, "data.json", `{"a": 2, "b": 3}`)

	out, err := runRoot(t, "evaluate", "--schema", schemaPath, "--data", dataPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"sum"`)
}

func TestEvaluateCommandRequiresSchemaFlag(t *testing.T) {
	_, err := runRoot(t, "evaluate")
	require.Error(t, err)
}

// Validate's success path is exercised through the CLI directly; the
// failure path (which calls os.Exit(1)) is covered at the orchestrator
// level in TestValidateCollectsRuleFailures instead, since in-process
// os.Exit would kill the test binary.
func TestValidateCommandPasses(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", ruleSchema)
	dataPath := writeFile(t, dir, "data.json", `{"name": "Alice"}`)

	out, err := runRoot(t, "validate", "--schema", schemaPath, "--data", dataPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"hasErrors": false`)
}

func TestCompileCommand(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", sumSchema)

	out, err := runRoot(t, "compile", "--schema", schemaPath)
	require.NoError(t, err)
	assert.Contains(t, out, "schema ok")
	assert.Contains(t, out, "evaluations: 1")
}

func TestCompileCommandRejectsCyclicSchema(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", `{
		"properties": {
			"a": {"$evaluation": {"var": "b"}},
			"b": {"$evaluation": {"var": "a"}}
		}
	}`)

	_, err := runRoot(t, "compile", "--schema", schemaPath)
	require.Error(t, err)
}
