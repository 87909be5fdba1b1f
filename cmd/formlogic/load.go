package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kaptinlin/formlogic"
	"github.com/kaptinlin/formlogic/jsonvalue"
)

// loadDocument reads path and decodes it as JSON or YAML by extension
// (spec §6 "Schemas and data documents may be supplied as YAML"). A file that
// cannot be read is an error; callers skip optional flags (--data,
// --context) that were left unset instead of calling it.
func loadDocument(path string) (jsonvalue.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return jsonvalue.Value{}, fmt.Errorf("read %s: %w", path, err)
	}
	if isYAMLPath(path) {
		v, err := formlogic.DecodeYAML(data)
		if err != nil {
			return jsonvalue.Value{}, fmt.Errorf("parse %s as yaml: %w", path, err)
		}
		return v, nil
	}
	var v jsonvalue.Value
	if err := v.UnmarshalJSON(data); err != nil {
		return jsonvalue.Value{}, fmt.Errorf("parse %s as json: %w", path, err)
	}
	return v, nil
}

func isYAMLPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
