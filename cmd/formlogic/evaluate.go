package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaptinlin/formlogic"
	"github.com/kaptinlin/formlogic/jsonvalue"
)

func newEvaluateCmd() *cobra.Command {
	var schemaPath, dataPath, contextPath string

	cmd := &cobra.Command{
		Use:   "evaluate [flags] [path ...]",
		Short: "Evaluate a schema's embedded expressions against a data document",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, data, extCtx, err := loadInstance(schemaPath, dataPath, contextPath)
			if err != nil {
				return err
			}
			slog.Debug("evaluating", "schema", schemaPath, "paths", args)

			out, err := inst.Evaluate(context.Background(), formlogic.EvaluateRequest{
				Data:    data,
				Context: extCtx,
				Paths:   args,
			})
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}
			return printValue(cmd, out)
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the schema document (required)")
	cmd.Flags().StringVar(&dataPath, "data", "", "path to the input data document")
	cmd.Flags().StringVar(&contextPath, "context", "", "path to the external context document")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

// loadInstance loads a schema and, optionally, data/context documents, and
// constructs an Instance ready for evaluate/validate.
func loadInstance(schemaPath, dataPath, contextPath string) (*formlogic.Instance, *jsonvalue.Value, *jsonvalue.Value, error) {
	schema, err := loadDocument(schemaPath)
	if err != nil {
		return nil, nil, nil, err
	}
	inst, err := formlogic.New(schema)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse schema: %w", err)
	}

	var data, extCtx *jsonvalue.Value
	if dataPath != "" {
		v, err := loadDocument(dataPath)
		if err != nil {
			return nil, nil, nil, err
		}
		data = &v
	}
	if contextPath != "" {
		v, err := loadDocument(contextPath)
		if err != nil {
			return nil, nil, nil, err
		}
		extCtx = &v
	}
	return inst, data, extCtx, nil
}

func printValue(cmd *cobra.Command, v jsonvalue.Value) error {
	out, err := v.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	w := cmd.OutOrStdout()
	if w == nil {
		w = os.Stdout
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
