package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kaptinlin/formlogic"
)

func newCompileCmd() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "compile --schema path",
		Short: "Parse a schema and report its evaluation graph without running it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := loadDocument(schemaPath)
			if err != nil {
				return err
			}
			inst, err := formlogic.New(schema)
			if err != nil {
				return fmt.Errorf("parse schema: %w", err)
			}

			out := cmd.OutOrStdout()
			subforms := inst.ListSubforms()
			fmt.Fprintf(out, "schema ok: %s\n", schemaPath)
			fmt.Fprintf(out, "evaluations: %d\n", inst.EvaluationCount())
			fmt.Fprintf(out, "rules: %d\n", inst.RuleCount())
			fmt.Fprintf(out, "batches: %d\n", inst.BatchCount())
			fmt.Fprintf(out, "subforms: %d\n", len(subforms))
			for _, s := range subforms {
				fmt.Fprintf(out, "  %s\n", s)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the schema document (required)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
