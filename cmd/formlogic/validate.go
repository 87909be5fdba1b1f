package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kaptinlin/formlogic"
)

func newValidateCmd() *cobra.Command {
	var schemaPath, dataPath, contextPath string

	cmd := &cobra.Command{
		Use:   "validate [flags] [path ...]",
		Short: "Validate a data document against a schema's declared rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			inst, data, extCtx, err := loadInstance(schemaPath, dataPath, contextPath)
			if err != nil {
				return err
			}
			slog.Debug("validating", "schema", schemaPath, "paths", args)

			report, err := inst.Validate(context.Background(), formlogic.ValidateRequest{
				Data:    data,
				Context: extCtx,
				Paths:   args,
			})
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			if report.HasErrors {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaPath, "schema", "", "path to the schema document (required)")
	cmd.Flags().StringVar(&dataPath, "data", "", "path to the input data document")
	cmd.Flags().StringVar(&contextPath, "context", "", "path to the external context document")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}
