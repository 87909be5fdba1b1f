package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kaptinlin/formlogic/internal/clilog"
)

func newRootCmd() *cobra.Command {
	logCfg := clilog.NewConfig()

	root := &cobra.Command{
		Use:           "formlogic",
		Short:         "Evaluate and validate formlogic schemas from the command line",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			handler, err := logCfg.NewHandler(os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(handler))
			return nil
		},
	}

	logCfg.RegisterFlags(root.PersistentFlags())
	if err := logCfg.RegisterCompletions(root); err != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", err)
	}

	root.AddCommand(newEvaluateCmd(), newValidateCmd(), newCompileCmd())
	return root
}
