package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newEvalCmd(flags *globalFlags) *cobra.Command {
	var code string
	var printValue bool
	cmd := &cobra.Command{
		Use:   "eval -e CODE [args...]",
		Short: "Evaluate code given on the command line",
		RunE: func(cmd *cobra.Command, args []string) error {
			if code == "" {
				return errors.New("nothing to evaluate, pass code with -e")
			}
			m, err := flags.newMachine()
			if err != nil {
				return err
			}
			m.SetArgs(args)
			val, err := m.Execute(cmd.Context(), code)
			if err != nil {
				return err
			}
			if printValue {
				fmt.Fprintln(cmd.OutOrStdout(), val.Inspect())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&code, "execute", "e", "", "Code to evaluate")
	cmd.Flags().BoolVarP(&printValue, "print", "p", false, "Print the inspected value of the last expression")

	return cmd
}
