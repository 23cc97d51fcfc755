package main

import (
	"github.com/spf13/cobra"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run FILE [args...]",
		Short: "Run a script file",
		Long: "Run a script file\n" +
			"\n" +
			"The remaining arguments are available to the script as ARGV and the\n" +
			"script's directory is searched first by require.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := flags.newMachine()
			if err != nil {
				return err
			}
			m.SetArgs(args[1:])
			_, err = m.ExecuteFile(cmd.Context(), args[0])
			return err
		},
	}
}
