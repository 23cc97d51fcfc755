package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"garnet/internal/repl"
)

const historyFile = ".garnet_history"

func newReplCmd(flags *globalFlags) *cobra.Command {
	var noHistory bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := flags.newMachine()
			if err != nil {
				return err
			}

			line := liner.NewLiner()
			defer line.Close()
			line.SetCtrlCAborts(true)
			line.SetMultiLineMode(true)

			history := ""
			if !noHistory {
				history = historyPath()
				loadHistory(line, history)
			}

			repl.Start(cmd.Context(), m, line, cmd.OutOrStdout())

			if history != "" {
				saveHistory(line, history)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not read or write the history file")

	return cmd
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFile)
}

func loadHistory(line *liner.State, path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := line.ReadHistory(f); err != nil {
		slog.Warn("reading repl history", "path", path, "error", err)
	}
}

func saveHistory(line *liner.State, path string) {
	f, err := os.Create(path)
	if err != nil {
		slog.Warn("writing repl history", "path", path, "error", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		slog.Warn("writing repl history", "path", path, "error", err)
	}
}
