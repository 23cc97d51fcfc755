package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"garnet/internal/config"
	"garnet/internal/evaluator"
	"garnet/internal/machine"
)

var (
	// Version, BuildDate and Commit are set with -ldflags at release time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	logLevel   string
	logFile    string
	include    []string
	security   string
	allow      []string
	debugAST   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newGarnetCmd().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newGarnetCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "garnet",
		Short:         "Garnet runs Ruby-flavoured scripts inside a sandboxable interpreter",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "Load settings from a TOML or YAML file")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error, none")
	pf.StringVar(&flags.logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
	pf.StringSliceVarP(&flags.include, "include", "I", nil, "Add a directory to the require search path")
	pf.StringVar(&flags.security, "security", "", "Security mode: unrestricted, deny-all, allow-list")
	pf.StringSliceVar(&flags.allow, "allow", nil, "Native type names scripts may use in allow-list mode")
	pf.BoolVar(&flags.debugAST, "debug-ast", false, "Print the syntax tree as JSON before running")

	cmd.AddCommand(newRunCmd(&flags))
	cmd.AddCommand(newEvalCmd(&flags))
	cmd.AddCommand(newReplCmd(&flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// configuration merges the config file, GARNET_PATH and the flags, in that
// order of precedence from lowest to highest.
func (f *globalFlags) configuration() (config.Configuration, error) {
	cfg := config.Default()
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	cfg.Version, cfg.BuildDate, cfg.Commit = Version, BuildDate, Commit
	cfg.SearchPaths = append(cfg.SearchPaths, f.include...)
	if f.security != "" {
		cfg.Security.Mode = f.security
	}
	cfg.Security.Allow = append(cfg.Security.Allow, f.allow...)
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	cfg.DebugAST = cfg.DebugAST || f.debugAST
	return cfg, nil
}

// newMachine reads the configuration, installs the default logger and builds
// a machine from them.
func (f *globalFlags) newMachine() (*machine.Machine, error) {
	cfg, err := f.configuration()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(configureLogWriter(cfg.LogFile), &slog.HandlerOptions{
		AddSource: false,
		Level:     logLevelFromString(cfg.LogLevel),
	}))
	slog.SetDefault(logger)
	return machine.New(cfg, machine.WithLogger(logger))
}

func configureLogWriter(logFile string) io.Writer {
	if logFile == "" {
		return os.Stderr
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	w, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
		return os.Stderr
	}
	return w
}

// levelNone is above every level slog emits.
const levelNone = slog.Level(100)

func logLevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "none":
		return levelNone
	default:
		return slog.LevelError
	}
}

func printError(w io.Writer, err error) {
	var raised *evaluator.RaisedError
	if errors.As(err, &raised) {
		fmt.Fprintln(w, raised.Render())
		return
	}
	fmt.Fprintf(w, "garnet: %v\n", err)
}
