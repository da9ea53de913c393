package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var version = "dev"

// exitError carries a process exit code out of a command.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string {
	return e.message
}

type cliFlags struct {
	configPath    string
	dir           string
	logFile       string
	script        string
	verbose       bool
	debug         bool
	metrics       bool
	exampleConfig bool
	maxIterations int
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdin)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return 0
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.message != "" {
			fmt.Fprintln(stderr, exitErr.message)
		}
		return exitErr.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	flags := &cliFlags{}
	cmd := &cobra.Command{
		Use:   "workbench [question...]",
		Short: "Answer questions about a project by letting a model work inside it",
		Long: `workbench sends a question to a chat model that can list, read and write
files and run Python scripts, all confined to one working directory.
Without a question it starts an interactive prompt when stdin is a terminal.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags, stdin, strings.TrimSpace(strings.Join(args, " ")))
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	f.StringVar(&flags.dir, "dir", "", "Working directory the capabilities are confined to")
	f.StringVar(&flags.logFile, "log-file", "", "Log file path (logs disabled by default)")
	f.StringVar(&flags.script, "script", "", "Replay controller responses from a YAML script instead of calling a model")
	f.BoolVar(&flags.verbose, "verbose", false, "Print arguments and results of every call")
	f.BoolVarP(&flags.debug, "debug", "d", false, "Enable debug logging")
	f.BoolVar(&flags.metrics, "metrics", false, "Print capability metrics to stderr on exit")
	f.BoolVar(&flags.exampleConfig, "example-config", false, "Print an example configuration file and exit")
	f.IntVar(&flags.maxIterations, "max-iterations", 0, "Maximum controller turns per question")

	return cmd
}

func initLogger(debug bool, level, logFilePath string) (zerolog.Logger, func(), error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}
	if debug {
		lvl = zerolog.DebugLevel
	}

	// No logging to console by default
	var output io.Writer = io.Discard
	closer := func() {}
	if logFilePath != "" {
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		closer = func() { _ = file.Close() }
	}

	return zerolog.New(output).Level(lvl).With().Timestamp().Logger(), closer, nil
}
